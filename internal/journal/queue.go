package journal

import "sync"

// Queue is a FIFO ring buffer that doubles when full, up to a hard limit.
// At the limit the oldest item is discarded to make room.
type Queue[T any] struct {
	mu     sync.Mutex
	buf    []T
	head   int
	count  int
	limit  int
	closed bool

	// ready has capacity 1 and is signalled after every successful Push.
	ready chan struct{}

	pushed  int64
	popped  int64
	dropped int64
	grows   int
}

// QueueStats is a point-in-time view of a Queue.
type QueueStats struct {
	Len      int
	Cap      int
	Pushed   int64
	Popped   int64
	Dropped  int64
	Grows    int
	IsClosed bool
}

// NewQueue creates a queue with the given initial capacity. limit <= 0
// means the queue may grow without bound.
func NewQueue[T any](initial, limit int) *Queue[T] {
	if initial < 1 {
		initial = 1
	}
	if limit > 0 && initial > limit {
		initial = limit
	}
	return &Queue[T]{
		buf:   make([]T, initial),
		limit: limit,
		ready: make(chan struct{}, 1),
	}
}

// Push appends an item. It returns false once the queue is closed.
func (q *Queue[T]) Push(item T) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}

	if q.count == len(q.buf) {
		if q.limit <= 0 || len(q.buf) < q.limit {
			q.growLocked()
		} else {
			q.popLocked()
			q.popped--
			q.dropped++
		}
	}

	q.buf[(q.head+q.count)%len(q.buf)] = item
	q.count++
	q.pushed++
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}
	return true
}

// Ready is signalled when items may be available.
func (q *Queue[T]) Ready() <-chan struct{} {
	return q.ready
}

// Drain removes up to max items in FIFO order. max <= 0 drains everything.
func (q *Queue[T]) Drain(max int) []T {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := q.count
	if max > 0 && max < n {
		n = max
	}
	if n == 0 {
		return nil
	}

	out := make([]T, n)
	for i := range out {
		out[i] = q.popLocked()
	}
	return out
}

// Close rejects further pushes. Items already queued can still be drained.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// Stats returns queue counters.
func (q *Queue[T]) Stats() QueueStats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return QueueStats{
		Len:      q.count,
		Cap:      len(q.buf),
		Pushed:   q.pushed,
		Popped:   q.popped,
		Dropped:  q.dropped,
		Grows:    q.grows,
		IsClosed: q.closed,
	}
}

// popLocked must be called with mu held and count > 0.
func (q *Queue[T]) popLocked() T {
	var zero T
	item := q.buf[q.head]
	q.buf[q.head] = zero
	q.head = (q.head + 1) % len(q.buf)
	q.count--
	q.popped++
	return item
}

// growLocked doubles the buffer, capped at limit, and unwraps the ring.
func (q *Queue[T]) growLocked() {
	size := len(q.buf) * 2
	if q.limit > 0 && size > q.limit {
		size = q.limit
	}
	next := make([]T, size)
	n := copy(next, q.buf[q.head:])
	if n < q.count {
		copy(next[n:], q.buf[:q.count-n])
	}
	q.buf = next
	q.head = 0
	q.grows++
}
