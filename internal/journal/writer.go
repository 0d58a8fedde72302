package journal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/rickgao/auction-live/internal/bidding"
	"github.com/rickgao/auction-live/internal/model"
)

// ErrClosed is returned by Start after Stop.
var ErrClosed = errors.New("journal closed")

// Batcher sends a pgx batch. *pgxpool.Pool satisfies it.
type Batcher interface {
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// Config controls batching.
type Config struct {
	BatchSize     int           // Rows per insert batch
	FlushInterval time.Duration // Max time a row waits in memory
	BufferSize    int           // Initial queue capacity; the queue may grow to 16x
	WriteTimeout  time.Duration // Per-batch deadline
}

// Metrics are cumulative writer counters.
type Metrics struct {
	Views    int64 // View rows written
	Attempts int64 // Bid attempt rows written
	Flushes  int64
	Errors   int64 // Failed batches; their rows are discarded
	Dropped  int64 // Rows discarded because the queue was full
}

const (
	insertView = `INSERT INTO auction_view_events
		(id, auction_id, current_highest_bid, bid_count, highest_bidder, status, source, disconnected, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING`

	insertAttempt = `INSERT INTO bid_attempts
		(id, auction_id, amount, success, error_kind, message, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING`
)

// row is one pending insert.
type row struct {
	attempt bool
	sql     string
	args    []any
}

// Writer batches journal rows into PostgreSQL.
type Writer struct {
	cfg    Config
	db     Batcher
	logger *slog.Logger
	queue  *Queue[row]
	now    func() time.Time

	mu      sync.Mutex
	metrics Metrics
	started bool
	stopped bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWriter creates a writer. Zero config fields get defaults.
func NewWriter(cfg Config, db Batcher, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 100
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = time.Second
	}
	if cfg.BufferSize < 1 {
		cfg.BufferSize = 1000
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	return &Writer{
		cfg:    cfg,
		db:     db,
		logger: logger,
		queue:  NewQueue[row](cfg.BufferSize, cfg.BufferSize*16),
		now:    time.Now,
	}
}

// RecordView queues one view change.
func (w *Writer) RecordView(v model.AuctionView) {
	w.enqueue(row{
		sql: insertView,
		args: []any{
			uuid.New(), v.AuctionID, v.CurrentHighestBid, v.BidCount,
			v.HighestBidderLabel, v.Status, string(v.LastUpdateSource), v.Disconnected,
			w.now().UTC(),
		},
	})
}

// RecordAttempt queues one bid attempt. It implements bidding.Recorder.
func (w *Writer) RecordAttempt(a bidding.Attempt) {
	var kind, message string
	if a.Err != nil {
		kind = string(a.Err.Kind)
		message = a.Err.Error()
	}
	id := a.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	w.enqueue(row{
		attempt: true,
		sql:     insertAttempt,
		args: []any{
			id, a.AuctionID, a.Amount, a.Err == nil, kind, message,
			a.StartedAt.UTC(), a.FinishedAt.UTC(),
		},
	})
}

func (w *Writer) enqueue(r row) {
	if !w.queue.Push(r) {
		w.logger.Debug("journal closed, row discarded")
	}
}

// Start launches the write loop.
func (w *Writer) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return ErrClosed
	}
	if w.started {
		return nil
	}
	w.started = true

	ctx, w.cancel = context.WithCancel(ctx)
	w.wg.Add(1)
	go w.loop(ctx)

	w.logger.Info("journal writer started",
		"batch_size", w.cfg.BatchSize,
		"flush_interval", w.cfg.FlushInterval,
	)
	return nil
}

// Stop ends the write loop and flushes what is still queued.
func (w *Writer) Stop(ctx context.Context) error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return nil
	}
	w.stopped = true
	cancel := w.cancel
	w.mu.Unlock()

	w.queue.Close()
	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		w.logger.Warn("journal writer stop timed out")
		return ctx.Err()
	}

	// Final flush runs on the caller's context; the loop's is already cancelled.
	for w.queue.Len() > 0 {
		if err := w.flush(ctx); err != nil {
			return err
		}
	}
	w.logger.Info("journal writer stopped", "metrics", w.Stats())
	return nil
}

// Stats returns current metrics.
func (w *Writer) Stats() Metrics {
	w.mu.Lock()
	m := w.metrics
	w.mu.Unlock()
	m.Dropped = w.queue.Stats().Dropped
	return m
}

func (w *Writer) loop(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.queue.Ready():
			for w.queue.Len() >= w.cfg.BatchSize {
				w.flush(ctx)
			}
		case <-ticker.C:
			w.flush(ctx)
		}
	}
}

// flush writes at most one batch.
func (w *Writer) flush(ctx context.Context) error {
	rows := w.queue.Drain(w.cfg.BatchSize)
	if len(rows) == 0 {
		return nil
	}

	start := time.Now()
	views, attempts, err := w.insert(ctx, rows)

	w.mu.Lock()
	if err != nil {
		w.metrics.Errors++
	} else {
		w.metrics.Views += views
		w.metrics.Attempts += attempts
		w.metrics.Flushes++
	}
	w.mu.Unlock()

	if err != nil {
		w.logger.Error("journal batch failed", "error", err, "count", len(rows))
		return err
	}
	w.logger.Debug("journal flushed",
		"views", views,
		"attempts", attempts,
		"duration", time.Since(start),
	)
	return nil
}

func (w *Writer) insert(ctx context.Context, rows []row) (views, attempts int64, err error) {
	ctx, cancel := context.WithTimeout(ctx, w.cfg.WriteTimeout)
	defer cancel()

	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(r.sql, r.args...)
	}

	results := w.db.SendBatch(ctx, batch)
	defer results.Close()

	for i, r := range rows {
		if _, err := results.Exec(); err != nil {
			return 0, 0, fmt.Errorf("journal row %d: %w", i, err)
		}
		if r.attempt {
			attempts++
		} else {
			views++
		}
	}
	return views, attempts, nil
}
