package feed

import (
	"context"
	"log/slog"
	"sync"

	"github.com/rickgao/auction-live/internal/model"
)

// DefaultPageSize is used when the criteria carry no size.
const DefaultPageSize = 20

// PageFetcher fetches one feed page. api.Client implements it.
type PageFetcher interface {
	FetchPage(ctx context.Context, criteria model.FeedCriteria, cursor string) (model.FeedPage, error)
}

// PageFetcherFunc is a function adapter for PageFetcher.
type PageFetcherFunc func(ctx context.Context, criteria model.FeedCriteria, cursor string) (model.FeedPage, error)

func (f PageFetcherFunc) FetchPage(ctx context.Context, criteria model.FeedCriteria, cursor string) (model.FeedPage, error) {
	return f(ctx, criteria, cursor)
}

// Option configures a Pager.
type Option func(*Pager)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pager) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithNotify sets the callback run after every state change.
func WithNotify(fn func(model.FeedState)) Option {
	return func(p *Pager) {
		p.onChange = fn
	}
}

// WithPageSize sets the size used when the criteria carry none.
func WithPageSize(n int) Option {
	return func(p *Pager) {
		if n > 0 {
			p.pageSize = n
		}
	}
}

// Pager owns the FeedState of one list screen.
type Pager struct {
	fetcher  PageFetcher
	logger   *slog.Logger
	onChange func(model.FeedState)
	pageSize int

	notifyMu sync.Mutex

	mu      sync.Mutex
	state   model.FeedState
	seen    map[string]struct{}
	lastErr error
}

// NewPager creates a pager at generation 1. Nothing is fetched until LoadNext.
func NewPager(fetcher PageFetcher, criteria model.FeedCriteria, opts ...Option) *Pager {
	p := &Pager{
		fetcher:  fetcher,
		logger:   slog.Default(),
		pageSize: DefaultPageSize,
		seen:     make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}

	p.state = model.FeedState{
		Criteria:   p.withSize(criteria),
		HasMore:    true,
		Generation: 1,
	}
	return p
}

func (p *Pager) withSize(c model.FeedCriteria) model.FeedCriteria {
	if c.Size <= 0 {
		c.Size = p.pageSize
	}
	return c
}

// State returns a copy of the current state.
func (p *Pager) State() model.FeedState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

func (p *Pager) snapshotLocked() model.FeedState {
	s := p.state
	s.Items = append([]model.ListItem(nil), p.state.Items...)
	return s
}

// IsLoadingMore reports whether a page load is in flight.
func (p *Pager) IsLoadingMore() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state.LoadInFlight
}

// LastError returns the error of the last failed load, cleared by the next
// successful load or a reset.
func (p *Pager) LastError() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastErr
}

// mutate applies fn under lock and notifies when it reports a change.
func (p *Pager) mutate(fn func() bool) {
	p.notifyMu.Lock()
	defer p.notifyMu.Unlock()

	p.mu.Lock()
	changed := fn()
	state := p.snapshotLocked()
	p.mu.Unlock()

	if changed && p.onChange != nil {
		p.onChange(state)
	}
}

// LoadNext fetches the page after the current cursor and appends it.
//
// It returns immediately with nil when there is nothing more to load or a load
// is already in flight. A page that arrives after Reset is discarded and nil is
// returned. On failure the items, cursor and hasMore stay as they were and the
// error is returned and kept for LastError.
func (p *Pager) LoadNext(ctx context.Context) error {
	var (
		start      bool
		generation int64
		cursor     string
		criteria   model.FeedCriteria
	)
	p.mutate(func() bool {
		if !p.state.HasMore || p.state.LoadInFlight {
			return false
		}
		p.state.LoadInFlight = true
		start = true
		generation, cursor, criteria = p.state.Generation, p.state.Cursor, p.state.Criteria
		return true
	})
	if !start {
		return nil
	}

	page, err := p.fetcher.FetchPage(ctx, criteria, cursor)

	stale := false
	dropped := 0
	p.mutate(func() bool {
		if generation != p.state.Generation {
			stale = true
			return false
		}

		p.state.LoadInFlight = false
		if err != nil {
			p.lastErr = err
			return true
		}

		p.lastErr = nil
		for _, item := range page.Items {
			if item.ID == "" {
				dropped++
				continue
			}
			if _, dup := p.seen[item.ID]; dup {
				continue
			}
			p.seen[item.ID] = struct{}{}
			p.state.Items = append(p.state.Items, item)
		}
		p.state.Cursor = page.Cursor
		p.state.HasMore = page.HasMore && page.Cursor != ""
		return true
	})

	if stale {
		p.logger.Debug("discarded stale feed page",
			"generation", generation,
			"cursor", cursor,
			"items", len(page.Items),
		)
		return nil
	}
	if dropped > 0 {
		p.logger.Warn("dropped feed items without id", "count", dropped, "cursor", cursor)
	}
	if err != nil {
		p.logger.Warn("feed page load failed", "cursor", cursor, "err", err)
		return err
	}
	return nil
}

// Reset switches to new criteria: it bumps the generation, clears items and
// cursor, and loads the first page. A load still in flight under the old
// criteria is left to finish and then discarded.
func (p *Pager) Reset(ctx context.Context, criteria model.FeedCriteria) error {
	p.mutate(func() bool {
		p.state = model.FeedState{
			Criteria:   p.withSize(criteria),
			HasMore:    true,
			Generation: p.state.Generation + 1,
		}
		p.seen = make(map[string]struct{})
		p.lastErr = nil
		return true
	})
	return p.LoadNext(ctx)
}
