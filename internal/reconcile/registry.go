package reconcile

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/rickgao/auction-live/internal/model"
)

// ChangeBufferSize is the buffer of the registry's change channel.
const ChangeBufferSize = 1000

// Registry owns the engines of the auctions one screen has open.
type Registry struct {
	cfg        Config
	source     SnapshotSource
	subscriber Subscriber
	logger     *slog.Logger
	opts       []EngineOption

	opening singleflight.Group

	mu      sync.RWMutex
	engines map[string]*Engine

	changes        chan model.AuctionView
	droppedChanges atomic.Int64
}

// NewRegistry creates a registry. opts apply to every engine it opens.
func NewRegistry(cfg Config, source SnapshotSource, subscriber Subscriber, logger *slog.Logger, opts ...EngineOption) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		cfg:        cfg,
		source:     source,
		subscriber: subscriber,
		logger:     logger,
		opts:       opts,
		engines:    make(map[string]*Engine),
		changes:    make(chan model.AuctionView, ChangeBufferSize),
	}
}

// Open starts an engine for auctionID, or returns the one already open.
// Concurrent opens of the same auction share one start.
func (r *Registry) Open(ctx context.Context, auctionID string) (*Engine, error) {
	if e, ok := r.Get(auctionID); ok {
		return e, nil
	}

	v, err, _ := r.opening.Do(auctionID, func() (any, error) {
		if e, ok := r.Get(auctionID); ok {
			return e, nil
		}

		opts := make([]EngineOption, 0, len(r.opts)+2)
		opts = append(opts, WithLogger(r.logger))
		opts = append(opts, r.opts...)
		opts = append(opts, r.forwardChanges())

		e := NewEngine(auctionID, r.cfg, r.source, r.subscriber, opts...)
		if err := e.Start(ctx); err != nil {
			return nil, err
		}

		r.mu.Lock()
		r.engines[auctionID] = e
		r.mu.Unlock()
		return e, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Engine), nil
}

// forwardChanges wraps any configured notify callback and copies every view
// to the change channel.
func (r *Registry) forwardChanges() EngineOption {
	return func(e *Engine) {
		inner := e.onChange
		e.onChange = func(v model.AuctionView) {
			if inner != nil {
				inner(v)
			}
			select {
			case r.changes <- v:
			default:
				if r.droppedChanges.Add(1)%100 == 1 {
					r.logger.Warn("change channel full, dropping views",
						"dropped", r.droppedChanges.Load())
				}
			}
		}
	}
}

// Get returns the open engine of an auction.
func (r *Registry) Get(auctionID string) (*Engine, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.engines[auctionID]
	return e, ok
}

// IDs returns the open auction IDs in sorted order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.engines))
	for id := range r.engines {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// View returns the current view of an open auction.
func (r *Registry) View(auctionID string) (model.AuctionView, bool) {
	e, ok := r.Get(auctionID)
	if !ok {
		return model.AuctionView{}, false
	}
	return e.View(), true
}

// ApplyConfirmed folds a confirmed bid into the auction's engine.
func (r *Registry) ApplyConfirmed(o model.BidOutcome) bool {
	e, ok := r.Get(o.AuctionID)
	if !ok {
		return false
	}
	return e.ApplyConfirmed(o)
}

// Changes returns a channel receiving every view mutation of every engine.
// Views are dropped when the channel is full.
func (r *Registry) Changes() <-chan model.AuctionView {
	return r.changes
}

// Close stops and forgets one engine.
func (r *Registry) Close(ctx context.Context, auctionID string) error {
	r.mu.Lock()
	e, ok := r.engines[auctionID]
	delete(r.engines, auctionID)
	r.mu.Unlock()

	if !ok {
		return ErrUnknownAuction
	}
	return e.Stop(ctx)
}

// CloseAll stops every open engine.
func (r *Registry) CloseAll(ctx context.Context) error {
	r.mu.Lock()
	engines := r.engines
	r.engines = make(map[string]*Engine)
	r.mu.Unlock()

	var errs []error
	for _, e := range engines {
		if err := e.Stop(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
