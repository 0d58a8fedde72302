package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/rickgao/auction-live/internal/connection"
	"github.com/rickgao/auction-live/internal/model"
	"github.com/rickgao/auction-live/internal/poller"
)

// Errors
var (
	ErrNotStarted     = errors.New("engine not started")
	ErrStopped        = errors.New("engine stopped")
	ErrStreamLost     = errors.New("push stream ended without a connection event")
	ErrUnknownAuction = errors.New("auction not open")
)

// SnapshotSource performs authoritative snapshot reads.
type SnapshotSource interface {
	GetAuctionSnapshot(ctx context.Context, auctionID string) (model.Snapshot, error)
}

// Stream is one live push subscription.
type Stream interface {
	Events() <-chan model.PushEvent
	Cancel()
}

// Subscriber opens push subscriptions for an auction.
type Subscriber interface {
	Subscribe(ctx context.Context, auctionID string) (Stream, error)
}

// ChannelSubscriber adapts a connection.Channel to Subscriber.
type ChannelSubscriber struct {
	Channel *connection.Channel
}

func (c ChannelSubscriber) Subscribe(ctx context.Context, auctionID string) (Stream, error) {
	sub, err := c.Channel.Subscribe(ctx, connection.AuctionTopic(auctionID))
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// Config holds Reconciliation Engine configuration.
type Config struct {
	RefreshDebounce     time.Duration // Window that coalesces pushes into one refresh
	PollInterval        time.Duration // Snapshot poll interval in degraded mode
	TickInterval        time.Duration // Countdown recompute cadence
	ResubscribeBaseWait time.Duration // First resubscribe delay
	ResubscribeMaxWait  time.Duration // Resubscribe delay cap
	FetchTimeout        time.Duration // Per snapshot request
	DefaultMinBidStep   int64         // Applied to snapshots that carry no step; 0 leaves them as is
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		RefreshDebounce:     500 * time.Millisecond,
		PollInterval:        5 * time.Second,
		TickInterval:        time.Second,
		ResubscribeBaseWait: time.Second,
		ResubscribeMaxWait:  30 * time.Second,
		FetchTimeout:        10 * time.Second,
	}
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithNotify sets the change callback. It is called with the new view after
// every mutation, one call at a time, and must not call back into the engine's
// mutating methods.
func WithNotify(fn func(model.AuctionView)) EngineOption {
	return func(e *Engine) {
		e.onChange = fn
	}
}

// WithErrorHandler sets a callback for background refresh failures.
func WithErrorHandler(fn func(error)) EngineOption {
	return func(e *Engine) {
		e.onError = fn
	}
}

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		e.now = now
	}
}

// Engine keeps one auction's view in sync with its snapshot and push sources.
type Engine struct {
	auctionID  string
	cfg        Config
	source     SnapshotSource
	subscriber Subscriber
	logger     *slog.Logger
	now        func() time.Time

	onChange func(model.AuctionView)
	onError  func(error)

	fetches singleflight.Group

	// notifyMu orders mutations and their callbacks.
	notifyMu sync.Mutex

	mu             sync.Mutex
	view           model.AuctionView
	started        bool
	stopped        bool
	refreshPending bool
	refreshTimer   *time.Timer

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewEngine creates an engine for one auction.
func NewEngine(auctionID string, cfg Config, source SnapshotSource, subscriber Subscriber, opts ...EngineOption) *Engine {
	e := &Engine{
		auctionID:  auctionID,
		cfg:        cfg,
		source:     source,
		subscriber: subscriber,
		logger:     slog.Default(),
		now:        time.Now,
		view:       model.AuctionView{AuctionID: auctionID},
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With("auction_id", auctionID)
	return e
}

// AuctionID returns the auction this engine tracks.
func (e *Engine) AuctionID() string {
	return e.auctionID
}

// Start seeds the view from a snapshot, then starts the push and countdown loops.
// A failed initial snapshot is returned and nothing is started. A stopped engine
// cannot be restarted.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return ErrStopped
	}
	if e.started {
		e.mu.Unlock()
		return nil
	}
	e.started = true
	e.ctx, e.cancel = context.WithCancel(ctx)
	e.mu.Unlock()

	snap, err := e.fetch(e.ctx)
	if err != nil {
		e.cancel()
		e.mu.Lock()
		e.started = false
		e.mu.Unlock()
		return fmt.Errorf("initial snapshot for %s: %w", e.auctionID, err)
	}
	e.update(func(v model.AuctionView) (model.AuctionView, bool) {
		return ApplySnapshot(v, snap, e.now())
	})

	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return ErrStopped
	}
	e.wg.Add(2)
	e.mu.Unlock()
	go e.streamLoop()
	go e.tickLoop()

	e.logger.Info("reconciliation engine started",
		"current_highest_bid", snap.CurrentHighestBid,
		"bid_count", snap.BidCount,
	)

	return nil
}

// Stop cancels the subscription, timers and polling.
func (e *Engine) Stop(ctx context.Context) error {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return nil
	}
	e.stopped = true
	if e.refreshTimer != nil {
		e.refreshTimer.Stop()
	}
	cancel := e.cancel
	e.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		e.logger.Info("reconciliation engine stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// View returns a copy of the current view.
func (e *Engine) View() model.AuctionView {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.view
}

// Disconnected reports whether the engine is in degraded mode.
func (e *Engine) Disconnected() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.view.Disconnected
}

// ApplyConfirmed folds this client's own confirmed bid into the view.
func (e *Engine) ApplyConfirmed(o model.BidOutcome) bool {
	changed := e.update(func(v model.AuctionView) (model.AuctionView, bool) {
		return ApplyConfirmed(v, o, e.now())
	})
	if changed {
		e.scheduleRefresh()
	}
	return changed
}

// Refresh fetches a snapshot now and folds it into the view.
// Concurrent refreshes share one request.
func (e *Engine) Refresh(ctx context.Context) error {
	e.mu.Lock()
	started, stopped := e.started, e.stopped
	e.mu.Unlock()
	if !started {
		return ErrNotStarted
	}
	if stopped {
		return ErrStopped
	}

	snap, err := e.fetch(ctx)
	if err != nil {
		return err
	}
	e.handleSnapshot(snap)
	return nil
}

// update applies fn to the view under lock and notifies on change.
func (e *Engine) update(fn func(model.AuctionView) (model.AuctionView, bool)) bool {
	e.notifyMu.Lock()
	defer e.notifyMu.Unlock()

	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return false
	}
	next, changed := fn(e.view)
	if changed {
		e.view = next
	}
	e.mu.Unlock()

	if changed && e.onChange != nil {
		e.onChange(next)
	}
	return changed
}

// fetch reads a snapshot, sharing the request with concurrent callers. The
// shared request runs on the engine context; ctx only bounds this caller's wait.
func (e *Engine) fetch(ctx context.Context) (model.Snapshot, error) {
	ch := e.fetches.DoChan(e.auctionID, func() (any, error) {
		return e.fetchOnce(e.ctx)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return model.Snapshot{}, res.Err
		}
		return res.Val.(model.Snapshot), nil
	case <-ctx.Done():
		return model.Snapshot{}, ctx.Err()
	}
}

func (e *Engine) fetchOnce(ctx context.Context) (model.Snapshot, error) {
	if e.cfg.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.FetchTimeout)
		defer cancel()
	}
	snap, err := e.source.GetAuctionSnapshot(ctx, e.auctionID)
	if err == nil && snap.MinBidStep <= 0 {
		snap.MinBidStep = e.cfg.DefaultMinBidStep
	}
	return snap, err
}

// handleSnapshot folds a fetched snapshot and reports whether the view changed.
func (e *Engine) handleSnapshot(snap model.Snapshot) bool {
	return e.update(func(v model.AuctionView) (model.AuctionView, bool) {
		return ApplySnapshot(v, snap, e.now())
	})
}

// refresh fetches and folds one snapshot in the background.
func (e *Engine) refresh() {
	snap, err := e.fetch(e.ctx)
	if err != nil {
		if e.ctx.Err() != nil {
			return
		}
		// The previous view stays in place.
		e.logger.Warn("snapshot refresh failed", "err", err)
		if e.onError != nil {
			e.onError(err)
		}
		return
	}
	e.handleSnapshot(snap)
}

// scheduleRefresh arms the debounce timer unless a refresh is already pending.
func (e *Engine) scheduleRefresh() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stopped || e.refreshPending {
		return
	}
	e.refreshPending = true
	e.refreshTimer = time.AfterFunc(e.cfg.RefreshDebounce, func() {
		e.mu.Lock()
		e.refreshPending = false
		if e.stopped {
			e.mu.Unlock()
			return
		}
		e.wg.Add(1)
		e.mu.Unlock()

		defer e.wg.Done()
		e.refresh()
	})
}

// refreshNow runs one background refresh tracked by the engine.
func (e *Engine) refreshNow() {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return
	}
	e.wg.Add(1)
	e.mu.Unlock()

	go func() {
		defer e.wg.Done()
		e.refresh()
	}()
}

// tickLoop recomputes the countdown.
func (e *Engine) tickLoop() {
	defer e.wg.Done()

	interval := e.cfg.TickInterval
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-e.ctx.Done():
			return
		case <-ticker.C:
			e.update(func(v model.AuctionView) (model.AuctionView, bool) {
				return Tick(v, e.now())
			})
		}
	}
}

// streamLoop owns the push subscription and degraded-mode polling.
func (e *Engine) streamLoop() {
	defer e.wg.Done()

	var degraded *poller.Poller
	defer func() {
		if degraded != nil {
			degraded.Stop(context.Background())
		}
	}()

	enterDegraded := func(reason error) {
		e.update(func(v model.AuctionView) (model.AuctionView, bool) {
			return SetDisconnected(v, true)
		})
		if degraded != nil {
			return
		}
		e.logger.Warn("push channel down, polling snapshots",
			"reason", reason,
			"interval", e.cfg.PollInterval,
		)
		degraded = poller.New(poller.Config{
			Interval:    e.cfg.PollInterval,
			Concurrency: 1,
			Timeout:     e.cfg.FetchTimeout,
		}, poller.FetcherFunc(func(ctx context.Context, _ string) (model.Snapshot, error) {
			return e.fetch(ctx)
		}), poller.Auctions{e.auctionID}, poller.SnapshotHandlerFunc(func(snap model.Snapshot) error {
			e.handleSnapshot(snap)
			return nil
		}), e.logger)
		degraded.Start(e.ctx)
	}

	leaveDegraded := func() {
		if degraded != nil {
			degraded.Stop(context.Background())
			degraded = nil
			e.logger.Info("push channel restored")
		}
		e.update(func(v model.AuctionView) (model.AuctionView, bool) {
			return SetDisconnected(v, false)
		})
	}

	failures := 0
	for {
		stream, err := e.subscriber.Subscribe(e.ctx, e.auctionID)
		if err != nil {
			if e.ctx.Err() != nil {
				return
			}
			enterDegraded(err)
			failures++
			if !e.sleep(e.resubscribeDelay(failures)) {
				return
			}
			continue
		}

		opened, reason := e.consume(stream, leaveDegraded)
		stream.Cancel()
		if e.ctx.Err() != nil {
			return
		}
		enterDegraded(reason)

		if opened {
			failures = 0
		}
		failures++
		if !e.sleep(e.resubscribeDelay(failures)) {
			return
		}
	}
}

// consume folds events until the stream ends. It reports whether the stream
// opened and why it ended.
func (e *Engine) consume(stream Stream, onOpen func()) (bool, error) {
	opened := false
	events := stream.Events()

	for {
		select {
		case <-e.ctx.Done():
			return opened, e.ctx.Err()

		case ev, ok := <-events:
			if !ok {
				return opened, ErrStreamLost
			}

			switch ev := ev.(type) {
			case model.ConnectionEvent:
				switch ev.Kind {
				case model.ConnectionOpen:
					opened = true
					onOpen()
					// A new connection may start anywhere in server history.
					e.refreshNow()
				case model.ConnectionError:
					return opened, ev.Err
				case model.ConnectionClosed:
					return opened, connection.ErrStreamEnded
				}

			case model.BidUpdate:
				accepted := e.update(func(v model.AuctionView) (model.AuctionView, bool) {
					return ApplyBidUpdate(v, ev, e.now())
				})
				if accepted {
					e.scheduleRefresh()
				} else {
					e.logger.Debug("push update discarded",
						"current_highest_bid", ev.CurrentHighestBid,
						"bid_count", ev.BidCount,
					)
				}

			case model.KeepAlive, model.Notice:
			}
		}
	}
}

// resubscribeDelay returns a jittered exponential delay for the nth failure.
func (e *Engine) resubscribeDelay(n int) time.Duration {
	base := e.cfg.ResubscribeBaseWait
	if base <= 0 {
		base = time.Second
	}
	maxWait := e.cfg.ResubscribeMaxWait
	if maxWait < base {
		maxWait = base
	}

	d := base
	for i := 1; i < n && d < maxWait; i++ {
		d *= 2
	}
	if d > maxWait {
		d = maxWait
	}

	// Up to 20% jitter.
	return d - time.Duration(rand.Int64N(int64(d)/5+1))
}

func (e *Engine) sleep(d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-e.ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
