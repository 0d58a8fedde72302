package poller

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rickgao/auction-live/internal/model"
)

// Fetcher performs one authoritative snapshot read.
type Fetcher interface {
	GetAuctionSnapshot(ctx context.Context, auctionID string) (model.Snapshot, error)
}

// FetcherFunc is a function adapter for Fetcher.
type FetcherFunc func(ctx context.Context, auctionID string) (model.Snapshot, error)

func (f FetcherFunc) GetAuctionSnapshot(ctx context.Context, auctionID string) (model.Snapshot, error) {
	return f(ctx, auctionID)
}

// AuctionSource provides the auction IDs to poll.
type AuctionSource interface {
	PollAuctions() []string
}

// Auctions is a fixed AuctionSource.
type Auctions []string

func (a Auctions) PollAuctions() []string {
	return a
}

// SnapshotHandler receives fetched snapshots.
type SnapshotHandler interface {
	HandleSnapshot(snapshot model.Snapshot) error
}

// SnapshotHandlerFunc is a function adapter for SnapshotHandler.
type SnapshotHandlerFunc func(model.Snapshot) error

func (f SnapshotHandlerFunc) HandleSnapshot(s model.Snapshot) error {
	return f(s)
}

// Config holds poller configuration.
type Config struct {
	Interval    time.Duration // Poll interval (default: 5s)
	Concurrency int           // Max concurrent requests (default: 8)
	Timeout     time.Duration // Per-request timeout (default: 10s)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Interval:    5 * time.Second,
		Concurrency: 8,
		Timeout:     10 * time.Second,
	}
}

// Stats holds poll counters.
type Stats struct {
	Cycles  int64
	Fetched int64
	Errors  int64
}

// Poller periodically fetches auction snapshots.
type Poller struct {
	cfg      Config
	fetcher  Fetcher
	auctions AuctionSource
	handler  SnapshotHandler
	logger   *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	cycles  atomic.Int64
	fetched atomic.Int64
	errors  atomic.Int64
}

// New creates a new Poller.
func New(cfg Config, fetcher Fetcher, auctions AuctionSource, handler SnapshotHandler, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultConfig().Interval
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	return &Poller{
		cfg:      cfg,
		fetcher:  fetcher,
		auctions: auctions,
		handler:  handler,
		logger:   logger,
	}
}

// Start begins the polling loop.
func (p *Poller) Start(ctx context.Context) error {
	p.ctx, p.cancel = context.WithCancel(ctx)

	p.wg.Add(1)
	go p.run()

	p.logger.Debug("snapshot poller started", "interval", p.cfg.Interval)

	return nil
}

// Stop gracefully shuts down the poller.
func (p *Poller) Stop(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Debug("snapshot poller stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats returns the poll counters.
func (p *Poller) Stats() Stats {
	return Stats{
		Cycles:  p.cycles.Load(),
		Fetched: p.fetched.Load(),
		Errors:  p.errors.Load(),
	}
}

// run is the main polling loop.
func (p *Poller) run() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	// Poll immediately on start.
	p.pollAll()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.pollAll()
		}
	}
}

// pollAll fetches snapshots for all auctions concurrently.
func (p *Poller) pollAll() {
	p.cycles.Add(1)

	ids := p.auctions.PollAuctions()
	if len(ids) == 0 {
		return
	}

	sem := make(chan struct{}, p.cfg.Concurrency)
	var wg sync.WaitGroup

	for _, id := range ids {
		wg.Add(1)
		go func(auctionID string) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-p.ctx.Done():
				return
			}

			if err := p.pollAuction(auctionID); err != nil {
				if p.ctx.Err() == nil {
					p.logger.Warn("failed to poll auction",
						"auction_id", auctionID,
						"err", err,
					)
				}
				p.errors.Add(1)
				return
			}

			p.fetched.Add(1)
		}(id)
	}

	wg.Wait()
}

// pollAuction fetches and handles a single auction's snapshot.
func (p *Poller) pollAuction(auctionID string) error {
	ctx, cancel := context.WithTimeout(p.ctx, p.cfg.Timeout)
	defer cancel()

	snap, err := p.fetcher.GetAuctionSnapshot(ctx, auctionID)
	if err != nil {
		return err
	}

	if p.handler != nil {
		return p.handler.HandleSnapshot(snap)
	}
	return nil
}
