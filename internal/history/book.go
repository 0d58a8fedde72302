package history

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/rickgao/auction-live/internal/api"
	"github.com/rickgao/auction-live/internal/model"
)

// DefaultSort orders history pages most recent first.
const DefaultSort = "bidTime,desc"

// Source reads bids. api.Client implements it.
type Source interface {
	GetBids(ctx context.Context, auctionID string, size int) ([]model.BidEntry, error)
	GetBidHistory(ctx context.Context, auctionID string, opts api.GetBidHistoryOptions) (model.BidHistoryPage, error)
	GetHighestBid(ctx context.Context, auctionID string) (model.HighestBid, error)
}

// Config holds Book configuration.
type Config struct {
	LatestSize int // Rows of the latest-N read
	PageSize   int // Rows per history page
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		LatestSize: 10,
		PageSize:   20,
	}
}

type entryKey struct {
	bidder string
	amount int64
	at     int64
}

func keyOf(e model.BidEntry) entryKey {
	return entryKey{bidder: e.Bidder, amount: e.BidAmount, at: e.BidTime.UnixNano()}
}

// Book is the bid sequence of one auction.
type Book struct {
	auctionID string
	cfg       Config
	src       Source
	logger    *slog.Logger

	mu            sync.Mutex
	entries       []model.BidEntry
	seen          map[entryKey]struct{}
	nextPage      int
	totalElements int64
	exhausted     bool
	lastBidCount  int64
}

// NewBook creates an empty book.
func NewBook(auctionID string, cfg Config, src Source, logger *slog.Logger) *Book {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.LatestSize <= 0 {
		cfg.LatestSize = DefaultConfig().LatestSize
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultConfig().PageSize
	}
	return &Book{
		auctionID: auctionID,
		cfg:       cfg,
		src:       src,
		logger:    logger.With("auction_id", auctionID),
		seen:      make(map[entryKey]struct{}),
	}
}

// Entries returns the merged sequence, most recent first.
func (b *Book) Entries() []model.BidEntry {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]model.BidEntry(nil), b.entries...)
}

// HasMore reports whether older history pages remain.
func (b *Book) HasMore() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return !b.exhausted
}

// TotalElements returns the bid total reported by the last history page.
func (b *Book) TotalElements() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.totalElements
}

// LoadLatest reads the latest-N window and merges it. It returns the number of new rows.
func (b *Book) LoadLatest(ctx context.Context) (int, error) {
	bids, err := b.src.GetBids(ctx, b.auctionID, b.cfg.LatestSize)
	if err != nil {
		return 0, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	return b.mergeLocked(bids), nil
}

// LoadMore reads the next history page and merges it. It returns the number of new rows.
func (b *Book) LoadMore(ctx context.Context) (int, error) {
	b.mu.Lock()
	if b.exhausted {
		b.mu.Unlock()
		return 0, nil
	}
	page := b.nextPage
	b.mu.Unlock()

	p, err := b.src.GetBidHistory(ctx, b.auctionID, api.GetBidHistoryOptions{
		Page: page,
		Size: b.cfg.PageSize,
		Sort: DefaultSort,
	})
	if err != nil {
		return 0, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	// A concurrent LoadMore already consumed this page.
	if b.nextPage != page {
		return 0, nil
	}
	b.nextPage = page + 1
	b.totalElements = p.TotalElements
	b.exhausted = p.IsLast || len(p.Content) == 0
	return b.mergeLocked(p.Content), nil
}

// Refresh re-reads the latest window when bidCount shows bids the book has not
// seen yet. It is meant to be driven by view change notifications.
func (b *Book) Refresh(ctx context.Context, bidCount int64) (int, error) {
	b.mu.Lock()
	if bidCount <= b.lastBidCount {
		b.mu.Unlock()
		return 0, nil
	}
	b.mu.Unlock()

	n, err := b.LoadLatest(ctx)
	if err != nil {
		b.logger.Warn("bid history refresh failed", "err", err)
		return 0, err
	}

	b.mu.Lock()
	if bidCount > b.lastBidCount {
		b.lastBidCount = bidCount
	}
	b.mu.Unlock()
	return n, nil
}

// Highest reads the current highest bid.
func (b *Book) Highest(ctx context.Context) (model.HighestBid, error) {
	return b.src.GetHighestBid(ctx, b.auctionID)
}

// mergeLocked adds unseen rows and keeps the sequence most recent first.
func (b *Book) mergeLocked(rows []model.BidEntry) int {
	added := 0
	for _, r := range rows {
		k := keyOf(r)
		if _, dup := b.seen[k]; dup {
			continue
		}
		b.seen[k] = struct{}{}
		b.entries = append(b.entries, r)
		added++
	}
	if added > 0 {
		sort.SliceStable(b.entries, func(i, j int) bool {
			a, c := b.entries[i], b.entries[j]
			if !a.BidTime.Equal(c.BidTime) {
				return a.BidTime.After(c.BidTime)
			}
			return a.BidAmount > c.BidAmount
		})
	}
	return added
}
