package history

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rickgao/auction-live/internal/api"
	"github.com/rickgao/auction-live/internal/model"
)

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func bid(n int) model.BidEntry {
	return model.BidEntry{
		Bidder:    "user",
		BidAmount: int64(10000 + n*1000),
		BidTime:   base.Add(time.Duration(n) * time.Minute),
	}
}

// fakeSource serves bids 1..total, most recent first.
type fakeSource struct {
	total       int
	latestCalls int
	pageCalls   []int
	err         error
}

func (f *fakeSource) all() []model.BidEntry {
	var out []model.BidEntry
	for n := f.total; n >= 1; n-- {
		out = append(out, bid(n))
	}
	return out
}

func (f *fakeSource) GetBids(ctx context.Context, id string, size int) ([]model.BidEntry, error) {
	f.latestCalls++
	if f.err != nil {
		return nil, f.err
	}
	all := f.all()
	if size < len(all) {
		all = all[:size]
	}
	return all, nil
}

func (f *fakeSource) GetBidHistory(ctx context.Context, id string, opts api.GetBidHistoryOptions) (model.BidHistoryPage, error) {
	f.pageCalls = append(f.pageCalls, opts.Page)
	if f.err != nil {
		return model.BidHistoryPage{}, f.err
	}
	all := f.all()
	from := opts.Page * opts.Size
	to := from + opts.Size
	if from > len(all) {
		from = len(all)
	}
	if to > len(all) {
		to = len(all)
	}
	return model.BidHistoryPage{
		Content:       all[from:to],
		Page:          opts.Page,
		TotalElements: int64(len(all)),
		IsFirst:       opts.Page == 0,
		IsLast:        to == len(all),
	}, nil
}

func (f *fakeSource) GetHighestBid(ctx context.Context, id string) (model.HighestBid, error) {
	b := bid(f.total)
	return model.HighestBid{CurrentHighestBid: b.BidAmount, BidderNickname: b.Bidder}, nil
}

func TestBook_LatestThenPagesMerge(t *testing.T) {
	src := &fakeSource{total: 25}
	b := NewBook("A-1", Config{LatestSize: 5, PageSize: 10}, src, nil)
	ctx := context.Background()

	if n, err := b.LoadLatest(ctx); err != nil || n != 5 {
		t.Fatalf("LoadLatest = %d, %v; want 5", n, err)
	}

	// Page 0 overlaps the latest window by 5 rows.
	if n, _ := b.LoadMore(ctx); n != 5 {
		t.Errorf("page 0 added %d, want 5", n)
	}
	if n, _ := b.LoadMore(ctx); n != 10 {
		t.Errorf("page 1 added %d, want 10", n)
	}
	if n, _ := b.LoadMore(ctx); n != 5 {
		t.Errorf("page 2 added %d, want 5", n)
	}
	if b.HasMore() {
		t.Error("HasMore = true after last page")
	}
	if n, _ := b.LoadMore(ctx); n != 0 || len(src.pageCalls) != 3 {
		t.Errorf("LoadMore after end fetched again: pages %v", src.pageCalls)
	}

	entries := b.Entries()
	if len(entries) != 25 {
		t.Fatalf("entries = %d, want 25", len(entries))
	}
	for i := 1; i < len(entries); i++ {
		if entries[i].BidTime.After(entries[i-1].BidTime) {
			t.Fatalf("entries not most recent first at %d", i)
		}
	}
	if b.TotalElements() != 25 {
		t.Errorf("TotalElements = %d, want 25", b.TotalElements())
	}
}

func TestBook_RefreshOnNewBidCount(t *testing.T) {
	src := &fakeSource{total: 3}
	b := NewBook("A-1", Config{LatestSize: 10, PageSize: 10}, src, nil)
	ctx := context.Background()

	if n, _ := b.Refresh(ctx, 3); n != 3 {
		t.Errorf("first Refresh added %d, want 3", n)
	}
	if n, _ := b.Refresh(ctx, 3); n != 0 || src.latestCalls != 1 {
		t.Errorf("Refresh with same count re-read: calls %d", src.latestCalls)
	}

	src.total = 5
	if n, _ := b.Refresh(ctx, 5); n != 2 {
		t.Errorf("Refresh added %d, want 2", n)
	}
	if got := b.Entries()[0].BidAmount; got != bid(5).BidAmount {
		t.Errorf("newest = %d, want %d", got, bid(5).BidAmount)
	}
}

func TestBook_RefreshFailureKeepsCount(t *testing.T) {
	src := &fakeSource{total: 3, err: errors.New("down")}
	b := NewBook("A-1", DefaultConfig(), src, nil)
	ctx := context.Background()

	if _, err := b.Refresh(ctx, 3); err == nil {
		t.Fatal("expected error")
	}
	src.err = nil
	if n, _ := b.Refresh(ctx, 3); n != 3 {
		t.Errorf("retry added %d, want 3", n)
	}
}

func TestBook_Highest(t *testing.T) {
	b := NewBook("A-1", DefaultConfig(), &fakeSource{total: 4}, nil)
	h, err := b.Highest(context.Background())
	if err != nil {
		t.Fatalf("Highest failed: %v", err)
	}
	if h.CurrentHighestBid != 14000 {
		t.Errorf("CurrentHighestBid = %d, want 14000", h.CurrentHighestBid)
	}
}

func TestBook_WithAPIClient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auctions/A-1/bids":
			w.Write([]byte(`{"success":true,"data":[
				{"bidder":"kim","bidAmount":12000,"bidTime":"2026-03-01T12:02:00"},
				{"bidder":"lee","bidAmount":11000,"bidTime":"2026-03-01T12:01:00"}]}`))
		case "/auctions/A-1/bids/history":
			if got := r.URL.Query().Get("sort"); got != DefaultSort {
				t.Errorf("sort = %q, want %q", got, DefaultSort)
			}
			w.Write([]byte(`{"success":true,"data":{"content":[
				{"bidder":"lee","bidAmount":11000,"bidTime":"2026-03-01T12:01:00"},
				{"bidder":"park","bidAmount":10000,"bidTime":"2026-03-01T12:00:00"}],
				"page":0,"totalPages":1,"totalElements":3,"isFirst":true,"isLast":true}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	b := NewBook("A-1", DefaultConfig(), api.NewClient(server.URL, ""), nil)
	ctx := context.Background()

	if _, err := b.LoadLatest(ctx); err != nil {
		t.Fatalf("LoadLatest failed: %v", err)
	}
	if _, err := b.LoadMore(ctx); err != nil {
		t.Fatalf("LoadMore failed: %v", err)
	}

	entries := b.Entries()
	if len(entries) != 3 {
		t.Fatalf("entries = %d, want 3", len(entries))
	}
	if entries[0].Bidder != "kim" || entries[2].Bidder != "park" {
		t.Errorf("order = %s, %s, %s", entries[0].Bidder, entries[1].Bidder, entries[2].Bidder)
	}
}
