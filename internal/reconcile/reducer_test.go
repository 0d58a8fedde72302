package reconcile

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/rickgao/auction-live/internal/model"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func seeded(price, count int64) model.AuctionView {
	return Seed(model.Snapshot{
		AuctionID:          "A-1",
		CurrentHighestBid:  price,
		BidCount:           count,
		HighestBidderLabel: "kim",
		EndAt:              t0.Add(90 * time.Second),
		MinBidStep:         1000,
		Status:             model.StatusLive,
	}, t0)
}

func TestSeed(t *testing.T) {
	v := seeded(10000, 3)

	if !v.Seeded {
		t.Error("expected Seeded")
	}
	if v.RemainingSeconds != 90 {
		t.Errorf("RemainingSeconds = %d, want 90", v.RemainingSeconds)
	}
	if v.LastUpdateSource != model.SourceSnapshot {
		t.Errorf("LastUpdateSource = %q, want snapshot", v.LastUpdateSource)
	}
	if !v.LastUpdateAt.Equal(t0) {
		t.Errorf("LastUpdateAt = %v, want %v", v.LastUpdateAt, t0)
	}
}

func TestApplyBidUpdate_PerFieldMonotonicity(t *testing.T) {
	v := seeded(10000, 3)
	now := t0.Add(time.Second)

	next, accepted := ApplyBidUpdate(v, model.BidUpdate{
		AuctionID:         "A-1",
		CurrentHighestBid: 9000,
		BidderLabel:       "lee",
		BidCount:          4,
	}, now)

	if !accepted {
		t.Fatal("expected update to be accepted for bidCount")
	}
	if next.CurrentHighestBid != 10000 {
		t.Errorf("CurrentHighestBid = %d, want 10000", next.CurrentHighestBid)
	}
	if next.BidCount != 4 {
		t.Errorf("BidCount = %d, want 4", next.BidCount)
	}
	if next.HighestBidderLabel != "kim" {
		t.Errorf("HighestBidderLabel = %q, want kim (price rejected)", next.HighestBidderLabel)
	}
	if next.LastUpdateSource != model.SourcePush {
		t.Errorf("LastUpdateSource = %q, want push", next.LastUpdateSource)
	}
	if !next.LastUpdateAt.Equal(now) {
		t.Errorf("LastUpdateAt = %v, want %v", next.LastUpdateAt, now)
	}
}

func TestApplyBidUpdate(t *testing.T) {
	tests := []struct {
		name         string
		update       model.BidUpdate
		wantAccepted bool
		wantPrice    int64
		wantCount    int64
		wantLabel    string
	}{
		{"higher", model.BidUpdate{AuctionID: "A-1", CurrentHighestBid: 11000, BidderLabel: "lee", BidCount: 4}, true, 11000, 4, "lee"},
		{"equal", model.BidUpdate{AuctionID: "A-1", CurrentHighestBid: 10000, BidCount: 3}, true, 10000, 3, "kim"},
		{"both lower", model.BidUpdate{AuctionID: "A-1", CurrentHighestBid: 9000, BidCount: 2}, false, 10000, 3, "kim"},
		{"price up count down", model.BidUpdate{AuctionID: "A-1", CurrentHighestBid: 12000, BidderLabel: "park", BidCount: 1}, true, 12000, 3, "park"},
		{"other auction", model.BidUpdate{AuctionID: "B-2", CurrentHighestBid: 50000, BidCount: 9}, false, 10000, 3, "kim"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, accepted := ApplyBidUpdate(seeded(10000, 3), tt.update, t0)
			if accepted != tt.wantAccepted {
				t.Errorf("accepted = %v, want %v", accepted, tt.wantAccepted)
			}
			if next.CurrentHighestBid != tt.wantPrice {
				t.Errorf("CurrentHighestBid = %d, want %d", next.CurrentHighestBid, tt.wantPrice)
			}
			if next.BidCount != tt.wantCount {
				t.Errorf("BidCount = %d, want %d", next.BidCount, tt.wantCount)
			}
			if next.HighestBidderLabel != tt.wantLabel {
				t.Errorf("HighestBidderLabel = %q, want %q", next.HighestBidderLabel, tt.wantLabel)
			}
		})
	}
}

func TestApplyBidUpdate_Unseeded(t *testing.T) {
	v := model.AuctionView{AuctionID: "A-1"}
	if _, accepted := ApplyBidUpdate(v, model.BidUpdate{AuctionID: "A-1", CurrentHighestBid: 1, BidCount: 1}, t0); accepted {
		t.Error("expected update on unseeded view to be ignored")
	}
}

func TestApplySnapshot(t *testing.T) {
	t.Run("seeds unseeded view and keeps disconnected flag", func(t *testing.T) {
		v := model.AuctionView{AuctionID: "A-1", Disconnected: true}
		next, changed := ApplySnapshot(v, model.Snapshot{AuctionID: "A-1", CurrentHighestBid: 500, BidCount: 1}, t0)
		if !changed || !next.Seeded {
			t.Fatal("expected snapshot to seed the view")
		}
		if !next.Disconnected {
			t.Error("expected Disconnected to survive seeding")
		}
	})

	t.Run("lower values are discarded, other fields replaced", func(t *testing.T) {
		v := seeded(10000, 3)
		newEnd := t0.Add(10 * time.Minute)
		next, changed := ApplySnapshot(v, model.Snapshot{
			AuctionID:          "A-1",
			CurrentHighestBid:  8000,
			HighestBidderLabel: "lee",
			BidCount:           2,
			EndAt:              newEnd,
			MinBidStep:         500,
			Status:             model.StatusEnded,
		}, t0)

		if !changed {
			t.Fatal("expected change")
		}
		if next.CurrentHighestBid != 10000 || next.BidCount != 3 {
			t.Errorf("price/count = %d/%d, want 10000/3", next.CurrentHighestBid, next.BidCount)
		}
		if next.HighestBidderLabel != "kim" {
			t.Errorf("HighestBidderLabel = %q, want kim", next.HighestBidderLabel)
		}
		if !next.EndAt.Equal(newEnd) || next.RemainingSeconds != 600 {
			t.Errorf("EndAt/Remaining = %v/%d, want %v/600", next.EndAt, next.RemainingSeconds, newEnd)
		}
		if next.MinBidStep != 500 || next.Status != model.StatusEnded {
			t.Errorf("MinBidStep/Status = %d/%s", next.MinBidStep, next.Status)
		}
	})

	t.Run("identical snapshot is not a change", func(t *testing.T) {
		v := seeded(10000, 3)
		later := t0.Add(100 * time.Millisecond)
		next, changed := ApplySnapshot(v, model.Snapshot{
			AuctionID:          "A-1",
			CurrentHighestBid:  10000,
			HighestBidderLabel: "kim",
			BidCount:           3,
			EndAt:              v.EndAt,
			MinBidStep:         1000,
			Status:             model.StatusLive,
		}, later)
		if changed {
			t.Error("expected no content change")
		}
		if !next.LastUpdateAt.Equal(later) {
			t.Error("expected LastUpdateAt to advance on a confirming snapshot")
		}
	})
}

func TestApplyConfirmed_OverridesMonotonicity(t *testing.T) {
	v := seeded(10000, 3)
	v.CurrentHighestBid = 15000 // e.g. a push raced ahead

	next, changed := ApplyConfirmed(v, model.BidOutcome{
		AuctionID:          "A-1",
		Amount:             11000,
		CurrentHighestBid:  11000,
		BidCount:           4,
		HighestBidderLabel: "me",
	}, t0)

	if !changed {
		t.Fatal("expected change")
	}
	if next.CurrentHighestBid != 11000 {
		t.Errorf("CurrentHighestBid = %d, want 11000", next.CurrentHighestBid)
	}
	if next.BidCount != 4 {
		t.Errorf("BidCount = %d, want 4", next.BidCount)
	}
	if next.LastUpdateSource != model.SourceLocalOptimistic {
		t.Errorf("LastUpdateSource = %q, want local-optimistic", next.LastUpdateSource)
	}

	// Missing bid count keeps the held value.
	next, _ = ApplyConfirmed(v, model.BidOutcome{AuctionID: "A-1", CurrentHighestBid: 16000}, t0)
	if next.BidCount != 3 {
		t.Errorf("BidCount = %d, want 3", next.BidCount)
	}
}

func TestTick(t *testing.T) {
	v := seeded(10000, 3)

	tests := []struct {
		offset time.Duration
		want   int64
	}{
		{0, 90},
		{500 * time.Millisecond, 90},
		{time.Second, 89},
		{89*time.Second + time.Millisecond, 1},
		{90 * time.Second, 0},
		{time.Hour, 0},
	}

	for _, tt := range tests {
		next, _ := Tick(v, t0.Add(tt.offset))
		if next.RemainingSeconds != tt.want {
			t.Errorf("Tick(+%v).RemainingSeconds = %d, want %d", tt.offset, next.RemainingSeconds, tt.want)
		}
	}

	if _, changed := Tick(v, t0); changed {
		t.Error("expected no change at seed time")
	}
	if next, _ := Tick(v, t0); next.LastUpdateSource != v.LastUpdateSource {
		t.Error("tick must not change LastUpdateSource")
	}
}

func TestMonotonicity_RandomInterleavings(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))

	for run := 0; run < 200; run++ {
		v := seeded(rng.Int64N(10000), rng.Int64N(10))
		prevPrice, prevCount := v.CurrentHighestBid, v.BidCount

		for step := 0; step < 50; step++ {
			price, count := rng.Int64N(20000), rng.Int64N(20)
			if rng.IntN(2) == 0 {
				v, _ = ApplyBidUpdate(v, model.BidUpdate{AuctionID: "A-1", CurrentHighestBid: price, BidCount: count}, t0)
			} else {
				v, _ = ApplySnapshot(v, model.Snapshot{AuctionID: "A-1", CurrentHighestBid: price, BidCount: count}, t0)
			}

			if v.CurrentHighestBid < prevPrice || v.BidCount < prevCount {
				t.Fatalf("run %d step %d: regressed from %d/%d to %d/%d",
					run, step, prevPrice, prevCount, v.CurrentHighestBid, v.BidCount)
			}
			prevPrice, prevCount = v.CurrentHighestBid, v.BidCount
		}
	}
}

func TestSetDisconnected(t *testing.T) {
	v := seeded(10000, 3)
	next, changed := SetDisconnected(v, true)
	if !changed || !next.Disconnected {
		t.Error("expected Disconnected to be set")
	}
	if next.CurrentHighestBid != 10000 {
		t.Error("degraded mode must not clear the view")
	}
	if _, changed := SetDisconnected(next, true); changed {
		t.Error("expected no change when already disconnected")
	}
}
