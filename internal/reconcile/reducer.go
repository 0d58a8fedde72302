package reconcile

import (
	"time"

	"github.com/rickgao/auction-live/internal/model"
)

// remainingSeconds returns the whole seconds left until endAt, rounded up.
func remainingSeconds(endAt, now time.Time) int64 {
	if endAt.IsZero() {
		return 0
	}
	d := endAt.Sub(now)
	if d <= 0 {
		return 0
	}
	return int64((d + time.Second - 1) / time.Second)
}

// sameContent reports whether two views display the same state.
// Bookkeeping fields (source, timestamps) are ignored.
func sameContent(a, b model.AuctionView) bool {
	return a.AuctionID == b.AuctionID &&
		a.CurrentHighestBid == b.CurrentHighestBid &&
		a.HighestBidderLabel == b.HighestBidderLabel &&
		a.BidCount == b.BidCount &&
		a.EndAt.Equal(b.EndAt) &&
		a.RemainingSeconds == b.RemainingSeconds &&
		a.MinBidStep == b.MinBidStep &&
		a.Status == b.Status &&
		a.Seeded == b.Seeded &&
		a.Disconnected == b.Disconnected
}

// Seed builds the initial view from the first successful snapshot.
func Seed(snap model.Snapshot, now time.Time) model.AuctionView {
	return model.AuctionView{
		AuctionID:          snap.AuctionID,
		CurrentHighestBid:  snap.CurrentHighestBid,
		HighestBidderLabel: snap.HighestBidderLabel,
		BidCount:           snap.BidCount,
		EndAt:              snap.EndAt,
		RemainingSeconds:   remainingSeconds(snap.EndAt, now),
		MinBidStep:         snap.MinBidStep,
		Status:             snap.Status,
		LastUpdateSource:   model.SourceSnapshot,
		LastUpdateAt:       now,
		Seeded:             true,
	}
}

// ApplySnapshot folds an authoritative read into v.
//
// Price and bid count are taken only when not lower than the held values; the
// bidder label follows an accepted price. End time, status and bid step are
// replaced. The bool reports a change in displayed content.
func ApplySnapshot(v model.AuctionView, snap model.Snapshot, now time.Time) (model.AuctionView, bool) {
	if snap.AuctionID != v.AuctionID && v.Seeded {
		return v, false
	}
	if !v.Seeded {
		seeded := Seed(snap, now)
		seeded.Disconnected = v.Disconnected
		return seeded, true
	}

	next := v
	if snap.CurrentHighestBid >= v.CurrentHighestBid {
		if snap.CurrentHighestBid > v.CurrentHighestBid || snap.HighestBidderLabel != "" {
			next.HighestBidderLabel = snap.HighestBidderLabel
		}
		next.CurrentHighestBid = snap.CurrentHighestBid
	}
	if snap.BidCount >= v.BidCount {
		next.BidCount = snap.BidCount
	}
	if !snap.EndAt.IsZero() {
		next.EndAt = snap.EndAt
	}
	if snap.Status != "" {
		next.Status = snap.Status
	}
	if snap.MinBidStep > 0 {
		next.MinBidStep = snap.MinBidStep
	}
	next.RemainingSeconds = remainingSeconds(next.EndAt, now)
	next.LastUpdateSource = model.SourceSnapshot
	next.LastUpdateAt = now

	return next, !sameContent(v, next)
}

// ApplyBidUpdate folds a push update into v, checking each field on its own.
//
// The bool reports whether at least one field passed its check; the caller
// uses it to schedule a refresh. An update for an unseeded view or another
// auction is ignored.
func ApplyBidUpdate(v model.AuctionView, u model.BidUpdate, now time.Time) (model.AuctionView, bool) {
	if !v.Seeded || u.AuctionID != v.AuctionID {
		return v, false
	}

	priceOK := u.CurrentHighestBid >= v.CurrentHighestBid
	countOK := u.BidCount >= v.BidCount
	if !priceOK && !countOK {
		return v, false
	}

	next := v
	if priceOK {
		next.CurrentHighestBid = u.CurrentHighestBid
		if u.BidderLabel != "" {
			next.HighestBidderLabel = u.BidderLabel
		}
	}
	if countOK {
		next.BidCount = u.BidCount
	}
	next.LastUpdateSource = model.SourcePush
	next.LastUpdateAt = now

	return next, true
}

// ApplyConfirmed folds the server-confirmed result of this client's own bid
// into v. It bypasses the monotonicity checks. A zero bid count in the
// outcome means the server did not report one and the held count is kept.
func ApplyConfirmed(v model.AuctionView, o model.BidOutcome, now time.Time) (model.AuctionView, bool) {
	if !v.Seeded || o.AuctionID != v.AuctionID {
		return v, false
	}

	next := v
	next.CurrentHighestBid = o.CurrentHighestBid
	if o.BidCount > 0 {
		next.BidCount = o.BidCount
	}
	if o.HighestBidderLabel != "" {
		next.HighestBidderLabel = o.HighestBidderLabel
	}
	next.LastUpdateSource = model.SourceLocalOptimistic
	next.LastUpdateAt = now

	return next, true
}

// Tick recomputes the countdown from the absolute end time.
func Tick(v model.AuctionView, now time.Time) (model.AuctionView, bool) {
	r := remainingSeconds(v.EndAt, now)
	if r == v.RemainingSeconds {
		return v, false
	}
	v.RemainingSeconds = r
	return v, true
}

// SetDisconnected toggles the degraded-mode flag.
func SetDisconnected(v model.AuctionView, disconnected bool) (model.AuctionView, bool) {
	if v.Disconnected == disconnected {
		return v, false
	}
	v.Disconnected = disconnected
	return v, true
}
