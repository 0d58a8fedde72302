package model

import (
	"time"

	"github.com/google/uuid"
)

// -----------------------------------------------------------------------------
// Auction State
// -----------------------------------------------------------------------------

// UpdateSource tags which input last mutated an AuctionView.
type UpdateSource string

const (
	SourceSnapshot        UpdateSource = "snapshot"
	SourcePush            UpdateSource = "push"
	SourceLocalOptimistic UpdateSource = "local-optimistic"
)

// Auction statuses reported by the backend.
const (
	StatusScheduled = "SCHEDULED"
	StatusLive      = "LIVE"
	StatusEnded     = "ENDED"
)

// Snapshot is one authoritative read of an auction's current state.
type Snapshot struct {
	AuctionID          string
	CurrentHighestBid  int64
	BidCount           int64
	HighestBidderLabel string
	EndAt              time.Time // Absolute end time from the server
	MinBidStep         int64
	Status             string
	FetchedAt          time.Time // Local time the response was decoded
}

// AuctionView is the merged, displayed state of one auction.
type AuctionView struct {
	AuctionID          string
	CurrentHighestBid  int64  // Never decreases
	HighestBidderLabel string // Empty when nobody has bid
	BidCount           int64  // Never decreases
	EndAt              time.Time
	RemainingSeconds   int64 // Derived from EndAt on every tick
	MinBidStep         int64
	Status             string

	LastUpdateSource UpdateSource
	LastUpdateAt     time.Time // Local wall clock of the last mutation

	Seeded       bool // True once the first snapshot was folded in
	Disconnected bool // True while the push channel is down (degraded mode)
}

// MinimumNextBid returns the smallest amount the view currently accepts.
func (v AuctionView) MinimumNextBid() int64 {
	return v.CurrentHighestBid + v.MinBidStep
}

// Ended reports whether the auction is over at the given instant.
func (v AuctionView) Ended(now time.Time) bool {
	if v.Status == StatusEnded {
		return true
	}
	return !v.EndAt.IsZero() && !now.Before(v.EndAt)
}

// -----------------------------------------------------------------------------
// Bids
// -----------------------------------------------------------------------------

// BidEntry is one row of an auction's bid sequence.
type BidEntry struct {
	Bidder    string
	BidAmount int64
	BidTime   time.Time
}

// BidHistoryPage is one numbered page of the full bid history.
type BidHistoryPage struct {
	Content       []BidEntry
	Page          int
	TotalPages    int
	TotalElements int64
	IsFirst       bool
	IsLast        bool
}

// HighestBid is the lightweight highest-bid read.
type HighestBid struct {
	CurrentHighestBid int64
	BidderNickname    string
}

// BidOutcome is the server-confirmed result of one accepted bid.
type BidOutcome struct {
	AttemptID          uuid.UUID // Client-side ID of the submission
	AuctionID          string
	Amount             int64
	CurrentHighestBid  int64
	BidCount           int64
	HighestBidderLabel string
	ConfirmedAt        time.Time
}
