package bidding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rickgao/auction-live/internal/api"
	"github.com/rickgao/auction-live/internal/model"
)

// Errors
var (
	ErrInvalidAmount   = errors.New("amount must be a positive integer")
	ErrBelowMinimum    = errors.New("amount below minimum next bid")
	ErrAlreadyInFlight = errors.New("a bid for this auction is already in flight")
	ErrUnknownAuction  = errors.New("auction not open")
	ErrNotSeeded       = errors.New("auction state not loaded yet")
)

// Kind classifies a BidError.
type Kind string

const (
	KindValidation      Kind = "validation" // Caught locally, never sent
	KindAlreadyInFlight Kind = "already-in-flight"
	KindRejected        Kind = "rejected"   // Business-rule rejection from the server
	KindTransport       Kind = "transport"  // Network failure or non-business HTTP error
	KindUnexpected      Kind = "unexpected" // Unparseable response
)

// BidError is returned by every failed PlaceBid call.
type BidError struct {
	Kind      Kind
	AuctionID string
	Amount    int64
	Message   string // Server message for KindRejected, verbatim
	Err       error
}

func (e *BidError) Error() string {
	if e.Kind == KindRejected && e.Message != "" {
		return fmt.Sprintf("bid %d on %s rejected: %s", e.Amount, e.AuctionID, e.Message)
	}
	return fmt.Sprintf("bid %d on %s: %v", e.Amount, e.AuctionID, e.Err)
}

func (e *BidError) Unwrap() error {
	return e.Err
}

// Submitter sends a bid to the backend.
type Submitter interface {
	PlaceBid(ctx context.Context, auctionID string, amount int64) (api.APIBidResult, error)
}

// ViewStore gives the coordinator the live view of an auction and accepts
// confirmed results. reconcile.Registry implements it.
type ViewStore interface {
	View(auctionID string) (model.AuctionView, bool)
	ApplyConfirmed(outcome model.BidOutcome) bool
}

// Attempt is one submitted bid, successful or not.
type Attempt struct {
	ID         uuid.UUID
	AuctionID  string
	Amount     int64
	Outcome    *model.BidOutcome // Nil on failure
	Err        *BidError         // Nil on success
	StartedAt  time.Time
	FinishedAt time.Time
}

// Recorder receives every submitted attempt.
type Recorder interface {
	RecordAttempt(a Attempt)
}
