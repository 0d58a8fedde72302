package bidding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rickgao/auction-live/internal/api"
	"github.com/rickgao/auction-live/internal/model"
)

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRecorder sets a recorder for submitted attempts.
func WithRecorder(r Recorder) Option {
	return func(c *Coordinator) {
		c.recorder = r
	}
}

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		c.now = now
	}
}

// Coordinator places bids for the auctions in a ViewStore.
type Coordinator struct {
	submitter Submitter
	views     ViewStore
	recorder  Recorder
	logger    *slog.Logger
	now       func() time.Time

	mu       sync.Mutex
	inFlight map[string]bool
}

// NewCoordinator creates a bid coordinator.
func NewCoordinator(submitter Submitter, views ViewStore, opts ...Option) *Coordinator {
	c := &Coordinator{
		submitter: submitter,
		views:     views,
		logger:    slog.Default(),
		now:       time.Now,
		inFlight:  make(map[string]bool),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// InFlight reports whether a bid for the auction is being submitted.
func (c *Coordinator) InFlight(auctionID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight[auctionID]
}

// PlaceBid validates amount against the auction's current view and submits it once.
// On success the confirmed result is folded into the view. On failure the view is
// untouched and a *BidError is returned.
func (c *Coordinator) PlaceBid(ctx context.Context, auctionID string, amount int64) (model.BidOutcome, error) {
	if err := c.validate(auctionID, amount); err != nil {
		return model.BidOutcome{}, err
	}

	if !c.acquire(auctionID) {
		return model.BidOutcome{}, &BidError{
			Kind:      KindAlreadyInFlight,
			AuctionID: auctionID,
			Amount:    amount,
			Err:       ErrAlreadyInFlight,
		}
	}
	defer c.release(auctionID)

	attempt := Attempt{
		ID:        uuid.New(),
		AuctionID: auctionID,
		Amount:    amount,
		StartedAt: c.now(),
	}
	logger := c.logger.With("auction_id", auctionID, "attempt_id", attempt.ID, "amount", amount)

	result, err := c.submitter.PlaceBid(ctx, auctionID, amount)
	attempt.FinishedAt = c.now()
	if err != nil {
		bidErr := classify(auctionID, amount, err)
		attempt.Err = bidErr
		c.record(attempt)
		logger.Warn("bid failed", "kind", bidErr.Kind, "err", err)
		return model.BidOutcome{}, bidErr
	}

	outcome := model.BidOutcome{
		AttemptID:          attempt.ID,
		AuctionID:          auctionID,
		Amount:             amount,
		CurrentHighestBid:  result.CurrentHighestBid,
		BidCount:           result.BidCount,
		HighestBidderLabel: result.HighestBidderNickname,
		ConfirmedAt:        attempt.FinishedAt,
	}
	if outcome.CurrentHighestBid == 0 {
		// Accepted without an echoed price: our amount is the new high.
		outcome.CurrentHighestBid = amount
	}

	c.views.ApplyConfirmed(outcome)
	attempt.Outcome = &outcome
	c.record(attempt)

	logger.Info("bid accepted",
		"current_highest_bid", outcome.CurrentHighestBid,
		"bid_count", outcome.BidCount,
	)

	return outcome, nil
}

// validate checks amount against the view as it is right now.
func (c *Coordinator) validate(auctionID string, amount int64) error {
	invalid := func(err error, msg string) error {
		return &BidError{Kind: KindValidation, AuctionID: auctionID, Amount: amount, Message: msg, Err: err}
	}

	if amount <= 0 {
		return invalid(ErrInvalidAmount, "")
	}

	view, ok := c.views.View(auctionID)
	if !ok {
		return invalid(ErrUnknownAuction, "")
	}
	if !view.Seeded {
		return invalid(ErrNotSeeded, "")
	}

	if minimum := view.MinimumNextBid(); amount < minimum {
		return invalid(fmt.Errorf("%w: minimum is %d", ErrBelowMinimum, minimum), "")
	}
	return nil
}

func (c *Coordinator) acquire(auctionID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inFlight[auctionID] {
		return false
	}
	c.inFlight[auctionID] = true
	return true
}

func (c *Coordinator) release(auctionID string) {
	c.mu.Lock()
	delete(c.inFlight, auctionID)
	c.mu.Unlock()
}

func (c *Coordinator) record(a Attempt) {
	if c.recorder != nil {
		c.recorder.RecordAttempt(a)
	}
}

// classify maps a submission error to a BidError.
func classify(auctionID string, amount int64, err error) *BidError {
	bidErr := &BidError{AuctionID: auctionID, Amount: amount, Err: err}

	var rejected *api.RejectedError
	var apiErr *api.APIError
	switch {
	case errors.As(err, &rejected):
		bidErr.Kind = KindRejected
		bidErr.Message = rejected.Message
	case errors.Is(err, api.ErrMalformedResponse):
		bidErr.Kind = KindUnexpected
	case errors.As(err, &apiErr) && !apiErr.IsRetryable():
		bidErr.Kind = KindRejected
		bidErr.Message = apiErr.Message
	default:
		bidErr.Kind = KindTransport
	}
	return bidErr
}
