// Package bidding implements the Bid Placement Coordinator.
//
// The coordinator validates a bid against the auction's current view before
// any network call, submits it exactly once, and folds the server-confirmed
// result back into the view. At most one submission per auction is in flight;
// a second call is rejected locally with ErrAlreadyInFlight.
package bidding
