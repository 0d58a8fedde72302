// Package reconcile implements the Reconciliation Engine.
//
// The Reconciliation Engine:
//   - Seeds an AuctionView from the first snapshot and keeps it for the screen's lifetime
//   - Folds push BidUpdates per field: price and bid count never move backward
//   - Treats every accepted push as a hint and schedules one debounced snapshot refresh
//   - Falls back to fixed-interval polling while the push connection is down, and
//     resubscribes with exponential backoff
//   - Forces a snapshot refresh every time a subscription opens
//   - Recomputes the countdown from the absolute end time on every tick
//
// The merge rules live in reducer.go as pure functions; Engine owns the goroutines,
// timers and the subscription.
package reconcile
