// Package api provides the REST client for the auction backend.
//
// It is the Snapshot Fetcher: one-shot authoritative reads with no connection state.
//
// Endpoints (relative to the configured base URL):
//   - GET  /auctions/{id}                  auction snapshot
//   - GET  /auctions/{id}/bids             latest N bids, most recent first
//   - GET  /auctions/{id}/bids/history     numbered bid history pages
//   - GET  /auctions/{id}/bids/highest     highest bid
//   - POST /auctions/{id}/bids             place a bid (never retried)
//   - GET  /auctions/feed                  cursor feed page
//
// Every response is wrapped in a {success, message, data} envelope.
package api
