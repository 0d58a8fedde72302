// Package poller implements the Snapshot Poller component.
//
// The Snapshot Poller:
//   - Fetches auction snapshots at a fixed interval while push delivery is not trusted
//   - Polls once immediately on start
//   - Uses concurrent requests with bounded concurrency when several auctions are polled
//   - Hands every snapshot to a handler; failed polls are logged and retried next tick
package poller
