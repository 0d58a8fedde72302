// Package history keeps an auction's bid sequence for display.
//
// The backend exposes two reads over the same bids: a short latest-N list and
// numbered history pages. They are not guaranteed to reflect the same instant,
// so Book treats them as independent reads and merges their rows into one
// deduplicated, most-recent-first sequence.
package history
