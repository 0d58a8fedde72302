package main

import (
	"context"
	"flag"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/rickgao/auction-live/internal/history"
	"github.com/rickgao/auction-live/internal/model"
)

const openConcurrency = 4

// runWatch opens one engine per auction and prints every view change until
// the context is cancelled.
func runWatch(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	withHistory := fs.Bool("history", false, "print new bids as they are recorded")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	ids := fs.Args()
	if len(ids) == 0 {
		return errUsage
	}

	registry := a.registry()
	defer closeRegistry(registry, a.logger)

	// Engines live on ctx, so the group is plain: a derived context would end
	// when Wait returns.
	var g errgroup.Group
	g.SetLimit(openConcurrency)
	for _, id := range ids {
		g.Go(func() error {
			_, err := registry.Open(ctx, id)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("open auctions: %w", err)
	}

	books := make(map[string]*history.Book)
	if *withHistory {
		for _, id := range ids {
			b := a.book(id)
			if _, err := b.LoadLatest(ctx); err != nil {
				a.logger.Warn("initial bid history failed", "auction_id", id, "error", err)
			}
			books[id] = b
		}
	}

	for _, id := range registry.IDs() {
		if v, ok := registry.View(id); ok {
			fmt.Println(a.format.View(v))
		}
	}
	a.logger.Info("watching - press Ctrl+C to stop", "auctions", len(ids))

	lastLine := make(map[string]string)
	for {
		select {
		case <-ctx.Done():
			return nil
		case v := <-registry.Changes():
			// Countdown ticks change the view every second; print and journal
			// the other changes only.
			line := a.format.View(withoutCountdown(v))
			if line == lastLine[v.AuctionID] {
				continue
			}
			lastLine[v.AuctionID] = line
			fmt.Println(a.format.View(v))
			if a.journal != nil {
				a.journal.RecordView(v)
			}

			if b, ok := books[v.AuctionID]; ok {
				printNewBids(ctx, a, b, v.BidCount)
			}
		}
	}
}

func withoutCountdown(v model.AuctionView) model.AuctionView {
	v.RemainingSeconds = 0
	return v
}

func printNewBids(ctx context.Context, a *app, b *history.Book, bidCount int64) {
	n, err := b.Refresh(ctx, bidCount)
	if err != nil || n == 0 {
		return
	}
	entries := b.Entries()
	if n > len(entries) {
		n = len(entries)
	}
	// Entries are most recent first; print oldest of the new ones first.
	for i := n - 1; i >= 0; i-- {
		fmt.Println("  bid", a.format.BidEntry(entries[i]))
	}
}
