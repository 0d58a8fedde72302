package main

import (
	"context"
	"flag"
	"fmt"
)

// runHistory prints the highest bid and the bid history of one auction.
func runHistory(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	pages := fs.Int("pages", 1, "history pages to load after the latest window; 0 loads everything")
	if err := fs.Parse(args); err != nil || fs.NArg() != 1 {
		return errUsage
	}
	auctionID := fs.Arg(0)

	book := a.book(auctionID)

	highest, err := book.Highest(ctx)
	if err != nil {
		return err
	}
	if highest.BidderNickname != "" {
		fmt.Printf("highest: %s by %s\n", a.format.Amount(highest.CurrentHighestBid), highest.BidderNickname)
	} else {
		fmt.Printf("highest: %s\n", a.format.Amount(highest.CurrentHighestBid))
	}

	if _, err := book.LoadLatest(ctx); err != nil {
		return err
	}
	for loaded := 0; book.HasMore() && (*pages == 0 || loaded < *pages); loaded++ {
		if _, err := book.LoadMore(ctx); err != nil {
			return err
		}
	}

	for _, e := range book.Entries() {
		fmt.Println(a.format.BidEntry(e))
	}
	fmt.Printf("%d of %d bids\n", len(book.Entries()), book.TotalElements())
	return nil
}
