package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/rickgao/auction-live/internal/bidding"
)

// runBid seeds the auction's view, places one bid and prints the result.
func runBid(ctx context.Context, a *app, args []string) error {
	if len(args) != 2 {
		return errUsage
	}
	auctionID := args[0]

	amount, err := bidding.ParseAmount(args[1])
	if err != nil {
		return err
	}

	registry := a.registry()
	defer closeRegistry(registry, a.logger)

	if _, err := registry.Open(ctx, auctionID); err != nil {
		return err
	}
	v, _ := registry.View(auctionID)
	fmt.Println(a.format.View(v))

	outcome, err := a.coordinator(registry).PlaceBid(ctx, auctionID, amount)
	if err != nil {
		var bidErr *bidding.BidError
		if errors.As(err, &bidErr) {
			switch bidErr.Kind {
			case bidding.KindValidation:
				fmt.Printf("not sent: %v (minimum %s)\n", bidErr.Err, a.format.Amount(v.MinimumNextBid()))
			case bidding.KindRejected:
				fmt.Printf("rejected: %s\n", bidErr.Message)
			default:
				fmt.Printf("failed (%s): %v\n", bidErr.Kind, bidErr.Err)
			}
		}
		return err
	}

	fmt.Printf("accepted: %s, highest bid now %s\n",
		a.format.Amount(outcome.Amount), a.format.Amount(outcome.CurrentHighestBid))
	if v, ok := registry.View(auctionID); ok {
		fmt.Println(a.format.View(v))
	}
	return nil
}
