package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/rickgao/auction-live/internal/feed"
	"github.com/rickgao/auction-live/internal/model"
)

// runFeed prints feed pages until the list ends or -pages is reached.
func runFeed(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("feed", flag.ContinueOnError)
	criteria := model.FeedCriteria{}
	fs.StringVar(&criteria.Category, "category", "", "category filter")
	fs.StringVar(&criteria.SubCategory, "sub-category", "", "sub-category filter")
	fs.StringVar(&criteria.Status, "status", "", "status filter, e.g. LIVE")
	fs.StringVar(&criteria.Keyword, "keyword", "", "search keyword")
	fs.StringVar(&criteria.Sort, "sort", a.cfg.Feed.DefaultSort, "sort order")
	pages := fs.Int("pages", 1, "number of pages to load; 0 loads everything")
	if err := fs.Parse(args); err != nil || fs.NArg() != 0 {
		return errUsage
	}

	printed := 0
	pager := feed.NewPager(a.api, criteria,
		feed.WithLogger(a.logger),
		feed.WithPageSize(a.cfg.Feed.PageSize),
		feed.WithNotify(func(s model.FeedState) {
			if printed > len(s.Items) {
				printed = 0
			}
			now := time.Now()
			for _, it := range s.Items[printed:] {
				fmt.Println(a.format.ListItem(it, now))
			}
			printed = len(s.Items)
		}),
	)

	for loaded := 0; *pages == 0 || loaded < *pages; loaded++ {
		if err := pager.LoadNext(ctx); err != nil {
			return err
		}
		if !pager.State().HasMore {
			break
		}
	}

	s := pager.State()
	fmt.Printf("%d auctions", len(s.Items))
	if s.HasMore {
		fmt.Print(", more available")
	}
	fmt.Println()
	return nil
}
