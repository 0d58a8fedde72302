package model

import "time"

// ListItem is one auction card in a scrolling feed.
type ListItem struct {
	ID                string
	Title             string
	Category          string
	SubCategory       string
	Status            string
	CurrentHighestBid int64
	BidCount          int64
	EndAt             time.Time
	ThumbnailURL      string
}

// FeedPage is one server page behind an opaque cursor.
type FeedPage struct {
	Items   []ListItem
	Cursor  string // Empty means end of list
	HasMore bool
}

// FeedCriteria are the filter and sort inputs of a feed.
type FeedCriteria struct {
	Category    string
	SubCategory string
	Status      string
	Keyword     string
	Sort        string
	Size        int
}

// FeedState is the accumulated state of one feed screen.
type FeedState struct {
	Criteria     FeedCriteria
	Items        []ListItem // Deduplicated by ID, in arrival order
	Cursor       string
	HasMore      bool
	LoadInFlight bool
	Generation   int64
}
