package api

import "encoding/json"

// envelope wraps every API response.
type envelope struct {
	Success *bool           `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// APIAuction from GET /auctions/{id}
type APIAuction struct {
	AuctionID             string `json:"auctionId"`
	CurrentHighestBid     *int64 `json:"currentHighestBid"`
	BidCount              int64  `json:"bidCount"`
	HighestBidderNickname string `json:"highestBidderNickname"`
	EndAt                 string `json:"endAt"` // ISO 8601
	MinBidStep            int64  `json:"minBidStep"`
	Status                string `json:"status"`
}

// APIBid is one row from GET /auctions/{id}/bids and the history pages.
type APIBid struct {
	Bidder    string `json:"bidder"`
	BidAmount int64  `json:"bidAmount"`
	BidTime   string `json:"bidTime"` // ISO 8601
}

// APIBidHistoryPage from GET /auctions/{id}/bids/history
type APIBidHistoryPage struct {
	Content       []APIBid `json:"content"`
	Page          int      `json:"page"`
	TotalPages    int      `json:"totalPages"`
	TotalElements int64    `json:"totalElements"`
	IsFirst       bool     `json:"isFirst"`
	IsLast        bool     `json:"isLast"`
}

// APIHighestBid from GET /auctions/{id}/bids/highest
type APIHighestBid struct {
	CurrentHighestBid int64  `json:"currentHighestBid"`
	BidderNickname    string `json:"bidderNickname"`
}

// PlaceBidRequest is the body of POST /auctions/{id}/bids
type PlaceBidRequest struct {
	BidAmount int64 `json:"bidAmount"`
}

// APIBidResult is the data of a successful POST /auctions/{id}/bids
type APIBidResult struct {
	CurrentHighestBid     int64  `json:"currentHighestBid"`
	BidCount              int64  `json:"bidCount"`
	HighestBidderNickname string `json:"highestBidderNickname"`
}

// APIFeedPage from GET /auctions/feed
type APIFeedPage struct {
	Items   []APIFeedItem `json:"items"`
	Cursor  *string       `json:"cursor"`
	HasNext bool          `json:"hasNext"`
}

// APIFeedItem is one feed card.
type APIFeedItem struct {
	AuctionID         string `json:"auctionId"`
	Title             string `json:"title"`
	Category          string `json:"category"`
	SubCategory       string `json:"subCategory"`
	Status            string `json:"status"`
	CurrentHighestBid int64  `json:"currentHighestBid"`
	BidCount          int64  `json:"bidCount"`
	EndAt             string `json:"endAt"`
	ThumbnailURL      string `json:"thumbnailUrl"`
}

// GetBidHistoryOptions configures a GetBidHistory request.
type GetBidHistoryOptions struct {
	Page int
	Size int
	Sort string // e.g. "bidTime,desc"
}

// GetFeedOptions configures a GetFeedPage request.
type GetFeedOptions struct {
	Category    string
	SubCategory string
	Status      string
	Keyword     string
	Sort        string
	Cursor      string
	Size        int
}
