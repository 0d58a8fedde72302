package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/rickgao/auction-live/internal/model"
)

// GetAuctionSnapshot fetches the authoritative state of one auction.
func (c *Client) GetAuctionSnapshot(ctx context.Context, auctionID string) (model.Snapshot, error) {
	var resp APIAuction
	if err := c.get(ctx, "/auctions/"+url.PathEscape(auctionID), nil, &resp); err != nil {
		return model.Snapshot{}, fmt.Errorf("get auction %s: %w", auctionID, err)
	}

	snap, err := resp.ToSnapshot(auctionID, time.Now(), c.location)
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("get auction %s: %w", auctionID, err)
	}
	return snap, nil
}

// GetBids fetches the latest bids, most recent first.
func (c *Client) GetBids(ctx context.Context, auctionID string, size int) ([]model.BidEntry, error) {
	query := url.Values{}
	if size > 0 {
		query.Set("size", strconv.Itoa(size))
	}

	var resp []APIBid
	if err := c.get(ctx, "/auctions/"+url.PathEscape(auctionID)+"/bids", query, &resp); err != nil {
		return nil, fmt.Errorf("get bids %s: %w", auctionID, err)
	}

	return bidsToModel(resp, c.location), nil
}

// GetBidHistory fetches one numbered page of bid history.
func (c *Client) GetBidHistory(ctx context.Context, auctionID string, opts GetBidHistoryOptions) (model.BidHistoryPage, error) {
	query := url.Values{}
	query.Set("page", strconv.Itoa(opts.Page))
	if opts.Size > 0 {
		query.Set("size", strconv.Itoa(opts.Size))
	}
	if opts.Sort != "" {
		query.Set("sort", opts.Sort)
	}

	var resp APIBidHistoryPage
	if err := c.get(ctx, "/auctions/"+url.PathEscape(auctionID)+"/bids/history", query, &resp); err != nil {
		return model.BidHistoryPage{}, fmt.Errorf("get bid history %s: %w", auctionID, err)
	}

	return resp.ToModel(c.location), nil
}

// GetHighestBid fetches the current highest bid.
func (c *Client) GetHighestBid(ctx context.Context, auctionID string) (model.HighestBid, error) {
	var resp APIHighestBid
	if err := c.get(ctx, "/auctions/"+url.PathEscape(auctionID)+"/bids/highest", nil, &resp); err != nil {
		return model.HighestBid{}, fmt.Errorf("get highest bid %s: %w", auctionID, err)
	}

	return model.HighestBid{
		CurrentHighestBid: resp.CurrentHighestBid,
		BidderNickname:    resp.BidderNickname,
	}, nil
}

// PlaceBid submits one bid. The call is never retried: a failure is returned as is.
// Business rejections are returned as *RejectedError.
func (c *Client) PlaceBid(ctx context.Context, auctionID string, amount int64) (APIBidResult, error) {
	var resp APIBidResult
	path := "/auctions/" + url.PathEscape(auctionID) + "/bids"
	if err := c.post(ctx, path, PlaceBidRequest{BidAmount: amount}, &resp); err != nil {
		return APIBidResult{}, fmt.Errorf("place bid %s: %w", auctionID, err)
	}
	return resp, nil
}
