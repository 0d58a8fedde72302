package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/rickgao/auction-live/internal/model"
)

// GetFeedPage fetches one page of the auction feed.
func (c *Client) GetFeedPage(ctx context.Context, opts GetFeedOptions) (model.FeedPage, error) {
	query := url.Values{}

	if opts.Category != "" {
		query.Set("category", opts.Category)
	}
	if opts.SubCategory != "" {
		query.Set("subCategory", opts.SubCategory)
	}
	if opts.Status != "" {
		query.Set("status", opts.Status)
	}
	if opts.Keyword != "" {
		query.Set("keyword", opts.Keyword)
	}
	if opts.Sort != "" {
		query.Set("sort", opts.Sort)
	}
	if opts.Cursor != "" {
		query.Set("cursor", opts.Cursor)
	}
	if opts.Size > 0 {
		query.Set("size", strconv.Itoa(opts.Size))
	}

	var resp APIFeedPage
	if err := c.get(ctx, "/auctions/feed", query, &resp); err != nil {
		return model.FeedPage{}, fmt.Errorf("get feed page: %w", err)
	}

	return resp.ToModel(c.location), nil
}

// FetchPage adapts GetFeedPage to feed criteria and a cursor.
func (c *Client) FetchPage(ctx context.Context, criteria model.FeedCriteria, cursor string) (model.FeedPage, error) {
	return c.GetFeedPage(ctx, GetFeedOptions{
		Category:    criteria.Category,
		SubCategory: criteria.SubCategory,
		Status:      criteria.Status,
		Keyword:     criteria.Keyword,
		Sort:        criteria.Sort,
		Cursor:      cursor,
		Size:        criteria.Size,
	})
}
