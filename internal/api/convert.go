package api

import (
	"errors"
	"fmt"
	"time"

	"github.com/rickgao/auction-live/internal/model"
)

// ErrMalformedSnapshot is returned when an auction response lacks required fields.
var ErrMalformedSnapshot = errors.New("malformed auction snapshot")

// ParseTimestamp parses an ISO 8601 timestamp. Zone-less values are read as UTC.
// Returns the zero time for empty or invalid input.
func ParseTimestamp(iso string) time.Time {
	return ParseTimestampIn(iso, time.UTC)
}

// ParseTimestampIn parses an ISO 8601 timestamp. Zone-less values
// ("2006-01-02T15:04:05") are read in loc; nil means UTC.
// Returns the zero time for empty or invalid input.
func ParseTimestampIn(iso string, loc *time.Location) time.Time {
	if iso == "" {
		return time.Time{}
	}
	if loc == nil {
		loc = time.UTC
	}

	t, err := time.Parse(time.RFC3339Nano, iso)
	if err != nil {
		// Try without timezone
		t, err = time.ParseInLocation("2006-01-02T15:04:05.999999999", iso, loc)
		if err != nil {
			return time.Time{}
		}
	}

	return t
}

// ToSnapshot converts an APIAuction to model.Snapshot.
// requestedID is used when the body omits auctionId; loc applies to zone-less times.
func (a *APIAuction) ToSnapshot(requestedID string, fetchedAt time.Time, loc *time.Location) (model.Snapshot, error) {
	if a.CurrentHighestBid == nil {
		return model.Snapshot{}, fmt.Errorf("%w: currentHighestBid missing", ErrMalformedSnapshot)
	}

	endAt := ParseTimestampIn(a.EndAt, loc)
	if endAt.IsZero() {
		return model.Snapshot{}, fmt.Errorf("%w: endAt %q", ErrMalformedSnapshot, a.EndAt)
	}

	if *a.CurrentHighestBid < 0 || a.BidCount < 0 || a.MinBidStep < 0 {
		return model.Snapshot{}, fmt.Errorf("%w: negative amount", ErrMalformedSnapshot)
	}

	id := a.AuctionID
	if id == "" {
		id = requestedID
	}
	if id != requestedID {
		return model.Snapshot{}, fmt.Errorf("%w: auctionId %q, requested %q", ErrMalformedSnapshot, id, requestedID)
	}

	return model.Snapshot{
		AuctionID:          id,
		CurrentHighestBid:  *a.CurrentHighestBid,
		BidCount:           a.BidCount,
		HighestBidderLabel: a.HighestBidderNickname,
		EndAt:              endAt,
		MinBidStep:         a.MinBidStep,
		Status:             a.Status,
		FetchedAt:          fetchedAt,
	}, nil
}

// ToModel converts an APIBidHistoryPage to model.BidHistoryPage.
func (p *APIBidHistoryPage) ToModel(loc *time.Location) model.BidHistoryPage {
	return model.BidHistoryPage{
		Content:       bidsToModel(p.Content, loc),
		Page:          p.Page,
		TotalPages:    p.TotalPages,
		TotalElements: p.TotalElements,
		IsFirst:       p.IsFirst,
		IsLast:        p.IsLast,
	}
}

// ToModel converts an APIFeedPage to model.FeedPage.
// An absent or empty cursor means end of list regardless of hasNext.
// Items without an auction id are dropped.
func (p *APIFeedPage) ToModel(loc *time.Location) model.FeedPage {
	items := make([]model.ListItem, 0, len(p.Items))
	for _, it := range p.Items {
		if it.AuctionID == "" {
			continue
		}
		items = append(items, it.ToModel(loc))
	}

	var cursor string
	if p.Cursor != nil {
		cursor = *p.Cursor
	}

	return model.FeedPage{
		Items:   items,
		Cursor:  cursor,
		HasMore: p.HasNext && cursor != "",
	}
}

// ToModel converts an APIFeedItem to model.ListItem.
func (it *APIFeedItem) ToModel(loc *time.Location) model.ListItem {
	return model.ListItem{
		ID:                it.AuctionID,
		Title:             it.Title,
		Category:          it.Category,
		SubCategory:       it.SubCategory,
		Status:            it.Status,
		CurrentHighestBid: it.CurrentHighestBid,
		BidCount:          it.BidCount,
		EndAt:             ParseTimestampIn(it.EndAt, loc),
		ThumbnailURL:      it.ThumbnailURL,
	}
}

func bidsToModel(bids []APIBid, loc *time.Location) []model.BidEntry {
	out := make([]model.BidEntry, 0, len(bids))
	for _, b := range bids {
		out = append(out, model.BidEntry{
			Bidder:    b.Bidder,
			BidAmount: b.BidAmount,
			BidTime:   ParseTimestampIn(b.BidTime, loc),
		})
	}
	return out
}
