package connection

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rickgao/auction-live/internal/model"
)

// ErrMalformedFrame is returned for payloads that cannot become an event.
var ErrMalformedFrame = errors.New("malformed frame")

// keepAliveNames are event or type names the server uses for heartbeats.
var keepAliveNames = map[string]bool{
	"ping":      true,
	"keepalive": true,
	"heartbeat": true,
}

// wireBid is the JSON body of an auction stream frame.
type wireBid struct {
	Type                  string `json:"type"`
	AuctionID             string `json:"auctionId"`
	CurrentHighestBid     *int64 `json:"currentHighestBid"`
	BidderNickname        string `json:"bidderNickname"`
	BidderLabel           string `json:"bidderLabel"`
	HighestBidderNickname string `json:"highestBidderNickname"`
	BidCount              int64  `json:"bidCount"`
}

func (w *wireBid) label() string {
	switch {
	case w.BidderLabel != "":
		return w.BidderLabel
	case w.BidderNickname != "":
		return w.BidderNickname
	}
	return w.HighestBidderNickname
}

// wireType is used to peek at the type of a non-auction frame.
type wireType struct {
	Type string `json:"type"`
}

// DecodeFrame converts a raw frame into a push event for topic.
// It returns ErrMalformedFrame for payloads the consumer should ignore.
func DecodeFrame(topic Topic, f Frame) (model.PushEvent, error) {
	if f.Comment || keepAliveNames[strings.ToLower(f.Event)] {
		return model.KeepAlive{}, nil
	}
	if len(strings.TrimSpace(string(f.Data))) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrMalformedFrame)
	}

	if topic.Kind != TopicAuction {
		var t wireType
		if err := json.Unmarshal(f.Data, &t); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
		}
		kind := t.Type
		if kind == "" {
			kind = f.Event
		}
		if keepAliveNames[strings.ToLower(kind)] {
			return model.KeepAlive{}, nil
		}
		return model.Notice{
			Topic:      topic.String(),
			Kind:       kind,
			Body:       json.RawMessage(f.Data),
			ReceivedAt: f.ReceivedAt,
		}, nil
	}

	var w wireBid
	if err := json.Unmarshal(f.Data, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if keepAliveNames[strings.ToLower(w.Type)] {
		return model.KeepAlive{}, nil
	}
	if w.CurrentHighestBid == nil {
		return nil, fmt.Errorf("%w: missing currentHighestBid", ErrMalformedFrame)
	}
	if *w.CurrentHighestBid < 0 || w.BidCount < 0 {
		return nil, fmt.Errorf("%w: negative value", ErrMalformedFrame)
	}
	if w.AuctionID == "" {
		w.AuctionID = topic.ID
	}
	if w.AuctionID != topic.ID {
		return nil, fmt.Errorf("%w: auction %q on topic %s", ErrMalformedFrame, w.AuctionID, topic)
	}

	return model.BidUpdate{
		AuctionID:         w.AuctionID,
		CurrentHighestBid: *w.CurrentHighestBid,
		BidderLabel:       w.label(),
		BidCount:          w.BidCount,
		ReceivedAt:        f.ReceivedAt,
	}, nil
}
