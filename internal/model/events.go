package model

import (
	"encoding/json"
	"time"
)

// PushEvent is one item of a push subscription's event sequence.
// Implementations: BidUpdate, ConnectionEvent, KeepAlive, Notice.
type PushEvent interface {
	pushEvent()
}

// BidUpdate reports a new bid on an auction.
type BidUpdate struct {
	AuctionID         string
	CurrentHighestBid int64
	BidderLabel       string
	BidCount          int64
	ReceivedAt        time.Time
}

// ConnectionKind is the lifecycle transition a ConnectionEvent reports.
type ConnectionKind string

const (
	ConnectionOpen   ConnectionKind = "open"
	ConnectionError  ConnectionKind = "error"
	ConnectionClosed ConnectionKind = "closed"
)

// ConnectionEvent reports a push connection lifecycle transition.
type ConnectionEvent struct {
	Kind ConnectionKind
	Err  error // Set for ConnectionError
}

// KeepAlive is a server heartbeat. It carries no state.
type KeepAlive struct{}

// Notice is a non-auction push payload (user notifications, home feed summary).
type Notice struct {
	Topic      string
	Kind       string
	Body       json.RawMessage
	ReceivedAt time.Time
}

func (BidUpdate) pushEvent()       {}
func (ConnectionEvent) pushEvent() {}
func (KeepAlive) pushEvent()       {}
func (Notice) pushEvent()          {}
