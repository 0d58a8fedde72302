package connection

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Errors
var (
	ErrNotConnected    = errors.New("not connected")
	ErrStaleConnection = errors.New("connection stale (no activity)")
	ErrAlreadyClosed   = errors.New("already closed")
	ErrStreamEnded     = errors.New("stream ended by server")
	ErrUnknownTopic    = errors.New("unknown topic kind")
)

// Frame is one raw payload read from a push connection.
type Frame struct {
	Data       []byte    // Payload bytes (SSE data lines joined with \n)
	Event      string    // SSE event name, empty for WebSocket
	Comment    bool      // SSE comment line (server keep-alive)
	ReceivedAt time.Time // Local timestamp when the frame was read
}

// Transport selects the wire protocol of a push connection.
type Transport string

const (
	TransportSSE       Transport = "sse"
	TransportWebSocket Transport = "websocket"
)

// TopicKind is the family a topic belongs to.
type TopicKind string

const (
	TopicAuction TopicKind = "auction" // Bid stream of one auction
	TopicUser    TopicKind = "user"    // Notifications of one user
	TopicHome    TopicKind = "home"    // Home feed summary
)

// Topic identifies one push channel.
type Topic struct {
	Kind TopicKind
	ID   string
}

// AuctionTopic returns the bid stream topic of an auction.
func AuctionTopic(auctionID string) Topic {
	return Topic{Kind: TopicAuction, ID: auctionID}
}

// String returns "kind:id".
func (t Topic) String() string {
	return string(t.Kind) + ":" + t.ID
}

// ParseTopic parses "kind:id". A bare id is an auction topic.
func ParseTopic(s string) (Topic, error) {
	kind, id, found := strings.Cut(s, ":")
	if !found {
		kind, id = string(TopicAuction), s
	}
	if id == "" && TopicKind(kind) != TopicHome {
		return Topic{}, fmt.Errorf("topic %q: missing id", s)
	}
	switch TopicKind(kind) {
	case TopicAuction, TopicUser, TopicHome:
		return Topic{Kind: TopicKind(kind), ID: id}, nil
	}
	return Topic{}, fmt.Errorf("%w: %q", ErrUnknownTopic, kind)
}

// ClientConfig configures a single push connection.
type ClientConfig struct {
	URL          string        // Full stream URL (http(s) for SSE, ws(s) for WebSocket)
	Token        string        // Bearer token, empty for anonymous streams
	PingTimeout  time.Duration // Max time without any activity before the connection is stale
	WriteTimeout time.Duration // Write deadline for control frames (WebSocket)
	BufferSize   int           // Frame channel buffer size
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		PingTimeout:  45 * time.Second,
		WriteTimeout: 5 * time.Second,
		BufferSize:   256,
	}
}

// ChannelConfig configures the Push Channel Client.
type ChannelConfig struct {
	BaseURL         string               // Stream base URL, e.g. https://api.example.com/api
	Token           string               // Bearer token
	Transport       Transport            // sse or websocket
	PingTimeout     time.Duration        // See ClientConfig
	WriteTimeout    time.Duration        // See ClientConfig
	BufferSize      int                  // Frame buffer per connection
	EventBufferSize int                  // Event buffer per subscription
	Paths           map[TopicKind]string // Path template per kind; "{id}" is replaced
}

// DefaultChannelConfig returns sensible defaults.
func DefaultChannelConfig() ChannelConfig {
	return ChannelConfig{
		Transport:       TransportSSE,
		PingTimeout:     45 * time.Second,
		WriteTimeout:    5 * time.Second,
		BufferSize:      256,
		EventBufferSize: 64,
		Paths:           DefaultPaths(),
	}
}

// DefaultPaths returns the stream path template per topic kind.
func DefaultPaths() map[TopicKind]string {
	return map[TopicKind]string{
		TopicAuction: "/auctions/{id}/stream",
		TopicUser:    "/users/{id}/notifications/stream",
		TopicHome:    "/home/summary/stream",
	}
}
