package connection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rickgao/auction-live/internal/model"
)

// Channel opens one push connection per subscription.
type Channel struct {
	cfg        ChannelConfig
	httpClient *http.Client
	logger     *slog.Logger

	// newClient builds the transport client; replaced in tests.
	newClient func(cfg ClientConfig) Client
}

// NewChannel creates a new push channel client.
func NewChannel(cfg ChannelConfig, logger *slog.Logger) *Channel {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Paths == nil {
		cfg.Paths = DefaultPaths()
	}
	if cfg.EventBufferSize <= 0 {
		cfg.EventBufferSize = DefaultChannelConfig().EventBufferSize
	}

	ch := &Channel{
		cfg:        cfg,
		httpClient: &http.Client{},
		logger:     logger,
	}
	ch.newClient = ch.transportClient
	return ch
}

func (ch *Channel) transportClient(cfg ClientConfig) Client {
	if ch.cfg.Transport == TransportWebSocket {
		return NewWebSocketClient(cfg, ch.logger)
	}
	return NewSSEClient(cfg, ch.httpClient, ch.logger)
}

// TopicURL returns the stream URL of a topic.
func (ch *Channel) TopicURL(topic Topic) (string, error) {
	tmpl, ok := ch.cfg.Paths[topic.Kind]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownTopic, topic.Kind)
	}

	u, err := url.Parse(strings.TrimRight(ch.cfg.BaseURL, "/") + strings.ReplaceAll(tmpl, "{id}", url.PathEscape(topic.ID)))
	if err != nil {
		return "", fmt.Errorf("stream url for %s: %w", topic, err)
	}

	if ch.cfg.Transport == TransportWebSocket {
		switch u.Scheme {
		case "http":
			u.Scheme = "ws"
		case "https":
			u.Scheme = "wss"
		}
	}
	return u.String(), nil
}

// Subscribe opens a connection for topic and returns its event sequence.
// ctx bounds the connection handshake. A failed connect is returned as an
// error and is not retried.
func (ch *Channel) Subscribe(ctx context.Context, topic Topic) (*Subscription, error) {
	streamURL, err := ch.TopicURL(topic)
	if err != nil {
		return nil, err
	}

	client := ch.newClient(ClientConfig{
		URL:          streamURL,
		Token:        ch.cfg.Token,
		PingTimeout:  ch.cfg.PingTimeout,
		WriteTimeout: ch.cfg.WriteTimeout,
		BufferSize:   ch.cfg.BufferSize,
	})

	if err := client.Connect(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("subscribe %s: %w", topic, err)
	}

	sub := &Subscription{
		topic:  topic,
		client: client,
		events: make(chan model.PushEvent, ch.cfg.EventBufferSize),
		done:   make(chan struct{}),
		logger: ch.logger.With("topic", topic.String()),
	}
	go sub.pump()

	sub.logger.Info("subscribed", "url", streamURL)

	return sub, nil
}

// SubscriptionStats holds per-subscription counters.
type SubscriptionStats struct {
	FramesReceived  int64
	EventsDelivered int64
	FramesDropped   int64
}

// Subscription is one live push connection and its event sequence.
// The event channel is closed after the final ConnectionEvent.
type Subscription struct {
	topic  Topic
	client Client
	events chan model.PushEvent
	logger *slog.Logger

	done       chan struct{}
	cancelOnce sync.Once

	framesReceived  atomic.Int64
	eventsDelivered atomic.Int64
	framesDropped   atomic.Int64
}

// Topic returns the subscribed topic.
func (s *Subscription) Topic() Topic {
	return s.topic
}

// Events returns the event sequence. The first event is ConnectionEvent{open}.
func (s *Subscription) Events() <-chan model.PushEvent {
	return s.events
}

// Cancel closes the connection. Safe to call more than once.
func (s *Subscription) Cancel() {
	s.cancelOnce.Do(func() {
		close(s.done)
		s.client.Close()
	})
}

// Stats returns a snapshot of the subscription counters.
func (s *Subscription) Stats() SubscriptionStats {
	return SubscriptionStats{
		FramesReceived:  s.framesReceived.Load(),
		EventsDelivered: s.eventsDelivered.Load(),
		FramesDropped:   s.framesDropped.Load(),
	}
}

func (s *Subscription) emit(ev model.PushEvent) bool {
	select {
	case s.events <- ev:
		s.eventsDelivered.Add(1)
		return true
	case <-s.done:
		return false
	}
}

func (s *Subscription) handleFrame(f Frame) bool {
	s.framesReceived.Add(1)
	ev, err := DecodeFrame(s.topic, f)
	if err != nil {
		s.framesDropped.Add(1)
		s.logger.Debug("dropped frame", "error", err)
		return true
	}
	return s.emit(ev)
}

// pump turns client frames into events until the connection ends or Cancel is called.
func (s *Subscription) pump() {
	defer close(s.events)
	defer s.client.Close()

	if !s.emit(model.ConnectionEvent{Kind: model.ConnectionOpen}) {
		return
	}

	frames := s.client.Frames()
	for {
		select {
		case <-s.done:
			return

		case f := <-frames:
			if !s.handleFrame(f) {
				return
			}

		case err := <-s.client.Errors():
			// Frames read before the failure keep their order.
			for drained := false; !drained; {
				select {
				case f := <-frames:
					if !s.handleFrame(f) {
						return
					}
				default:
					drained = true
				}
			}

			ev := model.ConnectionEvent{Kind: model.ConnectionError, Err: err}
			if errors.Is(err, ErrStreamEnded) {
				ev = model.ConnectionEvent{Kind: model.ConnectionClosed}
				s.logger.Info("stream closed by server")
			} else {
				s.logger.Warn("connection error", "error", err)
			}
			s.emit(ev)
			return
		}
	}
}
