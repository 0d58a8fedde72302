package connection

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"sync"
	"time"
)

// maxSSELine bounds a single event-stream line.
const maxSSELine = 1 << 20

// sseClient implements Client over a text/event-stream response.
type sseClient struct {
	cfg        ClientConfig
	httpClient *http.Client
	logger     *slog.Logger

	body   io.ReadCloser
	cancel context.CancelFunc

	frames chan Frame
	errors chan error
	done   chan struct{}

	mu         sync.RWMutex
	connected  bool
	lastSeenAt time.Time
	closed     bool
}

// NewSSEClient creates a new event-stream client.
// httpClient must not set a Timeout; nil uses a default streaming client.
func NewSSEClient(cfg ClientConfig, httpClient *http.Client, logger *slog.Logger) Client {
	if logger == nil {
		logger = slog.Default()
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	return &sseClient{
		cfg:        cfg,
		httpClient: httpClient,
		logger:     logger,
		frames:     make(chan Frame, cfg.BufferSize),
		errors:     make(chan error, 1),
		done:       make(chan struct{}),
	}
}

// Connect issues the stream request and waits for the response headers.
func (c *sseClient) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrAlreadyClosed
	}
	c.mu.Unlock()

	// The stream outlives ctx; ctx only bounds the handshake.
	streamCtx, cancel := context.WithCancel(context.Background())
	stop := context.AfterFunc(ctx, cancel)

	req, err := http.NewRequestWithContext(streamCtx, http.MethodGet, c.cfg.URL, nil)
	if err != nil {
		stop()
		cancel()
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	resp, err := c.httpClient.Do(req)
	if !stop() {
		// ctx ended during the handshake.
		if err == nil {
			resp.Body.Close()
		}
		cancel()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("connect stream: %w", err)
	}
	if err != nil {
		cancel()
		return fmt.Errorf("connect stream: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		cancel()
		return fmt.Errorf("connect stream: unexpected status %d", resp.StatusCode)
	}
	if mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type")); mediaType != "text/event-stream" {
		resp.Body.Close()
		cancel()
		return fmt.Errorf("connect stream: unexpected content type %q", resp.Header.Get("Content-Type"))
	}

	c.mu.Lock()
	c.body = resp.Body
	c.cancel = cancel
	c.connected = true
	c.lastSeenAt = time.Now()
	c.mu.Unlock()

	go c.readLoop()
	go c.heartbeatLoop()

	c.logger.Debug("event stream connected", "url", c.cfg.URL)

	return nil
}

// Close cancels the stream request.
func (c *sseClient) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.connected = false
	cancel := c.cancel
	body := c.body
	c.mu.Unlock()

	close(c.done)

	if cancel != nil {
		cancel()
	}
	if body != nil {
		return body.Close()
	}
	return nil
}

// Frames returns the frames channel.
func (c *sseClient) Frames() <-chan Frame {
	return c.frames
}

// Errors returns the errors channel.
func (c *sseClient) Errors() <-chan error {
	return c.errors
}

// IsConnected returns the current connection state.
func (c *sseClient) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

func (c *sseClient) fail(err error) {
	select {
	case <-c.done:
		return
	default:
	}
	select {
	case c.errors <- err:
	default:
	}
}

// readLoop parses the event stream and emits one Frame per dispatched event.
func (c *sseClient) readLoop() {
	defer func() {
		c.mu.Lock()
		c.connected = false
		c.mu.Unlock()
	}()

	scanner := bufio.NewScanner(c.body)
	scanner.Buffer(make([]byte, 0, 4096), maxSSELine)

	var (
		data    bytes.Buffer
		event   string
		hasData bool
	)

	emit := func(f Frame) bool {
		select {
		case c.frames <- f:
			return true
		case <-c.done:
			return false
		}
	}

	for scanner.Scan() {
		line := scanner.Bytes()
		now := time.Now()

		c.mu.Lock()
		c.lastSeenAt = now
		c.mu.Unlock()

		switch {
		case len(line) == 0:
			// Blank line dispatches the pending event.
			if hasData || event != "" {
				f := Frame{Data: bytes.Clone(data.Bytes()), Event: event, ReceivedAt: now}
				if !emit(f) {
					return
				}
			}
			data.Reset()
			event = ""
			hasData = false

		case line[0] == ':':
			if !emit(Frame{Comment: true, ReceivedAt: now}) {
				return
			}

		default:
			field, value := splitField(line)
			switch field {
			case "data":
				if hasData {
					data.WriteByte('\n')
				}
				data.Write(value)
				hasData = true
			case "event":
				event = string(value)
			}
			// id and retry are ignored: reconnects never resume.
		}
	}

	if err := scanner.Err(); err != nil {
		c.fail(err)
		return
	}
	c.fail(ErrStreamEnded)
}

// splitField splits "field: value" per the event-stream format.
func splitField(line []byte) (string, []byte) {
	field, value, found := bytes.Cut(line, []byte(":"))
	if !found {
		return string(line), nil
	}
	value = bytes.TrimPrefix(value, []byte(" "))
	return string(field), value
}

// heartbeatLoop detects streams that went silent.
func (c *sseClient) heartbeatLoop() {
	if c.cfg.PingTimeout <= 0 {
		return
	}

	ticker := time.NewTicker(c.cfg.PingTimeout / 3)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.mu.RLock()
			lastSeen := c.lastSeenAt
			c.mu.RUnlock()

			if time.Since(lastSeen) > c.cfg.PingTimeout {
				c.logger.Warn("no activity, event stream stale",
					"last_seen", lastSeen,
					"timeout", c.cfg.PingTimeout,
				)
				c.fail(ErrStaleConnection)
				return
			}
		}
	}
}
