package config

import (
	"errors"
	"fmt"
	"net/url"

	"golang.org/x/text/language"
)

// Validate checks that all required fields are set and values are valid.
func (c *AppConfig) Validate() error {
	if err := validateURL("api.rest_url", c.API.RestURL); err != nil {
		return err
	}
	if err := validateURL("api.stream_url", c.API.StreamURL); err != nil {
		return err
	}
	if c.API.Timeout <= 0 {
		return errors.New("api.timeout must be > 0")
	}
	if c.API.MaxRetries < 0 {
		return errors.New("api.max_retries must be >= 0")
	}
	if _, err := c.API.Location(); err != nil {
		return fmt.Errorf("api.time_zone %q: %w", c.API.TimeZone, err)
	}

	switch c.Stream.Transport {
	case "sse", "websocket":
	default:
		return fmt.Errorf("stream.transport must be sse or websocket, got %q", c.Stream.Transport)
	}
	if c.Stream.PingTimeout <= 0 {
		return errors.New("stream.ping_timeout must be > 0")
	}
	if c.Stream.BufferSize < 1 {
		return errors.New("stream.buffer_size must be >= 1")
	}
	if c.Stream.EventBufferSize < 1 {
		return errors.New("stream.event_buffer_size must be >= 1")
	}

	if c.Reconcile.RefreshDebounce < 0 {
		return errors.New("reconcile.refresh_debounce must be >= 0")
	}
	if c.Reconcile.PollInterval <= 0 {
		return errors.New("reconcile.poll_interval must be > 0")
	}
	if c.Reconcile.TickInterval <= 0 {
		return errors.New("reconcile.tick_interval must be > 0")
	}
	if c.Reconcile.ResubscribeBaseDelay <= 0 {
		return errors.New("reconcile.resubscribe_base_delay must be > 0")
	}
	if c.Reconcile.ResubscribeMaxDelay < c.Reconcile.ResubscribeBaseDelay {
		return fmt.Errorf("reconcile.resubscribe_max_delay (%s) cannot be below resubscribe_base_delay (%s)",
			c.Reconcile.ResubscribeMaxDelay, c.Reconcile.ResubscribeBaseDelay)
	}

	if c.Bidding.DefaultMinBidStep < 1 {
		return errors.New("bidding.default_min_bid_step must be >= 1")
	}

	if c.Feed.PageSize < 1 {
		return errors.New("feed.page_size must be >= 1")
	}
	if c.History.LatestSize < 1 {
		return errors.New("history.latest_size must be >= 1")
	}
	if c.History.PageSize < 1 {
		return errors.New("history.page_size must be >= 1")
	}

	if c.Journal.Enabled {
		if c.Journal.BatchSize < 1 {
			return errors.New("journal.batch_size must be >= 1")
		}
		if c.Journal.BufferSize < 1 {
			return errors.New("journal.buffer_size must be >= 1")
		}
		if c.Journal.FlushInterval <= 0 {
			return errors.New("journal.flush_interval must be > 0")
		}
		if err := c.Database.validate("database"); err != nil {
			return err
		}
	}

	if _, err := language.Parse(c.Display.Locale); err != nil {
		return fmt.Errorf("display.locale %q: %w", c.Display.Locale, err)
	}

	return nil
}

func validateURL(field, raw string) error {
	if raw == "" {
		return fmt.Errorf("%s is required", field)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	switch u.Scheme {
	case "http", "https", "ws", "wss":
	default:
		return fmt.Errorf("%s must be an http(s) or ws(s) URL, got %q", field, raw)
	}
	if u.Host == "" {
		return fmt.Errorf("%s has no host", field)
	}
	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
