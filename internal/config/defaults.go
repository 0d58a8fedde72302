package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultRestURL              = "http://localhost:8080/api"
	DefaultAPITimeout           = 10 * time.Second
	DefaultMaxRetries           = 3
	DefaultTimeZone             = "UTC"
	DefaultTransport            = "sse"
	DefaultPingTimeout          = 45 * time.Second
	DefaultWriteTimeout         = 5 * time.Second
	DefaultStreamBufferSize     = 256
	DefaultEventBufferSize      = 64
	DefaultRefreshDebounce      = 500 * time.Millisecond
	DefaultPollInterval         = 5 * time.Second
	DefaultTickInterval         = 1 * time.Second
	DefaultResubscribeBaseDelay = 1 * time.Second
	DefaultResubscribeMaxDelay  = 30 * time.Second
	DefaultMinBidStep           = 1000
	DefaultFeedPageSize         = 20
	DefaultFeedSort             = "endAt,asc"
	DefaultHistoryLatestSize    = 10
	DefaultHistoryPageSize      = 20
	DefaultBatchSize            = 100
	DefaultFlushInterval        = 1 * time.Second
	DefaultBufferSize           = 1000
	DefaultDBPort               = 5432
	DefaultDBSSLMode            = "prefer"
	DefaultMaxConns             = 4
	DefaultMinConns             = 1
	DefaultLocale               = "ko-KR"
)

func (c *AppConfig) applyDefaults() {
	// API defaults
	if c.API.RestURL == "" {
		c.API.RestURL = DefaultRestURL
	}
	if c.API.StreamURL == "" {
		c.API.StreamURL = c.API.RestURL
	}
	if c.API.Timeout == 0 {
		c.API.Timeout = DefaultAPITimeout
	}
	if c.API.MaxRetries == 0 {
		c.API.MaxRetries = DefaultMaxRetries
	}
	if c.API.TimeZone == "" {
		c.API.TimeZone = DefaultTimeZone
	}

	// Stream defaults
	if c.Stream.Transport == "" {
		c.Stream.Transport = DefaultTransport
	}
	if c.Stream.PingTimeout == 0 {
		c.Stream.PingTimeout = DefaultPingTimeout
	}
	if c.Stream.WriteTimeout == 0 {
		c.Stream.WriteTimeout = DefaultWriteTimeout
	}
	if c.Stream.BufferSize == 0 {
		c.Stream.BufferSize = DefaultStreamBufferSize
	}
	if c.Stream.EventBufferSize == 0 {
		c.Stream.EventBufferSize = DefaultEventBufferSize
	}

	// Reconcile defaults
	if c.Reconcile.RefreshDebounce == 0 {
		c.Reconcile.RefreshDebounce = DefaultRefreshDebounce
	}
	if c.Reconcile.PollInterval == 0 {
		c.Reconcile.PollInterval = DefaultPollInterval
	}
	if c.Reconcile.TickInterval == 0 {
		c.Reconcile.TickInterval = DefaultTickInterval
	}
	if c.Reconcile.ResubscribeBaseDelay == 0 {
		c.Reconcile.ResubscribeBaseDelay = DefaultResubscribeBaseDelay
	}
	if c.Reconcile.ResubscribeMaxDelay == 0 {
		c.Reconcile.ResubscribeMaxDelay = DefaultResubscribeMaxDelay
	}

	if c.Bidding.DefaultMinBidStep == 0 {
		c.Bidding.DefaultMinBidStep = DefaultMinBidStep
	}

	// Feed and history defaults
	if c.Feed.PageSize == 0 {
		c.Feed.PageSize = DefaultFeedPageSize
	}
	if c.Feed.DefaultSort == "" {
		c.Feed.DefaultSort = DefaultFeedSort
	}
	if c.History.LatestSize == 0 {
		c.History.LatestSize = DefaultHistoryLatestSize
	}
	if c.History.PageSize == 0 {
		c.History.PageSize = DefaultHistoryPageSize
	}

	// Journal defaults
	if c.Journal.BatchSize == 0 {
		c.Journal.BatchSize = DefaultBatchSize
	}
	if c.Journal.FlushInterval == 0 {
		c.Journal.FlushInterval = DefaultFlushInterval
	}
	if c.Journal.BufferSize == 0 {
		c.Journal.BufferSize = DefaultBufferSize
	}

	applyDBDefaults(&c.Database)

	if c.Display.Locale == "" {
		c.Display.Locale = DefaultLocale
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
