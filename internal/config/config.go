package config

import "time"

// AppConfig is the root configuration of the auction client.
type AppConfig struct {
	API       APIConfig       `yaml:"api"`
	Stream    StreamConfig    `yaml:"stream"`
	Reconcile ReconcileConfig `yaml:"reconcile"`
	Bidding   BiddingConfig   `yaml:"bidding"`
	Feed      FeedConfig      `yaml:"feed"`
	History   HistoryConfig   `yaml:"history"`
	Journal   JournalConfig   `yaml:"journal"`
	Database  DBConfig        `yaml:"database"`
	Display   DisplayConfig   `yaml:"display"`
}

// APIConfig holds backend settings.
type APIConfig struct {
	RestURL    string        `yaml:"rest_url"`
	StreamURL  string        `yaml:"stream_url"` // Defaults to rest_url
	Token      string        `yaml:"token"`      // Bearer token, usually ${AUCTION_TOKEN}
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
	TimeZone   string        `yaml:"time_zone"` // IANA zone for server times without an offset
}

// Location resolves TimeZone. Call after Validate.
func (a APIConfig) Location() (*time.Location, error) {
	return time.LoadLocation(a.TimeZone)
}

// StreamConfig holds push channel settings.
type StreamConfig struct {
	Transport       string        `yaml:"transport"` // sse or websocket
	PingTimeout     time.Duration `yaml:"ping_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	BufferSize      int           `yaml:"buffer_size"`       // Frames per connection
	EventBufferSize int           `yaml:"event_buffer_size"` // Events per subscription
}

// ReconcileConfig holds reconciliation engine settings.
type ReconcileConfig struct {
	RefreshDebounce      time.Duration `yaml:"refresh_debounce"`
	PollInterval         time.Duration `yaml:"poll_interval"`
	TickInterval         time.Duration `yaml:"tick_interval"`
	ResubscribeBaseDelay time.Duration `yaml:"resubscribe_base_delay"`
	ResubscribeMaxDelay  time.Duration `yaml:"resubscribe_max_delay"`
}

// BiddingConfig holds bid placement settings.
type BiddingConfig struct {
	DefaultMinBidStep int64 `yaml:"default_min_bid_step"` // Used when a snapshot carries none
}

// FeedConfig holds feed pager settings.
type FeedConfig struct {
	PageSize    int    `yaml:"page_size"`
	DefaultSort string `yaml:"default_sort"`
}

// HistoryConfig holds bid history settings.
type HistoryConfig struct {
	LatestSize int `yaml:"latest_size"`
	PageSize   int `yaml:"page_size"`
}

// JournalConfig holds the optional PostgreSQL journal settings.
type JournalConfig struct {
	Enabled       bool          `yaml:"enabled"`
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	BufferSize    int           `yaml:"buffer_size"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// DisplayConfig holds CLI rendering settings.
type DisplayConfig struct {
	Locale string `yaml:"locale"` // BCP 47 tag, e.g. ko-KR
}
