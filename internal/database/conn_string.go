package database

import (
	"fmt"
	"net/url"

	"github.com/rickgao/auction-live/internal/config"
)

// ApplicationName is reported to the server for every journal connection.
const ApplicationName = "auction-live"

// BuildConnString builds a PostgreSQL URL from config.
func BuildConnString(cfg config.DBConfig) string {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = config.DefaultDBSSLMode
	}

	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(cfg.User, cfg.Password),
		Host:   fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Path:   "/" + cfg.Name,
	}
	q := url.Values{}
	q.Set("application_name", ApplicationName)
	q.Set("sslmode", sslMode)
	u.RawQuery = q.Encode()

	return u.String()
}
