// Package config provides centralized configuration management for the application.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"strconv"
	"time"
)

// Source kinds accepted by SOURCE_KIND.
const (
	SourceSheets = "sheets"
	SourceXLSX   = "xlsx"
	SourceCSV    = "csv"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Source   SourceConfig
	Sheets   SheetsConfig
	Database DatabaseConfig
	Sync     SyncConfig
	Server   ServerConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// SourceConfig selects where rows come from.
type SourceConfig struct {
	// Kind is sheets, xlsx or csv (default: sheets)
	Kind string `env:"SOURCE_KIND" default:"sheets"`

	// HeaderRows is the number of title rows skipped before reconciling (default: 2)
	HeaderRows int `env:"SOURCE_HEADER_ROWS" default:"2"`

	// Path is the workbook or CSV file for the xlsx and csv kinds
	Path string `env:"SOURCE_PATH"`

	// Sheet is the worksheet name for the xlsx kind (default: first sheet)
	Sheet string `env:"SOURCE_SHEET"`
}

// SheetsConfig holds Google Sheets API settings.
type SheetsConfig struct {
	// SpreadsheetID identifies the spreadsheet
	SpreadsheetID string `env:"SPREADSHEET_ID"`

	// Range is the A1 range to read, e.g. "Talents!A:N"
	Range string `env:"SPREADSHEET_RANGE"`

	// BearerToken authorizes the request; the CLI prompts when it is empty
	BearerToken string `env:"SHEETS_BEARER_TOKEN" envAlt:"BEARER_TOKEN"`

	// BaseURL is the API root (default: https://sheets.googleapis.com)
	BaseURL string `env:"SHEETS_BASE_URL" default:"https://sheets.googleapis.com"`

	// Timeout is the HTTP timeout for one fetch (default: 30s)
	Timeout time.Duration `env:"SHEETS_TIMEOUT" default:"30s"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// URL is a postgres:// connection string or sqlite:<path>
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL" default:"sqlite:sheetsync.db"`

	// MaxConns is the maximum number of connections in the pool (default: 10)
	MaxConns int `env:"DB_MAX_CONNS" default:"10"`

	// MinConns is the minimum number of connections to keep open (default: 1)
	MinConns int `env:"DB_MIN_CONNS" default:"1"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// SyncConfig holds sync pass settings.
type SyncConfig struct {
	// Interval runs a pass periodically under serve; 0 disables (default: 0)
	Interval time.Duration `env:"SYNC_INTERVAL" default:"0s"`

	// Timeout is the maximum duration of one pass (default: 10m)
	Timeout time.Duration `env:"SYNC_TIMEOUT" default:"10m"`

	// HistorySize is the number of pass reports kept in memory (default: 20)
	HistorySize int `env:"SYNC_HISTORY_SIZE" default:"20"`

	// MaxWait is how long a manual pass waits for a running one (default: 30s)
	MaxWait time.Duration `env:"SYNC_MAX_WAIT" default:"30s"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing response (default: 0, bounded by SYNC_TIMEOUT)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"0s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for read requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`

	// SyncLimit is requests per minute for POST /api/sync (default: 6)
	SyncLimit int `env:"RATE_LIMIT_SYNC" default:"6"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// RequireAPIKey guards mutating endpoints with X-API-Key (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted keys
	APIKeys []string `env:"API_KEYS"`

	// TrustedProxies is a comma-separated list of proxy CIDRs or IPs whose
	// X-Real-IP and X-Forwarded-For headers are believed (default: none)
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
