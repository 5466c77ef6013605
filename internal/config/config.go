package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port string

	// Backend selection
	DataBackend string

	// Database
	SQLiteDBPath string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets export
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// Worker
	SyncBatchSize int
	SyncInterval  time.Duration

	// Auth
	JWTSecret string
	JWTIssuer string

	// Analytics
	AnalyticsCacheTTL  time.Duration
	AnalyticsCacheSize int

	// Rate limiting
	RateLimitRPS   float64
	RateLimitBurst int

	// Logging
	LogLevel  string
	LogFormat string
}

// Load reads the configuration from the environment. Unset or unparsable
// values fall back to their defaults; Validate reports what is left wrong.
func Load() *Config {
	return &Config{
		Port:        str("PORT", "8081"),
		DataBackend: str("DATA_BACKEND", "memory"),

		SQLiteDBPath: str("SQLITE_DB_PATH", "./data/fintrack.db"),

		AMQPURL:      str("AMQP_URL", ""),
		AMQPExchange: str("AMQP_EXCHANGE", "fintrack"),
		AMQPQueue:    str("AMQP_QUEUE", "sync_transactions"),

		GoogleSpreadsheetID:      str("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:          str("GOOGLE_SHEET_NAME", "Transactions"),
		GoogleServiceAccountJSON: str("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: str("GOOGLE_SERVICE_ACCOUNT_FILE", ""),

		SyncBatchSize: parsed("SYNC_BATCH_SIZE", 10, strconv.Atoi),
		SyncInterval:  parsed("SYNC_INTERVAL", 30*time.Second, time.ParseDuration),

		JWTSecret: str("JWT_SECRET", ""),
		JWTIssuer: str("JWT_ISSUER", "fintrack"),

		AnalyticsCacheTTL:  parsed("ANALYTICS_CACHE_TTL", 5*time.Minute, time.ParseDuration),
		AnalyticsCacheSize: parsed("ANALYTICS_CACHE_SIZE", 0, strconv.Atoi),

		RateLimitRPS:   parsed("RATE_LIMIT_RPS", 10.0, parseFloat),
		RateLimitBurst: parsed("RATE_LIMIT_BURST", 20, strconv.Atoi),

		LogLevel:  str("LOG_LEVEL", "info"),
		LogFormat: str("LOG_FORMAT", "text"),
	}
}

var dataBackends = []string{"memory", "sqlite"}

// problems collects validation failures so they can be reported together.
type problems []string

func (p *problems) addf(format string, args ...any) {
	*p = append(*p, fmt.Sprintf(format, args...))
}

// Validate checks every setting and returns all failures in one error.
// As a side effect it creates the SQLite database directory if missing.
func (c *Config) Validate() error {
	var p problems
	c.checkServer(&p)
	c.checkStorage(&p)
	c.checkMessaging(&p)
	c.checkWorker(&p)
	c.checkSecurity(&p)

	if len(p) == 0 {
		return nil
	}
	return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(p, "\n- "))
}

func (c *Config) checkServer(p *problems) {
	port, err := strconv.Atoi(c.Port)
	switch {
	case err != nil:
		p.addf("invalid port '%s': must be a number", c.Port)
	case port < 1 || port > 65535:
		p.addf("invalid port %d: must be between 1 and 65535", port)
	}

	switch strings.ToLower(c.LogFormat) {
	case "", "text", "json":
	default:
		p.addf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat)
	}
}

func (c *Config) checkStorage(p *problems) {
	if !slices.Contains(dataBackends, c.DataBackend) {
		p.addf("invalid data backend '%s': must be one of %v", c.DataBackend, dataBackends)
	}

	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			p.addf("SQLite database path cannot be empty when using sqlite backend")
		} else if dir := filepath.Dir(c.SQLiteDBPath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				p.addf("cannot create SQLite database directory '%s': %v", dir, err)
			}
		}
	}

	if c.AnalyticsCacheTTL < 0 {
		p.addf("invalid analytics cache TTL %v: must not be negative", c.AnalyticsCacheTTL)
	}
	if c.AnalyticsCacheSize < 0 {
		p.addf("invalid analytics cache size %d: must not be negative", c.AnalyticsCacheSize)
	}
}

// checkMessaging validates AMQP settings, which only matter once a broker
// URL is configured.
func (c *Config) checkMessaging(p *problems) {
	if c.AMQPURL == "" {
		return
	}
	u, err := url.Parse(c.AMQPURL)
	if err != nil {
		p.addf("invalid AMQP URL '%s': %v", c.AMQPURL, err)
	} else if u.Scheme != "amqp" && u.Scheme != "amqps" {
		p.addf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", u.Scheme)
	}
	if c.AMQPExchange == "" {
		p.addf("AMQP exchange name cannot be empty when AMQP URL is provided")
	}
	if c.AMQPQueue == "" {
		p.addf("AMQP queue name cannot be empty when AMQP URL is provided")
	}
}

func (c *Config) checkWorker(p *problems) {
	if c.GoogleServiceAccountFile != "" {
		if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
			p.addf("Google service account file does not exist: %s", c.GoogleServiceAccountFile)
		}
	}

	switch {
	case c.SyncBatchSize < 1:
		p.addf("invalid sync batch size %d: must be at least 1", c.SyncBatchSize)
	case c.SyncBatchSize > 1000:
		p.addf("invalid sync batch size %d: must be at most 1000", c.SyncBatchSize)
	}

	switch {
	case c.SyncInterval < time.Second:
		p.addf("invalid sync interval %v: must be at least 1 second", c.SyncInterval)
	case c.SyncInterval > 24*time.Hour:
		p.addf("invalid sync interval %v: must be at most 24 hours", c.SyncInterval)
	}
}

func (c *Config) checkSecurity(p *problems) {
	if c.JWTSecret != "" && len(c.JWTSecret) < 16 {
		p.addf("JWT secret must be at least 16 characters")
	}
	if c.RateLimitRPS <= 0 {
		p.addf("invalid rate limit %v: must be positive", c.RateLimitRPS)
	}
	if c.RateLimitBurst < 1 {
		p.addf("invalid rate limit burst %d: must be at least 1", c.RateLimitBurst)
	}
}

// SheetsEnabled reports whether the worker has a spreadsheet to export to.
func (c *Config) SheetsEnabled() bool {
	return c.GoogleSpreadsheetID != ""
}

func str(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parsed[T any](key string, def T, parse func(string) (T, error)) T {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	out, err := parse(v)
	if err != nil {
		return def
	}
	return out
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}
