package api

import (
	"time"

	"github.com/FocuswithJustin/DailyBread/internal/botlog"
)

// Config holds server configuration.
type Config struct {
	Port              int
	DBPath            string     // SQLite database path ("" = no persistence)
	UpstreamBaseURL   string     // bible-api.com base URL override (tests)
	Translation       string     // upstream translation id (default "web")
	RateLimitRequests int        // Requests per minute (0 = disabled)
	RateLimitBurst    int        // Burst size
	Auth              AuthConfig // Authentication configuration
	TLS               TLSConfig  // TLS configuration
	AllowedOrigins    []string   // CORS allowed origins (empty = allow all)
	EventLevel        string     // minimum bot-event level kept in the ring
	SessionTTL        time.Duration
}

// TLSConfig holds TLS/HTTPS configuration.
type TLSConfig struct {
	Enabled  bool   // Enable HTTPS
	CertFile string // Path to TLS certificate file
	KeyFile  string // Path to TLS private key file
}

func (c Config) eventConfig() botlog.Config {
	cfg := botlog.DefaultConfig()
	if c.EventLevel != "" {
		cfg.Level = botlog.ParseLevel(c.EventLevel)
	}
	return cfg
}
