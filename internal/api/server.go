// Package api provides the DailyBread REST API server.
package api

import (
	"fmt"
	"net/http"
	"os"

	"github.com/FocuswithJustin/DailyBread/core/canon"
	"github.com/FocuswithJustin/DailyBread/core/canon/verses"
	"github.com/FocuswithJustin/DailyBread/core/ref"
	"github.com/FocuswithJustin/DailyBread/core/resolve"
	"github.com/FocuswithJustin/DailyBread/internal/bibleapi"
	"github.com/FocuswithJustin/DailyBread/internal/botlog"
	"github.com/FocuswithJustin/DailyBread/internal/disambig"
	"github.com/FocuswithJustin/DailyBread/internal/logging"
	"github.com/FocuswithJustin/DailyBread/internal/server"
	"github.com/FocuswithJustin/DailyBread/internal/store"
)

// Server wires the resolver, parser, disambiguation sessions, upstream
// client, event log and optional persistence behind the HTTP routes.
type Server struct {
	cfg      Config
	resolver *resolve.Resolver
	parser   *ref.Parser
	events   *botlog.Log
	sessions *disambig.Store
	bible    *bibleapi.Client
	db       *store.Store
	hub      *Hub
	metrics  *Metrics

	cancelFeed func()
}

// NewServer validates the configuration and builds the full service
// graph. The verse index is verified up front so a corrupt build fails
// at startup, not on the first random-verse request.
func NewServer(cfg Config) (*Server, error) {
	if err := ValidateAuthConfig(cfg.Auth); err != nil {
		return nil, fmt.Errorf("invalid auth config: %w", err)
	}

	if cfg.TLS.Enabled {
		if cfg.TLS.CertFile == "" || cfg.TLS.KeyFile == "" {
			return nil, fmt.Errorf("TLS enabled but cert or key file not specified")
		}
		if _, err := os.Stat(cfg.TLS.CertFile); err != nil {
			return nil, fmt.Errorf("TLS cert file not found: %w", err)
		}
		if _, err := os.Stat(cfg.TLS.KeyFile); err != nil {
			return nil, fmt.Errorf("TLS key file not found: %w", err)
		}
	}

	if err := verses.Verify(); err != nil {
		return nil, fmt.Errorf("verse index: %w", err)
	}

	events := botlog.New(cfg.eventConfig())
	resolver := resolve.NewResolver(canon.Books())
	parser := ref.NewParser(resolver, verses.ChapterCount)
	sessions := disambig.NewStore(parser, events, disambig.Config{TTL: cfg.SessionTTL})
	bible := bibleapi.NewClient(bibleapi.Config{
		BaseURL:     cfg.UpstreamBaseURL,
		Translation: cfg.Translation,
	}, events)

	var db *store.Store
	if cfg.DBPath != "" {
		var err error
		db, err = store.Open(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
	}

	s := &Server{
		cfg:      cfg,
		resolver: resolver,
		parser:   parser,
		events:   events,
		sessions: sessions,
		bible:    bible,
		db:       db,
		hub:      NewHub(),
		metrics:  NewMetrics(),
	}

	feed, cancel := events.Subscribe()
	s.cancelFeed = cancel
	go s.hub.Run(feed)

	return s, nil
}

// Close stops the event feed and releases the database.
func (s *Server) Close() error {
	if s.cancelFeed != nil {
		s.cancelFeed()
	}
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Events exposes the bot event log, for callers that share it (CLI, tests).
func (s *Server) Events() *botlog.Log {
	return s.events
}

// Handler builds the complete middleware chain around the routes.
func (s *Server) Handler() http.Handler {
	var handler http.Handler = server.SecurityHeadersMiddleware(s.routes())

	if s.cfg.Auth.Enabled {
		handler = AuthMiddleware(s.cfg.Auth, handler)
	}

	if s.cfg.RateLimitRequests > 0 {
		rateLimitConfig := RateLimiterConfig{
			RequestsPerMinute: s.cfg.RateLimitRequests,
			BurstSize:         s.cfg.RateLimitBurst,
		}
		if rateLimitConfig.BurstSize == 0 {
			rateLimitConfig.BurstSize = 10
		}
		handler = NewRateLimiter(rateLimitConfig).Middleware(handler)
	}

	handler = server.CORSMiddlewareWithConfig(server.CORSConfig{
		AllowedOrigins: s.cfg.AllowedOrigins,
	}, handler)

	handler = server.TimingMiddleware(handler)
	return logging.CombinedMiddleware(handler)
}

// routes configures all HTTP routes. Instrumented paths use the route
// pattern as the metrics label; the WebSocket and metrics endpoints are
// left unwrapped because status recording would break hijacking and
// self-measurement is noise.
func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/", s.metrics.instrument("/", s.handleRoot))
	mux.HandleFunc("/healthz", s.metrics.instrument("/healthz", s.handleHealthz))
	mux.HandleFunc("/readyz", s.metrics.instrument("/readyz", s.handleReadyz))
	mux.HandleFunc("/v1/books", s.metrics.instrument("/v1/books", s.handleBooks))
	mux.HandleFunc("/v1/resolve", s.metrics.instrument("/v1/resolve", s.handleResolve))
	mux.HandleFunc("/v1/parse", s.metrics.instrument("/v1/parse", s.handleParse))
	mux.HandleFunc("/v1/parse/confirm", s.metrics.instrument("/v1/parse/confirm", s.handleParseConfirm))
	mux.HandleFunc("/v1/random/", s.metrics.instrument("/v1/random/:scope", s.handleRandom))
	mux.HandleFunc("/v1/logs", s.metrics.instrument("/v1/logs", s.handleLogs))
	mux.HandleFunc("/v1/stats", s.metrics.instrument("/v1/stats", s.handleStats))
	mux.HandleFunc("/ws/logs", s.handleLogStream)
	mux.Handle("/metrics", s.metrics.Handler())

	return mux
}

// Start builds a server from the configuration and serves until the
// listener fails.
func Start(cfg Config) error {
	s, err := NewServer(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	protocol := "http"
	wsProtocol := "ws"
	if cfg.TLS.Enabled {
		protocol = "https"
		wsProtocol = "wss"
		logging.Info("TLS enabled", "cert_file", cfg.TLS.CertFile)
	} else {
		logging.Warn("TLS disabled - using plain HTTP",
			"recommendation", "consider using TLS or reverse proxy for production")
	}

	if cfg.Auth.Enabled {
		logging.SecurityEvent("authentication_configured", "api",
			"enabled", true,
			"note", "API key required")
	} else {
		logging.SecurityEvent("authentication_configured", "api",
			"enabled", false,
			"note", "all requests allowed")
	}

	if len(cfg.AllowedOrigins) > 0 {
		logging.SecurityEvent("cors_configured", "api",
			"mode", "restricted",
			"allowed_origins_count", len(cfg.AllowedOrigins))
	} else {
		logging.SecurityEvent("cors_configured", "api",
			"mode", "permissive",
			"note", "allowing all origins (*) - consider restricting for production")
	}

	logging.ServerStartup("rest_api", protocol, cfg.Port,
		"websocket_protocol", wsProtocol,
		"index_digest", verses.IndexDigest(),
		"translation", s.bible.Translation())

	addr := fmt.Sprintf(":%d", cfg.Port)
	if cfg.TLS.Enabled {
		return http.ListenAndServeTLS(addr, cfg.TLS.CertFile, cfg.TLS.KeyFile, s.Handler())
	}
	return http.ListenAndServe(addr, s.Handler())
}
