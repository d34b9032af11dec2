// Package server exposes the frame scanner over HTTP and WebSocket.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MeKo-Tech/framescan/internal/barcode"
	"github.com/MeKo-Tech/framescan/internal/imageio"
	"github.com/MeKo-Tech/framescan/internal/scanner"
	"github.com/MeKo-Tech/framescan/internal/stream"
)

// Config holds server configuration.
type Config struct {
	Host        string
	Port        int
	CORSOrigin  string
	MaxUploadMB int64
	TimeoutSec  int
	Scanner     scanner.Config
	Stream      stream.Config
	Constraints imageio.Constraints
	RateLimit   RateLimitConfig
	Logger      *slog.Logger
}

// DefaultConfig returns a local server with the default scanner settings.
func DefaultConfig() Config {
	return Config{
		Host:        "localhost",
		Port:        8080,
		CORSOrigin:  "*",
		MaxUploadMB: 50,
		TimeoutSec:  30,
		Scanner:     scanner.DefaultConfig(),
		Stream:      stream.DefaultConfig(),
		Constraints: imageio.DefaultConstraints(),
	}
}

// Addr returns the listen address.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Server holds the HTTP server state.
type Server struct {
	builder     *scanner.Builder
	pool        *scanner.Pool
	backend     barcode.Backend
	decodeOpts  barcode.Options
	streamCfg   stream.Config
	constraints imageio.Constraints
	corsOrigin  string
	maxUploadMB int64
	timeoutSec  int
	rateLimiter *RateLimiter
	logger      *slog.Logger
}

// NewServer validates the scanner configuration and creates a server.
func NewServer(config Config) (*Server, error) {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	b := scanner.NewBuilder().WithConfig(config.Scanner).WithLogger(logger)
	pool, err := scanner.NewPool(b)
	if err != nil {
		return nil, fmt.Errorf("failed to build scanner: %w", err)
	}
	opts, err := config.Scanner.DecodeOptions()
	if err != nil {
		return nil, err
	}

	s := &Server{
		builder:     b,
		pool:        pool,
		backend:     barcode.NewBackend(),
		decodeOpts:  opts,
		streamCfg:   config.Stream,
		constraints: config.Constraints,
		corsOrigin:  config.CORSOrigin,
		maxUploadMB: config.MaxUploadMB,
		timeoutSec:  config.TimeoutSec,
		logger:      logger,
	}
	if s.corsOrigin == "" {
		s.corsOrigin = "*"
	}
	if s.maxUploadMB <= 0 {
		s.maxUploadMB = 50
	}
	if s.timeoutSec <= 0 {
		s.timeoutSec = 30
	}
	if s.streamCfg.Workers <= 0 {
		s.streamCfg = stream.DefaultConfig()
	}
	if config.RateLimit.Enabled {
		s.rateLimiter = NewRateLimiterFromConfig(config.RateLimit)
	}
	return s, nil
}

// Close releases server resources.
func (s *Server) Close() error {
	return nil
}

// SetupRoutes configures the HTTP routes.
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", s.corsMiddleware(s.healthHandler))
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/scan/frame", s.corsMiddleware(s.rateLimitMiddleware(s.scanFrameHandler)))
	mux.HandleFunc("/scan/batch", s.corsMiddleware(s.rateLimitMiddleware(s.scanBatchHandler)))
	mux.HandleFunc("/scan/image", s.corsMiddleware(s.rateLimitMiddleware(s.scanImageHandler)))
	mux.HandleFunc("/scan/pdf", s.corsMiddleware(s.rateLimitMiddleware(s.scanPdfHandler)))
	mux.HandleFunc("/ws/frames", s.rateLimitMiddleware(s.framesWebSocketHandler))
}

// Handler returns a mux with all routes registered.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.SetupRoutes(mux)
	return mux
}

// requestContext bounds a request by the configured timeout.
func (s *Server) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), time.Duration(s.timeoutSec)*time.Second)
}

func (s *Server) maxUploadBytes() int64 {
	return s.maxUploadMB * 1024 * 1024
}
