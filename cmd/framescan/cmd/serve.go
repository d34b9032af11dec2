package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/framescan/internal/server"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP scanning server",
		Long: `Start an HTTP server that scans frames, images and PDFs.

The server provides the following endpoints:
  POST /scan/frame  - Scan one YUV 4:2:0 frame (JSON)
  POST /scan/batch  - Scan a sequence of frames (JSON)
  POST /scan/image  - Scan an uploaded image (multipart field "image")
  POST /scan/pdf    - Scan the images of an uploaded PDF (multipart field "pdf")
  GET  /ws/frames   - Stream frames over a WebSocket
  GET  /health      - Health check endpoint
  GET  /metrics     - Prometheus metrics

Examples:
  framescan serve
  framescan serve --port 8080
  framescan serve --host 0.0.0.0 --rate-limit-enabled --requests-per-minute 120`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.settings()

			host := cfg.Server.Host
			if cmd.Flags().Changed("host") {
				host, _ = cmd.Flags().GetString("host")
			}

			port := cfg.Server.Port
			if cmd.Flags().Changed("port") {
				port, _ = cmd.Flags().GetInt("port")
			}

			corsOrigin := cfg.Server.CORSOrigin
			if cmd.Flags().Changed("cors-origin") {
				corsOrigin, _ = cmd.Flags().GetString("cors-origin")
			}

			maxUploadSize := cfg.Server.MaxUploadMB
			if cmd.Flags().Changed("max-upload-size") {
				maxUploadSize, _ = cmd.Flags().GetInt("max-upload-size")
			}

			timeout := cfg.Server.TimeoutSec
			if cmd.Flags().Changed("timeout") {
				timeout, _ = cmd.Flags().GetInt("timeout")
			}

			shutdownTimeout := cfg.Server.ShutdownTimeout
			if cmd.Flags().Changed("shutdown-timeout") {
				shutdownTimeout, _ = cmd.Flags().GetInt("shutdown-timeout")
			}

			rl := cfg.Server.RateLimit
			if cmd.Flags().Changed("rate-limit-enabled") {
				rl.Enabled, _ = cmd.Flags().GetBool("rate-limit-enabled")
			}
			if cmd.Flags().Changed("requests-per-minute") {
				rl.RequestsPerMinute, _ = cmd.Flags().GetInt("requests-per-minute")
			}
			if cmd.Flags().Changed("requests-per-hour") {
				rl.RequestsPerHour, _ = cmd.Flags().GetInt("requests-per-hour")
			}
			if cmd.Flags().Changed("max-requests-per-day") {
				rl.MaxRequestsPerDay, _ = cmd.Flags().GetInt("max-requests-per-day")
			}
			if cmd.Flags().Changed("max-data-per-day") {
				rl.MaxDataPerDay, _ = cmd.Flags().GetInt64("max-data-per-day")
			}

			streamCfg := cfg.ToStreamConfig()
			if cmd.Flags().Changed("stream-workers") {
				streamCfg.Workers, _ = cmd.Flags().GetInt("stream-workers")
			}
			if cmd.Flags().Changed("debounce-ms") {
				ms, _ := cmd.Flags().GetInt("debounce-ms")
				streamCfg.DebounceWindow = time.Duration(ms) * time.Millisecond
			}

			if port < 1 || port > 65535 {
				return fmt.Errorf("invalid port number: %d (must be between 1 and 65535)", port)
			}

			logger := a.log()
			scanServer, err := server.NewServer(server.Config{
				Host:        host,
				Port:        port,
				CORSOrigin:  corsOrigin,
				MaxUploadMB: int64(maxUploadSize),
				TimeoutSec:  timeout,
				Scanner:     a.scannerConfig(cmd),
				Stream:      streamCfg,
				Constraints: cfg.ToConstraints(),
				RateLimit: server.RateLimitConfig{
					Enabled:           rl.Enabled,
					RequestsPerMinute: rl.RequestsPerMinute,
					RequestsPerHour:   rl.RequestsPerHour,
					MaxRequestsPerDay: rl.MaxRequestsPerDay,
					MaxDataPerDay:     rl.MaxDataPerDay,
				},
				Logger: logger,
			})
			if err != nil {
				return fmt.Errorf("failed to initialize server: %w", err)
			}
			defer func() { _ = scanServer.Close() }()

			httpServer := &http.Server{
				Addr:              fmt.Sprintf("%s:%d", host, port),
				Handler:           scanServer.Handler(),
				ReadHeaderTimeout: 5 * time.Second,
				ReadTimeout:       time.Duration(timeout) * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			serveErr := make(chan error, 1)
			go func() {
				logger.Info("Starting scan server", "host", host, "port", port)
				if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serveErr <- err
				}
				close(serveErr)
			}()

			select {
			case err := <-serveErr:
				if err != nil {
					return fmt.Errorf("server error: %w", err)
				}
				return nil
			case <-ctx.Done():
				logger.Info("Received shutdown signal")
			}

			logger.Info("Starting graceful shutdown", "timeout", fmt.Sprintf("%ds", shutdownTimeout))
			shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(shutdownTimeout)*time.Second)
			defer cancel()

			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.Error("HTTP server shutdown error", "error", err)
			} else {
				logger.Info("HTTP server shutdown completed")
			}
			if err := scanServer.Close(); err != nil {
				logger.Error("Server cleanup error", "error", err)
			}
			logger.Info("Graceful shutdown completed")
			return nil
		},
	}

	cmd.Flags().StringP("host", "H", "localhost", "server host")
	cmd.Flags().IntP("port", "p", 8080, "server port")
	cmd.Flags().String("cors-origin", "*", "CORS allowed origins")
	cmd.Flags().Int("max-upload-size", 50, "maximum upload size in MB")
	cmd.Flags().Int("timeout", 30, "request timeout in seconds")
	cmd.Flags().Int("shutdown-timeout", 10, "shutdown timeout in seconds")
	cmd.Flags().Int("stream-workers", 1, "decode workers per WebSocket stream")
	cmd.Flags().Int("debounce-ms", 0, "suppress repeated WebSocket results within this window")
	// Rate limiting flags
	cmd.Flags().Bool("rate-limit-enabled", false, "enable rate limiting")
	cmd.Flags().Int("requests-per-minute", 60, "maximum requests per minute per client")
	cmd.Flags().Int("requests-per-hour", 1000, "maximum requests per hour per client")
	cmd.Flags().Int("max-requests-per-day", 5000, "maximum requests per day per client")
	cmd.Flags().Int64("max-data-per-day", 100*1024*1024, "maximum data processed per day per client (bytes)")
	scannerFlags(cmd)
	return cmd
}
