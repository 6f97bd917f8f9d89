package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/MeKo-Tech/holdscan/internal/server"
	"github.com/spf13/cobra"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP recognition API",
		Long: `Start an HTTP server that provides REST API endpoints for holdings recognition.

The server provides the following endpoints:
  POST /v1/recognize       - Recognize one OCR page
  POST /v1/recognize/batch - Recognize several pages
  GET  /v1/ws              - Recognize pages over a WebSocket
  GET  /health             - Health check endpoint
  GET  /metrics            - Prometheus metrics

Examples:
  holdscan serve
  holdscan serve --port 8080
  holdscan serve --host 0.0.0.0 --port 3000 --catalog-driver postgres`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runServe(cmd)
		},
	}

	cmd.Flags().StringP("host", "H", "localhost", "server host")
	cmd.Flags().IntP("port", "p", 8080, "server port (0 picks a free port)")
	cmd.Flags().String("cors-origin", "*", "CORS allowed origins")
	cmd.Flags().Int("max-body-size", 8, "maximum request body size in MB")
	cmd.Flags().Int("timeout", 30, "request timeout in seconds")
	cmd.Flags().Int("shutdown-timeout", 10, "shutdown timeout in seconds")
	cmd.Flags().Bool("rate-limit-enabled", false, "enable rate limiting")
	cmd.Flags().Int("requests-per-minute", 120, "maximum requests per minute per client")
	cmd.Flags().Int("requests-per-hour", 3000, "maximum requests per hour per client")
	addPolicyFlags(cmd)

	return cmd
}

// serverConfig extracts the server configuration with CLI flag overrides.
func (a *app) serverConfig(cmd *cobra.Command) (server.Config, int) {
	sc := a.cfg.Server

	if cmd.Flags().Changed("host") {
		sc.Host, _ = cmd.Flags().GetString("host")
	}
	if cmd.Flags().Changed("port") {
		sc.Port, _ = cmd.Flags().GetInt("port")
	}
	if cmd.Flags().Changed("cors-origin") {
		sc.CORSOrigin, _ = cmd.Flags().GetString("cors-origin")
	}
	if cmd.Flags().Changed("max-body-size") {
		sc.MaxBodyMB, _ = cmd.Flags().GetInt("max-body-size")
	}
	if cmd.Flags().Changed("timeout") {
		sc.TimeoutSec, _ = cmd.Flags().GetInt("timeout")
	}
	if cmd.Flags().Changed("shutdown-timeout") {
		sc.ShutdownTimeout, _ = cmd.Flags().GetInt("shutdown-timeout")
	}
	if cmd.Flags().Changed("rate-limit-enabled") {
		sc.RateLimit.Enabled, _ = cmd.Flags().GetBool("rate-limit-enabled")
	}
	if cmd.Flags().Changed("requests-per-minute") {
		sc.RateLimit.RequestsPerMinute, _ = cmd.Flags().GetInt("requests-per-minute")
	}
	if cmd.Flags().Changed("requests-per-hour") {
		sc.RateLimit.RequestsPerHour, _ = cmd.Flags().GetInt("requests-per-hour")
	}

	return server.Config{
		Host:       sc.Host,
		Port:       sc.Port,
		CORSOrigin: sc.CORSOrigin,
		MaxBodyMB:  int64(sc.MaxBodyMB),
		TimeoutSec: sc.TimeoutSec,
		RateLimit: server.RateLimitConfig{
			Enabled:           sc.RateLimit.Enabled,
			RequestsPerMinute: sc.RateLimit.RequestsPerMinute,
			RequestsPerHour:   sc.RateLimit.RequestsPerHour,
		},
		Logger: a.logger,
	}, sc.ShutdownTimeout
}

func (a *app) runServe(cmd *cobra.Command) error {
	serverConfig, shutdownTimeout := a.serverConfig(cmd)
	if serverConfig.Port < 0 || serverConfig.Port > 65535 {
		return fmt.Errorf("invalid port number: %d (must be between 0 and 65535)", serverConfig.Port)
	}
	if serverConfig.TimeoutSec <= 0 {
		return fmt.Errorf("invalid timeout: %d (must be positive)", serverConfig.TimeoutSec)
	}

	engine, err := a.engine(cmd)
	if err != nil {
		return err
	}
	store, err := a.openStore(cmd.Context())
	if err != nil {
		return err
	}

	// The server owns the store from here on.
	apiServer, err := server.NewServer(serverConfig, engine, store)
	if err != nil {
		a.closeStore(store)
		return fmt.Errorf("failed to initialize server: %w", err)
	}

	addr := net.JoinHostPort(serverConfig.Host, strconv.Itoa(serverConfig.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		_ = apiServer.Close()
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	timeout := time.Duration(serverConfig.TimeoutSec) * time.Second
	httpServer := &http.Server{
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       timeout,
		WriteTimeout:      timeout,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	a.logger.Info("Starting recognition server", "addr", ln.Addr().String())
	serveErr := make(chan error, 1)
	go func() {
		if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case err := <-serveErr:
		if err != nil {
			a.logger.Error("Server error", "error", err)
			runErr = fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		a.logger.Info("Received shutdown signal, initiating shutdown")
	}

	a.logger.Info("Starting graceful shutdown", "timeout", fmt.Sprintf("%ds", shutdownTimeout))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Duration(shutdownTimeout)*time.Second)
	defer shutdownCancel()

	// Shutdown HTTP server first
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("HTTP server shutdown error", "error", err)
	} else {
		a.logger.Info("HTTP server shutdown completed")
	}

	<-serveErr

	if err := apiServer.Close(); err != nil {
		a.logger.Error("Server cleanup error", "error", err)
	}

	a.logger.Info("Graceful shutdown completed")
	return runErr
}
