package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/dativo-io/scrub/internal/config"
	"github.com/dativo-io/scrub/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the sanitizer over HTTP",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides listen_addr)")
	rootCmd.AddCommand(serveCmd)
}

// parseAPIKeys splits SCRUB_API_KEYS (comma-separated).
func parseAPIKeys(env string) []string {
	var keys []string
	for _, part := range strings.Split(env, ",") {
		if part = strings.TrimSpace(part); part != "" {
			keys = append(keys, part)
		}
	}
	return keys
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	reg, err := cfg.Registry()
	if err != nil {
		return fmt.Errorf("building rule registry: %w", err)
	}

	apiKeys := parseAPIKeys(os.Getenv("SCRUB_API_KEYS"))
	if len(apiKeys) == 0 {
		log.Warn().Msg("SCRUB_API_KEYS not set; sanitize endpoints are unauthenticated")
	}

	srv := server.NewServer(reg,
		server.WithAPIKeys(apiKeys),
		server.WithRateLimit(cfg.RateLimitRPM),
		server.WithMaxBodyBytes(int64(cfg.MaxBodyKB)<<10),
		server.WithLeakSweep(cfg.LeakSweep),
		server.WithCORSOrigins([]string{"*"}),
	)

	addr := cfg.ListenAddr
	if serveAddr != "" {
		addr = serveAddr
	}
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      90 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Info().
		Str("addr", addr).
		Int("rules", reg.Len()).
		Int("rate_limit_rpm", cfg.RateLimitRPM).
		Bool("auth", len(apiKeys) > 0).
		Msg("scrub_serve_started")

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown_signal_received")
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info().Msg("server_stopped")
	return nil
}
