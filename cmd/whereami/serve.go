package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/NixVir/whereami-web/internal/api"
	"github.com/NixVir/whereami-web/internal/auth"
	"github.com/NixVir/whereami-web/internal/health"
	"github.com/NixVir/whereami-web/internal/stream"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	f := serveCmd.Flags()
	f.String("addr", ":8080", "listen address")
	f.Bool("trust-proxy", false, "take the client IP from X-Forwarded-For / X-Real-IP")
	must(v.BindPFlag("http.addr", f.Lookup("addr")))
	must(v.BindPFlag("http.trust_proxy", f.Lookup("trust-proxy")))
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := newLogger(cfg.Log, os.Stdout)
	logger.Info("configuration", "config", cfg)

	eng, places, err := newEngine(logger)
	if err != nil {
		return err
	}

	status := &health.Status{}
	streamHandler := stream.NewHandler(eng, stream.Config{
		MaxConcurrentPerIP: cfg.Stream.MaxConcurrent,
		Interval:           cfg.Stream.Interval,
		KeepaliveInterval:  cfg.Stream.Keepalive,
		TrustProxy:         cfg.HTTP.TrustProxy,
	}, logger)

	srv := api.NewServer(api.Config{
		Addr:           cfg.HTTP.Addr,
		Logger:         logger,
		Auth:           auth.Config{Enabled: cfg.Auth.Enabled, Token: cfg.Auth.Token},
		Engine:         eng,
		Stream:         streamHandler,
		Health:         status,
		TrustProxy:     cfg.HTTP.TrustProxy,
		RequestTimeout: cfg.HTTP.RequestTimeout,
		RateLimitRPS:   cfg.RateLimit.RPS,
		RateLimitBurst: cfg.RateLimit.Burst,
	})

	// Graceful shutdown on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start cache eviction worker.
	if places != nil {
		go places.Start(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", "addr", cfg.HTTP.Addr, "auth_enabled", cfg.Auth.Enabled, "frames", eng.Catalog().Len())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	status.SetReady(true)

	select {
	case err := <-errCh:
		logger.Error("server listen error", "error", err)
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server...")
	status.SetReady(false)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.HTTPServer().Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
		return err
	}

	logger.Info("server stopped")
	return nil
}
