package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/desertthunder/plx/internal/server"
	"github.com/urfave/cli/v3"
)

// Serve runs the HTTP API until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	cfg := r.config.Server
	if host := cmd.String("host"); host != "" {
		cfg.Host = host
	}
	if port := cmd.Int("port"); port > 0 {
		cfg.Port = port
	}

	engine, err := r.Engine()
	if err != nil {
		return err
	}

	if r.completer == nil {
		r.logger.Warn("no completion service configured, free-text edits will fail classification")
	}
	if r.catalog == nil {
		r.logger.Warn("no catalog configured, expand edits are unavailable")
	}

	handler := server.NewAPI(engine, server.APIOpts{
		Logger:    r.logger,
		RateLimit: cfg.RateLimit,
		Burst:     cfg.Burst,
	})

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.Serve(ctx, cfg.Addr(), handler, r.logger); err != nil {
		return fmt.Errorf("api server stopped: %w", err)
	}
	return nil
}
