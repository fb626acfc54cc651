package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/coursepilot/coursepilot/internal/refresher"
	"github.com/coursepilot/coursepilot/internal/server"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the coursepilot HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

func runServe() error {
	ctx := context.Background()
	a, cleanup, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	// Background refresher
	var ref *refresher.Refresher
	if rc := a.cfg.Refresher; rc != nil && rc.Enabled {
		interval := time.Duration(0)
		if rc.Interval != "" {
			interval, _ = time.ParseDuration(rc.Interval)
		}
		ref = refresher.New(a.store, a.orch, a.policy, interval)
		ref.Start(ctx)
	}

	srv := server.New(a.cfg.Server, a.orch, a.optimizer, a.store, a.cache, a.breakers)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		color.Yellow("\nReceived %s, shutting down...", sig)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if ref != nil {
			ref.Stop(shutdownCtx)
		}
		if err := srv.Stop(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		color.Green("Server stopped gracefully")
		return nil
	}
}
