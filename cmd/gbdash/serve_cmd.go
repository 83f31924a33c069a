package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/SungwookYoon/searchdeposit6-web/internal/api"
	"github.com/SungwookYoon/searchdeposit6-web/internal/config"
	"github.com/SungwookYoon/searchdeposit6-web/internal/health"
)

const shutdownTimeout = 30 * time.Second

func newServeCmd(a *app) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the dashboard console server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("port") {
				a.cfg.Console.Port = port
			}
			return a.serve(cmd.Context())
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "override console.port")
	return cmd
}

func (a *app) serve(ctx context.Context) error {
	logger := a.logger
	logger.Info("dashboard console starting...", "backend", a.cfg.Backend.BaseURL)

	ctrl := a.newController()
	defer ctrl.Close()

	// The console still serves when the API is down; the page shows the failure.
	initCtx, cancel := context.WithTimeout(ctx, a.cfg.Backend.Timeout)
	if err := ctrl.Init(initCtx); err != nil {
		logger.Warn("initial load incomplete", "err", err)
	}
	cancel()

	hc := health.NewChecker(a.cfg.HealthCheck, a.metrics, logger)
	hc.Register("project_api", health.APIProbe(a.client))
	hc.Register("download_dir", health.WritableDirProbe(a.cfg.Dashboard.DownloadDir))
	hc.Start()

	server := api.NewServer(ctrl, hc, a.metrics, a.cfg.Console, logger)
	if err := server.Start(); err != nil {
		hc.Stop()
		return err
	}

	// Set up config hot-reload
	var watcher *config.Watcher
	if a.configPath != "" {
		w, err := config.NewWatcher(a.configPath, func(newCfg *config.Config) {
			a.level.Set(newCfg.Log.SlogLevel())
			ctrl.UpdateSettings(newCfg.Dashboard)
		})
		if err != nil {
			logger.Warn("config hot-reload not available", "err", err)
		} else {
			watcher = w
		}
	}

	logger.Info("dashboard console ready", "bind", a.cfg.Console.Bind, "port", a.cfg.Console.Port)

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	select {
	case sig := <-sigCh:
		logger.Info("received signal, shutting down...", "signal", sig)
	case <-ctx.Done():
		logger.Info("context cancelled, shutting down...")
	}

	// Graceful shutdown with timeout
	done := make(chan error, 1)
	go func() {
		if watcher != nil {
			watcher.Stop()
		}
		err := server.Stop()
		hc.Stop()
		done <- err
	}()

	select {
	case err := <-done:
		logger.Info("dashboard console stopped")
		return err
	case <-time.After(shutdownTimeout):
		logger.Error("shutdown timed out, forcing exit", "timeout", shutdownTimeout)
		os.Exit(1)
	}
	return nil
}
