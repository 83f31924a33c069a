package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/SungwookYoon/searchdeposit6-web/internal/backend"
	"github.com/SungwookYoon/searchdeposit6-web/internal/config"
	"github.com/SungwookYoon/searchdeposit6-web/internal/dashboard"
	"github.com/SungwookYoon/searchdeposit6-web/internal/metrics"
)

// app holds what every subcommand needs once configuration is loaded.
type app struct {
	configPath string

	cfg     *config.Config
	level   *slog.LevelVar
	logger  *slog.Logger
	metrics *metrics.Collector
	client  *backend.Client
}

func newRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:           "gbdash",
		Short:         "Project dashboard console and command line client",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd.ErrOrStderr())
		},
	}
	cmd.PersistentFlags().StringVar(&a.configPath, "config", "", "path to configuration file (optional)")

	cmd.AddCommand(newServeCmd(a))
	cmd.AddCommand(newStatsCmd(a))
	cmd.AddCommand(newListCmd(a))
	cmd.AddCommand(newReportCmd(a))
	cmd.AddCommand(newExportCmd(a))
	return cmd
}

func execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

// setup loads .env files and configuration, then builds the logger and API client.
func (a *app) setup(logOut io.Writer) error {
	n, err := config.LoadEnvFiles(".env", ".env.local")
	if err != nil {
		return fmt.Errorf("loading env files: %w", err)
	}

	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg

	a.level = new(slog.LevelVar)
	a.level.Set(cfg.Log.SlogLevel())
	opts := &slog.HandlerOptions{Level: a.level}
	if cfg.Log.Format == "json" {
		a.logger = slog.New(slog.NewJSONHandler(logOut, opts))
	} else {
		a.logger = slog.New(slog.NewTextHandler(logOut, opts))
	}
	slog.SetDefault(a.logger)
	a.logger.Debug("configuration loaded", "path", a.configPath, "env_files", n, "backend", cfg.Backend.BaseURL)

	a.metrics = metrics.New(nil)
	a.client, err = backend.New(backend.Options{
		BaseURL:         cfg.Backend.BaseURL,
		Timeout:         cfg.Backend.Timeout,
		RequestIDHeader: cfg.Backend.RequestIDHeader,
		Logger:          a.logger,
		Observer:        a.metrics,
	})
	if err != nil {
		return fmt.Errorf("creating API client: %w", err)
	}
	return nil
}

func (a *app) newController() *dashboard.Controller {
	return dashboard.New(a.client, a.cfg.Dashboard, a.metrics, a.logger)
}
