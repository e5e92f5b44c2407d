package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/termdock/internal/infrastructure/config"
	"github.com/GriffinCanCode/termdock/internal/infrastructure/logging"
	"github.com/GriffinCanCode/termdock/internal/server"
)

type serveFlags struct {
	host  string
	port  string
	cwd   string
	watch bool
}

func newServeCmd(global *globalFlags, version string) *cobra.Command {
	flags := &serveFlags{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve sessions over HTTP and WebSocket",
		Long: `Start the host adapter. The persisted tab layout is restored when
restoring is enabled in settings; otherwise one session is opened.

Panels list and control sessions through the REST API and render each one
through /ws/sessions/:id. SIGINT and SIGTERM shut down gracefully and flush
the layout to disk.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, global)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("host") {
				cfg.Server.Host = flags.host
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = flags.port
			}
			return runServe(cmd.Context(), cfg, flags, version)
		},
	}

	f := cmd.Flags()
	f.StringVar(&flags.host, "host", "", "listen host (env HOST)")
	f.StringVarP(&flags.port, "port", "p", "", "listen port (env PORT)")
	f.StringVar(&flags.cwd, "cwd", "", "directory of the first session when nothing is restored")
	f.BoolVar(&flags.watch, "watch", true, "reload the settings file when it changes")
	return cmd
}

func newLogger(cfg *config.Config) *logging.Logger {
	logger, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
	})
	if err != nil {
		if cfg.Logging.Development {
			return logging.NewDevelopment()
		}
		return logging.NewDefault()
	}
	return logger
}

func runServe(ctx context.Context, cfg *config.Config, flags *serveFlags, version string) error {
	logger := newLogger(cfg)
	defer func() { _ = logger.Sync() }()

	srv, err := server.New(server.Options{
		Config:        cfg,
		Logger:        logger.Logger,
		Version:       version,
		InitialDir:    flags.cwd,
		WatchSettings: flags.watch,
	})
	if err != nil {
		logger.Error("Failed to create server", zap.Error(err))
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx); err != nil {
		logger.Error("Server error", zap.Error(err))
		return err
	}
	logger.Info("Server stopped")
	return nil
}
