package cmd

import (
	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/termdock/internal/infrastructure/config"
)

// globalFlags override the environment configuration for every command.
type globalFlags struct {
	stateDir    string
	contentRoot string
	logLevel    string
	dev         bool
}

// NewRootCmd builds the termdock command tree.
func NewRootCmd(version string) *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:   "termdock",
		Short: "Terminal session engine",
		Long: `termdock runs shells in pseudo-terminals, multiplexes them as tabs,
detects links in their output and restores the tab layout across runs.

Serve the engine to panels over HTTP and WebSocket with 'termdock serve',
or attach the local terminal to a session with 'termdock attach'.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.stateDir, "state-dir", "", "directory holding settings and session state (env TERMDOCK_STATE_DIR)")
	pf.StringVar(&flags.contentRoot, "content-root", "", "managed content store directory (env TERMDOCK_CONTENT_ROOT)")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn, error (env LOG_LEVEL)")
	pf.BoolVar(&flags.dev, "dev", false, "development logging (env LOG_DEV)")

	root.AddCommand(
		newServeCmd(flags, version),
		newAttachCmd(flags),
		newLinksCmd(flags),
		newStateCmd(flags),
	)
	return root
}

// Execute runs the root command
func Execute(version string) error {
	return NewRootCmd(version).Execute()
}

// loadConfig reads the environment and applies flags that were set.
func loadConfig(cmd *cobra.Command, flags *globalFlags) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	pf := cmd.Flags()
	if pf.Changed("state-dir") {
		cfg.Terminal.StateDir = flags.stateDir
	}
	if pf.Changed("content-root") {
		cfg.Terminal.ContentRoot = flags.contentRoot
	}
	if pf.Changed("log-level") {
		cfg.Logging.Level = flags.logLevel
	}
	if pf.Changed("dev") {
		cfg.Logging.Development = flags.dev
	}
	return cfg, nil
}
