package cmd

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/termdock/internal/providers/storage"
)

func newStateCmd(global *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "state",
		Short: "Inspect or clear the persisted tab layout",
		Long:  `Commands for the session.json file restored by 'termdock serve'.`,
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the persisted tab layout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, global)
			if err != nil {
				return err
			}
			store := storage.NewStore(cfg.Terminal.SessionPath(), nil, nil, nil)
			snap, err := store.Load()
			if errors.Is(err, fs.ErrNotExist) {
				fmt.Fprintf(cmd.OutOrStdout(), "no saved session state at %s\n", store.Path())
				return nil
			}
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", store.Path(), err)
			}

			data, err := sonic.ConfigStd.MarshalIndent(snap, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete the persisted tab layout",
		Long:  `Delete session.json so the next 'termdock serve' starts with one fresh session.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, global)
			if err != nil {
				return err
			}
			store := storage.NewStore(cfg.Terminal.SessionPath(), nil, nil, nil)
			if err := store.Clear(cmd.Context()); err != nil {
				return fmt.Errorf("failed to clear %s: %w", store.Path(), err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "cleared %s\n", store.Path())
			return nil
		},
	}

	cmd.AddCommand(showCmd, clearCmd)
	return cmd
}
