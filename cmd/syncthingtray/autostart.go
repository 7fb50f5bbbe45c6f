package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/syncthingtray/syncthingtray/internal/autostart"
	"github.com/syncthingtray/syncthingtray/internal/settings"
)

func newAutostartCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "autostart",
		Short: "Manage starting the tray at login",
	}
	set := func(enabled bool) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			store, stored, cfg, err := loadSettings(g, true)
			if err != nil {
				return err
			}
			if enabled && !settings.ValidExecutable(cfg.ExecutablePath) {
				return fmt.Errorf("set a valid executable-path in %s first", store.Path())
			}
			if err := autostart.New(autostartEntry(g)).SetStartup(enabled); err != nil {
				return fmt.Errorf("change start-on-boot registration: %w", err)
			}
			stored.StartOnBoot = enabled
			if err := store.Save(stored); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "start on boot: %t\n", enabled)
			return nil
		}
	}
	cmd.AddCommand(
		&cobra.Command{Use: "enable", Short: "Run the tray at login and start Syncthing", Args: cobra.NoArgs, RunE: set(true)},
		&cobra.Command{Use: "disable", Short: "Remove the login registration", Args: cobra.NoArgs, RunE: set(false)},
		&cobra.Command{
			Use:   "status",
			Short: "Show the login registration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				on, err := autostart.New(autostartEntry(g)).GetStartup()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "start on boot: %t\n", on)
				return nil
			},
		},
	)
	return cmd
}
