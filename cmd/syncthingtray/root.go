package main

import (
	"github.com/spf13/cobra"
	"github.com/syncthingtray/syncthingtray/internal/buildinfo"
)

type globalFlags struct {
	settingsPath string
	logLevel     string
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	run := &runFlags{}

	root := &cobra.Command{
		Use:           "syncthingtray",
		Short:         "Tray utility that starts, monitors and stops Syncthing",
		Version:       buildinfo.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		// Without a subcommand the tray runs.
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTray(cmd.Context(), g, run)
		},
	}
	root.PersistentFlags().StringVar(&g.settingsPath, "settings", "", "Path to settings.yaml (defaults to the per-user config directory)")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "Log level override: debug, info, warn, error, quiet")
	run.register(root)

	root.AddCommand(
		newRunCmd(g),
		newStatusCmd(g),
		newStartCmd(g),
		newStopCmd(g),
		newAutostartCmd(g),
		newVersionCmd(),
	)
	return root
}
