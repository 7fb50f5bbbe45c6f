package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"github.com/syncthingtray/syncthingtray/internal/api"
	"github.com/syncthingtray/syncthingtray/internal/controller"
	"github.com/syncthingtray/syncthingtray/internal/settings"
	"github.com/syncthingtray/syncthingtray/internal/supervisor"
)

const cliTimeout = 45 * time.Second

// controlClient returns a client for the running tray, or nil when no control address is known.
func controlClient(addr string, cfg settings.Settings) *api.Client {
	if addr == "" {
		addr = cfg.ControlListen
	}
	if addr == "" {
		return nil
	}
	return api.NewClient(addr)
}

type statusReport struct {
	Process string               `json:"process"`
	Running bool                 `json:"running"`
	Tray    *controller.Snapshot `json:"tray,omitempty"`
	TrayErr string               `json:"tray-error,omitempty"`
}

func newStatusCmd(g *globalFlags) *cobra.Command {
	var asJSON bool
	var addr string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show whether Syncthing is running",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, _, cfg, _ := loadSettings(g, false)
			sup := supervisor.New(supervisor.Options{ProcessName: cfg.ProcessName})
			report := statusReport{Process: sup.ProcessName(), Running: sup.IsRunning()}

			if c := controlClient(addr, cfg); c != nil {
				ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
				defer cancel()
				snap, err := c.Status(ctx)
				if err != nil {
					report.TrayErr = err.Error()
				} else {
					report.Tray = &snap
				}
			}
			return printStatus(cmd.OutOrStdout(), report, asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	cmd.Flags().StringVar(&addr, "addr", "", "Control API address of the running tray (defaults to control-listen)")
	return cmd
}

func printStatus(w io.Writer, r statusReport, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}
	state := controller.StatusNotRunning
	if r.Running {
		state = controller.StatusRunning
	}
	fmt.Fprintf(w, "%s: %s\n", r.Process, state)
	if r.Tray != nil {
		fmt.Fprintf(w, "tray: executable=%q start-on-boot=%t web=%s\n", r.Tray.ExecutablePath, r.Tray.StartOnBoot, r.Tray.WebURL)
		if r.Tray.OwnedPID != 0 {
			fmt.Fprintf(w, "tray: owns pid %d\n", r.Tray.OwnedPID)
		}
		if r.Tray.LastError != "" {
			fmt.Fprintf(w, "tray: last error: %s\n", r.Tray.LastError)
		}
	} else if r.TrayErr != "" {
		fmt.Fprintf(w, "tray: %s\n", r.TrayErr)
	}
	return nil
}

func newStartCmd(g *globalFlags) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Ask the running tray to start Syncthing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, _, cfg, _ := loadSettings(g, false)
			c := controlClient(addr, cfg)
			if c == nil {
				return api.ErrTrayNotRunning
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), cliTimeout)
			defer cancel()
			snap, err := c.Start(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "syncthing: %s\n", snap.StatusText)
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Control API address of the running tray (defaults to control-listen)")
	return cmd
}

func newStopCmd(g *globalFlags) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop Syncthing through the running tray, or by process name when no tray answers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, _, cfg, _ := loadSettings(g, false)
			if c := controlClient(addr, cfg); c != nil {
				ctx, cancel := context.WithTimeout(cmd.Context(), cliTimeout)
				defer cancel()
				snap, err := c.Stop(ctx)
				if err == nil {
					fmt.Fprintf(cmd.OutOrStdout(), "syncthing: %s\n", snap.StatusText)
					return nil
				}
				if !errors.Is(err, api.ErrTrayNotRunning) {
					return err
				}
			}
			sup := supervisor.New(supervisor.Options{ProcessName: cfg.ProcessName})
			method, err := sup.Stop()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "syncthing: stopped (by %s)\n", method)
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Control API address of the running tray (defaults to control-listen)")
	return cmd
}
