package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/syncthingtray/syncthingtray/internal/api"
	"github.com/syncthingtray/syncthingtray/internal/autostart"
	"github.com/syncthingtray/syncthingtray/internal/buildinfo"
	"github.com/syncthingtray/syncthingtray/internal/controller"
	"github.com/syncthingtray/syncthingtray/internal/desktopctl"
	"github.com/syncthingtray/syncthingtray/internal/logging"
	"github.com/syncthingtray/syncthingtray/internal/settings"
	"github.com/syncthingtray/syncthingtray/internal/supervisor"
	"github.com/syncthingtray/syncthingtray/internal/tray"
	"github.com/syncthingtray/syncthingtray/internal/tui"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"
)

const autostartAppName = "SyncthingTray"

type runFlags struct {
	noTray    bool
	noPanel   bool
	minimized bool
}

func (r *runFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&r.noTray, "no-tray", false, "Do not show the tray icon")
	cmd.Flags().BoolVar(&r.noPanel, "no-panel", false, "Never open the terminal panel")
	cmd.Flags().BoolVar(&r.minimized, "minimized", false, "Start hidden in the tray regardless of minimize-on-start")
}

func newRunCmd(g *globalFlags) *cobra.Command {
	r := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the tray and the control panel",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTray(cmd.Context(), g, r)
		},
	}
	r.register(cmd)
	return cmd
}

// autostartEntry registers this binary to run the tray at login.
func autostartEntry(g *globalFlags) autostart.Entry {
	exe, err := os.Executable()
	if err != nil {
		exe = os.Args[0]
	}
	args := []string{"run"}
	if g.settingsPath != "" {
		args = append(args, "--settings", g.resolvedSettingsPath())
	}
	return autostart.Entry{AppName: autostartAppName, Exe: exe, Args: args}
}

// logToFile reports whether logs go to the rotating file. The panel owns the terminal, so logs
// never go to stdout while it may be shown.
func logToFile(cfg settings.Settings, panelEnabled bool) bool {
	return cfg.LoggingToFile || panelEnabled
}

func stdinIsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

func runTray(parent context.Context, g *globalFlags, r *runFlags) error {
	if parent == nil {
		parent = context.Background()
	}
	store, _, cfg, err := loadSettings(g, true)
	if err != nil {
		log.WithError(err).Warn("failed to load settings, using defaults")
	}
	panelEnabled := !r.noPanel && stdinIsTerminal()
	if err := logging.ConfigureLogOutput(logToFile(cfg, panelEnabled), desktopctl.LogsDir(), cfg.LogsMaxSizeMB); err != nil {
		log.WithError(err).Warn("failed to configure log file")
	}
	defer logging.CloseLogOutput()
	log.Info(buildinfo.String())

	inst, err := desktopctl.AcquireInstance(desktopctl.AppDir(), autostartAppName)
	if err != nil {
		return err
	}
	defer inst.Release()

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sup := supervisor.New(supervisor.Options{ProcessName: cfg.ProcessName})
	ctl := controller.New(controller.Options{
		Supervisor: sup,
		Store:      store,
		Autostart:  autostart.New(autostartEntry(g)),
		Output:     logging.NewRingBuffer(logging.DefaultBufferSize),
		AfterLoad:  func(s *settings.Settings) { s.ApplyEnv() },
	})

	grp, gctx := errgroup.WithContext(ctx)
	grp.Go(func() error { return ctl.Run(gctx) })
	grp.Go(func() error {
		err := settings.Watch(gctx, store.Path(), func() {
			if err := ctl.ReloadSettings(gctx); err != nil {
				log.WithError(err).Warn("settings reload failed")
			}
		})
		if err != nil {
			// A missing watch only disables hot reload.
			log.WithError(err).Warn("settings watch unavailable")
		}
		return nil
	})
	if cfg.ControlListen != "" {
		srv := api.NewServer(cfg.ControlListen, ctl, api.WithDebug(cfg.LogLevel == "debug"))
		grp.Go(func() error {
			// The tray keeps working without its control API.
			if err := srv.Start(); err != nil {
				log.WithError(err).Error("control API unavailable")
			}
			return nil
		})
		grp.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancelShutdown()
			return srv.Stop(shutdownCtx)
		})
	}

	var t *tray.Tray
	useTray := tray.Supported && !r.noTray
	panels := &panelManager{
		ctl:     ctl,
		ctx:     gctx,
		enabled: panelEnabled,
		onQuit:  cancel,
	}
	if useTray {
		t = tray.New(ctl, tray.Callbacks{
			ShowPanel: panelCallback(panels),
			OpenWeb:   func() error { return desktopctl.OpenBrowser(ctl.Snapshot().WebURL) },
			OpenLogs:  func() error { return desktopctl.OpenFolder(desktopctl.LogsDir()) },
			Exit:      cancel,
		})
		ctl.Attach(t)
		panels.onHide = func() { announceHidden(t) }
	} else {
		// Hiding without a tray would leave no way back; treat it as exit.
		panels.onHide = cancel
	}

	minimized := r.minimized || cfg.MinimizeOnStart
	switch {
	case !minimized && panels.enabled:
		panels.show()
	case useTray:
		announceHidden(t)
	case !panels.enabled:
		log.Info("running headless; press Ctrl+C to stop")
	}

	if useTray {
		go func() {
			<-gctx.Done()
			t.Quit()
		}()
		if err := t.Run(cancel); err != nil && !errors.Is(err, tray.ErrUnsupported) {
			log.WithError(err).Warn("tray exited")
		}
		cancel()
	} else {
		<-gctx.Done()
	}

	err = grp.Wait()
	panels.wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("syncthingtray: %w", err)
	}
	return nil
}

// announceHidden tells the user where the tray went, in the menu and as a desktop notification.
func announceHidden(t *tray.Tray) {
	t.Notify("", tray.HiddenNotice)
	go func() {
		if err := desktopctl.ShowNotification(tray.AppName, tray.HiddenNotice); err != nil {
			log.WithError(err).Debug("desktop notification failed")
		}
	}()
}

func panelCallback(p *panelManager) func() {
	if !p.enabled {
		return nil
	}
	return p.show
}

// panelManager opens the terminal panel on demand; at most one is open at a time.
type panelManager struct {
	ctl     *controller.Controller
	ctx     context.Context
	enabled bool
	onHide  func()
	onQuit  func()

	mu   sync.Mutex
	open bool
	wg   sync.WaitGroup
}

func (p *panelManager) show() {
	if !p.enabled {
		return
	}
	p.mu.Lock()
	if p.open {
		p.mu.Unlock()
		return
	}
	p.open = true
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		exit, err := tui.Run(p.ctx, p.ctl, tui.Options{
			OpenURL:   desktopctl.OpenBrowser,
			AltScreen: true,
		})
		p.mu.Lock()
		p.open = false
		p.mu.Unlock()
		if err != nil {
			log.WithError(err).Warn("panel closed with error")
		}
		if p.ctx.Err() != nil {
			return
		}
		if exit == tui.ExitQuit {
			p.onQuit()
			return
		}
		p.onHide()
	}()
}

func (p *panelManager) wait() {
	p.wg.Wait()
}
