package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/diamondburned/gotk4-adwaita/pkg/adw"
	"github.com/diamondburned/gotk4/pkg/glib/v2"
	"github.com/diamondburned/gotk4/pkg/gtk/v4"

	"github.com/lunarfall/swarmd/internal/audio"
	"github.com/lunarfall/swarmd/internal/config"
	"github.com/lunarfall/swarmd/internal/daemon"
	"github.com/lunarfall/swarmd/internal/display"
	"github.com/lunarfall/swarmd/internal/notify"
	"github.com/lunarfall/swarmd/internal/pack"
	"github.com/lunarfall/swarmd/internal/random"
	"github.com/lunarfall/swarmd/internal/registry"
	"github.com/lunarfall/swarmd/internal/theme"
)

const appID = "io.github.lunarfall.swarmd"

// runDaemon starts the GTK application and the spawn loop.
func runDaemon() error {
	logger.Info("starting swarmd", "version", version)

	if cfg.Pack.Path == "" {
		return fmt.Errorf("no content pack configured: set pack.path or pass --pack")
	}

	contentPack, err := pack.Load(cfg.Pack.Path, logger)
	if err != nil {
		return fmt.Errorf("failed to load content pack: %w", err)
	}

	dataDir, err := config.DataDir()
	if err != nil {
		return fmt.Errorf("failed to resolve data directory: %w", err)
	}
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	// Spawn sound is optional; a failed preload just disables it.
	var player *audio.Player
	if cfg.Audio.Enabled && contentPack.SoundPath() != "" {
		player = audio.NewPlayer(logger)
		player.SetVolume(float64(cfg.Audio.Volume) / 100)
		if err := player.Preload(contentPack.SoundPath()); err != nil {
			logger.Warn("failed to preload spawn sound", "error", err)
			player = nil
		}
	}

	app := adw.NewApplication(appID, 0)

	// Shared state between GTK main loop and signal handlers
	var (
		d             *daemon.Daemon
		mediaWatcher  *pack.Watcher
		configWatcher *daemon.ConfigWatcher
		notifier      *notify.Client
		running       atomic.Bool
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// SIGUSR2 toggles pump scare mode without restarting.
	usrCh := make(chan os.Signal, 1)
	signal.Notify(usrCh, syscall.SIGUSR2)
	go func() {
		for range usrCh {
			if d != nil {
				d.TogglePumpScare()
			}
		}
	}()

	go func() {
		sig := <-sigCh
		logger.Info("received signal, shutting down", "signal", sig)
		cancel()

		// Stop components in GTK main loop context
		glib.IdleAdd(func() {
			if running.Load() {
				if configWatcher != nil {
					configWatcher.Stop()
				}
				if mediaWatcher != nil {
					_ = mediaWatcher.Stop()
				}
				if d != nil {
					d.CloseAll()
				}
				app.Quit()
			}
		})
	}()

	app.ConnectActivate(func() {
		if running.Load() {
			logger.Warn("application already running")
			return
		}
		running.Store(true)

		styles := theme.NewLoader(logger)
		styles.Load()
		styles.Apply(nil)

		notifier = notify.NewClient("swarmd", logger)
		renderer := display.NewApp(&app.Application, logger)
		rng := random.New()

		d = daemon.New(renderer, contentPack, registry.New(), rng,
			notifier, player, dataDir, cfg, logger)

		if mw, err := pack.NewWatcher(contentPack); err != nil {
			logger.Warn("failed to create media watcher", "error", err)
		} else if err := mw.Start(); err != nil {
			logger.Warn("failed to start media watcher", "error", err)
		} else {
			mediaWatcher = mw
		}

		configWatcher = daemon.NewConfigWatcher(globalOpts.configPath, logger)
		configWatcher.SetReloadCallback(func(newConfig *config.Config) {
			glib.IdleAdd(func() {
				d.UpdateConfig(newConfig)
				if player != nil {
					player.SetVolume(float64(newConfig.Audio.Volume) / 100)
				}
				cfg = newConfig
			})
		})
		configWatcher.SetErrorCallback(func(err error) {
			logger.Warn("config reload rejected", "error", err)
		})
		if err := configWatcher.Start(ctx, cfg); err != nil {
			logger.Warn("failed to start config watcher", "error", err)
		}

		go d.Run(ctx)

		logger.Info("swarmd ready",
			"pack", contentPack.Name(),
			"media", contentPack.MediaCount(),
			"delay", cfg.Popups.Delay.Duration(),
		)

		// Create a hidden window to keep the application running
		// (GTK apps quit when all windows are closed)
		keepAliveWindow := gtk.NewWindow()
		keepAliveWindow.SetApplication(&app.Application)
		keepAliveWindow.SetDefaultSize(1, 1)
		keepAliveWindow.SetDecorated(false)
		keepAliveWindow.SetVisible(false)
	})

	app.ConnectShutdown(func() {
		logger.Info("application shutting down")
		if configWatcher != nil {
			configWatcher.Stop()
		}
		if mediaWatcher != nil {
			_ = mediaWatcher.Stop()
		}
		if d != nil {
			d.CloseAll()
		}
		if player != nil {
			player.Close()
		}
		if notifier != nil {
			_ = notifier.Close()
		}
		running.Store(false)
	})

	// GTK must not see cobra's flags.
	status := app.Run(os.Args[:1])
	if status != 0 {
		return fmt.Errorf("application exited with status %d", status)
	}

	logger.Info("swarmd stopped")
	return nil
}
