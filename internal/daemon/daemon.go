// Package daemon orchestrates popup spawning: it picks media, places
// popups on the grid, and hands each one to a lifecycle controller.
package daemon

import (
	"context"
	"log/slog"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lunarfall/swarmd/internal/config"
	"github.com/lunarfall/swarmd/internal/geometry"
	"github.com/lunarfall/swarmd/internal/lifecycle"
	"github.com/lunarfall/swarmd/internal/notify"
	"github.com/lunarfall/swarmd/internal/pack"
	"github.com/lunarfall/swarmd/internal/placement"
	"github.com/lunarfall/swarmd/internal/random"
	"github.com/lunarfall/swarmd/internal/registry"
)

// Surface is one on-screen popup window as the daemon sees it. The
// GTK implementation marshals calls onto the main loop.
type Surface interface {
	lifecycle.Window
	SetClickHandler(func(altHeld bool))
	Show()
}

// SurfaceOptions describes the popup window the renderer should build.
type SurfaceOptions struct {
	MediaPath    string
	Caption      string
	DenialText   string
	CloseLabel   string
	Buttonless   bool
	Clickthrough bool
	Opacity      float64
	MonitorIndex int
	MonitorRect  geometry.Rect
	Rect         geometry.Rect
}

// Renderer is the daemon's view of the windowing system.
type Renderer interface {
	// PickMonitor resolves the spawn monitor. index < 0 picks at
	// random; the resolved index is returned for SurfaceOptions.
	PickMonitor(index int, rng *random.Source) (geometry.Rect, int)
	// NewSurface builds a popup window. UI loop only.
	NewSurface(opts SurfaceOptions) Surface
	// RunOnUI schedules fn on the UI loop. Safe from any goroutine.
	RunOnUI(fn func())
}

// SoundPlayer plays the preloaded spawn sound.
type SoundPlayer interface {
	Play()
}

// Daemon drives the spawn loop and owns the live controllers.
type Daemon struct {
	renderer Renderer
	pack     *pack.Pack
	engine   *placement.Engine
	reg      *registry.Registry
	rng      *random.Source
	notifier *notify.Client
	player   SoundPlayer
	dataDir  string
	logger   *slog.Logger

	cfg       atomic.Pointer[config.Config]
	pumpScare atomic.Bool

	mu          sync.Mutex
	controllers map[string]*lifecycle.Controller
}

// New creates a daemon. player may be nil when audio is disabled.
func New(renderer Renderer, p *pack.Pack, reg *registry.Registry, rng *random.Source, notifier *notify.Client, player SoundPlayer, dataDir string, cfg *config.Config, logger *slog.Logger) *Daemon {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Daemon{
		renderer:    renderer,
		pack:        p,
		engine:      placement.NewEngine(rng, logger),
		reg:         reg,
		rng:         rng,
		notifier:    notifier,
		player:      player,
		dataDir:     dataDir,
		logger:      logger,
		controllers: make(map[string]*lifecycle.Controller),
	}
	d.cfg.Store(cfg)
	return d
}

// UpdateConfig swaps the active configuration. Live popups keep the
// settings they spawned with; the next spawn picks up the new ones.
func (d *Daemon) UpdateConfig(cfg *config.Config) {
	d.cfg.Store(cfg)
	d.logger.Info("configuration updated", "delay", cfg.Popups.Delay.Duration())
}

// TogglePumpScare flips forced-close mode and returns the new state.
// While active, every spawned popup force-closes shortly after it
// appears regardless of clicks or timeout.
func (d *Daemon) TogglePumpScare() bool {
	on := !d.pumpScare.Load()
	d.pumpScare.Store(on)
	d.logger.Info("pump scare mode toggled", "active", on)
	return on
}

// Run spawns popups on the configured interval until ctx is cancelled.
// The interval is re-read every tick so config reloads take effect.
func (d *Daemon) Run(ctx context.Context) {
	d.logger.Info("spawn loop started", "popups", d.pack.MediaCount(), "pack", d.pack.Name())

	for {
		delay := d.cfg.Load().Popups.Delay.Duration()
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			d.logger.Info("spawn loop stopped")
			return
		case <-timer.C:
			d.renderer.RunOnUI(func() { d.Spawn() })
		}
	}
}

// Spawn creates and launches one popup. UI loop only.
func (d *Daemon) Spawn() {
	cfg := d.cfg.Load()

	media, ok := d.pack.RandomMedia(d.rng)
	if !ok {
		d.logger.Warn("no media available, skipping spawn", "pack", d.pack.Name())
		return
	}

	monRect, monIdx := d.renderer.PickMonitor(cfg.Placement.Monitor-1, d.rng)

	denial := d.rng.Roll(cfg.Popups.DenialChance)
	clicks := 1
	if cfg.Popups.MultiClick {
		clicks = d.pack.ClicksToClose(d.rng)
	}

	rec := registry.NewRecord(monRect, denial, clicks, cfg.Popups.Opacity)
	popupIndex := d.reg.Register(rec)
	siblings := d.reg.Snapshot(rec)

	rect := d.engine.Place(media.Width, media.Height, monRect, siblings,
		popupIndex, cfg.Placement.LowkeyMode, placement.Corner(cfg.Placement.LowkeyCorner))
	rec.SetRect(rect)
	rec.SetState(registry.StatePlaced)

	denialText := ""
	if denial {
		denialText = d.pack.RandomDenial(d.rng)
	}

	win := d.renderer.NewSurface(SurfaceOptions{
		MediaPath:    media.Path,
		Caption:      d.pack.RandomCaption(d.rng),
		DenialText:   denialText,
		CloseLabel:   d.pack.CloseLabel(),
		Buttonless:   cfg.Popups.Buttonless,
		Clickthrough: cfg.Popups.Clickthrough,
		Opacity:      cfg.Popups.Opacity,
		MonitorIndex: monIdx,
		MonitorRect:  monRect,
		Rect:         rect,
	})

	var timeout time.Duration
	if cfg.Popups.TimeoutEnabled {
		timeout = cfg.Popups.Timeout.Duration()
	}

	opts := lifecycle.Options{
		MoveEnabled: cfg.Popups.MovingChance > 0 && d.rng.Roll(cfg.Popups.MovingChance),
		MoveSpeed:   cfg.Popups.MovingSpeed,
		Timeout:     timeout,
		PumpScare:   d.pumpScare.Load(),
		Mitosis:     cfg.Effects.MitosisMode && !cfg.Placement.LowkeyMode,
	}

	hooks := lifecycle.Hooks{
		Blacklist: func() { d.blacklist(media) },
		Mitosis:   func() { d.mitosis(cfg.Effects.MitosisStrength) },
		OpenWeb:   func() { d.maybeOpenWeb(cfg) },
		OnClose:   func() { d.drop(rec.ID) },
	}

	ctrl := lifecycle.New(rec, d.reg, win, opts, hooks, d.rng, d.logger)
	win.SetClickHandler(ctrl.Click)

	d.mu.Lock()
	d.controllers[rec.ID] = ctrl
	d.mu.Unlock()

	win.Show()
	ctrl.Start()

	if d.player != nil && cfg.Audio.Enabled {
		d.player.Play()
	}

	d.logger.Debug("popup spawned",
		"id", rec.ID,
		"media", media.Path,
		"rect", rect,
		"monitor", monIdx,
		"clicks", clicks,
		"denial", denial,
	)
}

// Count returns the number of live controllers.
func (d *Daemon) Count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.controllers)
}

// CloseAll force-closes every live popup, used at shutdown.
func (d *Daemon) CloseAll() {
	d.mu.Lock()
	ctrls := make([]*lifecycle.Controller, 0, len(d.controllers))
	for _, c := range d.controllers {
		ctrls = append(ctrls, c)
	}
	d.mu.Unlock()

	for _, c := range ctrls {
		c.Close(lifecycle.ReasonShutdown)
	}
}

// drop removes a finished controller from the live set.
func (d *Daemon) drop(id string) {
	d.mu.Lock()
	delete(d.controllers, id)
	d.mu.Unlock()
}

// blacklist moves the media out of the pack and tells the user.
func (d *Daemon) blacklist(media pack.Media) {
	dest, err := d.pack.Blacklist(media.Path, d.dataDir)
	if err != nil {
		d.logger.Error("failed to blacklist media", "media", media.Path, "error", err)
		return
	}
	if d.notifier != nil {
		if err := d.notifier.Send("swarmd", "Blacklisted "+dest, d.pack.IconPath()); err != nil {
			d.logger.Warn("failed to send blacklist notification", "error", err)
		}
	}
}

// mitosis spawns the configured number of replacement popups.
func (d *Daemon) mitosis(strength int) {
	if strength < 1 {
		strength = 1
	}
	for range strength {
		d.renderer.RunOnUI(func() { d.Spawn() })
	}
}

// maybeOpenWeb rolls for the web-open effect and launches a pack URL.
// The odds are (100 - web_chance) / 2 percent, matching the historical
// behavior where web_chance dampens rather than drives the effect.
func (d *Daemon) maybeOpenWeb(cfg *config.Config) {
	if !cfg.Effects.WebOnClose {
		return
	}
	url, ok := d.pack.RandomURL(d.rng)
	if !ok {
		return
	}
	if !d.rng.Roll((100 - cfg.Effects.WebChance) / 2) {
		return
	}
	if err := exec.Command("xdg-open", url).Start(); err != nil {
		d.logger.Warn("failed to open url", "url", url, "error", err)
	}
}
