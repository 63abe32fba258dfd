// Package lifecycle drives a single popup's concurrent behaviors:
// movement, fade-out, multi-click close, forced pump-scare close and
// the terminal teardown. One Controller owns one popup.
package lifecycle

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/lunarfall/swarmd/internal/geometry"
	"github.com/lunarfall/swarmd/internal/random"
	"github.com/lunarfall/swarmd/internal/registry"
)

// Window is the rendering surface a controller drives. Implementations
// must accept calls from any goroutine (the GTK facade marshals them
// onto the main loop) and must turn every call into a no-op once the
// window is destroyed; a sub-behavior hitting a destroyed window is
// normal shutdown, not an error.
type Window interface {
	ApplyGeometry(geometry.Rect)
	ApplyOpacity(float64)
	Destroy()
}

// CloseReason records what triggered a popup's close.
type CloseReason int

const (
	ReasonClicked CloseReason = iota
	ReasonTimeout
	ReasonPumpScare
	ReasonShutdown
)

// String returns the reason name for logging.
func (r CloseReason) String() string {
	switch r {
	case ReasonClicked:
		return "clicked"
	case ReasonTimeout:
		return "timeout"
	case ReasonPumpScare:
		return "pump-scare"
	case ReasonShutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}

// Hooks are the side effects a controller may fire. All are optional;
// failures inside a hook must be handled by the hook itself and never
// block the close path.
type Hooks struct {
	// Blacklist fires when the closing click had the blacklist
	// modifier held, before the window is torn down.
	Blacklist func()
	// Mitosis fires after a click-triggered close.
	Mitosis func()
	// OpenWeb fires on every close; the hook owns its probability roll.
	OpenWeb func()
	// OnClose fires exactly once, after teardown.
	OnClose func()
}

// Options configure a controller's sub-behaviors. Tick intervals exist
// so tests can run the real goroutines without real-time waits.
type Options struct {
	// MoveEnabled starts the movement behavior (the probability roll
	// belongs to the caller).
	MoveEnabled bool
	// MoveSpeed bounds the random per-axis velocity in pixels per tick.
	MoveSpeed int
	// Timeout delays the fade-out; zero disables it.
	Timeout time.Duration
	// PumpScare forces a close after PumpScareDelay, overriding the
	// timeout fade.
	PumpScare bool
	// Mitosis gates the mitosis hook on click-close.
	Mitosis bool

	MoveInterval   time.Duration
	FadeInterval   time.Duration
	FadeStep       float64
	PumpScareDelay time.Duration
}

const (
	defaultMoveInterval   = 10 * time.Millisecond
	defaultFadeInterval   = 15 * time.Millisecond
	defaultFadeStep       = 0.01
	defaultPumpScareDelay = 2500 * time.Millisecond
)

func (o *Options) applyDefaults() {
	if o.MoveInterval <= 0 {
		o.MoveInterval = defaultMoveInterval
	}
	if o.FadeInterval <= 0 {
		o.FadeInterval = defaultFadeInterval
	}
	if o.FadeStep <= 0 {
		o.FadeStep = defaultFadeStep
	}
	if o.PumpScareDelay <= 0 {
		o.PumpScareDelay = defaultPumpScareDelay
	}
}

// Controller orchestrates one popup's lifecycle. Sub-behaviors run as
// goroutines owned by the controller and are cancelled through its
// context when the popup closes; none may outlive the closed state.
type Controller struct {
	rec    *registry.Record
	reg    *registry.Registry
	win    Window
	rng    *random.Source
	logger *slog.Logger
	opts   Options
	hooks  Hooks

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// New creates a controller for a placed popup record.
func New(rec *registry.Record, reg *registry.Registry, win Window, opts Options, hooks Hooks, rng *random.Source, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	opts.applyDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		rec:    rec,
		reg:    reg,
		win:    win,
		rng:    rng,
		logger: logger,
		opts:   opts,
		hooks:  hooks,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start transitions the popup to Active and launches its sub-behaviors.
// Pump-scare overrides the timeout fade: the popup closes on a fixed
// short delay instead of fading.
func (c *Controller) Start() {
	c.rec.SetState(registry.StateActive)

	switch {
	case c.opts.PumpScare:
		go c.pumpScare()
	case c.opts.Timeout > 0:
		go c.fade()
	}

	if c.opts.MoveEnabled && c.opts.MoveSpeed > 0 {
		vx, vy := c.randomVelocity()
		go c.move(vx, vy)
	}

	c.logger.Debug("popup active",
		"id", c.rec.ID,
		"seq", c.rec.Seq,
		"rect", c.rec.Rect(),
		"clicks", c.rec.ClicksRemaining(),
		"moving", c.opts.MoveEnabled,
		"timeout", c.opts.Timeout,
		"pump_scare", c.opts.PumpScare,
	)
}

// Click consumes one click. When the counter reaches zero it fires the
// blacklist hook (if the modifier was held), closes the popup and then
// fires the mitosis hook. Clicks after the counter bottomed out are
// ignored, so the close path runs exactly once per popup.
func (c *Controller) Click(altHeld bool) {
	if c.rec.State() >= registry.StateClosing {
		return
	}
	if c.rec.DecrementClicks() != 0 {
		return
	}

	if altHeld && c.hooks.Blacklist != nil {
		c.hooks.Blacklist()
	}
	c.Close(ReasonClicked)
	if c.opts.Mitosis && c.hooks.Mitosis != nil {
		c.hooks.Mitosis()
	}
}

// Close tears the popup down. It is idempotent: sub-behaviors are
// cancelled, the record leaves the registry, side-effect hooks fire,
// the window is destroyed and the close callback runs exactly once.
func (c *Controller) Close(reason CloseReason) {
	c.closeOnce.Do(func() {
		c.rec.SetState(registry.StateClosing)
		c.cancel()
		c.reg.Unregister(c.rec)

		if c.hooks.OpenWeb != nil {
			c.hooks.OpenWeb()
		}

		c.win.Destroy()
		c.rec.SetState(registry.StateClosed)

		c.logger.Debug("popup closed",
			"id", c.rec.ID,
			"reason", reason,
			"live", c.reg.Count(),
		)

		if c.hooks.OnClose != nil {
			c.hooks.OnClose()
		}
	})
}

// Done is closed when the controller's sub-behaviors have been told to
// stop. Used by tests and shutdown sweeps.
func (c *Controller) Done() <-chan struct{} {
	return c.ctx.Done()
}

// randomVelocity draws a per-axis velocity in [-speed, speed],
// resampling until at least one axis is nonzero.
func (c *Controller) randomVelocity() (int, int) {
	speed := c.opts.MoveSpeed
	vx, vy := 0, 0
	for vx == 0 && vy == 0 {
		vx = c.rng.Between(-speed, speed)
		vy = c.rng.Between(-speed, speed)
	}
	return vx, vy
}

// move advances the popup by its velocity every tick, reflecting off
// the monitor walls, until the popup closes.
func (c *Controller) move(vx, vy int) {
	ticker := time.NewTicker(c.opts.MoveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
		}

		r, nvx, nvy := advance(c.rec.Rect(), c.rec.Monitor, vx, vy)
		vx, vy = nvx, nvy
		c.rec.SetRect(r)
		c.win.ApplyGeometry(r)
	}
}

// advance applies one movement step with wall-bounce reflection. The
// velocity sign flips on the axis whose boundary was touched or
// crossed, and the position clamps back inside the monitor so the
// rectangle never escapes it.
func advance(r geometry.Rect, mon geometry.Rect, vx, vy int) (geometry.Rect, int, int) {
	r.X += vx
	r.Y += vy

	if r.X <= mon.X {
		r.X = mon.X
		vx = -vx
	} else if r.Right() >= mon.Right() {
		r.X = mon.Right() - r.W
		vx = -vx
	}

	if r.Y <= mon.Y {
		r.Y = mon.Y
		vy = -vy
	} else if r.Bottom() >= mon.Bottom() {
		r.Y = mon.Bottom() - r.H
		vy = -vy
	}

	return r, vx, vy
}

// fade waits out the configured timeout, then steps the opacity down
// every tick until it reaches zero and closes the popup. A manual
// close cancels the pending timer or the tick loop cleanly.
func (c *Controller) fade() {
	timer := time.NewTimer(c.opts.Timeout)
	defer timer.Stop()

	select {
	case <-c.ctx.Done():
		return
	case <-timer.C:
	}

	ticker := time.NewTicker(c.opts.FadeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
		}

		op := c.rec.Opacity() - c.opts.FadeStep
		if op < 0 {
			op = 0
		}
		c.rec.SetOpacity(op)
		c.win.ApplyOpacity(op)

		if op == 0 {
			c.Close(ReasonTimeout)
			return
		}
	}
}

// pumpScare force-closes the popup after a fixed delay regardless of
// timeout settings.
func (c *Controller) pumpScare() {
	timer := time.NewTimer(c.opts.PumpScareDelay)
	defer timer.Stop()

	select {
	case <-c.ctx.Done():
	case <-timer.C:
		c.Close(ReasonPumpScare)
	}
}
