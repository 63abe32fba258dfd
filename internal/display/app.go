package display

import (
	"log/slog"

	"github.com/diamondburned/gotk4/pkg/core/glib"
	"github.com/diamondburned/gotk4/pkg/gtk/v4"

	"github.com/lunarfall/swarmd/internal/daemon"
	"github.com/lunarfall/swarmd/internal/geometry"
	"github.com/lunarfall/swarmd/internal/random"
)

// App adapts the GTK application and monitor set to the spawn daemon.
type App struct {
	app      *gtk.Application
	monitors *Monitors
	logger   *slog.Logger
}

var _ daemon.Renderer = (*App)(nil)

// NewApp creates the renderer. Must be called after GTK activation so
// the default display exists.
func NewApp(app *gtk.Application, logger *slog.Logger) *App {
	if logger == nil {
		logger = slog.Default()
	}
	return &App{
		app:      app,
		monitors: NewMonitors(logger),
		logger:   logger,
	}
}

// PickMonitor resolves the spawn monitor geometry and index.
func (a *App) PickMonitor(index int, rng *random.Source) (geometry.Rect, int) {
	return a.monitors.Pick(index, rng)
}

// NewSurface builds a popup window. UI loop only.
func (a *App) NewSurface(opts daemon.SurfaceOptions) daemon.Surface {
	return NewPopup(a.app, PopupOptions{
		MediaPath:    opts.MediaPath,
		Caption:      opts.Caption,
		DenialText:   opts.DenialText,
		CloseLabel:   opts.CloseLabel,
		Buttonless:   opts.Buttonless,
		Clickthrough: opts.Clickthrough,
		Opacity:      opts.Opacity,
		Monitor:      a.monitors.Handle(opts.MonitorIndex),
		MonitorRect:  opts.MonitorRect,
		Rect:         opts.Rect,
	}, a.logger)
}

// RunOnUI schedules fn on the GTK main loop.
func (a *App) RunOnUI(fn func()) {
	glib.IdleAdd(fn)
}
