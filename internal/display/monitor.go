package display

import (
	"log/slog"
	"unsafe"

	"github.com/diamondburned/gotk4/pkg/core/glib"
	"github.com/diamondburned/gotk4/pkg/gdk/v4"

	"github.com/lunarfall/swarmd/internal/geometry"
	"github.com/lunarfall/swarmd/internal/random"
)

// fallbackMonitor is used when no display is available, which keeps
// placement testable off a compositor.
var fallbackMonitor = geometry.Rect{X: 0, Y: 0, W: 1920, H: 1080}

// Monitors enumerates connected monitors and picks spawn targets.
type Monitors struct {
	display *gdk.Display
	logger  *slog.Logger
}

// NewMonitors creates a monitor provider from the default display.
func NewMonitors(logger *slog.Logger) *Monitors {
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitors{
		display: gdk.DisplayGetDefault(),
		logger:  logger,
	}
}

// Count returns the number of connected monitors, 0 when headless.
func (m *Monitors) Count() int {
	if m.display == nil {
		return 0
	}
	monitors := m.display.Monitors()
	if monitors == nil {
		return 0
	}
	return int(monitors.NItems())
}

// Pick selects the spawn monitor. index < 0 picks one at random per
// call; otherwise index is clamped to the available range. The second
// return is the resolved index, -1 when running headless with the
// fallback geometry.
func (m *Monitors) Pick(index int, rng *random.Source) (geometry.Rect, int) {
	count := m.Count()
	if count == 0 {
		m.logger.Warn("no monitors available, using fallback geometry")
		return fallbackMonitor, -1
	}

	if index < 0 {
		index = rng.IntN(count)
	} else if index >= count {
		m.logger.Warn("configured monitor not available, using first",
			"configured", index,
			"available", count,
		)
		index = 0
	}

	mon := m.Handle(index)
	if mon == nil {
		return fallbackMonitor, -1
	}

	geo := mon.Geometry()
	return geometry.Rect{
		X: geo.X(),
		Y: geo.Y(),
		W: geo.Width(),
		H: geo.Height(),
	}, index
}

// Handle returns the gdk monitor at index, nil when unavailable.
func (m *Monitors) Handle(index int) *gdk.Monitor {
	if m.display == nil || index < 0 || index >= m.Count() {
		return nil
	}
	return wrapMonitor(m.display.Monitors().Item(uint(index)))
}

// wrapMonitor wraps a coreglib.Object as a gdk.Monitor.
// This is necessary because gotk4 doesn't expose the wrapMonitor function.
func wrapMonitor(obj *glib.Object) *gdk.Monitor {
	if obj == nil {
		return nil
	}
	// The gdk.Monitor struct embeds a *coreglib.Object, so we can create
	// one by casting the native pointer. This is how gotk4 does it internally.
	type monitor struct {
		_ [0]func()
		*glib.Object
	}
	mon := &monitor{Object: obj}
	return (*gdk.Monitor)(unsafe.Pointer(mon))
}
