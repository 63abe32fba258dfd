// Package display renders popup windows with GTK4 and wlr-layer-shell.
package display

import (
	"log/slog"
	"sync/atomic"

	layershell "github.com/diamondburned/gotk4-layer-shell/pkg/gtk4layershell"
	"github.com/diamondburned/gotk4/pkg/core/glib"
	"github.com/diamondburned/gotk4/pkg/gdk/v4"
	"github.com/diamondburned/gotk4/pkg/gtk/v4"

	"github.com/lunarfall/swarmd/internal/geometry"
	"github.com/lunarfall/swarmd/internal/lifecycle"
)

// PopupOptions describes one popup window.
type PopupOptions struct {
	MediaPath  string
	Caption    string
	DenialText string // Non-empty renders the denial treatment over the media
	CloseLabel string
	Buttonless bool
	// Clickthrough makes the window ignore all pointer input. Such a
	// popup can only leave by timeout or forced close.
	Clickthrough bool
	Opacity      float64
	Monitor      *gdk.Monitor
	MonitorRect  geometry.Rect
	Rect         geometry.Rect
}

// Popup is a single popup window. Geometry and opacity updates may
// arrive from any goroutine; they are marshalled onto the GTK main
// loop and dropped once the window is destroyed.
type Popup struct {
	window  *gtk.Window
	monitor geometry.Rect
	logger  *slog.Logger

	destroyed atomic.Bool
	onClick   func(altHeld bool)
}

var _ lifecycle.Window = (*Popup)(nil)

// NewPopup builds the popup window. Must be called on the GTK main loop.
func NewPopup(app *gtk.Application, opts PopupOptions, logger *slog.Logger) *Popup {
	if logger == nil {
		logger = slog.Default()
	}

	p := &Popup{
		monitor: opts.MonitorRect,
		logger:  logger,
	}

	p.window = gtk.NewWindow()
	p.window.SetApplication(app)
	p.window.SetDecorated(false)
	p.window.SetResizable(false)
	p.window.SetDefaultSize(opts.Rect.W, opts.Rect.H)

	layershell.InitForWindow(p.window)
	layershell.SetLayer(p.window, layershell.LayerShellLayerOverlay)
	layershell.SetExclusiveZone(p.window, 0) // Don't reserve space
	layershell.SetKeyboardMode(p.window, layershell.LayerShellKeyboardModeNone)
	layershell.SetNamespace(p.window, "swarmd-popup")
	if opts.Monitor != nil {
		layershell.SetMonitor(p.window, opts.Monitor)
	}

	// Anchor to the monitor's top-left corner; position is expressed
	// as margins from that corner so moves are plain margin updates.
	layershell.SetAnchor(p.window, layershell.LayerShellEdgeTop, true)
	layershell.SetAnchor(p.window, layershell.LayerShellEdgeLeft, true)
	p.setMargins(opts.Rect)

	p.buildUI(opts)

	if opts.Clickthrough {
		p.window.SetCanTarget(false)
	}
	if bodyClickable(opts) {
		p.connectClicks(p.window)
	}

	if opts.Opacity < 1.0 {
		p.window.SetOpacity(opts.Opacity)
	}

	return p
}

// buildUI constructs the widget hierarchy: media picture with caption,
// denial text, and close button layered on top.
func (p *Popup) buildUI(opts PopupOptions) {
	overlay := gtk.NewOverlay()
	overlay.AddCSSClass("popup")

	picture := gtk.NewPictureForFilename(opts.MediaPath)
	picture.SetCanShrink(true)
	picture.SetSizeRequest(opts.Rect.W, opts.Rect.H)
	overlay.SetChild(picture)

	if opts.DenialText != "" {
		denialLbl := gtk.NewLabel(opts.DenialText)
		denialLbl.AddCSSClass("popup-denial")
		denialLbl.SetHAlign(gtk.AlignCenter)
		denialLbl.SetVAlign(gtk.AlignCenter)
		denialLbl.SetWrap(true)
		overlay.AddOverlay(denialLbl)
	}

	if opts.Caption != "" {
		captionLbl := gtk.NewLabel(opts.Caption)
		captionLbl.AddCSSClass("popup-caption")
		captionLbl.SetHAlign(gtk.AlignCenter)
		captionLbl.SetVAlign(gtk.AlignEnd)
		captionLbl.SetEllipsize(3) // PANGO_ELLIPSIZE_END
		overlay.AddOverlay(captionLbl)
	}

	if !opts.Buttonless && !opts.Clickthrough {
		closeBtn := gtk.NewButtonWithLabel(opts.CloseLabel)
		closeBtn.AddCSSClass("popup-close")
		closeBtn.SetHAlign(gtk.AlignEnd)
		closeBtn.SetVAlign(gtk.AlignStart)
		p.connectClicks(closeBtn)
		overlay.AddOverlay(closeBtn)
	}

	p.window.SetChild(overlay)
}

// bodyClickable reports whether primary clicks anywhere on the popup
// body count toward closing. With a close button present only the
// button does.
func bodyClickable(opts PopupOptions) bool {
	return !opts.Clickthrough && opts.Buttonless
}

// connectClicks wires a primary-button gesture onto the widget. The
// Alt modifier at release time marks a blacklisting close. The capture
// phase keeps a button's own click gesture from claiming the sequence
// first.
func (p *Popup) connectClicks(widget gtk.Widgetter) {
	gesture := gtk.NewGestureClick()
	gesture.SetButton(1) // Primary button only
	gesture.SetPropagationPhase(gtk.PhaseCapture)
	gesture.ConnectReleased(func(nPress int, x, y float64) {
		altHeld := gesture.CurrentEventState()&gdk.AltMask != 0
		if p.onClick != nil {
			p.onClick(altHeld)
		}
	})
	gtk.BaseWidget(widget).AddController(gesture)
}

// SetClickHandler sets the callback invoked on every primary click.
// Must be set before Show.
func (p *Popup) SetClickHandler(handler func(altHeld bool)) {
	p.onClick = handler
}

// Show presents the window. Must be called on the GTK main loop.
func (p *Popup) Show() {
	p.window.Present()
}

// setMargins positions the window relative to its monitor's origin.
func (p *Popup) setMargins(rect geometry.Rect) {
	layershell.SetMargin(p.window, layershell.LayerShellEdgeLeft, rect.X-p.monitor.X)
	layershell.SetMargin(p.window, layershell.LayerShellEdgeTop, rect.Y-p.monitor.Y)
}

// ApplyGeometry moves the window. Safe from any goroutine.
func (p *Popup) ApplyGeometry(rect geometry.Rect) {
	if p.destroyed.Load() {
		return
	}
	glib.IdleAdd(func() {
		if p.destroyed.Load() {
			return
		}
		p.setMargins(rect)
	})
}

// ApplyOpacity sets the window opacity. Safe from any goroutine.
func (p *Popup) ApplyOpacity(opacity float64) {
	if p.destroyed.Load() {
		return
	}
	glib.IdleAdd(func() {
		if p.destroyed.Load() {
			return
		}
		p.window.SetOpacity(opacity)
	})
}

// Destroy closes the window. Safe from any goroutine, idempotent.
func (p *Popup) Destroy() {
	if p.destroyed.Swap(true) {
		return
	}
	glib.IdleAdd(func() {
		p.window.Destroy()
	})
}
