// Package theme styles popup windows with CSS. A user stylesheet at
// ~/.config/swarmd/style.css overrides the embedded default.
package theme

import (
	_ "embed"
	"os"
	"path/filepath"
	"sync"

	"log/slog"

	"github.com/diamondburned/gotk4/pkg/gdk/v4"
	"github.com/diamondburned/gotk4/pkg/gtk/v4"
)

//go:embed style/default.css
var defaultCSS string

// UserStylePath returns the user stylesheet override path.
func UserStylePath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "swarmd", "style.css"), nil
}

// ResolveCSS returns the stylesheet to apply: the user file at
// userPath when it is readable, otherwise the embedded default. The
// second return reports whether the user file was used.
func ResolveCSS(userPath string) (string, bool) {
	if userPath != "" {
		if data, err := os.ReadFile(userPath); err == nil {
			return string(data), true
		}
	}
	return defaultCSS, false
}

// Loader loads the stylesheet into a CSS provider and applies it.
type Loader struct {
	mu       sync.Mutex
	logger   *slog.Logger
	provider *gtk.CSSProvider
}

// NewLoader creates a theme loader.
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		logger:   logger,
		provider: gtk.NewCSSProvider(),
	}
}

// Load resolves and parses the stylesheet. GTK main loop only.
func (l *Loader) Load() {
	l.mu.Lock()
	defer l.mu.Unlock()

	userPath, err := UserStylePath()
	if err != nil {
		l.logger.Warn("failed to resolve user stylesheet path", "error", err)
	}

	css, fromUser := ResolveCSS(userPath)
	l.provider.LoadFromString(css)
	if fromUser {
		l.logger.Info("loaded user stylesheet", "path", userPath)
	} else {
		l.logger.Debug("loaded default stylesheet")
	}
}

// Apply attaches the provider to the display. Call after activation.
func (l *Loader) Apply(display *gdk.Display) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if display == nil {
		display = gdk.DisplayGetDefault()
	}
	if display == nil {
		l.logger.Warn("no display available, cannot apply stylesheet")
		return
	}

	gtk.StyleContextAddProviderForDisplay(
		display,
		l.provider,
		gtk.STYLE_PROVIDER_PRIORITY_APPLICATION,
	)
}
