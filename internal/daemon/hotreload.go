package daemon

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/lunarfall/swarmd/internal/config"
)

const defaultPollInterval = time.Second

// ConfigWatcher polls the config file and swaps in edits once they
// validate. An edit that fails validation is reported through the
// error callback and never replaces the running config.
type ConfigWatcher struct {
	mu     sync.RWMutex
	logger *slog.Logger

	configPath   string
	lastModTime  time.Time
	current      *config.Config
	pollInterval time.Duration

	onReload func(newConfig *config.Config)
	onError  func(err error)

	stopCh  chan struct{}
	doneCh  chan struct{}
	running bool
}

// NewConfigWatcher creates a watcher for the given config path.
func NewConfigWatcher(configPath string, logger *slog.Logger) *ConfigWatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &ConfigWatcher{
		logger:       logger,
		configPath:   configPath,
		pollInterval: defaultPollInterval,
		stopCh:       make(chan struct{}),
		doneCh:       make(chan struct{}),
	}
}

// SetPollInterval overrides how often the file is checked. Takes
// effect on the next Start.
func (w *ConfigWatcher) SetPollInterval(interval time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pollInterval = interval
}

// SetReloadCallback registers the callback invoked with every config
// that passed validation.
func (w *ConfigWatcher) SetReloadCallback(callback func(newConfig *config.Config)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onReload = callback
}

// SetErrorCallback registers the callback invoked when a changed file
// fails to load or validate.
func (w *ConfigWatcher) SetErrorCallback(callback func(err error)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onError = callback
}

// Start launches the polling loop. Calling Start on a running watcher
// is a no-op.
func (w *ConfigWatcher) Start(ctx context.Context, initialConfig *config.Config) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.current = initialConfig

	// Changes are detected as mtimes newer than this baseline. A
	// missing file just means the first write will look like a change.
	if info, err := os.Stat(w.configPath); err == nil {
		w.lastModTime = info.ModTime()
	}

	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.mu.Unlock()

	go w.loop(ctx)

	w.logger.Debug("config watcher started", "path", w.configPath, "interval", w.pollInterval)
	return nil
}

// Stop halts polling and waits for the loop to exit. Idempotent.
func (w *ConfigWatcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	close(w.stopCh)
	w.mu.Unlock()

	<-w.doneCh
	w.logger.Debug("config watcher stopped")
}

// GetCurrentConfig returns the last config that passed validation.
func (w *ConfigWatcher) GetCurrentConfig() *config.Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

func (w *ConfigWatcher) loop(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.poll()
		}
	}
}

// poll reloads the config when the file's mtime moved past the last
// one seen.
func (w *ConfigWatcher) poll() {
	w.mu.RLock()
	onReload := w.onReload
	onError := w.onError
	lastModTime := w.lastModTime
	w.mu.RUnlock()

	info, err := os.Stat(w.configPath)
	if err != nil {
		if !os.IsNotExist(err) {
			w.logger.Debug("failed to stat config file", "path", w.configPath, "error", err)
		}
		return
	}

	modTime := info.ModTime()
	if !modTime.After(lastModTime) {
		return
	}

	w.mu.Lock()
	w.lastModTime = modTime
	w.mu.Unlock()

	w.logger.Debug("config file changed", "path", w.configPath, "modTime", modTime)

	newConfig, err := config.Load(w.configPath)
	if err != nil {
		w.logger.Warn("rejecting config change", "error", err)
		if onError != nil {
			onError(err)
		}
		return
	}

	w.mu.Lock()
	w.current = newConfig
	w.mu.Unlock()

	w.logger.Info("config reloaded")
	if onReload != nil {
		onReload(newConfig)
	}
}
