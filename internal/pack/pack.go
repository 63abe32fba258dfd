// Package pack loads a content pack: a directory holding a pack.yaml
// metadata file and a media/ directory of images the popups display.
package pack

import (
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	// Image decoders for media dimension probing.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/lunarfall/swarmd/internal/random"
)

// MetaFile is the pack metadata filename inside the pack root.
const MetaFile = "pack.yaml"

// mediaDir is the media subdirectory inside the pack root.
const mediaDir = "media"

// Meta is the pack.yaml metadata.
type Meta struct {
	Name       string   `yaml:"name"`
	Icon       string   `yaml:"icon"`        // Icon file, relative to the pack root
	CloseLabel string   `yaml:"close_label"` // Close button text
	Denial     []string `yaml:"denial"`      // Denial treatment lines
	Captions   []string `yaml:"captions"`    // Popup caption lines
	URLs       []string `yaml:"urls"`        // Candidate links for web-open
	Sound      string   `yaml:"sound"`       // Spawn sound, relative to the pack root
	Clicks     Clicks   `yaml:"clicks"`
}

// Clicks bounds the per-popup clicks-to-close draw.
type Clicks struct {
	Min int `yaml:"min"`
	Max int `yaml:"max"`
}

// Media is one displayable media file with its pixel dimensions.
type Media struct {
	Path   string
	Width  int
	Height int
}

// Pack is a loaded content pack. The media list mutates at runtime
// (blacklisting removes entries, the watcher rescans on disk changes),
// so access goes through a lock.
type Pack struct {
	root   string
	meta   Meta
	logger *slog.Logger

	mu    sync.RWMutex
	media []Media
}

// Load reads the pack metadata and scans the media directory.
func Load(root string, logger *slog.Logger) (*Pack, error) {
	if logger == nil {
		logger = slog.Default()
	}

	data, err := os.ReadFile(filepath.Join(root, MetaFile))
	if err != nil {
		return nil, fmt.Errorf("failed to read pack metadata: %w", err)
	}

	p := &Pack{root: root, logger: logger}
	if err := yaml.Unmarshal(data, &p.meta); err != nil {
		return nil, fmt.Errorf("failed to parse pack metadata: %w", err)
	}
	if p.meta.Name == "" {
		return nil, fmt.Errorf("pack metadata has no name")
	}
	if p.meta.Clicks.Min < 1 {
		p.meta.Clicks.Min = 1
	}
	if p.meta.Clicks.Max < p.meta.Clicks.Min {
		p.meta.Clicks.Max = p.meta.Clicks.Min
	}

	if err := p.Rescan(); err != nil {
		return nil, err
	}
	return p, nil
}

// Rescan rebuilds the media list from disk. Files that fail to decode
// are skipped with a log line, never fatal.
func (p *Pack) Rescan() error {
	dir := filepath.Join(p.root, mediaDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read media directory: %w", err)
	}

	var media []Media
	var totalBytes uint64
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		w, h, err := probeDimensions(path)
		if err != nil {
			p.logger.Warn("skipping undecodable media", "path", path, "error", err)
			continue
		}
		media = append(media, Media{Path: path, Width: w, Height: h})
		if info, err := entry.Info(); err == nil {
			totalBytes += uint64(info.Size())
		}
	}

	p.mu.Lock()
	p.media = media
	p.mu.Unlock()

	p.logger.Info("pack media scanned",
		"pack", p.meta.Name,
		"count", len(media),
		"size", humanize.Bytes(totalBytes),
	)
	return nil
}

// probeDimensions decodes just the image header to get pixel size.
func probeDimensions(path string) (int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer func() { _ = f.Close() }()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, err
	}
	return cfg.Width, cfg.Height, nil
}

// Root returns the pack directory.
func (p *Pack) Root() string { return p.root }

// Name returns the pack name.
func (p *Pack) Name() string { return p.meta.Name }

// IconPath returns the absolute icon path, or "" when the pack has none.
func (p *Pack) IconPath() string {
	if p.meta.Icon == "" {
		return ""
	}
	return filepath.Join(p.root, p.meta.Icon)
}

// SoundPath returns the absolute spawn sound path, or "" when unset.
func (p *Pack) SoundPath() string {
	if p.meta.Sound == "" {
		return ""
	}
	return filepath.Join(p.root, p.meta.Sound)
}

// CloseLabel returns the close button text, defaulting to "close".
func (p *Pack) CloseLabel() string {
	if p.meta.CloseLabel == "" {
		return "close"
	}
	return p.meta.CloseLabel
}

// MediaCount returns the number of available media files.
func (p *Pack) MediaCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.media)
}

// RandomMedia picks a media file uniformly. ok is false when the pack
// has no usable media left.
func (p *Pack) RandomMedia(rng *random.Source) (Media, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if len(p.media) == 0 {
		return Media{}, false
	}
	return p.media[rng.IntN(len(p.media))], true
}

// RandomDenial picks a denial line, or "" when the pack defines none.
func (p *Pack) RandomDenial(rng *random.Source) string {
	if len(p.meta.Denial) == 0 {
		return ""
	}
	return p.meta.Denial[rng.IntN(len(p.meta.Denial))]
}

// RandomCaption picks a caption line, or "" when the pack defines none.
func (p *Pack) RandomCaption(rng *random.Source) string {
	if len(p.meta.Captions) == 0 {
		return ""
	}
	return p.meta.Captions[rng.IntN(len(p.meta.Captions))]
}

// RandomURL picks a pack URL for the web-open effect.
func (p *Pack) RandomURL(rng *random.Source) (string, bool) {
	if len(p.meta.URLs) == 0 {
		return "", false
	}
	return p.meta.URLs[rng.IntN(len(p.meta.URLs))], true
}

// ClicksToClose draws how many clicks the next popup needs before it
// closes, uniform in the pack's configured range.
func (p *Pack) ClicksToClose(rng *random.Source) int {
	return rng.Between(p.meta.Clicks.Min, p.meta.Clicks.Max)
}

// Blacklist moves a media file into the per-pack blacklist directory
// under dataDir and drops it from the media list. Returns the
// destination path.
func (p *Pack) Blacklist(mediaPath, dataDir string) (string, error) {
	destDir := filepath.Join(dataDir, "blacklist", strings.Join(strings.Fields(p.meta.Name), ""))
	if err := os.MkdirAll(destDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create blacklist directory: %w", err)
	}

	dest := filepath.Join(destDir, filepath.Base(mediaPath))
	if err := os.Rename(mediaPath, dest); err != nil {
		return "", fmt.Errorf("failed to move media to blacklist: %w", err)
	}

	p.mu.Lock()
	for i, m := range p.media {
		if m.Path == mediaPath {
			p.media = append(p.media[:i], p.media[i+1:]...)
			break
		}
	}
	p.mu.Unlock()

	p.logger.Info("media blacklisted", "pack", p.meta.Name, "media", filepath.Base(mediaPath), "dest", dest)
	return dest, nil
}
