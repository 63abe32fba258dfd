// Package config loads and validates swarmd settings.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Duration is a time.Duration that unmarshals from human-readable
// strings like "5s" or "1m30s", or from integer milliseconds.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler for TOML parsing.
func (d *Duration) UnmarshalText(text []byte) error {
	s := string(text)

	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		*d = Duration(time.Duration(ms) * time.Millisecond)
		return nil
	}

	dur, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: must be like '5s', '1m30s' or milliseconds: %w", s, err)
	}
	*d = Duration(dur)
	return nil
}

// MarshalText implements encoding.TextMarshaler for TOML output.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Config is the swarmd configuration, loaded from
// ~/.config/swarmd/swarmd.toml.
type Config struct {
	Popups    PopupsConfig    `toml:"popups"`
	Placement PlacementConfig `toml:"placement"`
	Effects   EffectsConfig   `toml:"effects"`
	Pack      PackConfig      `toml:"pack"`
	Audio     AudioConfig     `toml:"audio"`
}

// PopupsConfig controls how popups spawn and behave.
type PopupsConfig struct {
	Delay          Duration `toml:"delay"`           // Interval between spawned popups
	Opacity        float64  `toml:"opacity"`         // Initial popup opacity, 0.0-1.0
	TimeoutEnabled bool     `toml:"timeout_enabled"` // Fade popups out after Timeout
	Timeout        Duration `toml:"timeout"`         // Delay before the fade starts
	MovingChance   int      `toml:"moving_chance"`   // Percent chance a popup wanders
	MovingSpeed    int      `toml:"moving_speed"`    // Max per-axis pixels per tick
	MultiClick     bool     `toml:"multi_click"`     // Require multiple clicks to close
	Buttonless     bool     `toml:"buttonless"`      // Close on any click, no button widget
	Clickthrough   bool     `toml:"clickthrough"`    // Popups ignore all input
	DenialChance   int      `toml:"denial_chance"`   // Percent chance of the denial treatment
}

// PlacementConfig controls where popups land.
type PlacementConfig struct {
	LowkeyMode   bool `toml:"lowkey_mode"`   // Corner-anchored placement, smaller sizing
	LowkeyCorner int  `toml:"lowkey_corner"` // 0=TL 1=TR 2=BL 3=BR 4=random
	Monitor      int  `toml:"monitor"`       // 0 = random monitor, 1+ = specific
}

// EffectsConfig controls close-time side effects.
type EffectsConfig struct {
	MitosisMode     bool `toml:"mitosis_mode"`     // Spawn popups when one is click-closed
	MitosisStrength int  `toml:"mitosis_strength"` // How many popups mitosis spawns
	WebOnClose      bool `toml:"web_on_close"`     // Maybe open a pack URL on close
	WebChance       int  `toml:"web_chance"`       // Governs the web-open roll
}

// PackConfig points at the content pack.
type PackConfig struct {
	Path string `toml:"path"` // Pack directory (pack.yaml + media/)
}

// AudioConfig controls the popup spawn sound.
type AudioConfig struct {
	Enabled bool `toml:"enabled"`
	Volume  int  `toml:"volume"` // 0-100
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Popups: PopupsConfig{
			Delay:          Duration(2 * time.Second),
			Opacity:        1.0,
			TimeoutEnabled: true,
			Timeout:        Duration(8 * time.Second),
			MovingChance:   0,
			MovingSpeed:    5,
			MultiClick:     false,
			Buttonless:     false,
			Clickthrough:   false,
			DenialChance:   0,
		},
		Placement: PlacementConfig{
			LowkeyMode:   false,
			LowkeyCorner: 4,
			Monitor:      0,
		},
		Effects: EffectsConfig{
			MitosisMode:     false,
			MitosisStrength: 2,
			WebOnClose:      false,
			WebChance:       50,
		},
		Pack: PackConfig{
			Path: "",
		},
		Audio: AudioConfig{
			Enabled: false,
			Volume:  80,
		},
	}
}

// Path returns the default config file path.
func Path() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "swarmd", "swarmd.toml"), nil
}

// DataDir returns the swarmd data directory (blacklist storage).
func DataDir() (string, error) {
	base, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, ".local", "share", "swarmd"), nil
}

// Load reads the configuration from path. A missing file yields the
// defaults; a present file overlays them and is validated.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Save writes the configuration to path atomically.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return os.Rename(tmpPath, path)
}

// Validate checks if the configuration is usable.
func (c *Config) Validate() error {
	if c.Popups.Opacity < 0 || c.Popups.Opacity > 1 {
		return fmt.Errorf("opacity must be between 0.0 and 1.0, got %v", c.Popups.Opacity)
	}
	if c.Popups.Delay.Duration() <= 0 {
		return fmt.Errorf("delay must be positive, got %v", c.Popups.Delay.Duration())
	}
	if c.Popups.TimeoutEnabled && c.Popups.Timeout.Duration() <= 0 {
		return fmt.Errorf("timeout must be positive when timeout_enabled is set, got %v", c.Popups.Timeout.Duration())
	}
	if c.Popups.MovingChance < 0 || c.Popups.MovingChance > 100 {
		return fmt.Errorf("moving_chance must be between 0 and 100, got %d", c.Popups.MovingChance)
	}
	if c.Popups.MovingSpeed < 1 || c.Popups.MovingSpeed > 100 {
		return fmt.Errorf("moving_speed must be between 1 and 100, got %d", c.Popups.MovingSpeed)
	}
	if c.Popups.DenialChance < 0 || c.Popups.DenialChance > 100 {
		return fmt.Errorf("denial_chance must be between 0 and 100, got %d", c.Popups.DenialChance)
	}
	if c.Placement.LowkeyCorner < 0 || c.Placement.LowkeyCorner > 4 {
		return fmt.Errorf("lowkey_corner must be between 0 and 4, got %d", c.Placement.LowkeyCorner)
	}
	if c.Placement.Monitor < 0 {
		return fmt.Errorf("monitor must be 0 (random) or a positive index, got %d", c.Placement.Monitor)
	}
	if c.Effects.MitosisStrength < 0 || c.Effects.MitosisStrength > 10 {
		return fmt.Errorf("mitosis_strength must be between 0 and 10, got %d", c.Effects.MitosisStrength)
	}
	if c.Effects.WebChance < 0 || c.Effects.WebChance > 100 {
		return fmt.Errorf("web_chance must be between 0 and 100, got %d", c.Effects.WebChance)
	}
	if c.Audio.Volume < 0 || c.Audio.Volume > 100 {
		return fmt.Errorf("volume must be between 0 and 100, got %d", c.Audio.Volume)
	}
	return nil
}
