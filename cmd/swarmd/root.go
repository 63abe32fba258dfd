// Package main provides the CLI entrypoint for swarmd.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/lunarfall/swarmd/internal/config"
)

// Build-time variables (set via ldflags)
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

// Global configuration and state
var (
	cfg        *config.Config
	globalOpts struct {
		verbose    bool
		configPath string
		packPath   string
	}
	logger *slog.Logger
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "swarmd",
	Short: "Popup swarm daemon for Linux desktops",
	Long: `swarmd spawns popup windows from a content pack on a timer,
placing them so the screen fills without clustering. Each popup runs
its own lifecycle: it may wander the monitor, fade out after a
timeout, demand several clicks to close, or force-close in pump scare
mode.

Running swarmd without a subcommand starts the daemon.`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildTime),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogger()

		path := globalOpts.configPath
		if path == "" {
			var err error
			path, err = config.Path()
			if err != nil {
				return fmt.Errorf("failed to resolve config path: %w", err)
			}
		}
		globalOpts.configPath = path

		var err error
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if globalOpts.packPath != "" {
			cfg.Pack.Path = globalOpts.packPath
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDaemon()
	},
}

// initCmd writes a default config file for editing.
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(globalOpts.configPath); err == nil {
			return fmt.Errorf("config file already exists: %s", globalOpts.configPath)
		}
		if err := config.Save(config.Default(), globalOpts.configPath); err != nil {
			return err
		}
		fmt.Println("wrote", globalOpts.configPath)
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&globalOpts.verbose, "verbose", "v", false,
		"Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&globalOpts.configPath, "config", "",
		"Path to config file (default: ~/.config/swarmd/swarmd.toml)")
	rootCmd.PersistentFlags().StringVar(&globalOpts.packPath, "pack", "",
		"Path to the content pack directory (overrides config)")

	rootCmd.AddCommand(initCmd)
}

// setupLogger configures the global slog logger.
func setupLogger() {
	level := slog.LevelInfo
	if globalOpts.verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	// Log to stderr so stdout is clean for output
	handler := slog.NewTextHandler(os.Stderr, opts)
	logger = slog.New(handler)
	slog.SetDefault(logger)
}
