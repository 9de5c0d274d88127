// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the signage-workspace CLI. It manages
// the WORKSPACE tree of digital-signage teams: playlists, uploads, document
// conversion to slide images, canteen menus and git synchronization, and
// serves the same operations over HTTP.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/signage-workspace/internal/envfile"
	"github.com/pdiddy/signage-workspace/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// rootCmd is the base command for the signage-workspace CLI.
var rootCmd = &cobra.Command{
	Use:   "signage-workspace",
	Short: "Manage a digital-signage workspace of teams, playlists and slides",
	Long: `signage-workspace manages the WORKSPACE directory read by signage
displays. Each team is a directory holding a playlist.json and its media:
photos/, videos/ and documents/. Office documents and PDFs are converted to
numbered slide images (001.png, 002.png, ...) next to the source document.

Run "serve" for the HTTP API used by the dashboard and the displays, or use
the subcommands directly.`,
	SilenceUsage: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./signage-workspace.yaml or ~/.config/signage-workspace/config.yaml)")
	rootCmd.PersistentFlags().String("workspace", "", "workspace directory (overrides workspace.dir)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")

	viper.BindPFlag("workspace.dir", rootCmd.PersistentFlags().Lookup("workspace"))
	viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
}

// configKeys are registered with viper so that environment variables reach
// Unmarshal even when no config file mentions them.
var configKeys = map[string]any{
	"workspace.dir":              types.DefaultWorkspaceDir,
	"workspace.state_dir":        "",
	"workspace.max_upload_size":  types.DefaultMaxUploadSize,
	"conversion.office_binaries": []string{},
	"conversion.office_timeout":  types.DefaultOfficeTimeout,
	"conversion.rasterizers":     types.DefaultRasterizers,
	"conversion.render_timeout":  types.DefaultRenderTimeout,
	"conversion.dpi":             types.DefaultDPI,
	"conversion.workers":         types.DefaultWorkers,
	"git.repo_dir":               "",
	"git.commit_message":         types.DefaultCommitMessage,
	"git.sync_interval":          types.DefaultSyncInterval,
	"server.addr":                types.DefaultAddr,
	"server.shutdown_timeout":    types.DefaultShutdownTimeout,
	"canteen.timeout":            types.DefaultDownloadTimeout,
	"canteen.user_agent":         types.DefaultUserAgent,
	"log.level":                  "info",
	"log.format":                 "text",
}

func initConfig() {
	if set, err := envfile.Load(".env"); err != nil {
		fmt.Fprintln(os.Stderr, "warning:", err)
	} else if len(set) > 0 {
		sort.Strings(set)
		fmt.Fprintf(os.Stderr, "Loaded .env: %v\n", set)
	}

	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("signage-workspace")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "signage-workspace"))
		}
	}

	for k, v := range configKeys {
		viper.SetDefault(k, v)
	}
	viper.SetEnvPrefix("SIGNAGE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	// WORKSPACE_PATH is the variable used by existing deployments.
	viper.BindEnv("workspace.dir", "SIGNAGE_WORKSPACE_DIR", "WORKSPACE_PATH")

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadConfig returns the effective configuration with defaults applied.
func loadConfig() (types.Config, error) {
	var cfg types.Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("reading configuration: %w", err)
	}
	cfg.Defaults()
	return cfg, nil
}

// newLogger builds the process logger on stderr.
func newLogger(c types.LogConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	if strings.EqualFold(c.Format, "json") {
		h = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		h = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(h)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
