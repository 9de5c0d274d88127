package types

import (
	"path/filepath"
	"time"
)

// WorkspaceConfig locates the workspace tree and the local state directory.
type WorkspaceConfig struct {
	// Dir is the WORKSPACE root; each subdirectory is one team.
	Dir string `json:"dir" yaml:"dir" toml:"dir" mapstructure:"dir"`

	// StateDir holds the history database and the selected display team.
	StateDir string `json:"state_dir" yaml:"state_dir" toml:"state_dir" mapstructure:"state_dir"`

	// MaxUploadSize caps multipart uploads in bytes (default 512 MiB).
	MaxUploadSize int64 `json:"max_upload_size" yaml:"max_upload_size" toml:"max_upload_size" mapstructure:"max_upload_size"`
}

// ConversionConfig holds settings for the document conversion pipeline.
type ConversionConfig struct {
	// OfficeBinaries are extra document-suite executables tried before the
	// built-in candidates (e.g. "/opt/libreoffice7.6/program/soffice").
	OfficeBinaries []string `json:"office_binaries,omitempty" yaml:"office_binaries,omitempty" toml:"office_binaries,omitempty" mapstructure:"office_binaries"`

	// OfficeTimeout bounds one document-suite invocation (default 120s).
	OfficeTimeout time.Duration `json:"office_timeout" yaml:"office_timeout" toml:"office_timeout" mapstructure:"office_timeout"`

	// Rasterizers lists the PDF rasterizer backends in preference order
	// (default: pdftoppm, mutool).
	Rasterizers []string `json:"rasterizers,omitempty" yaml:"rasterizers,omitempty" toml:"rasterizers,omitempty" mapstructure:"rasterizers"`

	// RenderTimeout bounds the rendering of a single page (default 60s).
	RenderTimeout time.Duration `json:"render_timeout" yaml:"render_timeout" toml:"render_timeout" mapstructure:"render_timeout"`

	// DPI is the rasterization density (default 150).
	DPI int `json:"dpi" yaml:"dpi" toml:"dpi" mapstructure:"dpi"`

	// Workers bounds concurrent page renders (default 4).
	Workers int `json:"workers" yaml:"workers" toml:"workers" mapstructure:"workers"`
}

// GitConfig holds settings for workspace synchronization.
type GitConfig struct {
	// RepoDir is the git working tree containing the workspace
	// (default: parent of the workspace directory).
	RepoDir string `json:"repo_dir" yaml:"repo_dir" toml:"repo_dir" mapstructure:"repo_dir"`

	// CommitMessage is used by push when committing workspace changes.
	CommitMessage string `json:"commit_message" yaml:"commit_message" toml:"commit_message" mapstructure:"commit_message"`

	// SyncInterval is the period of the background pull run by serve.
	// Zero disables background sync.
	SyncInterval time.Duration `json:"sync_interval" yaml:"sync_interval" toml:"sync_interval" mapstructure:"sync_interval"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Addr string `json:"addr" yaml:"addr" toml:"addr" mapstructure:"addr"`

	// ShutdownTimeout bounds graceful shutdown (default 10s).
	ShutdownTimeout time.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout" toml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
}

// CanteenConfig holds settings for the canteen menu refresh.
type CanteenConfig struct {
	// Timeout is the HTTP request timeout for PDF downloads (default 60s).
	Timeout time.Duration `json:"timeout" yaml:"timeout" toml:"timeout" mapstructure:"timeout"`

	// UserAgent is sent with download requests.
	UserAgent string `json:"user_agent" yaml:"user_agent" toml:"user_agent" mapstructure:"user_agent"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	// Level is one of debug, info, warn, error (default info).
	Level string `json:"level" yaml:"level" toml:"level" mapstructure:"level"`

	// Format is text or json (default text).
	Format string `json:"format" yaml:"format" toml:"format" mapstructure:"format"`
}

// Config groups all settings for the workspace manager.
type Config struct {
	Workspace  WorkspaceConfig  `json:"workspace" yaml:"workspace" toml:"workspace" mapstructure:"workspace"`
	Conversion ConversionConfig `json:"conversion" yaml:"conversion" toml:"conversion" mapstructure:"conversion"`
	Git        GitConfig        `json:"git" yaml:"git" toml:"git" mapstructure:"git"`
	Server     ServerConfig     `json:"server" yaml:"server" toml:"server" mapstructure:"server"`
	Canteen    CanteenConfig    `json:"canteen" yaml:"canteen" toml:"canteen" mapstructure:"canteen"`
	Log        LogConfig        `json:"log" yaml:"log" toml:"log" mapstructure:"log"`
}

const (
	DefaultWorkspaceDir    = "WORKSPACE"
	DefaultStateDir        = ".signage"
	DefaultMaxUploadSize   = 512 << 20
	DefaultOfficeTimeout   = 120 * time.Second
	DefaultRenderTimeout   = 60 * time.Second
	DefaultDPI             = 150
	DefaultWorkers         = 4
	DefaultCommitMessage   = "Dashboard: update workspace"
	DefaultSyncInterval    = 15 * time.Minute
	DefaultAddr            = "127.0.0.1:5000"
	DefaultShutdownTimeout = 10 * time.Second
	DefaultDownloadTimeout = 60 * time.Second
	DefaultUserAgent       = "signage-workspace/0.1"
)

// DefaultRasterizers is the rasterizer preference order used when none is configured.
var DefaultRasterizers = []string{"pdftoppm", "mutool"}

// Defaults fills zero-valued fields. Relative workspace paths are made
// absolute so that later path-containment checks compare like with like.
func (c *Config) Defaults() {
	if c.Workspace.Dir == "" {
		c.Workspace.Dir = DefaultWorkspaceDir
	}
	if abs, err := filepath.Abs(c.Workspace.Dir); err == nil {
		c.Workspace.Dir = abs
	}
	if c.Workspace.StateDir == "" {
		c.Workspace.StateDir = filepath.Join(filepath.Dir(c.Workspace.Dir), DefaultStateDir)
	}
	if c.Workspace.MaxUploadSize <= 0 {
		c.Workspace.MaxUploadSize = DefaultMaxUploadSize
	}

	if c.Conversion.OfficeTimeout <= 0 {
		c.Conversion.OfficeTimeout = DefaultOfficeTimeout
	}
	if len(c.Conversion.Rasterizers) == 0 {
		c.Conversion.Rasterizers = append([]string(nil), DefaultRasterizers...)
	}
	if c.Conversion.RenderTimeout <= 0 {
		c.Conversion.RenderTimeout = DefaultRenderTimeout
	}
	if c.Conversion.DPI <= 0 {
		c.Conversion.DPI = DefaultDPI
	}
	if c.Conversion.Workers <= 0 {
		c.Conversion.Workers = DefaultWorkers
	}

	if c.Git.RepoDir == "" {
		c.Git.RepoDir = filepath.Dir(c.Workspace.Dir)
	}
	if c.Git.CommitMessage == "" {
		c.Git.CommitMessage = DefaultCommitMessage
	}

	if c.Server.Addr == "" {
		c.Server.Addr = DefaultAddr
	}
	if c.Server.ShutdownTimeout <= 0 {
		c.Server.ShutdownTimeout = DefaultShutdownTimeout
	}

	if c.Canteen.Timeout <= 0 {
		c.Canteen.Timeout = DefaultDownloadTimeout
	}
	if c.Canteen.UserAgent == "" {
		c.Canteen.UserAgent = DefaultUserAgent
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}
