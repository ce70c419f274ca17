package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	TargetDirs []string `toml:"target_dirs"`
	TempDir    string   `toml:"temp_dir"`
	StateDir   string   `toml:"state_dir"`
	LogDir     string   `toml:"log_dir"`
}

// Download contains settings passed to the yt-dlp client.
type Download struct {
	Binary         string   `toml:"binary"`
	URLPrefix      string   `toml:"url_prefix"`
	ArchiveFile    string   `toml:"archive_file"`
	CleanupURL     bool     `toml:"cleanup_url"`
	DryRun         bool     `toml:"dry_run"`
	OutputTemplate string   `toml:"output_template"`
	ExtraArgs      []string `toml:"extra_args"`
}

// Format is one entry of the format catalog: a human label and the yt-dlp
// format selector it stands for.
type Format struct {
	Label string `toml:"label"`
	Spec  string `toml:"spec"`
}

// Pacing bounds the random pause inserted between consecutive downloads.
type Pacing struct {
	MinSeconds float64 `toml:"min_seconds"`
	MaxSeconds float64 `toml:"max_seconds"`
}

// PostProcessing toggles the cleanup steps applied after a download.
type PostProcessing struct {
	UnderscoresToSpaces        bool   `toml:"underscores_to_spaces"`
	RemoveAtSign               bool   `toml:"remove_at_sign"`
	AddNewlinesToDescription   bool   `toml:"add_newlines_to_description"`
	DeleteEmptyDescription     bool   `toml:"delete_empty_description"`
	RenameDescription          bool   `toml:"rename_description"`
	RenameDescriptionSuffix    string `toml:"rename_description_suffix"`
	AddThumbSuffix             bool   `toml:"add_thumb_suffix"`
	SubtitlesDotsToUnderscores bool   `toml:"subtitles_dots_to_underscores"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	QueueEmpty     bool   `toml:"queue_empty"`
	Errors         bool   `toml:"errors"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for ytqueue.
//
// Configuration sections by subsystem:
//   - Paths: download destinations plus daemon state, temp, and log directories
//   - Download: yt-dlp binary, URL prefix, archive file, and output template
//   - Formats: the labelled format catalog offered to clients
//   - Pacing: bounds of the pause between downloads
//   - PostProcessing: renaming and description cleanup toggles
//   - Notifications: ntfy push notification settings
//   - Logging: log format and level
type Config struct {
	Paths          Paths          `toml:"paths"`
	Download       Download       `toml:"download"`
	Formats        []Format       `toml:"formats"`
	Pacing         Pacing         `toml:"pacing"`
	PostProcessing PostProcessing `toml:"postprocessing"`
	Notifications  Notifications  `toml:"notifications"`
	Logging        Logging        `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigRelativePath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized. A .env file next to the config is loaded first
// without overriding variables already present in the environment.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if err := loadDotEnv(filepath.Join(filepath.Dir(resolvedPath), ".env")); err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func loadDotEnv(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat env file: %w", err)
	}
	if info.IsDir() {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %q: %w", path, err)
	}
	return nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigRelativePath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs(defaultProjectConfigFilename)
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
// Target directories are created on a best-effort basis so the daemon can run
// when external storage is temporarily unavailable.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir, c.Paths.TempDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	for _, dir := range c.Paths.TargetDirs {
		_ = os.MkdirAll(dir, 0o755)
	}
	return nil
}

// YTDLPBinary returns the downloader executable name or path.
func (c *Config) YTDLPBinary() string {
	if binary := strings.TrimSpace(c.Download.Binary); binary != "" {
		return binary
	}
	return defaultBinary
}

// FFmpegBinary returns the ffmpeg executable name yt-dlp relies on for merging.
func (c *Config) FFmpegBinary() string {
	return "ffmpeg"
}

// SocketPath returns the daemon's IPC socket path.
func (c *Config) SocketPath() string {
	return filepath.Join(c.Paths.StateDir, "ytqueue.sock")
}

// LockPath returns the daemon's single-instance lock path.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "ytqueue.lock")
}

// PIDPath returns the daemon pid file path.
func (c *Config) PIDPath() string {
	return filepath.Join(c.Paths.StateDir, "ytqueue.pid")
}

// QueueDBPath returns the queue journal database path.
func (c *Config) QueueDBPath() string {
	return filepath.Join(c.Paths.StateDir, "queue.db")
}

// DaemonLogPath returns the JSON log file written by the daemon.
func (c *Config) DaemonLogPath() string {
	return filepath.Join(c.Paths.LogDir, "ytqueue.log")
}

// ArchivePath returns the download archive path inside targetDir.
func (c *Config) ArchivePath(targetDir string) string {
	return filepath.Join(targetDir, c.Download.ArchiveFile)
}

// IsTargetDir reports whether dir is one of the configured destinations.
func (c *Config) IsTargetDir(dir string) bool {
	cleaned := filepath.Clean(strings.TrimSpace(dir))
	if cleaned == "." || cleaned == "" {
		return false
	}
	for _, candidate := range c.Paths.TargetDirs {
		if candidate == cleaned {
			return true
		}
	}
	return false
}

// DefaultTargetDir returns the first configured destination.
func (c *Config) DefaultTargetDir() string {
	if len(c.Paths.TargetDirs) == 0 {
		return ""
	}
	return c.Paths.TargetDirs[0]
}

// DefaultFormat returns the first catalog label.
func (c *Config) DefaultFormat() string {
	if len(c.Formats) == 0 {
		return ""
	}
	return c.Formats[0].Label
}

// FormatMatches returns the catalog entries whose label equals label.
func (c *Config) FormatMatches(label string) []Format {
	var matches []Format
	for _, format := range c.Formats {
		if format.Label == label {
			matches = append(matches, format)
		}
	}
	return matches
}

// FormatSpec resolves a catalog label to its yt-dlp selector.
func (c *Config) FormatSpec(label string) (string, bool) {
	matches := c.FormatMatches(label)
	if len(matches) != 1 {
		return "", false
	}
	return matches[0].Spec, true
}

// PacingBounds returns the pacing interval as durations.
func (c *Config) PacingBounds() (time.Duration, time.Duration) {
	return secondsToDuration(c.Pacing.MinSeconds), secondsToDuration(c.Pacing.MaxSeconds)
}

// NotifyTimeout returns the ntfy request timeout.
func (c *Config) NotifyTimeout() time.Duration {
	return time.Duration(c.Notifications.RequestTimeout) * time.Second
}

func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
