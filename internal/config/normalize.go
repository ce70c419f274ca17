package config

import (
	"fmt"
	"os"
	"slices"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeDownload()
	c.normalizeFormats()
	c.normalizePostProcessing()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if len(c.Paths.TargetDirs) == 0 {
		c.Paths.TargetDirs = []string{defaultTargetDir}
	}
	dirs := make([]string, 0, len(c.Paths.TargetDirs))
	for i, dir := range c.Paths.TargetDirs {
		dir = strings.TrimSpace(dir)
		if dir == "" {
			continue
		}
		expanded, err := expandPath(dir)
		if err != nil {
			return fmt.Errorf("paths.target_dirs[%d]: %w", i, err)
		}
		if !slices.Contains(dirs, expanded) {
			dirs = append(dirs, expanded)
		}
	}
	c.Paths.TargetDirs = dirs

	if strings.TrimSpace(c.Paths.TempDir) == "" {
		c.Paths.TempDir = defaultTempDir
	}
	if c.Paths.TempDir, err = expandPath(c.Paths.TempDir); err != nil {
		return fmt.Errorf("paths.temp_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeDownload() {
	c.Download.Binary = strings.TrimSpace(c.Download.Binary)
	if value, ok := os.LookupEnv("YTQUEUE_YTDLP_BINARY"); ok && strings.TrimSpace(value) != "" && c.Download.Binary == defaultBinary {
		c.Download.Binary = strings.TrimSpace(value)
	}
	if c.Download.Binary == "" {
		c.Download.Binary = defaultBinary
	}
	if c.Download.URLPrefix == "" {
		c.Download.URLPrefix = defaultURLPrefix
	}
	c.Download.ArchiveFile = strings.TrimSpace(c.Download.ArchiveFile)
	if c.Download.ArchiveFile == "" {
		c.Download.ArchiveFile = defaultArchiveFile
	}
	if strings.TrimSpace(c.Download.OutputTemplate) == "" {
		c.Download.OutputTemplate = defaultOutputTemplate
	}
	args := c.Download.ExtraArgs[:0]
	for _, arg := range c.Download.ExtraArgs {
		if trimmed := strings.TrimSpace(arg); trimmed != "" {
			args = append(args, trimmed)
		}
	}
	c.Download.ExtraArgs = args
}

func (c *Config) normalizeFormats() {
	if len(c.Formats) == 0 {
		c.Formats = defaultFormats()
		return
	}
	for i := range c.Formats {
		c.Formats[i].Label = strings.TrimSpace(c.Formats[i].Label)
		c.Formats[i].Spec = strings.TrimSpace(c.Formats[i].Spec)
	}
}

func (c *Config) normalizePostProcessing() {
	c.PostProcessing.RenameDescriptionSuffix = strings.TrimSpace(c.PostProcessing.RenameDescriptionSuffix)
	if c.PostProcessing.RenameDescriptionSuffix == "" {
		c.PostProcessing.RenameDescriptionSuffix = defaultDescriptionSuffix
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("YTQUEUE_NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if value, ok := os.LookupEnv("YTQUEUE_LOG_LEVEL"); ok && strings.TrimSpace(value) != "" {
		c.Logging.Level = strings.ToLower(strings.TrimSpace(value))
	}
}
