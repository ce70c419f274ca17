package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateDownload(); err != nil {
		return err
	}
	if err := c.validateFormats(); err != nil {
		return err
	}
	if err := c.validatePacing(); err != nil {
		return err
	}
	if err := c.validatePostProcessing(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if len(c.Paths.TargetDirs) == 0 {
		return errors.New("paths.target_dirs must contain at least one directory")
	}
	if c.Paths.StateDir == "" {
		return errors.New("paths.state_dir must be set")
	}
	if c.Paths.TempDir == "" {
		return errors.New("paths.temp_dir must be set")
	}
	// The temp dir is swept at startup, so it must not share a tree with
	// finished downloads or daemon state.
	guarded := append([]string{c.Paths.StateDir}, c.Paths.TargetDirs...)
	for _, dir := range guarded {
		if pathsOverlap(c.Paths.TempDir, dir) {
			return fmt.Errorf("paths.temp_dir %q must not overlap %q", c.Paths.TempDir, dir)
		}
	}
	return nil
}

// pathsOverlap reports whether a and b are the same directory or one
// contains the other.
func pathsOverlap(a, b string) bool {
	a, b = filepath.Clean(a), filepath.Clean(b)
	if a == b {
		return true
	}
	return within(a, b) || within(b, a)
}

func within(child, parent string) bool {
	rel, err := filepath.Rel(parent, child)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func (c *Config) validateDownload() error {
	if c.Download.URLPrefix == "" {
		return errors.New("download.url_prefix must be set")
	}
	if strings.ContainsAny(c.Download.ArchiveFile, `/\`) {
		return errors.New("download.archive_file must be a bare file name")
	}
	if !strings.Contains(c.Download.OutputTemplate, "%(id)s") {
		return errors.New("download.output_template must include %(id)s so files can be matched to their video")
	}
	return nil
}

func (c *Config) validateFormats() error {
	seen := make(map[string]struct{}, len(c.Formats))
	for i, format := range c.Formats {
		if format.Label == "" {
			return fmt.Errorf("formats[%d].label must be set", i)
		}
		if format.Spec == "" {
			return fmt.Errorf("formats[%d].spec must be set", i)
		}
		if _, dup := seen[format.Label]; dup {
			return fmt.Errorf("formats[%d].label %q must be unique", i, format.Label)
		}
		seen[format.Label] = struct{}{}
	}
	return nil
}

func (c *Config) validatePacing() error {
	if c.Pacing.MinSeconds < 0 {
		return errors.New("pacing.min_seconds must be non-negative")
	}
	if c.Pacing.MaxSeconds < c.Pacing.MinSeconds {
		return errors.New("pacing.max_seconds must be greater than or equal to pacing.min_seconds")
	}
	return nil
}

func (c *Config) validatePostProcessing() error {
	suffix := c.PostProcessing.RenameDescriptionSuffix
	if !strings.HasPrefix(suffix, ".") {
		return errors.New("postprocessing.rename_description_suffix must start with '.'")
	}
	if strings.ContainsAny(suffix, `/\`) {
		return errors.New("postprocessing.rename_description_suffix must not contain path separators")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}
