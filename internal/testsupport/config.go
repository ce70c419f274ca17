package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"ytqueue/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields, disables pacing, and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.TargetDirs = []string{filepath.Join(base, "videos")}
	cfgVal.Paths.TempDir = filepath.Join(base, "tmp")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Formats = []config.Format{
		{Label: "video", Spec: "bestvideo+bestaudio"},
		{Label: "audio", Spec: "bestaudio"},
	}
	cfgVal.Pacing = config.Pacing{}
	cfgVal.Notifications.NtfyTopic = ""

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithTargetDirs replaces the target directories with names under the test base dir.
func WithTargetDirs(names ...string) ConfigOption {
	return func(b *configBuilder) {
		dirs := make([]string, 0, len(names))
		for _, name := range names {
			dirs = append(dirs, filepath.Join(b.baseDir, name))
		}
		b.cfg.Paths.TargetDirs = dirs
	}
}

// WithFormats replaces the format catalog.
func WithFormats(formats ...config.Format) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Formats = formats
	}
}

// WithPostProcessingAll turns on every post-processing step.
func WithPostProcessingAll() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.PostProcessing = config.PostProcessing{
			UnderscoresToSpaces:        true,
			RemoveAtSign:               true,
			AddNewlinesToDescription:   true,
			DeleteEmptyDescription:     true,
			RenameDescription:          true,
			RenameDescriptionSuffix:    ".txt",
			AddThumbSuffix:             true,
			SubtitlesDotsToUnderscores: true,
		}
	}
}

// WithNtfyTopic points notifications at the given topic URL.
func WithNtfyTopic(topic string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Notifications.NtfyTopic = topic
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, the default ytqueue external
// binaries are stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"yt-dlp", "ffmpeg"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte("#!/bin/sh\nexit 0\n")
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}

		oldPath := os.Getenv("PATH")
		if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
			b.t.Fatalf("set PATH: %v", err)
		}
		b.t.Cleanup(func() {
			_ = os.Setenv("PATH", oldPath)
		})
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
