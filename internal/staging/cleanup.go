// Package staging tidies the yt-dlp temp directory. Interrupted downloads
// leave .part and fragment files behind; they are never resumed by a later
// attempt once the daemon restarts, so they are swept at startup.
package staging

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ytqueue/internal/logging"
)

// DefaultMaxAge is how old a temp entry must be before it is swept.
const DefaultMaxAge = 24 * time.Hour

// SweepResult contains the outcome of a temp directory sweep.
type SweepResult struct {
	Removed []string
	Freed   int64
	Errors  []SweepError
}

// SweepError pairs a path with its removal error.
type SweepError struct {
	Path  string
	Error error
}

// Sweep removes yt-dlp temp artifacts in tempDir older than maxAge. Other
// entries are never touched. Entries whose name contains one of the keep
// video IDs are left alone so a download in flight is never disturbed.
func Sweep(ctx context.Context, tempDir string, maxAge time.Duration, keep []string, logger *slog.Logger) SweepResult {
	var result SweepResult

	tempDir = strings.TrimSpace(tempDir)
	if tempDir == "" {
		return result
	}
	entries, err := os.ReadDir(tempDir)
	if err != nil {
		if !os.IsNotExist(err) {
			result.Errors = append(result.Errors, SweepError{Path: tempDir, Error: err})
		}
		return result
	}

	cutoff := time.Now().Add(-maxAge)
	for _, entry := range entries {
		if ctx.Err() != nil {
			break
		}
		if !isTempArtifact(entry.Name()) || kept(entry.Name(), keep) {
			continue
		}
		path := filepath.Join(tempDir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			result.Errors = append(result.Errors, SweepError{Path: path, Error: err})
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}

		size := info.Size()
		if entry.IsDir() {
			size = dirSize(path)
		}
		if err := os.RemoveAll(path); err != nil {
			result.Errors = append(result.Errors, SweepError{Path: path, Error: err})
			if logger != nil {
				logger.Warn("failed to remove stale temp entry",
					logging.String("path", path),
					logging.Error(err),
					logging.String(logging.FieldEventType, "temp_sweep_failed"),
					logging.String(logging.FieldErrorHint, "check temp_dir permissions"),
					logging.String(logging.FieldImpact, "disk space not reclaimed"),
				)
			}
			continue
		}
		result.Removed = append(result.Removed, path)
		result.Freed += size
	}

	if logger != nil && len(result.Removed) > 0 {
		logger.Info("swept stale temp entries",
			logging.Int("removed", len(result.Removed)),
			logging.Int64("freed_bytes", result.Freed),
			logging.String(logging.FieldEventType, "temp_sweep"),
		)
	}
	return result
}

// isTempArtifact matches the partial files yt-dlp writes while downloading:
// .part and .ytdl state, .temp merges and fragment files or directories.
func isTempArtifact(name string) bool {
	lower := strings.ToLower(name)
	for _, suffix := range []string{".part", ".ytdl", ".temp"} {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	return strings.Contains(lower, ".frag")
}

func kept(name string, keep []string) bool {
	for _, id := range keep {
		if id != "" && strings.Contains(name, id) {
			return true
		}
	}
	return false
}

func dirSize(path string) int64 {
	var size int64
	_ = filepath.WalkDir(path, func(_ string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			if info, infoErr := d.Info(); infoErr == nil {
				size += info.Size()
			}
		}
		return nil
	})
	return size
}
