package postprocess

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"ytqueue/internal/config"
	"ytqueue/internal/fileutil"
	"ytqueue/internal/logging"
	"ytqueue/internal/services"
)

var (
	titlePattern    = regexp.MustCompile(`[0-9]{8} (.*) {2}[0-9]*x[0-9]* `)
	subtitlePattern = regexp.MustCompile(`\.(..)\.vtt`)
	thumbSuffixes   = []string{".jpg", ".png", ".webp"}
)

const descriptionMarker = ".description"

// Rename records a single file rename.
type Rename struct {
	From string
	To   string
}

// Result summarizes one post-processing pass.
type Result struct {
	Title    string
	HasTitle bool
	Renamed  []Rename
	Removed  []string
	Faults   []error
}

// Err joins the per-file faults, or returns nil when there were none.
func (r Result) Err() error {
	return errors.Join(r.Faults...)
}

// Processor applies the configured post-processing steps.
type Processor struct {
	opts   config.PostProcessing
	logger *slog.Logger
}

// New constructs a Processor.
func New(opts config.PostProcessing, logger *slog.Logger) *Processor {
	return &Processor{opts: opts, logger: logging.NewComponentLogger(logger, "postprocess")}
}

// Process handles every file in targetDir whose name contains videoID.
func (p *Processor) Process(ctx context.Context, videoID, targetDir string) Result {
	var result Result
	logger := logging.WithContext(ctx, p.logger)

	files, err := fileutil.FilesContaining(targetDir, videoID)
	if err != nil {
		result.Faults = append(result.Faults, p.fault(logger, "list files", targetDir, err))
		return result
	}
	if len(files) == 0 {
		logger.Debug("no files to post-process", logging.String("target_dir", targetDir))
		return result
	}

	oldTitle, found := titleFromFiles(files)
	if found {
		result.Title = p.TransformTitle(oldTitle)
		result.HasTitle = true
	}

	descriptionName := videoID + descriptionMarker
	remaining := files[:0:0]
	for _, path := range files {
		if !strings.Contains(filepath.Base(path), descriptionName) {
			remaining = append(remaining, path)
			continue
		}
		removed, err := p.handleDescription(path)
		if err != nil {
			result.Faults = append(result.Faults, p.fault(logger, "description", path, err))
		}
		if removed {
			result.Removed = append(result.Removed, path)
			continue
		}
		remaining = append(remaining, path)
	}

	if !found {
		return result
	}

	for _, path := range remaining {
		dir, name := filepath.Split(path)
		newName := p.RenameFile(name, oldTitle, result.Title)
		if newName == name {
			continue
		}
		target := filepath.Join(dir, newName)
		if err := os.Rename(path, target); err != nil {
			result.Faults = append(result.Faults, p.fault(logger, "rename", path, err))
			continue
		}
		result.Renamed = append(result.Renamed, Rename{From: path, To: target})
	}

	logger.Info("post-processing complete",
		logging.String("title", result.Title),
		logging.Int("renamed", len(result.Renamed)),
		logging.Int("removed", len(result.Removed)),
		logging.Int("faults", len(result.Faults)),
	)
	return result
}

func (p *Processor) handleDescription(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	if info.Size() == 0 {
		if !p.opts.DeleteEmptyDescription {
			return false, nil
		}
		if err := os.Remove(path); err != nil {
			return false, err
		}
		return true, nil
	}
	if !p.opts.AddNewlinesToDescription {
		return false, nil
	}
	file, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0)
	if err != nil {
		return false, err
	}
	if _, err := file.WriteString("\n\n"); err != nil {
		_ = file.Close()
		return false, err
	}
	return false, file.Close()
}

func (p *Processor) fault(logger *slog.Logger, operation, path string, err error) error {
	wrapped := services.Wrap(services.ErrPostProcessing, "postprocess", operation, path, err)
	logging.WarnWithContext(logger, "post-processing step failed", "postprocess_fault",
		logging.String("operation", operation),
		logging.String("path", path),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "fix file permissions and rename manually if needed"),
		logging.String(logging.FieldImpact, "download kept; file left with its original name"),
	)
	return fmt.Errorf("%s: %w", filepath.Base(path), wrapped)
}

// titleFromFiles returns the first title found among files. Sidecars such
// as a title-less description may sort ahead of the media file.
func titleFromFiles(files []string) (string, bool) {
	for _, path := range files {
		if title, ok := ExtractTitle(filepath.Base(path)); ok {
			return title, true
		}
	}
	return "", false
}

// ExtractTitle pulls the title out of a file name produced by the default
// output template, using the last match in name.
func ExtractTitle(name string) (string, bool) {
	matches := titlePattern.FindAllStringSubmatch(name, -1)
	if len(matches) == 0 {
		return "", false
	}
	return matches[len(matches)-1][1], true
}

// TransformTitle applies the enabled title clean-ups: underscores become
// spaces, then a single leading '@' is dropped.
func (p *Processor) TransformTitle(title string) string {
	if p.opts.UnderscoresToSpaces {
		title = strings.ReplaceAll(title, "_", " ")
	}
	if p.opts.RemoveAtSign {
		title = strings.TrimPrefix(title, "@")
	}
	return title
}

// RenameFile computes the new base name for name.
func (p *Processor) RenameFile(name, oldTitle, newTitle string) string {
	if oldTitle != "" {
		name = strings.ReplaceAll(name, oldTitle, newTitle)
	}
	if p.opts.RenameDescription {
		name = strings.ReplaceAll(name, descriptionMarker, p.opts.RenameDescriptionSuffix)
	}
	if p.opts.AddThumbSuffix {
		for _, ext := range thumbSuffixes {
			if strings.HasSuffix(name, ext) && !strings.HasSuffix(name, "_thumb"+ext) {
				name = strings.TrimSuffix(name, ext) + "_thumb" + ext
				break
			}
		}
	}
	if p.opts.SubtitlesDotsToUnderscores {
		name = subtitlePattern.ReplaceAllString(name, "_${1}.vtt")
	}
	return name
}
