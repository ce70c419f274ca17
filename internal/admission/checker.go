package admission

import (
	"errors"
	"fmt"
	"iter"
	"path/filepath"
	"strings"

	"ytqueue/internal/config"
	"ytqueue/internal/fileutil"
	"ytqueue/internal/queue"
	"ytqueue/internal/services"
	"ytqueue/internal/source"
)

// Reason identifies which admission rule rejected a candidate.
type Reason string

const (
	ReasonURLPrefix     Reason = "url_prefix"
	ReasonTargetDir     Reason = "target_dir"
	ReasonFormat        Reason = "format"
	ReasonAlreadyQueued Reason = "already_queued"
	ReasonFileExists    Reason = "file_exists"
	ReasonArchived      Reason = "archived"
	ReasonProbeFailed   Reason = "probe_failed"
)

// RejectionError reports why a candidate was refused. It matches
// services.ErrAdmissionRejected under errors.Is.
type RejectionError struct {
	Reason  Reason
	Message string
	Err     error
}

func (e *RejectionError) Error() string {
	msg := fmt.Sprintf("%s: %s", services.ErrAdmissionRejected, e.Message)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *RejectionError) Unwrap() []error {
	if e.Err == nil {
		return []error{services.ErrAdmissionRejected}
	}
	return []error{services.ErrAdmissionRejected, e.Err}
}

// ReasonOf extracts the rejection reason from err.
func ReasonOf(err error) (Reason, bool) {
	var rejection *RejectionError
	if errors.As(err, &rejection) {
		return rejection.Reason, true
	}
	return "", false
}

func reject(reason Reason, err error, format string, args ...any) error {
	return &RejectionError{Reason: reason, Message: fmt.Sprintf(format, args...), Err: err}
}

// FileProbe reports whether a directory already holds a file for a video.
// A missing directory must report false without error.
type FileProbe interface {
	HasFileContaining(dir, fragment string) (bool, error)
}

// ArchiveProbe reports whether a download archive records an entry.
// A missing archive must report false without error.
type ArchiveProbe interface {
	HasEntry(path, entry string) (bool, error)
}

// Candidate is a prospective job.
type Candidate struct {
	URL       string
	Format    string
	TargetDir string
}

// Options holds the configuration the checker consults.
type Options struct {
	URLPrefix   string
	TargetDirs  []string
	Formats     []config.Format
	ArchiveFile string
}

// OptionsFromConfig extracts checker options from cfg.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		URLPrefix:   cfg.Download.URLPrefix,
		TargetDirs:  append([]string(nil), cfg.Paths.TargetDirs...),
		Formats:     append([]config.Format(nil), cfg.Formats...),
		ArchiveFile: cfg.Download.ArchiveFile,
	}
}

// Checker evaluates admission rules.
type Checker struct {
	opts    Options
	files   FileProbe
	archive ArchiveProbe
}

// NewChecker builds a checker. Nil probes fall back to the filesystem.
func NewChecker(opts Options, files FileProbe, archive ArchiveProbe) *Checker {
	if files == nil {
		files = fileutil.DirProbe{}
	}
	if archive == nil {
		archive = fileutil.ArchiveReader{}
	}
	return &Checker{opts: opts, files: files, archive: archive}
}

// Check returns nil when candidate may be enqueued given the current queue
// snapshot, or a *RejectionError naming the first failing rule.
func (c *Checker) Check(candidate Candidate, snapshot iter.Seq[*queue.Job]) error {
	url := candidate.URL
	if url == "" || !source.HasPrefix(url, c.opts.URLPrefix) {
		return reject(ReasonURLPrefix, nil, "url must start with %s", c.opts.URLPrefix)
	}

	if !c.isTargetDir(candidate.TargetDir) {
		return reject(ReasonTargetDir, nil, "target dir %q is not configured", candidate.TargetDir)
	}

	if candidate.Format != "" {
		if matches := c.countFormat(candidate.Format); matches != 1 {
			return reject(ReasonFormat, nil, "format %q matches %d catalog entries", candidate.Format, matches)
		}
	}

	videoID := source.VideoID(url)
	if snapshot != nil {
		for job := range snapshot {
			if strings.Contains(job.URL, videoID) {
				return reject(ReasonAlreadyQueued, nil, "video %s is already queued as job %d", videoID, job.ID)
			}
		}
	}

	found, err := c.files.HasFileContaining(candidate.TargetDir, videoID)
	if err != nil {
		return reject(ReasonProbeFailed, err, "check existing files for %s", videoID)
	}
	if found {
		return reject(ReasonFileExists, nil, "a file for %s already exists in %s", videoID, candidate.TargetDir)
	}

	archivePath := filepath.Join(candidate.TargetDir, c.opts.ArchiveFile)
	archived, err := c.archive.HasEntry(archivePath, source.ArchiveEntry(videoID))
	if err != nil {
		return reject(ReasonProbeFailed, err, "read archive %s", archivePath)
	}
	if archived {
		return reject(ReasonArchived, nil, "video %s is recorded in %s", videoID, archivePath)
	}

	return nil
}

// CanAdmit reports whether Check accepts candidate.
func (c *Checker) CanAdmit(candidate Candidate, snapshot iter.Seq[*queue.Job]) bool {
	return c.Check(candidate, snapshot) == nil
}

func (c *Checker) isTargetDir(dir string) bool {
	if strings.TrimSpace(dir) == "" {
		return false
	}
	cleaned := filepath.Clean(dir)
	for _, configured := range c.opts.TargetDirs {
		if filepath.Clean(configured) == cleaned {
			return true
		}
	}
	return false
}

func (c *Checker) countFormat(label string) int {
	count := 0
	for _, format := range c.opts.Formats {
		if format.Label == label {
			count++
		}
	}
	return count
}
