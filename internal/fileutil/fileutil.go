// Package fileutil holds the small filesystem queries the queue relies on:
// finding files whose names mention a video id and scanning the download
// archive for an exact line.
package fileutil

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FilesContaining returns the regular files directly inside dir whose names
// contain fragment, sorted by name. A missing dir yields no files.
func FilesContaining(dir, fragment string) ([]string, error) {
	if fragment == "" {
		return nil, errors.New("empty name fragment")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read dir %q: %w", dir, err)
	}
	var matches []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.Contains(entry.Name(), fragment) {
			continue
		}
		matches = append(matches, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(matches)
	return matches, nil
}

// DirProbe answers file-presence questions against the real filesystem.
type DirProbe struct{}

// HasFileContaining reports whether dir has at least one file whose name
// contains fragment.
func (DirProbe) HasFileContaining(dir, fragment string) (bool, error) {
	matches, err := FilesContaining(dir, fragment)
	if err != nil {
		return false, err
	}
	return len(matches) > 0, nil
}

// ArchiveReader looks up entries in download archive files on disk.
type ArchiveReader struct{}

// HasEntry reports whether the archive at path records entry.
func (ArchiveReader) HasEntry(path, entry string) (bool, error) {
	return FileHasLine(path, entry)
}

// RemoveFilesContaining deletes every file in dir whose name contains
// fragment. Removal continues past individual failures; the returned error
// joins all of them.
func RemoveFilesContaining(dir, fragment string) ([]string, error) {
	matches, err := FilesContaining(dir, fragment)
	if err != nil {
		return nil, err
	}
	var removed []string
	var errs []error
	for _, path := range matches {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, fmt.Errorf("remove %q: %w", path, err))
			continue
		}
		removed = append(removed, path)
	}
	return removed, errors.Join(errs...)
}

// FileHasLine reports whether path contains a line exactly equal to line,
// ignoring a trailing carriage return. A missing file has no lines.
func FileHasLine(path, line string) (bool, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("open %q: %w", path, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if strings.TrimSuffix(scanner.Text(), "\r") == line {
			return true, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return false, fmt.Errorf("scan %q: %w", path, err)
	}
	return false, nil
}
