package deps

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	script := []byte("#!/bin/sh\nexit 0\n")
	if err := os.WriteFile(present, script, 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Unset", Command: "  ", Optional: true},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}
	if !results[0].Available || results[0].Detail != "" {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}
	if results[1].Available || results[1].Detail == "" {
		t.Fatalf("expected missing binary to be unavailable with detail, got %#v", results[1])
	}
	if results[1].Command != "clearly-not-present-binary" {
		t.Fatalf("unexpected command recorded: %s", results[1].Command)
	}
	if results[2].Detail != "command not configured" {
		t.Fatalf("unexpected detail for unset command: %q", results[2].Detail)
	}
	if got := MissingRequired(results); got != 1 {
		t.Fatalf("expected 1 missing required dependency, got %d", got)
	}
}

func TestCheckFFmpegPrefersSidecar(t *testing.T) {
	tmp := t.TempDir()
	ytdlpPath := filepath.Join(tmp, executableName("yt-dlp"))
	ffmpegPath := filepath.Join(tmp, executableName("ffmpeg"))
	script := []byte("#!/bin/sh\nexit 0\n")
	if err := os.WriteFile(ytdlpPath, script, 0o755); err != nil {
		t.Fatalf("write yt-dlp stub: %v", err)
	}
	if err := os.WriteFile(ffmpegPath, script, 0o755); err != nil {
		t.Fatalf("write ffmpeg sidecar: %v", err)
	}

	status := CheckFFmpeg(ytdlpPath, "ffmpeg")
	if !status.Available {
		t.Fatalf("expected ffmpeg sidecar to be available, got detail %q", status.Detail)
	}
	if status.Command != ffmpegPath {
		t.Fatalf("expected ffmpeg command %q, got %q", ffmpegPath, status.Command)
	}
	if !status.Optional {
		t.Fatal("expected ffmpeg to be optional")
	}
}

func TestCheckFFmpegPathFallback(t *testing.T) {
	tmp := t.TempDir()
	ytdlpPath := filepath.Join(tmp, executableName("yt-dlp"))
	script := []byte("#!/bin/sh\nexit 0\n")
	if err := os.WriteFile(ytdlpPath, script, 0o755); err != nil {
		t.Fatalf("write yt-dlp stub: %v", err)
	}

	binDir := filepath.Join(tmp, "bin")
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		t.Fatalf("mkdir bin: %v", err)
	}
	ffmpegPath := filepath.Join(binDir, executableName("ffmpeg"))
	if err := os.WriteFile(ffmpegPath, script, 0o755); err != nil {
		t.Fatalf("write ffmpeg stub: %v", err)
	}
	t.Setenv("PATH", binDir)

	status := CheckFFmpeg(ytdlpPath, "ffmpeg")
	if !status.Available {
		t.Fatalf("expected ffmpeg fallback to be available, got detail %q", status.Detail)
	}
	if status.Command != ffmpegPath {
		t.Fatalf("expected ffmpeg command %q, got %q", ffmpegPath, status.Command)
	}
}

func TestCheckFFmpegNotFound(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("PATH", "")
	status := CheckFFmpeg(filepath.Join(tmp, executableName("yt-dlp")), "")
	if status.Available {
		t.Fatal("expected ffmpeg resolution to fail")
	}
	if status.Command != "ffmpeg" || status.Detail == "" {
		t.Fatalf("unexpected status: %#v", status)
	}
}
