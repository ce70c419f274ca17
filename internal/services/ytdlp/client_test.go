package ytdlp_test

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"ytqueue/internal/services"
	"ytqueue/internal/services/ytdlp"
)

type stubExecutor struct {
	lines  []string
	err    error
	calls  int
	binary string
	args   [][]string
}

func (s *stubExecutor) Run(ctx context.Context, binary string, args []string, onLine func(string)) error {
	s.calls++
	s.binary = binary
	cloned := append([]string(nil), args...)
	s.args = append(s.args, cloned)
	for _, line := range s.lines {
		onLine(line)
	}
	return s.err
}

func sampleRequest() ytdlp.Request {
	return ytdlp.Request{
		URL:         "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		TargetDir:   "/videos",
		FormatSpec:  "bv+ba",
		ArchivePath: "/videos/downloaded.txt",
		TempDir:     "/tmp/ytq",
	}
}

func TestArgsOrderAndExtraArgsCopy(t *testing.T) {
	extra := []string{"--write-description", "--write-thumbnail"}
	client, err := ytdlp.New("yt-dlp", "%(title)s [%(id)s].%(ext)s", extra)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	extra[0] = "--mutated"

	got := client.Args(sampleRequest())
	want := []string{
		"--newline",
		"-f", "bv+ba",
		"--download-archive", "/videos/downloaded.txt",
		"-P", "home:/videos",
		"-P", "temp:/tmp/ytq",
		"-o", "%(title)s [%(id)s].%(ext)s",
		"--write-description", "--write-thumbnail",
		"https://www.youtube.com/watch?v=dQw4w9WgXcQ",
	}
	if !slices.Equal(got, want) {
		t.Fatalf("unexpected args:\n got %v\nwant %v", got, want)
	}

	second := client.Args(ytdlp.Request{URL: "u2", TargetDir: "/music"})
	if slices.Contains(second, "bv+ba") || slices.Contains(second, "--download-archive") {
		t.Fatalf("per-job args leaked into next request: %v", second)
	}
}

func TestDownloadForwardsProgress(t *testing.T) {
	exec := &stubExecutor{lines: []string{"[download]   1.0%", "[download] 100%"}}
	client, err := ytdlp.New("yt-dlp", "", nil, ytdlp.WithExecutor(exec))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	var seen []string
	if err := client.Download(context.Background(), sampleRequest(), func(line string) { seen = append(seen, line) }); err != nil {
		t.Fatalf("Download failed: %v", err)
	}
	if len(seen) != 2 || exec.binary != "yt-dlp" {
		t.Fatalf("unexpected progress %v binary %q", seen, exec.binary)
	}
}

func TestDownloadFaultCarriesLastLine(t *testing.T) {
	exec := &stubExecutor{
		lines: []string{"[youtube] dQw4w9WgXcQ: Downloading webpage", "ERROR: Video unavailable", ""},
		err:   errors.New("wait command: exit status 1"),
	}
	client, err := ytdlp.New("yt-dlp", "", nil, ytdlp.WithExecutor(exec))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	err = client.Download(context.Background(), sampleRequest(), nil)
	if !errors.Is(err, services.ErrDownloadFault) {
		t.Fatalf("expected download fault, got %v", err)
	}
	if !strings.Contains(err.Error(), "ERROR: Video unavailable") {
		t.Fatalf("expected last line in error, got %v", err)
	}
}

func TestDownloadFaultReportsExitCode(t *testing.T) {
	runErr := exec.Command("sh", "-c", "exit 3").Run()
	stub := &stubExecutor{err: runErr}
	client, err := ytdlp.New("yt-dlp", "", nil, ytdlp.WithExecutor(stub))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	err = client.Download(context.Background(), sampleRequest(), nil)
	if err == nil || !strings.Contains(err.Error(), "code 3") {
		t.Fatalf("expected exit code in error, got %v", err)
	}
}

func TestDryRunSkipsExecution(t *testing.T) {
	exec := &stubExecutor{err: errors.New("should not run")}
	client, err := ytdlp.New("yt-dlp", "", nil, ytdlp.WithExecutor(exec), ytdlp.WithDryRun(true))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := client.Download(context.Background(), sampleRequest(), nil); err != nil {
		t.Fatalf("expected dry run to succeed, got %v", err)
	}
	if exec.calls != 0 {
		t.Fatalf("expected no executor calls, got %d", exec.calls)
	}
}

func TestDownloadValidatesRequest(t *testing.T) {
	client, err := ytdlp.New("yt-dlp", "", nil, ytdlp.WithExecutor(&stubExecutor{}))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := client.Download(context.Background(), ytdlp.Request{TargetDir: "/x"}, nil); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := ytdlp.New("  ", "", nil); err == nil {
		t.Fatal("expected error for empty binary")
	}
}

func TestCommandExecutorRunsBinary(t *testing.T) {
	script := filepath.Join(t.TempDir(), "fake-yt-dlp")
	body := "#!/bin/sh\necho '[download]  50.0%'\necho 'ERROR: boom' >&2\nexit 2\n"
	if err := os.WriteFile(script, []byte(body), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	client, err := ytdlp.New(script, "", nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	var seen []string
	err = client.Download(context.Background(), sampleRequest(), func(line string) { seen = append(seen, line) })
	if !errors.Is(err, services.ErrDownloadFault) {
		t.Fatalf("expected download fault, got %v", err)
	}
	if !strings.Contains(err.Error(), "code 2") {
		t.Fatalf("expected exit code in error, got %v", err)
	}
	if !slices.Contains(seen, "[download]  50.0%") || !slices.Contains(seen, "ERROR: boom") {
		t.Fatalf("expected stdout and stderr lines to be forwarded, got %v", seen)
	}
}
