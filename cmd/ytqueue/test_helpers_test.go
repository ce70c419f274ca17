package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"ytqueue/internal/config"
	"ytqueue/internal/daemon"
	"ytqueue/internal/ipc"
	"ytqueue/internal/logging"
	"ytqueue/internal/queue"
	"ytqueue/internal/services/ytdlp"
	"ytqueue/internal/testsupport"
)

const (
	urlA = "https://www.youtube.com/watch?v=aaaaaaaaaaa"
	urlB = "https://www.youtube.com/watch?v=bbbbbbbbbbb"
)

type stubDownloader struct {
	mu       sync.Mutex
	failures map[string]error
}

func (s *stubDownloader) Download(_ context.Context, req ytdlp.Request, progress func(string)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	progress("[download] 100% of 1.00MiB")
	return s.failures[req.URL]
}

func (s *stubDownloader) fail(url string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failures == nil {
		s.failures = map[string]error{}
	}
	if err == nil {
		delete(s.failures, url)
		return
	}
	s.failures[url] = err
}

type cliTestEnv struct {
	cfg        *config.Config
	store      *queue.Store
	downloader *stubDownloader
	daemon     *daemon.Daemon
	server     *ipc.Server
	socketPath string
	configPath string
	cancel     context.CancelFunc
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	writeTestConfig(t, configPath, cfg)

	env := &cliTestEnv{
		cfg:        cfg,
		store:      queue.NewStore(),
		downloader: &stubDownloader{},
		socketPath: filepath.Join(cfg.Paths.StateDir, "cli.sock"),
		configPath: configPath,
	}

	logger := logging.NewNop()
	d, err := daemon.New(context.Background(), cfg, logger, daemon.Dependencies{
		Store:      env.store,
		Journal:    testsupport.MustOpenJournal(t, cfg),
		Downloader: env.downloader,
	})
	if err != nil {
		t.Fatalf("daemon.New failed: %v", err)
	}
	env.daemon = d

	ctx, cancel := context.WithCancel(context.Background())
	env.cancel = cancel
	srv, err := ipc.NewServer(ctx, env.socketPath, d, logger)
	if err != nil {
		cancel()
		t.Fatalf("ipc.NewServer failed: %v", err)
	}
	srv.Serve()
	env.server = srv

	t.Cleanup(func() {
		cancel()
		srv.Close()
		_ = d.Close()
	})
	return env
}

func (e *cliTestEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	stdout, _, err := runCLI(t, args, e.socketPath, e.configPath)
	return stdout, err
}

func (e *cliTestEnv) statusOf(url string) queue.Status {
	job, ok := e.store.FindByURL(url)
	if !ok {
		return ""
	}
	return job.Status
}

func runCLI(t *testing.T, args []string, socket, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	flags := []string{"--socket", socket}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func waitFor(t *testing.T, duration time.Duration, fn func() bool) {
	t.Helper()
	deadline := time.Now().Add(duration)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", duration)
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
