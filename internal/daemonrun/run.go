package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"ytqueue/internal/config"
	"ytqueue/internal/daemon"
	"ytqueue/internal/ipc"
	"ytqueue/internal/logging"
	"ytqueue/internal/notifications"
	"ytqueue/internal/postprocess"
	"ytqueue/internal/preflight"
	"ytqueue/internal/queue"
	"ytqueue/internal/services/ytdlp"
	"ytqueue/internal/staging"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
	SocketPath  string
}

// Run starts the ytqueue daemon and blocks until SIGINT or SIGTERM.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	level := opts.LogLevel
	if level == "" {
		level = cfg.Logging.Level
	}
	logger, err := logging.New(logging.Options{
		Level:       level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stdout"},
		JSONPaths:   []string{cfg.DaemonLogPath()},
		Development: opts.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	logDependencySnapshot(logger, cfg)

	pidPath := cfg.PIDPath()
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	journal, err := queue.OpenJournal(cfg.QueueDBPath())
	if err != nil {
		logger.Error("open queue journal", logging.Error(err))
		return err
	}
	defer journal.Close()

	downloader, err := ytdlp.NewFromConfig(cfg, ytdlp.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("create downloader: %w", err)
	}

	store := queue.NewStore()
	d, err := daemon.New(signalCtx, cfg, logger, daemon.Dependencies{
		Store:         store,
		Journal:       journal,
		Downloader:    downloader,
		PostProcessor: postprocess.New(cfg.PostProcessing, logger),
		Notifier:      notifications.NewService(cfg),
	})
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	staging.Sweep(signalCtx, cfg.Paths.TempDir, staging.DefaultMaxAge, pendingVideoIDs(store), logger)

	socketPath := opts.SocketPath
	if socketPath == "" {
		socketPath = cfg.SocketPath()
	}
	ipcServer, err := ipc.NewServer(signalCtx, socketPath, d, logger)
	if err != nil {
		return fmt.Errorf("start IPC server: %w", err)
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	if err := d.Start(signalCtx); err != nil {
		logging.WarnWithContext(logger, "daemon start failed", "daemon_start_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check for another running daemon and queue database access"),
			logging.String(logging.FieldImpact, "queued jobs will not be processed until `ytqueue start`"),
		)
	}

	<-signalCtx.Done()
	logger.Info("ytqueue daemon shutting down")
	return nil
}

// pendingVideoIDs lists jobs whose partial downloads may still be resumed.
func pendingVideoIDs(store *queue.Store) []string {
	var ids []string
	for job := range store.All() {
		if job.Status != queue.StatusDone && job.VideoID != "" {
			ids = append(ids, job.VideoID)
		}
	}
	return ids
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logDependencySnapshot(logger *slog.Logger, cfg *config.Config) {
	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "dependency_snapshot"),
		logging.Bool("ntfy_configured", cfg.Notifications.NtfyTopic != ""),
		logging.Bool("dry_run", cfg.Download.DryRun),
		logging.Int("target_dirs", len(cfg.Paths.TargetDirs)),
		logging.Int("formats", len(cfg.Formats)),
	}
	for _, dep := range preflight.CheckSystemDeps(cfg) {
		key := strings.ToLower(strings.ReplaceAll(dep.Name, "-", ""))
		attrs = append(attrs,
			logging.Bool(key+"_available", dep.Available),
			logging.String(key+"_binary", dep.Command),
		)
	}
	logger.Info("dependency snapshot", logging.Args(attrs...)...)
}
