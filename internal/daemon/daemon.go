package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"

	"ytqueue/internal/admission"
	"ytqueue/internal/config"
	"ytqueue/internal/deps"
	"ytqueue/internal/logging"
	"ytqueue/internal/notifications"
	"ytqueue/internal/preflight"
	"ytqueue/internal/queue"
	"ytqueue/internal/services/ytdlp"
	"ytqueue/internal/workflow"
)

// Dependencies are the collaborators a Daemon is built from. Store and
// Downloader are required; the rest fall back to config-derived defaults.
type Dependencies struct {
	Store         *queue.Store
	Journal       *queue.Journal
	Downloader    ytdlp.Downloader
	PostProcessor workflow.PostProcessor
	Notifier      notifications.Service
	Checker       *admission.Checker
	EngineOptions []workflow.EngineOption
}

// Daemon coordinates the queue, the workflow engine, and the event relay,
// and enforces single-instance execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *queue.Store
	journal  *queue.Journal
	engine   *workflow.Engine
	stream   *workflow.EventStream
	checker  *admission.Checker
	notifier notifications.Service

	lockPath string
	lock     *flock.Flock

	baseCtx   context.Context
	submitMu  sync.Mutex
	journalMu sync.Mutex

	lifecycleMu sync.Mutex
	running     atomic.Bool
	ctx         context.Context
	cancel      context.CancelFunc

	progressMu sync.RWMutex
	progress   string

	relayDone chan struct{}
	closeOnce sync.Once
}

// Status represents daemon runtime information.
type Status struct {
	Running       bool
	PID           int
	Workflow      workflow.StatusSummary
	Progress      string
	DroppedEvents int64
	QueueDBPath   string
	LockFilePath  string
	LogPath       string
	Dependencies  []deps.Status
}

// New restores persisted jobs, builds the engine, and starts the event
// relay. Processing begins only after Start.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, d Dependencies) (*Daemon, error) {
	if cfg == nil || d.Store == nil || d.Downloader == nil {
		return nil, errors.New("daemon requires config, store, and downloader")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if d.Notifier == nil {
		d.Notifier = notifications.NewService(cfg)
	}
	if d.Checker == nil {
		d.Checker = admission.NewChecker(admission.OptionsFromConfig(cfg), nil, nil)
	}

	daemon := &Daemon{
		cfg:       cfg,
		logger:    logging.NewComponentLogger(logger, "daemon"),
		store:     d.Store,
		journal:   d.Journal,
		checker:   d.Checker,
		notifier:  d.Notifier,
		lockPath:  cfg.LockPath(),
		lock:      flock.New(cfg.LockPath()),
		baseCtx:   context.WithoutCancel(ctx),
		stream:    workflow.NewEventStream(workflow.DefaultEventBuffer),
		relayDone: make(chan struct{}),
	}

	if err := daemon.restore(ctx); err != nil {
		return nil, err
	}

	minPause, maxPause := cfg.PacingBounds()
	engine, err := workflow.NewEngine(workflow.Options{
		Store:         d.Store,
		Downloader:    d.Downloader,
		PostProcessor: d.PostProcessor,
		Observer:      daemon.stream,
		Formats:       cfg.Formats,
		ArchiveFile:   cfg.Download.ArchiveFile,
		TempDir:       cfg.Paths.TempDir,
		Pacing:        workflow.Pacing{Min: minPause, Max: maxPause},
		Logger:        logger,
	}, d.EngineOptions...)
	if err != nil {
		return nil, fmt.Errorf("create workflow engine: %w", err)
	}
	daemon.engine = engine

	go daemon.relay()
	return daemon, nil
}

func (d *Daemon) restore(ctx context.Context) error {
	if d.journal == nil {
		return nil
	}
	jobs, err := d.journal.Load(ctx)
	if err != nil {
		return fmt.Errorf("restore queue: %w", err)
	}
	d.store.Restore(jobs)
	stats := d.store.Stats()
	d.logger.Info("queue restored",
		logging.String(logging.FieldEventType, "queue_restored"),
		logging.Int("total", stats.Total),
		logging.Int("waiting", stats.Waiting),
		logging.Int("error", stats.Error),
	)
	return nil
}

// Start acquires the daemon lock and launches the workflow engine.
func (d *Daemon) Start(ctx context.Context) error {
	d.lifecycleMu.Lock()
	defer d.lifecycleMu.Unlock()

	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another ytqueue daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if err := d.engine.Start(d.ctx); err != nil {
		_ = d.lock.Unlock()
		d.cancel()
		d.ctx = nil
		d.cancel = nil
		return fmt.Errorf("start workflow: %w", err)
	}

	d.running.Store(true)
	d.logger.Info("ytqueue daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop halts processing after the in-flight job finishes and releases the
// daemon lock.
func (d *Daemon) Stop() {
	d.lifecycleMu.Lock()
	defer d.lifecycleMu.Unlock()

	if !d.running.Load() {
		return
	}

	d.engine.Stop()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock",
			logging.Error(err),
			logging.String(logging.FieldEventType, "lock_release_failed"),
			logging.String(logging.FieldErrorHint, "remove the lock file if the next start fails"),
		)
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("ytqueue daemon stopped")
}

// Close stops processing and shuts the event relay down. The journal is
// owned by the caller.
func (d *Daemon) Close() error {
	d.Stop()
	d.closeOnce.Do(func() {
		d.stream.Close()
		<-d.relayDone
	})
	return nil
}

// LogPath returns the path to the daemon log file.
func (d *Daemon) LogPath() string {
	return d.cfg.DaemonLogPath()
}

// Status returns the current daemon status.
func (d *Daemon) Status(_ context.Context) Status {
	d.progressMu.RLock()
	progress := d.progress
	d.progressMu.RUnlock()

	return Status{
		Running:       d.running.Load(),
		PID:           os.Getpid(),
		Workflow:      d.engine.Status(),
		Progress:      progress,
		DroppedEvents: d.stream.Dropped(),
		QueueDBPath:   d.cfg.QueueDBPath(),
		LockFilePath:  d.lockPath,
		LogPath:       d.LogPath(),
		Dependencies:  preflight.CheckSystemDeps(d.cfg),
	}
}
