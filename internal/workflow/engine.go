package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"ytqueue/internal/config"
	"ytqueue/internal/logging"
	"ytqueue/internal/postprocess"
	"ytqueue/internal/queue"
	"ytqueue/internal/services/ytdlp"
)

// PostProcessor tidies the files of a finished download.
type PostProcessor interface {
	Process(ctx context.Context, videoID, targetDir string) postprocess.Result
}

// Options wires the engine's collaborators.
type Options struct {
	Store         *queue.Store
	Downloader    ytdlp.Downloader
	PostProcessor PostProcessor
	Observer      Observer
	Formats       []config.Format
	ArchiveFile   string
	TempDir       string
	Pacing        Pacing
	Logger        *slog.Logger
}

// EngineOption configures optional Engine behavior.
type EngineOption func(*Engine)

// WithSleeper replaces the pause implementation (used in tests).
func WithSleeper(sleep Sleeper) EngineOption {
	return func(e *Engine) {
		if sleep != nil {
			e.sleep = sleep
		}
	}
}

// WithRandom replaces the pacing random source (used in tests).
func WithRandom(r func() float64) EngineOption {
	return func(e *Engine) {
		e.random = r
	}
}

// Engine processes queued jobs one at a time.
type Engine struct {
	store       *queue.Store
	downloader  ytdlp.Downloader
	post        PostProcessor
	observer    Observer
	formats     []config.Format
	archiveFile string
	tempDir     string
	pacing      Pacing
	logger      *slog.Logger
	sleep       Sleeper
	random      func() float64

	wake chan struct{}

	mu      sync.RWMutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	active  *queue.Job
	lastJob *queue.Job
	lastErr error
}

// NewEngine constructs an engine. Store and Downloader are required.
func NewEngine(opts Options, extra ...EngineOption) (*Engine, error) {
	if opts.Store == nil {
		return nil, errors.New("workflow engine requires a store")
	}
	if opts.Downloader == nil {
		return nil, errors.New("workflow engine requires a downloader")
	}
	if opts.Observer == nil {
		opts.Observer = NopObserver{}
	}
	if opts.PostProcessor == nil {
		opts.PostProcessor = postprocess.New(config.PostProcessing{}, opts.Logger)
	}
	e := &Engine{
		store:       opts.Store,
		downloader:  opts.Downloader,
		post:        opts.PostProcessor,
		observer:    opts.Observer,
		formats:     append([]config.Format(nil), opts.Formats...),
		archiveFile: opts.ArchiveFile,
		tempDir:     opts.TempDir,
		pacing:      opts.Pacing,
		logger:      logging.NewComponentLogger(opts.Logger, "workflow"),
		sleep:       sleepContext,
		wake:        make(chan struct{}, 1),
	}
	for _, opt := range extra {
		opt(e)
	}
	return e, nil
}

// Start launches the worker goroutine and signals it once so jobs already
// in the store are picked up.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return errors.New("workflow already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.running = true
	e.wg.Add(1)
	e.mu.Unlock()

	go e.run(runCtx)
	e.Signal()
	return nil
}

// Stop asks the worker to exit and waits for it. A download in progress
// finishes first.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	cancel := e.cancel
	e.running = false
	e.cancel = nil
	e.mu.Unlock()

	cancel()
	e.wg.Wait()
}

// Signal wakes the worker without blocking. Redundant signals coalesce.
func (e *Engine) Signal() {
	select {
	case e.wake <- struct{}{}:
	default:
	}
}

// Active returns a copy of the job currently being processed.
func (e *Engine) Active() (*queue.Job, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.active == nil {
		return nil, false
	}
	return copyJob(e.active), true
}

func (e *Engine) setActive(job *queue.Job) {
	e.mu.Lock()
	e.active = copyJob(job)
	e.mu.Unlock()
}

func (e *Engine) setLastError(err error) {
	e.mu.Lock()
	e.lastErr = err
	e.mu.Unlock()
}

func (e *Engine) setLastJob(job *queue.Job) {
	e.mu.Lock()
	e.lastJob = copyJob(job)
	e.mu.Unlock()
}

// StatusSummary represents lightweight engine diagnostics.
type StatusSummary struct {
	Running   bool
	Active    *queue.Job
	LastJob   *queue.Job
	LastError string
	Stats     queue.Stats
}

// Status returns the latest engine information.
func (e *Engine) Status() StatusSummary {
	e.mu.RLock()
	summary := StatusSummary{
		Running: e.running,
		Active:  copyJob(e.active),
		LastJob: copyJob(e.lastJob),
	}
	if e.lastErr != nil {
		summary.LastError = e.lastErr.Error()
	}
	e.mu.RUnlock()
	summary.Stats = e.store.Stats()
	return summary
}
