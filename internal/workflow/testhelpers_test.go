package workflow_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"ytqueue/internal/config"
	"ytqueue/internal/logging"
	"ytqueue/internal/postprocess"
	"ytqueue/internal/queue"
	"ytqueue/internal/services/ytdlp"
	"ytqueue/internal/workflow"
)

type fakeDownloader struct {
	mu       sync.Mutex
	requests []ytdlp.Request
	lines    []string
	failures map[string]error
	panics   map[string]bool
	block    chan struct{}
	started  chan string
	ctxErrs  []error
	onStart  func(ytdlp.Request)
}

func (f *fakeDownloader) Download(ctx context.Context, req ytdlp.Request, progress func(string)) error {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	lines := append([]string(nil), f.lines...)
	failure := f.failures[req.URL]
	shouldPanic := f.panics[req.URL]
	block := f.block
	started := f.started
	onStart := f.onStart
	f.mu.Unlock()

	if onStart != nil {
		onStart(req)
	}
	if started != nil {
		started <- req.URL
	}
	if block != nil {
		<-block
	}
	f.mu.Lock()
	f.ctxErrs = append(f.ctxErrs, ctx.Err())
	f.mu.Unlock()
	if shouldPanic {
		panic("downloader exploded")
	}
	for _, line := range lines {
		progress(line)
	}
	return failure
}

func (f *fakeDownloader) urls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.requests))
	for _, req := range f.requests {
		out = append(out, req.URL)
	}
	return out
}

type fakePost struct {
	mu     sync.Mutex
	titles map[string]string
	calls  []string
}

func (f *fakePost) Process(_ context.Context, videoID, _ string) postprocess.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, videoID)
	if title, ok := f.titles[videoID]; ok {
		return postprocess.Result{Title: title, HasTitle: true}
	}
	return postprocess.Result{}
}

type statusEvent struct {
	id     int64
	status queue.Status
	detail string
}

type recordingObserver struct {
	mu        sync.Mutex
	statuses  []statusEvent
	progress  []string
	summaries []workflow.QueueSummary
}

func (r *recordingObserver) StatusChanged(job *queue.Job, detail string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, statusEvent{id: job.ID, status: job.Status, detail: detail})
}

func (r *recordingObserver) ProgressText(_ *queue.Job, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress = append(r.progress, text)
}

func (r *recordingObserver) QueueEmpty(summary workflow.QueueSummary) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.summaries = append(r.summaries, summary)
}

func (r *recordingObserver) snapshot() ([]statusEvent, []string, []workflow.QueueSummary) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]statusEvent(nil), r.statuses...),
		append([]string(nil), r.progress...),
		append([]workflow.QueueSummary(nil), r.summaries...)
}

type recordingSleeper struct {
	mu     sync.Mutex
	pauses []time.Duration
}

func (s *recordingSleeper) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.pauses = append(s.pauses, d)
	s.mu.Unlock()
	return ctx.Err()
}

func (s *recordingSleeper) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pauses)
}

type harness struct {
	store    *queue.Store
	engine   *workflow.Engine
	down     *fakeDownloader
	post     *fakePost
	observer *recordingObserver
	sleeper  *recordingSleeper
	target   string
}

func newHarness(t *testing.T, down *fakeDownloader) *harness {
	t.Helper()
	if down == nil {
		down = &fakeDownloader{}
	}
	h := &harness{
		store:    queue.NewStore(),
		down:     down,
		post:     &fakePost{titles: map[string]string{}},
		observer: &recordingObserver{},
		sleeper:  &recordingSleeper{},
		target:   t.TempDir(),
	}
	engine, err := workflow.NewEngine(workflow.Options{
		Store:         h.store,
		Downloader:    h.down,
		PostProcessor: h.post,
		Observer:      h.observer,
		Formats:       []config.Format{{Label: "video", Spec: "bv+ba"}},
		ArchiveFile:   "downloaded.txt",
		TempDir:       t.TempDir(),
		Pacing:        workflow.Pacing{Min: 1500 * time.Millisecond, Max: 5500 * time.Millisecond},
		Logger:        logging.NewNop(),
	}, workflow.WithSleeper(h.sleeper.sleep), workflow.WithRandom(func() float64 { return 0.5 }))
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	h.engine = engine
	return h
}

func (h *harness) enqueue(url string) *queue.Job {
	return h.store.Enqueue(queue.NewJob{URL: url, TargetDir: h.target, Format: "video"})
}

func (h *harness) start(t *testing.T) {
	t.Helper()
	if err := h.engine.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(h.engine.Stop)
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func statusOf(t *testing.T, store *queue.Store, id int64) queue.Status {
	t.Helper()
	job, ok := store.GetByID(id)
	if !ok {
		t.Fatalf("job %d missing", id)
	}
	return job.Status
}

var errBoom = errors.New("boom")
