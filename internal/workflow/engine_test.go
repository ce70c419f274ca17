package workflow_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"ytqueue/internal/queue"
	"ytqueue/internal/services/ytdlp"
	"ytqueue/internal/workflow"
)

const (
	urlA = "https://www.youtube.com/watch?v=aaaaaaaaaaa"
	urlB = "https://www.youtube.com/watch?v=bbbbbbbbbbb"
	urlC = "https://www.youtube.com/watch?v=ccccccccccc"
)

func TestEngineProcessesJobsInOrder(t *testing.T) {
	h := newHarness(t, nil)
	h.post.titles["aaaaaaaaaaa"] = "First Video"
	a := h.enqueue(urlA)
	b := h.enqueue(urlB)
	c := h.enqueue(urlC)
	h.start(t)

	waitFor(t, "all jobs done", func() bool { return h.store.Stats().Done == 3 })

	if got := h.down.urls(); !slices.Equal(got, []string{urlA, urlB, urlC}) {
		t.Fatalf("unexpected processing order: %v", got)
	}
	first, _ := h.store.GetByID(a.ID)
	if first.Title != "First Video" {
		t.Fatalf("expected title from post-processing, got %q", first.Title)
	}
	for _, id := range []int64{b.ID, c.ID} {
		job, _ := h.store.GetByID(id)
		if job.Title != "" {
			t.Fatalf("expected no title for job %d, got %q", id, job.Title)
		}
	}

	req := h.down.requests[0]
	if req.FormatSpec != "bv+ba" || req.ArchivePath != filepath.Join(h.target, "downloaded.txt") {
		t.Fatalf("unexpected request: %+v", req)
	}
	if _, active := h.engine.Active(); active {
		t.Fatal("expected no active job after drain")
	}
}

func TestEnginePacesBetweenJobsOnly(t *testing.T) {
	h := newHarness(t, nil)
	h.enqueue(urlA)
	h.enqueue(urlB)
	h.enqueue(urlC)
	h.start(t)

	waitFor(t, "queue empty notice", func() bool {
		_, _, summaries := h.observer.snapshot()
		return len(summaries) == 1
	})

	if h.sleeper.count() != 2 {
		t.Fatalf("expected 2 pauses for 3 jobs, got %d", h.sleeper.count())
	}
	if want := 3500 * time.Millisecond; h.sleeper.pauses[0] != want {
		t.Fatalf("unexpected pause: got %v want %v", h.sleeper.pauses[0], want)
	}
	_, progress, _ := h.observer.snapshot()
	if !slices.Contains(progress, workflow.PacingText) {
		t.Fatalf("expected pacing text in progress, got %v", progress)
	}
	if progress[len(progress)-1] != "" {
		t.Fatalf("expected progress line cleared at the end, got %q", progress[len(progress)-1])
	}
}

func TestEngineRecordsFailuresAndContinues(t *testing.T) {
	down := &fakeDownloader{failures: map[string]error{urlA: errBoom}, panics: map[string]bool{urlB: true}}
	h := newHarness(t, down)
	a := h.enqueue(urlA)
	b := h.enqueue(urlB)
	c := h.enqueue(urlC)
	h.start(t)

	waitFor(t, "queue drained", func() bool {
		_, _, summaries := h.observer.snapshot()
		return len(summaries) == 1
	})

	if statusOf(t, h.store, a.ID) != queue.StatusError || statusOf(t, h.store, b.ID) != queue.StatusError {
		t.Fatal("expected failing jobs to be in error")
	}
	if statusOf(t, h.store, c.ID) != queue.StatusDone {
		t.Fatal("expected engine to continue after failures")
	}
	failedA, _ := h.store.GetByID(a.ID)
	if !strings.Contains(failedA.Detail, "boom") {
		t.Fatalf("expected failure detail, got %q", failedA.Detail)
	}
	failedB, _ := h.store.GetByID(b.ID)
	if !strings.Contains(failedB.Detail, "panic") {
		t.Fatalf("expected panic detail, got %q", failedB.Detail)
	}
	_, _, summaries := h.observer.snapshot()
	if summaries[0].Processed != 3 || summaries[0].Failed != 2 {
		t.Fatalf("unexpected summary: %+v", summaries[0])
	}
	statuses, _, _ := h.observer.snapshot()
	var sawErrorDetail bool
	for _, ev := range statuses {
		if ev.id == a.ID && ev.status == queue.StatusError && strings.Contains(ev.detail, "boom") {
			sawErrorDetail = true
		}
	}
	if !sawErrorDetail {
		t.Fatalf("expected observer to receive error detail, got %+v", statuses)
	}
	if summary := h.engine.Status(); summary.LastError == "" {
		t.Fatal("expected last error in status summary")
	}
}

func TestEngineReportsStatusSequence(t *testing.T) {
	down := &fakeDownloader{failures: map[string]error{urlB: errBoom}}
	h := newHarness(t, down)
	a := h.enqueue(urlA)
	b := h.enqueue(urlB)
	if statusOf(t, h.store, a.ID) != queue.StatusWaiting || statusOf(t, h.store, b.ID) != queue.StatusWaiting {
		t.Fatal("expected new jobs to start waiting")
	}
	h.start(t)

	waitFor(t, "queue drained", func() bool {
		_, _, summaries := h.observer.snapshot()
		return len(summaries) == 1
	})

	statuses, _, _ := h.observer.snapshot()
	perJob := map[int64][]queue.Status{}
	for _, ev := range statuses {
		perJob[ev.id] = append(perJob[ev.id], ev.status)
	}
	if got, want := perJob[a.ID], []queue.Status{queue.StatusRunning, queue.StatusDone}; !slices.Equal(got, want) {
		t.Fatalf("job %d statuses = %v, want %v", a.ID, got, want)
	}
	if got, want := perJob[b.ID], []queue.Status{queue.StatusRunning, queue.StatusError}; !slices.Equal(got, want) {
		t.Fatalf("job %d statuses = %v, want %v", b.ID, got, want)
	}
	// One job at a time: a finishes before b starts.
	var order []queue.Status
	for _, ev := range statuses {
		order = append(order, ev.status)
	}
	want := []queue.Status{queue.StatusRunning, queue.StatusDone, queue.StatusRunning, queue.StatusError}
	if !slices.Equal(order, want) {
		t.Fatalf("observed statuses = %v, want %v", order, want)
	}
}

func TestEngineStripsANSIFromProgress(t *testing.T) {
	h := newHarness(t, &fakeDownloader{lines: []string{"\x1b[0;94m[download]\x1b[0m  10.0%"}})
	h.enqueue(urlA)
	h.start(t)

	waitFor(t, "job done", func() bool { return h.store.Stats().Done == 1 })
	_, progress, _ := h.observer.snapshot()
	if !slices.Contains(progress, "[download]  10.0%") {
		t.Fatalf("expected stripped progress, got %q", progress)
	}
}

func TestEngineStopLetsInFlightJobFinish(t *testing.T) {
	down := &fakeDownloader{block: make(chan struct{}), started: make(chan string, 4)}
	h := newHarness(t, down)
	a := h.enqueue(urlA)
	b := h.enqueue(urlB)
	h.start(t)

	<-down.started
	if active, ok := h.engine.Active(); !ok || active.ID != a.ID {
		t.Fatalf("expected job %d active, got %+v", a.ID, active)
	}

	stopped := make(chan struct{})
	go func() {
		h.engine.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("Stop returned before in-flight download finished")
	case <-time.After(50 * time.Millisecond):
	}
	close(down.block)
	<-stopped

	if statusOf(t, h.store, a.ID) != queue.StatusDone {
		t.Fatal("expected in-flight job to complete")
	}
	if statusOf(t, h.store, b.ID) != queue.StatusWaiting {
		t.Fatal("expected next job to remain waiting after stop")
	}
	if err := down.ctxErrs[0]; err != nil {
		t.Fatalf("expected download context to survive stop, got %v", err)
	}
}

func TestEngineResetOnlyFromError(t *testing.T) {
	down := &fakeDownloader{failures: map[string]error{urlA: errBoom}}
	h := newHarness(t, down)
	a := h.enqueue(urlA)
	h.start(t)
	waitFor(t, "job failure", func() bool { return statusOf(t, h.store, a.ID) == queue.StatusError })

	partial := filepath.Join(h.target, "x aaaaaaaaaaa.mp4.part")
	if err := os.WriteFile(partial, []byte("partial"), 0o644); err != nil {
		t.Fatalf("write partial: %v", err)
	}

	down.mu.Lock()
	down.failures = nil
	down.mu.Unlock()

	if _, err := h.engine.Reset(context.Background(), urlA); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if _, err := os.Stat(partial); !os.IsNotExist(err) {
		t.Fatalf("expected partial file removed, got %v", err)
	}
	waitFor(t, "job reprocessed", func() bool { return statusOf(t, h.store, a.ID) == queue.StatusDone })

	if _, err := h.engine.Reset(context.Background(), urlA); !errors.Is(err, queue.ErrInvalidTransition) {
		t.Fatalf("expected reset from done to fail, got %v", err)
	}
	if _, err := h.engine.Reset(context.Background(), urlB); !errors.Is(err, queue.ErrNotFound) {
		t.Fatalf("expected unknown url to fail, got %v", err)
	}
}

func TestEngineResetClearsFilesBeforeRequeue(t *testing.T) {
	down := &fakeDownloader{failures: map[string]error{urlA: errBoom}}
	h := newHarness(t, down)
	a := h.enqueue(urlA)
	h.start(t)
	waitFor(t, "job failure", func() bool { return statusOf(t, h.store, a.ID) == queue.StatusError })

	partial := filepath.Join(h.target, "x aaaaaaaaaaa.mp4.part")
	if err := os.WriteFile(partial, []byte("partial"), 0o644); err != nil {
		t.Fatalf("write partial: %v", err)
	}

	var mu sync.Mutex
	var leftover []string
	down.mu.Lock()
	down.failures = nil
	down.onStart = func(ytdlp.Request) {
		if _, err := os.Stat(partial); err == nil {
			mu.Lock()
			leftover = append(leftover, partial)
			mu.Unlock()
		}
	}
	down.mu.Unlock()

	// Keep the worker busy signalling while the reset runs.
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			default:
				h.engine.Signal()
			}
		}
	}()
	_, err := h.engine.Reset(context.Background(), urlA)
	close(done)
	if err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	waitFor(t, "job reprocessed", func() bool { return statusOf(t, h.store, a.ID) == queue.StatusDone })

	mu.Lock()
	defer mu.Unlock()
	if len(leftover) != 0 {
		t.Fatalf("download started while partial files remained: %v", leftover)
	}
}

func TestEngineResetRefusedKeepsFiles(t *testing.T) {
	down := &fakeDownloader{block: make(chan struct{}), started: make(chan string, 1)}
	h := newHarness(t, down)
	a := h.enqueue(urlA)
	h.start(t)
	<-down.started

	partial := filepath.Join(h.target, "x aaaaaaaaaaa.mp4.part")
	if err := os.WriteFile(partial, []byte("partial"), 0o644); err != nil {
		t.Fatalf("write partial: %v", err)
	}
	if _, err := h.engine.Reset(context.Background(), urlA); !errors.Is(err, queue.ErrInvalidTransition) {
		t.Fatalf("expected reset of running job to fail, got %v", err)
	}
	if _, err := os.Stat(partial); err != nil {
		t.Fatalf("running job's files must survive a refused reset: %v", err)
	}
	close(down.block)
	waitFor(t, "job done", func() bool { return statusOf(t, h.store, a.ID) == queue.StatusDone })
}

func TestEngineResetSignalsEvenOnFailure(t *testing.T) {
	h := newHarness(t, nil)
	h.start(t)

	b := h.enqueue(urlB)
	if _, err := h.engine.Reset(context.Background(), urlA); !errors.Is(err, queue.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	waitFor(t, "signalled job processed", func() bool { return statusOf(t, h.store, b.ID) == queue.StatusDone })
}

func TestEngineUnknownFormatFailsJob(t *testing.T) {
	h := newHarness(t, nil)
	job := h.store.Enqueue(queue.NewJob{URL: urlA, TargetDir: h.target, Format: "removed"})
	h.start(t)
	waitFor(t, "job failure", func() bool { return statusOf(t, h.store, job.ID) == queue.StatusError })
	if len(h.down.urls()) != 0 {
		t.Fatal("expected downloader not to run for unknown format")
	}
}

func TestEngineStartTwiceFails(t *testing.T) {
	h := newHarness(t, nil)
	h.start(t)
	if err := h.engine.Start(context.Background()); err == nil {
		t.Fatal("expected second Start to fail")
	}
	if !h.engine.Status().Running {
		t.Fatal("expected engine to report running")
	}
}

func TestNewEngineValidatesOptions(t *testing.T) {
	if _, err := workflow.NewEngine(workflow.Options{}); err == nil {
		t.Fatal("expected error without store")
	}
	if _, err := workflow.NewEngine(workflow.Options{Store: queue.NewStore()}); err == nil {
		t.Fatal("expected error without downloader")
	}
}
