package queue_test

import (
	"errors"
	"sync"
	"testing"

	"ytqueue/internal/queue"
)

const (
	urlA = "https://www.youtube.com/watch?v=aaaaaaaaaaa"
	urlB = "https://www.youtube.com/watch?v=bbbbbbbbbbb"
	urlC = "https://www.youtube.com/watch?v=ccccccccccc"
)

func enqueue(store *queue.Store, url string) *queue.Job {
	return store.Enqueue(queue.NewJob{URL: url, TargetDir: "/videos", Format: "video"})
}

func TestEnqueueAssignsIDsAndDerivesVideoID(t *testing.T) {
	store := queue.NewStore()
	first := enqueue(store, urlA)
	second := enqueue(store, urlB)

	if first.ID != 1 || second.ID != 2 {
		t.Fatalf("unexpected ids: %d %d", first.ID, second.ID)
	}
	if first.Status != queue.StatusWaiting {
		t.Fatalf("expected waiting, got %s", first.Status)
	}
	if first.VideoID != "aaaaaaaaaaa" {
		t.Fatalf("unexpected video id: %q", first.VideoID)
	}
	if first.CreatedAt.IsZero() {
		t.Fatal("expected created timestamp")
	}
}

func TestStoreReturnsCopies(t *testing.T) {
	store := queue.NewStore()
	job := enqueue(store, urlA)
	job.Status = queue.StatusDone
	job.Title = "mutated"

	found, ok := store.FindByURL(urlA)
	if !ok {
		t.Fatal("expected job to be found")
	}
	if found.Status != queue.StatusWaiting || found.Title != "" {
		t.Fatalf("caller mutation leaked into store: %#v", found)
	}
}

func TestNextWaitingIsFIFO(t *testing.T) {
	store := queue.NewStore()
	a := enqueue(store, urlA)
	b := enqueue(store, urlB)
	enqueue(store, urlC)

	next, ok := store.NextWaiting()
	if !ok || next.ID != a.ID {
		t.Fatalf("expected first job, got %#v", next)
	}
	if _, err := store.Transition(a.ID, queue.StatusWaiting, queue.StatusRunning, nil); err != nil {
		t.Fatalf("Transition failed: %v", err)
	}
	next, ok = store.NextWaiting()
	if !ok || next.ID != b.ID {
		t.Fatalf("expected second job, got %#v", next)
	}
	if store.CountWaiting() != 2 {
		t.Fatalf("expected 2 waiting, got %d", store.CountWaiting())
	}
}

func TestTransitionEnforcesLifecycle(t *testing.T) {
	store := queue.NewStore()
	job := enqueue(store, urlA)

	if _, err := store.Transition(job.ID, queue.StatusWaiting, queue.StatusDone, nil); !errors.Is(err, queue.ErrInvalidTransition) {
		t.Fatalf("expected illegal edge to be rejected, got %v", err)
	}
	if _, err := store.Transition(job.ID, queue.StatusError, queue.StatusWaiting, nil); !errors.Is(err, queue.ErrInvalidTransition) {
		t.Fatalf("expected status mismatch to be rejected, got %v", err)
	}
	if _, err := store.Transition(99, queue.StatusWaiting, queue.StatusRunning, nil); !errors.Is(err, queue.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	if _, err := store.Transition(job.ID, queue.StatusWaiting, queue.StatusRunning, nil); err != nil {
		t.Fatalf("Transition to running failed: %v", err)
	}
	updated, err := store.Transition(job.ID, queue.StatusRunning, queue.StatusError, func(j *queue.Job) {
		j.Detail = "exit status 1"
		j.URL = "tampered"
	})
	if err != nil {
		t.Fatalf("Transition to error failed: %v", err)
	}
	if updated.Detail != "exit status 1" {
		t.Fatalf("expected detail to be recorded, got %q", updated.Detail)
	}
	if updated.URL != urlA {
		t.Fatalf("expected URL to be immutable, got %q", updated.URL)
	}
	if _, err := store.Transition(job.ID, queue.StatusError, queue.StatusWaiting, nil); err != nil {
		t.Fatalf("reset transition failed: %v", err)
	}
}

func TestRemoveCompletedKeepsOrder(t *testing.T) {
	store := queue.NewStore()
	a := enqueue(store, urlA)
	b := enqueue(store, urlB)
	c := enqueue(store, urlC)
	for _, id := range []int64{a.ID, c.ID} {
		if _, err := store.Transition(id, queue.StatusWaiting, queue.StatusRunning, nil); err != nil {
			t.Fatalf("Transition failed: %v", err)
		}
	}
	if _, err := store.Transition(a.ID, queue.StatusRunning, queue.StatusDone, nil); err != nil {
		t.Fatalf("Transition failed: %v", err)
	}

	removed := store.RemoveCompleted()
	if len(removed) != 1 || removed[0].ID != a.ID {
		t.Fatalf("unexpected removed jobs: %#v", removed)
	}
	if again := store.RemoveCompleted(); len(again) != 0 {
		t.Fatalf("expected idempotent removal, got %#v", again)
	}

	var ids []int64
	for job := range store.All() {
		ids = append(ids, job.ID)
	}
	if len(ids) != 2 || ids[0] != b.ID || ids[1] != c.ID {
		t.Fatalf("unexpected remaining order: %v", ids)
	}
}

func TestAllTakesFreshSnapshotPerRange(t *testing.T) {
	store := queue.NewStore()
	enqueue(store, urlA)
	seq := store.All()

	count := 0
	for range seq {
		count++
	}
	enqueue(store, urlB)
	for range seq {
		count++
	}
	if count != 3 {
		t.Fatalf("expected second range to observe new job, got %d yields", count)
	}

	// Mutating the store mid-range must not deadlock.
	for range seq {
		enqueue(store, urlC)
		break
	}
}

func TestRestoreContinuesIDs(t *testing.T) {
	store := queue.NewStore()
	store.Restore([]*queue.Job{
		{ID: 4, URL: urlA, VideoID: "aaaaaaaaaaa", Status: queue.StatusDone},
		{ID: 7, URL: urlB, VideoID: "bbbbbbbbbbb", Status: queue.StatusError, Detail: queue.DaemonStopReason},
	})
	job := enqueue(store, urlC)
	if job.ID != 8 {
		t.Fatalf("expected id after restored max, got %d", job.ID)
	}
	stats := store.Stats()
	if stats.Total != 3 || stats.Done != 1 || stats.Error != 1 || stats.Waiting != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	restored, ok := store.GetByID(7)
	if !ok || restored.Detail != queue.DaemonStopReason {
		t.Fatalf("expected restored job to keep its detail, got %#v", restored)
	}
}

func TestStoreConcurrentAccess(t *testing.T) {
	store := queue.NewStore()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			enqueue(store, urlA)
		}()
		go func() {
			defer wg.Done()
			for range store.All() {
			}
			store.CountWaiting()
		}()
	}
	wg.Wait()
	if store.CountWaiting() != 20 {
		t.Fatalf("expected 20 waiting jobs, got %d", store.CountWaiting())
	}
}

func TestParseStatus(t *testing.T) {
	status, ok := queue.ParseStatus(" Running ")
	if !ok || status != queue.StatusRunning {
		t.Fatalf("unexpected parse result: %q %v", status, ok)
	}
	if _, ok := queue.ParseStatus("pending"); ok {
		t.Fatal("expected unknown status to be rejected")
	}
}
