package testsupport

import (
	"testing"

	"ytqueue/internal/config"
	"ytqueue/internal/queue"
)

// MustOpenJournal opens a queue.Journal for tests and registers cleanup.
func MustOpenJournal(t testing.TB, cfg *config.Config) *queue.Journal {
	t.Helper()

	journal, err := queue.OpenJournal(cfg.QueueDBPath())
	if err != nil {
		t.Fatalf("queue.OpenJournal: %v", err)
	}
	t.Cleanup(func() {
		journal.Close()
	})
	return journal
}

// Enqueue adds a job for url into the config's first target dir.
func Enqueue(t testing.TB, store *queue.Store, cfg *config.Config, url string) *queue.Job {
	t.Helper()

	return store.Enqueue(queue.NewJob{
		URL:       url,
		TargetDir: cfg.DefaultTargetDir(),
		Format:    cfg.DefaultFormat(),
	})
}
