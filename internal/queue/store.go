package queue

import (
	"fmt"
	"iter"
	"sync"
	"time"

	"ytqueue/internal/source"
)

// NewJob describes a job to enqueue.
type NewJob struct {
	URL       string
	TargetDir string
	Format    string
}

// Store is the ordered in-memory queue.
type Store struct {
	mu     sync.RWMutex
	jobs   []*Job
	nextID int64
	now    func() time.Time
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{nextID: 1, now: time.Now}
}

// SetClock overrides the timestamp source. Intended for tests.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if now == nil {
		now = time.Now
	}
	s.now = now
}

// Enqueue appends a waiting job and returns a copy of it.
func (s *Store) Enqueue(req NewJob) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	job := &Job{
		ID:        s.nextID,
		URL:       req.URL,
		VideoID:   source.VideoID(req.URL),
		TargetDir: req.TargetDir,
		Format:    req.Format,
		Status:    StatusWaiting,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.nextID++
	s.jobs = append(s.jobs, job)
	return cloneJob(job)
}

// Restore seeds the store with previously persisted jobs, keeping their ids
// and order. Later enqueues continue after the largest restored id.
func (s *Store) Restore(jobs []*Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, job := range jobs {
		if job == nil {
			continue
		}
		s.jobs = append(s.jobs, cloneJob(job))
		if job.ID >= s.nextID {
			s.nextID = job.ID + 1
		}
	}
}

// FindByURL returns the first job whose URL equals url.
func (s *Store) FindByURL(url string) (*Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, job := range s.jobs {
		if job.URL == url {
			return cloneJob(job), true
		}
	}
	return nil, false
}

// GetByID returns the job with the given id.
func (s *Store) GetByID(id int64) (*Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if job := s.findLocked(id); job != nil {
		return cloneJob(job), true
	}
	return nil, false
}

// RemoveCompleted drops every done job and returns copies of the removed
// jobs. The relative order of the remaining jobs is preserved.
func (s *Store) RemoveCompleted() []*Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed []*Job
	kept := s.jobs[:0]
	for _, job := range s.jobs {
		if job.Status == StatusDone {
			removed = append(removed, cloneJob(job))
			continue
		}
		kept = append(kept, job)
	}
	clear(s.jobs[len(kept):])
	s.jobs = kept
	return removed
}

// All yields copies of the jobs in submission order. Each range over the
// sequence takes a fresh snapshot.
func (s *Store) All() iter.Seq[*Job] {
	return func(yield func(*Job) bool) {
		for _, job := range s.List() {
			if !yield(job) {
				return
			}
		}
	}
}

// List returns a snapshot of all jobs in submission order.
func (s *Store) List() []*Job {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		out = append(out, cloneJob(job))
	}
	return out
}

// NextWaiting returns the earliest submitted waiting job.
func (s *Store) NextWaiting() (*Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, job := range s.jobs {
		if job.Status == StatusWaiting {
			return cloneJob(job), true
		}
	}
	return nil, false
}

// CountWaiting returns the number of waiting jobs.
func (s *Store) CountWaiting() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, job := range s.jobs {
		if job.Status == StatusWaiting {
			count++
		}
	}
	return count
}

// Stats returns counts per status.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var stats Stats
	for _, job := range s.jobs {
		stats.add(job.Status)
	}
	return stats
}

// Transition moves job id from one status to another as a single atomic
// step. mutate, when non-nil, may adjust Title and Detail on the stored job
// while the lock is held; identity fields are restored afterwards.
func (s *Store) Transition(id int64, from, to Status, mutate func(*Job)) (*Job, error) {
	if !CanTransition(from, to) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	job := s.findLocked(id)
	if job == nil {
		return nil, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	if job.Status != from {
		return nil, fmt.Errorf("%w: job %d is %s, expected %s", ErrInvalidTransition, id, job.Status, from)
	}

	if mutate != nil {
		before := *job
		mutate(job)
		job.ID = before.ID
		job.URL = before.URL
		job.VideoID = before.VideoID
		job.TargetDir = before.TargetDir
		job.Format = before.Format
		job.CreatedAt = before.CreatedAt
	}
	job.Status = to
	job.UpdatedAt = s.now().UTC()
	return cloneJob(job), nil
}

func (s *Store) findLocked(id int64) *Job {
	for _, job := range s.jobs {
		if job.ID == id {
			return job
		}
	}
	return nil
}

func cloneJob(job *Job) *Job {
	if job == nil {
		return nil
	}
	cp := *job
	return &cp
}
