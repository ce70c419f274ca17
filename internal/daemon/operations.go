package daemon

import (
	"context"
	"errors"
	"slices"
	"strings"

	"ytqueue/internal/admission"
	"ytqueue/internal/config"
	"ytqueue/internal/logging"
	"ytqueue/internal/queue"
	"ytqueue/internal/services"
	"ytqueue/internal/source"
)

// Request is a client submission. An empty TargetDir selects the first
// configured destination. An empty Format selects the first catalog entry
// on Submit; Check leaves it empty so the catalog rule is skipped.
type Request struct {
	URL       string
	Format    string
	TargetDir string
}

func (d *Daemon) candidate(req Request, defaultFormat bool) (admission.Candidate, error) {
	url := strings.TrimSpace(req.URL)
	if d.cfg.Download.CleanupURL {
		url = source.CleanURL(url)
	}

	format := strings.TrimSpace(req.Format)
	if format == "" && defaultFormat {
		format = d.cfg.DefaultFormat()
	}

	target := strings.TrimSpace(req.TargetDir)
	if target == "" {
		target = d.cfg.DefaultTargetDir()
	} else {
		expanded, err := config.ExpandPath(target)
		if err != nil {
			return admission.Candidate{}, services.Wrap(services.ErrValidation, "daemon", "resolve target dir", target, err)
		}
		target = expanded
	}

	return admission.Candidate{URL: url, Format: format, TargetDir: target}, nil
}

// Check evaluates a submission against the admission rules without
// enqueuing it. The returned candidate carries the resolved target dir.
func (d *Daemon) Check(_ context.Context, req Request) (admission.Candidate, error) {
	candidate, err := d.candidate(req, false)
	if err != nil {
		return candidate, err
	}
	return candidate, d.checker.Check(candidate, d.store.All())
}

// Submit admits and enqueues a job, persists it, and wakes the worker.
func (d *Daemon) Submit(ctx context.Context, req Request) (*queue.Job, error) {
	candidate, err := d.candidate(req, true)
	if err != nil {
		return nil, err
	}

	d.submitMu.Lock()
	if err := d.checker.Check(candidate, d.store.All()); err != nil {
		d.submitMu.Unlock()
		reason, _ := admission.ReasonOf(err)
		d.logger.Info("submission rejected",
			logging.String(logging.FieldEventType, "submission_rejected"),
			logging.String("url", candidate.URL),
			logging.String("reason", string(reason)),
		)
		return nil, err
	}
	job := d.store.Enqueue(queue.NewJob{
		URL:       candidate.URL,
		TargetDir: candidate.TargetDir,
		Format:    candidate.Format,
	})
	d.submitMu.Unlock()

	d.persist(ctx, job.ID)
	d.engine.Signal()
	d.logger.Info("job queued",
		logging.String(logging.FieldEventType, "job_queued"),
		logging.Int64(logging.FieldJobID, job.ID),
		logging.String(logging.FieldVideoID, job.VideoID),
		logging.String("format", job.Format),
		logging.String("target_dir", job.TargetDir),
	)
	return job, nil
}

// Reset returns the failed job for url to waiting. Only jobs in the error
// status can be reset.
func (d *Daemon) Reset(ctx context.Context, url string) (*queue.Job, error) {
	url = strings.TrimSpace(url)
	if d.cfg.Download.CleanupURL {
		url = source.CleanURL(url)
	}
	job, err := d.engine.Reset(ctx, url)
	if err != nil {
		return nil, err
	}
	d.persist(ctx, job.ID)
	return job, nil
}

// Compact removes every done job from the queue and the journal.
func (d *Daemon) Compact(ctx context.Context) (int, error) {
	d.journalMu.Lock()
	defer d.journalMu.Unlock()

	removed := d.store.RemoveCompleted()
	if len(removed) == 0 {
		return 0, nil
	}
	if d.journal != nil {
		ids := make([]int64, 0, len(removed))
		for _, job := range removed {
			ids = append(ids, job.ID)
		}
		if err := d.journal.Delete(ctx, ids...); err != nil {
			return len(removed), err
		}
	}
	d.logger.Info("queue compacted",
		logging.String(logging.FieldEventType, "queue_compacted"),
		logging.Int("removed_count", len(removed)),
	)
	return len(removed), nil
}

// List returns queue jobs in submission order, optionally filtered by status.
func (d *Daemon) List(_ context.Context, statuses ...queue.Status) []*queue.Job {
	jobs := d.store.List()
	if len(statuses) == 0 {
		return jobs
	}
	return slices.DeleteFunc(jobs, func(job *queue.Job) bool {
		return !slices.Contains(statuses, job.Status)
	})
}

// Formats returns the configured format catalog.
func (d *Daemon) Formats() []config.Format {
	return slices.Clone(d.cfg.Formats)
}

// TargetDirs returns the configured destinations.
func (d *Daemon) TargetDirs() []string {
	return slices.Clone(d.cfg.Paths.TargetDirs)
}

// TestNotification triggers a test notification using the current configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	if err := d.notifier.TestNotification(ctx); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

// persist mirrors the current state of job id into the journal. Jobs that
// have left the store are skipped so a compaction is never undone.
func (d *Daemon) persist(ctx context.Context, id int64) {
	if d.journal == nil {
		return
	}
	d.journalMu.Lock()
	defer d.journalMu.Unlock()

	job, ok := d.store.GetByID(id)
	if !ok {
		return
	}
	if err := d.journal.Save(ctx, job); err != nil {
		logging.ErrorWithContext(d.logger, "failed to persist job", "journal_save_failed",
			logging.Int64(logging.FieldJobID, id),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check free space and permissions on the state directory"),
			logging.String(logging.FieldImpact, "job state may be lost on restart"),
		)
	}
}

// IsRejection reports whether err came from the admission checker.
func IsRejection(err error) bool {
	return errors.Is(err, services.ErrAdmissionRejected)
}
