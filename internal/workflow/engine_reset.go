package workflow

import (
	"context"
	"fmt"

	"ytqueue/internal/fileutil"
	"ytqueue/internal/logging"
	"ytqueue/internal/queue"
	"ytqueue/internal/services"
)

// Reset returns the failed job for url to waiting and deletes any partial
// files for its video. The worker is signalled whatever the outcome.
func (e *Engine) Reset(ctx context.Context, url string) (*queue.Job, error) {
	defer e.Signal()

	job, ok := e.store.FindByURL(url)
	if !ok {
		return nil, fmt.Errorf("%w: %s", queue.ErrNotFound, url)
	}

	logger := logging.WithContext(services.WithVideoID(services.WithJobID(ctx, job.ID), job.VideoID), e.logger)
	// The worker never claims error jobs, so partial files are removed while
	// the job is still in error. Once it is waiting a download may begin.
	if job.Status != queue.StatusError {
		err := fmt.Errorf("%w: job %d is %s, expected %s", queue.ErrInvalidTransition, job.ID, job.Status, queue.StatusError)
		logger.Info("reset refused", logging.String("status", string(job.Status)), logging.Error(err))
		return nil, err
	}

	removed, rmErr := fileutil.RemoveFilesContaining(job.TargetDir, job.VideoID)
	if rmErr != nil {
		logging.WarnWithContext(logger, "failed to remove some partial files", "reset_cleanup_failed",
			logging.Error(rmErr),
			logging.String(logging.FieldErrorHint, "delete leftover files manually"),
			logging.String(logging.FieldImpact, "admission may reject re-submissions of this video"),
		)
	}

	reset, err := e.store.Transition(job.ID, queue.StatusError, queue.StatusWaiting, func(j *queue.Job) {
		j.Detail = ""
	})
	if err != nil {
		logger.Info("reset refused", logging.String("status", string(job.Status)), logging.Error(err))
		return nil, err
	}
	logger.Info("job reset",
		logging.String(logging.FieldEventType, "job_reset"),
		logging.Int("removed_files", len(removed)),
	)
	e.observer.StatusChanged(reset, "")
	return reset, nil
}
