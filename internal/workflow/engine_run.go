package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"ytqueue/internal/logging"
	"ytqueue/internal/queue"
	"ytqueue/internal/services"
	"ytqueue/internal/services/ytdlp"
	"ytqueue/internal/textutil"
)

// PacingText is shown as progress while the engine pauses between jobs.
const PacingText = "waiting before next download"

func (e *Engine) run(ctx context.Context) {
	defer e.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-e.wake:
		}
		e.drain(ctx)
	}
}

func (e *Engine) drain(ctx context.Context) {
	start := time.Now()
	var summary QueueSummary

	for {
		if ctx.Err() != nil {
			e.logger.Debug("stop requested; leaving queue drain")
			return
		}
		job, ok := e.store.NextWaiting()
		if !ok {
			if summary.Processed > 0 {
				summary.Elapsed = time.Since(start)
				e.logger.Info("queue drained",
					logging.String(logging.FieldEventType, "queue_empty"),
					logging.Int("processed", summary.Processed),
					logging.Int("failed", summary.Failed),
					logging.Duration("elapsed", summary.Elapsed),
				)
				e.observer.QueueEmpty(summary)
			}
			return
		}
		succeeded, attempted := e.processJob(ctx, job)
		if !attempted {
			return
		}
		summary.Processed++
		if !succeeded {
			summary.Failed++
		}

		if e.store.CountWaiting() == 0 {
			continue
		}
		pause := e.pacing.Sample(e.random)
		e.observer.ProgressText(nil, PacingText)
		e.logger.Debug("pacing before next download", logging.Duration("pause", pause))
		err := e.sleep(ctx, pause)
		e.observer.ProgressText(nil, "")
		if err != nil {
			return
		}
	}
}

// processJob runs one job to a terminal status. attempted is false when the
// job could not be claimed.
func (e *Engine) processJob(ctx context.Context, job *queue.Job) (succeeded, attempted bool) {
	requestID := uuid.NewString()
	jobCtx := context.WithoutCancel(ctx)
	jobCtx = services.WithJobID(jobCtx, job.ID)
	jobCtx = services.WithVideoID(jobCtx, job.VideoID)
	jobCtx = services.WithRequestID(jobCtx, requestID)
	logger := logging.WithContext(jobCtx, e.logger)

	running, err := e.store.Transition(job.ID, queue.StatusWaiting, queue.StatusRunning, func(j *queue.Job) {
		j.Detail = ""
	})
	if err != nil {
		logger.Error("failed to claim job",
			logging.Error(err),
			logging.String(logging.FieldEventType, "job_claim_failed"),
			logging.String(logging.FieldErrorHint, "job changed status concurrently; inspect queue list"),
		)
		e.setLastError(err)
		return false, false
	}

	e.setActive(running)
	defer func() {
		e.setActive(nil)
		e.observer.ProgressText(running, "")
	}()
	e.observer.StatusChanged(running, "")

	started := time.Now()
	logger.Info("download started",
		logging.String(logging.FieldEventType, "job_start"),
		logging.String("url", running.URL),
		logging.String("target_dir", running.TargetDir),
		logging.String("format", running.Format),
	)

	title, execErr := e.execute(jobCtx, logger, running)
	if execErr != nil {
		return false, e.fail(logger, running, execErr)
	}

	done, err := e.store.Transition(running.ID, queue.StatusRunning, queue.StatusDone, func(j *queue.Job) {
		if title != "" {
			j.Title = title
		}
	})
	if err != nil {
		logger.Error("failed to record job completion", logging.Error(err))
		e.setLastError(err)
		return false, true
	}
	e.setLastJob(done)
	e.observer.StatusChanged(done, "")
	logger.Info("download completed",
		logging.String(logging.FieldEventType, "job_complete"),
		logging.String("title", done.Title),
		logging.Duration("duration", time.Since(started)),
	)
	return true, true
}

func (e *Engine) fail(logger *slog.Logger, job *queue.Job, execErr error) bool {
	detail := services.Details(execErr).Message
	failed, err := e.store.Transition(job.ID, queue.StatusRunning, queue.StatusError, func(j *queue.Job) {
		j.Detail = detail
	})
	e.setLastError(execErr)
	if err != nil {
		logger.Error("failed to record job failure", logging.Error(err))
		return true
	}
	e.setLastJob(failed)
	logging.ErrorWithContext(logger, "download failed", "job_failure",
		logging.Error(execErr),
		logging.Alert("job_failure"),
		logging.String(logging.FieldErrorHint, "fix the cause, then reset the job to retry"),
	)
	e.observer.StatusChanged(failed, detail)
	return true
}

// execute downloads and post-processes job. Panics are converted into
// download faults so the worker keeps running.
func (e *Engine) execute(ctx context.Context, logger *slog.Logger, job *queue.Job) (title string, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("job panicked",
				logging.Any("panic", r),
				logging.String("stack", string(debug.Stack())),
				logging.String(logging.FieldEventType, "job_panic"),
			)
			title = ""
			err = services.Wrap(services.ErrDownloadFault, "workflow", "process job", fmt.Sprintf("panic: %v", r), nil)
		}
	}()

	spec, err := e.resolveFormat(job.Format)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(job.TargetDir, 0o755); err != nil {
		return "", services.Wrap(services.ErrDownloadFault, "workflow", "create target dir", job.TargetDir, err)
	}

	req := ytdlp.Request{
		URL:         job.URL,
		TargetDir:   job.TargetDir,
		FormatSpec:  spec,
		ArchivePath: filepath.Join(job.TargetDir, e.archiveFile),
		TempDir:     e.tempDir,
	}
	if err := e.downloader.Download(ctx, req, func(line string) {
		e.observer.ProgressText(job, textutil.StripANSI(line))
	}); err != nil {
		if !errors.Is(err, services.ErrDownloadFault) {
			err = services.Wrap(services.ErrDownloadFault, "workflow", "download", "", err)
		}
		return "", err
	}

	result := e.post.Process(ctx, job.VideoID, job.TargetDir)
	if len(result.Faults) > 0 {
		logging.WarnWithContext(logger, "post-processing finished with faults", "postprocess_partial",
			logging.Int("faults", len(result.Faults)),
			logging.String(logging.FieldImpact, "download kept; some files keep their original names"),
		)
	}
	if result.HasTitle {
		return result.Title, nil
	}
	return "", nil
}

func (e *Engine) resolveFormat(label string) (string, error) {
	if label == "" {
		return "", nil
	}
	for _, format := range e.formats {
		if format.Label == label {
			return format.Spec, nil
		}
	}
	return "", services.Wrap(services.ErrDownloadFault, "workflow", "resolve format", fmt.Sprintf("format %q is not in the catalog", label), nil)
}
