package daemon

import (
	"time"

	"ytqueue/internal/logging"
	"ytqueue/internal/queue"
	"ytqueue/internal/workflow"
)

func (d *Daemon) relay() {
	defer close(d.relayDone)
	for event := range d.stream.Events() {
		d.handleEvent(event)
	}
}

func (d *Daemon) handleEvent(event workflow.Event) {
	switch event.Kind {
	case workflow.EventStatusChanged:
		d.handleStatusChanged(event)
	case workflow.EventProgress:
		d.setProgress(event.Text)
		if event.Text != "" {
			d.logger.Debug("progress", logging.String("text", event.Text))
		}
	case workflow.EventQueueEmpty:
		d.handleQueueEmpty(event.Summary)
	}
}

func (d *Daemon) handleStatusChanged(event workflow.Event) {
	job := event.Job
	if job == nil {
		return
	}
	d.persist(d.baseCtx, job.ID)

	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "job_status_changed"),
		logging.Int64(logging.FieldJobID, job.ID),
		logging.String(logging.FieldVideoID, job.VideoID),
		logging.String("status", string(job.Status)),
	}
	if event.Detail != "" {
		attrs = append(attrs, logging.String("detail", event.Detail))
	}
	d.logger.Info("job status changed", logging.Args(attrs...)...)

	if job.Status != queue.StatusRunning {
		d.setProgress("")
	}
	if job.Status != queue.StatusError {
		return
	}
	if err := d.notifier.NotifyDownloadFailed(d.baseCtx, job.DisplayTitle(), event.Detail); err != nil {
		d.notifyFailed("download failure", err)
	}
}

func (d *Daemon) handleQueueEmpty(summary workflow.QueueSummary) {
	d.setProgress("")
	d.logger.Info("queue empty",
		logging.String(logging.FieldEventType, "queue_empty"),
		logging.Int("processed", summary.Processed),
		logging.Int("failed", summary.Failed),
		logging.Duration("elapsed", summary.Elapsed.Round(time.Millisecond)),
	)
	if err := d.notifier.NotifyQueueEmpty(d.baseCtx, summary.Processed, summary.Failed, summary.Elapsed); err != nil {
		d.notifyFailed("queue empty", err)
	}
}

func (d *Daemon) notifyFailed(kind string, err error) {
	logging.WarnWithContext(d.logger, "notification failed", "notification_failed",
		logging.String("notification", kind),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "verify notifications.ntfy_topic and network access"),
		logging.String(logging.FieldImpact, "notification was not delivered"),
	)
}

func (d *Daemon) setProgress(text string) {
	d.progressMu.Lock()
	d.progress = text
	d.progressMu.Unlock()
}
