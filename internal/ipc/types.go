package ipc

import (
	"time"

	"ytqueue/internal/deps"
	"ytqueue/internal/queue"
)

// StartRequest triggers daemon workflow startup.
type StartRequest struct{}

// StartResponse indicates whether the daemon was started.
type StartResponse struct {
	Started bool   `json:"started"`
	Message string `json:"message"`
}

// StopRequest stops daemon workflow.
type StopRequest struct{}

// StopResponse indicates stop result.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// Job is the wire form of a queue job.
type Job struct {
	ID        int64  `json:"id"`
	URL       string `json:"url"`
	VideoID   string `json:"video_id"`
	Title     string `json:"title"`
	TargetDir string `json:"target_dir"`
	Format    string `json:"format"`
	Status    string `json:"status"`
	Detail    string `json:"detail"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// FromJob converts a queue job into its wire form.
func FromJob(job *queue.Job) Job {
	if job == nil {
		return Job{}
	}
	return Job{
		ID:        job.ID,
		URL:       job.URL,
		VideoID:   job.VideoID,
		Title:     job.Title,
		TargetDir: job.TargetDir,
		Format:    job.Format,
		Status:    string(job.Status),
		Detail:    job.Detail,
		CreatedAt: formatTime(job.CreatedAt),
		UpdatedAt: formatTime(job.UpdatedAt),
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// DependencyStatus describes availability of an external dependency.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail"`
}

// FromDependencies converts dependency checks into their wire form.
func FromDependencies(statuses []deps.Status) []DependencyStatus {
	out := make([]DependencyStatus, 0, len(statuses))
	for _, dep := range statuses {
		out = append(out, DependencyStatus{
			Name:        dep.Name,
			Command:     dep.Command,
			Description: dep.Description,
			Optional:    dep.Optional,
			Available:   dep.Available,
			Detail:      dep.Detail,
		})
	}
	return out
}

// StatusResponse represents combined daemon/workflow status information.
type StatusResponse struct {
	Running       bool               `json:"running"`
	Processing    bool               `json:"processing"`
	QueueStats    map[string]int     `json:"queue_stats"`
	ActiveJob     *Job               `json:"active_job"`
	LastJob       *Job               `json:"last_job"`
	LastError     string             `json:"last_error"`
	Progress      string             `json:"progress"`
	DroppedEvents int64              `json:"dropped_events"`
	LockPath      string             `json:"lock_path"`
	QueueDBPath   string             `json:"queue_db_path"`
	LogPath       string             `json:"log_path"`
	Dependencies  []DependencyStatus `json:"dependencies"`
	PID           int                `json:"pid"`
}

// SubmitRequest carries a prospective job. Empty Format and TargetDir
// select the daemon defaults.
type SubmitRequest struct {
	URL       string `json:"url"`
	Format    string `json:"format"`
	TargetDir string `json:"target_dir"`
}

// SubmitResponse reports whether the job was admitted.
type SubmitResponse struct {
	Admitted bool   `json:"admitted"`
	Reason   string `json:"reason"`
	Message  string `json:"message"`
	Job      *Job   `json:"job"`
}

// CheckResponse reports whether a submission would be admitted.
type CheckResponse struct {
	Admitted  bool   `json:"admitted"`
	Reason    string `json:"reason"`
	Message   string `json:"message"`
	URL       string `json:"url"`
	Format    string `json:"format"`
	TargetDir string `json:"target_dir"`
}

// ResetRequest names the failed job to requeue by URL.
type ResetRequest struct {
	URL string `json:"url"`
}

// ResetResponse contains the requeued job.
type ResetResponse struct {
	Job Job `json:"job"`
}

// CompactRequest removes done jobs.
type CompactRequest struct{}

// CompactResponse reports number of removed entries.
type CompactResponse struct {
	Removed int `json:"removed"`
}

// QueueListRequest filters queue listing by status.
type QueueListRequest struct {
	Statuses []string `json:"statuses"`
}

// QueueListResponse contains queue entries.
type QueueListResponse struct {
	Jobs []Job `json:"jobs"`
}

// FormatsRequest fetches the format catalog.
type FormatsRequest struct{}

// Format is one catalog entry.
type Format struct {
	Label string `json:"label"`
	Spec  string `json:"spec"`
}

// FormatsResponse lists the format catalog and configured destinations.
type FormatsResponse struct {
	Formats    []Format `json:"formats"`
	TargetDirs []string `json:"target_dirs"`
}

// LogTailRequest fetches log lines based on offset and follow semantics.
type LogTailRequest struct {
	Offset     int64 `json:"offset"`
	Limit      int   `json:"limit"`
	Follow     bool  `json:"follow"`
	WaitMillis int   `json:"wait_millis"`
}

// LogTailResponse returns log lines and the next offset.
type LogTailResponse struct {
	Lines  []string `json:"lines"`
	Offset int64    `json:"offset"`
}

// TestNotificationRequest triggers a notification test.
type TestNotificationRequest struct{}

// TestNotificationResponse reports the notification test result.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}
