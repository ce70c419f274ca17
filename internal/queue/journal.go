package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Journal persists jobs in SQLite.
type Journal struct {
	db   *sql.DB
	path string
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

const jobColumns = "id, url, video_id, title, target_dir, format, status, detail, created_at, updated_at"

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func (j *Journal) execWithRetry(ctx context.Context, query string, args ...any) error {
	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		_, err := j.db.ExecContext(ctx, query, args...)
		return err
	})
}

// OpenJournal initializes or connects to the journal database at path.
func OpenJournal(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure journal directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	journal := &Journal{db: db, path: path}
	if err := journal.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return journal, nil
}

// Path returns the database file location.
func (j *Journal) Path() string {
	if j == nil {
		return ""
	}
	return j.path
}

// Close closes the underlying database connection.
func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}

// Save inserts or replaces job.
func (j *Journal) Save(ctx context.Context, job *Job) error {
	if job == nil {
		return errors.New("save job: nil job")
	}
	err := j.execWithRetry(ctx,
		`INSERT INTO jobs (`+jobColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT(id) DO UPDATE SET
             title = excluded.title,
             status = excluded.status,
             detail = excluded.detail,
             updated_at = excluded.updated_at`,
		job.ID,
		job.URL,
		job.VideoID,
		nullableString(job.Title),
		job.TargetDir,
		nullableString(job.Format),
		string(job.Status),
		nullableString(job.Detail),
		formatTime(job.CreatedAt),
		formatTime(job.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("save job %d: %w", job.ID, err)
	}
	return nil
}

// Delete removes the jobs with the given ids.
func (j *Journal) Delete(ctx context.Context, ids ...int64) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	if err := j.execWithRetry(ctx, "DELETE FROM jobs WHERE id IN ("+placeholders+")", args...); err != nil {
		return fmt.Errorf("delete jobs: %w", err)
	}
	return nil
}

// Load returns every persisted job ordered by id. Jobs recorded as running
// are rewritten as errors carrying DaemonStopReason.
func (j *Journal) Load(ctx context.Context) ([]*Job, error) {
	ctx = ensureContext(ctx)
	now := time.Now().UTC()
	if err := j.execWithRetry(ctx,
		`UPDATE jobs SET status = ?, detail = ?, updated_at = ? WHERE status = ?`,
		string(StatusError), DaemonStopReason, formatTime(now), string(StatusRunning),
	); err != nil {
		return nil, fmt.Errorf("fail interrupted jobs: %w", err)
	}

	rows, err := j.db.QueryContext(ctx, "SELECT "+jobColumns+" FROM jobs ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("query jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}
	return jobs, nil
}

// Stats counts persisted jobs per status without modifying any rows.
func (j *Journal) Stats(ctx context.Context) (Stats, error) {
	ctx = ensureContext(ctx)
	rows, err := j.db.QueryContext(ctx, "SELECT status, COUNT(*) FROM jobs GROUP BY status")
	if err != nil {
		return Stats{}, fmt.Errorf("query job stats: %w", err)
	}
	defer rows.Close()

	var stats Stats
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return Stats{}, fmt.Errorf("scan job stats: %w", err)
		}
		stats.addN(Status(status), count)
	}
	if err := rows.Err(); err != nil {
		return Stats{}, fmt.Errorf("iterate job stats: %w", err)
	}
	return stats, nil
}

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		id         int64
		url        string
		videoID    string
		title      sql.NullString
		targetDir  string
		format     sql.NullString
		statusStr  string
		detail     sql.NullString
		createdRaw string
		updatedRaw string
	)
	if err := scanner.Scan(&id, &url, &videoID, &title, &targetDir, &format, &statusStr, &detail, &createdRaw, &updatedRaw); err != nil {
		return nil, err
	}
	status, ok := ParseStatus(statusStr)
	if !ok {
		return nil, fmt.Errorf("job %d: unknown status %q", id, statusStr)
	}
	return &Job{
		ID:        id,
		URL:       url,
		VideoID:   videoID,
		Title:     title.String,
		TargetDir: targetDir,
		Format:    format.String,
		Status:    status,
		Detail:    detail.String,
		CreatedAt: parseTime(createdRaw),
		UpdatedAt: parseTime(updatedRaw),
	}, nil
}

func nullableString(value string) sql.NullString {
	if value == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: value, Valid: true}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(raw string) time.Time {
	parsed, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return parsed
}
