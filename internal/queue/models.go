package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a queue job.
type Status string

const (
	StatusWaiting Status = "waiting"
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusError   Status = "error"
)

// DaemonStopReason is the detail set on jobs that were running when the
// daemon went away.
const DaemonStopReason = "Daemon stopped"

var allStatuses = []Status{
	StatusWaiting,
	StatusRunning,
	StatusDone,
	StatusError,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

type statusTransition struct {
	from Status
	to   Status
}

var legalTransitions = map[statusTransition]struct{}{
	{from: StatusWaiting, to: StatusRunning}: {},
	{from: StatusRunning, to: StatusDone}:    {},
	{from: StatusRunning, to: StatusError}:   {},
	{from: StatusError, to: StatusWaiting}:   {},
}

// CanTransition reports whether from -> to is a legal edge.
func CanTransition(from, to Status) bool {
	_, ok := legalTransitions[statusTransition{from: from, to: to}]
	return ok
}

// Job is one requested download.
type Job struct {
	ID        int64
	URL       string
	VideoID   string
	Title     string
	TargetDir string
	Format    string
	Status    Status
	Detail    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DisplayTitle returns the title when known, otherwise the URL.
func (j Job) DisplayTitle() string {
	if strings.TrimSpace(j.Title) != "" {
		return j.Title
	}
	return j.URL
}

// Stats counts jobs per status.
type Stats struct {
	Total   int
	Waiting int
	Running int
	Done    int
	Error   int
}

func (s *Stats) add(status Status) {
	s.addN(status, 1)
}

func (s *Stats) addN(status Status, n int) {
	s.Total += n
	switch status {
	case StatusWaiting:
		s.Waiting += n
	case StatusRunning:
		s.Running += n
	case StatusDone:
		s.Done += n
	case StatusError:
		s.Error += n
	}
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}
