package workflow

import (
	"sync"
	"sync/atomic"
	"time"

	"ytqueue/internal/queue"
)

// QueueSummary describes one drain of the queue.
type QueueSummary struct {
	Processed int
	Failed    int
	Elapsed   time.Duration
}

// Observer receives engine notifications. Implementations must be safe for
// concurrent use and should return quickly.
type Observer interface {
	StatusChanged(job *queue.Job, detail string)
	ProgressText(job *queue.Job, text string)
	QueueEmpty(summary QueueSummary)
}

// NopObserver ignores every notification.
type NopObserver struct{}

func (NopObserver) StatusChanged(*queue.Job, string) {}
func (NopObserver) ProgressText(*queue.Job, string)  {}
func (NopObserver) QueueEmpty(QueueSummary)          {}

// EventKind classifies an Event.
type EventKind string

const (
	EventStatusChanged EventKind = "status_changed"
	EventProgress      EventKind = "progress"
	EventQueueEmpty    EventKind = "queue_empty"
)

// Event is a single observer notification.
type Event struct {
	Kind    EventKind
	Job     *queue.Job
	Detail  string
	Text    string
	Summary QueueSummary
	Time    time.Time
}

// DefaultEventBuffer is the channel capacity used when none is given.
const DefaultEventBuffer = 256

// EventStream implements Observer by publishing events on a buffered
// channel. Progress events are dropped when the buffer is full; status and
// queue-empty events wait for room.
type EventStream struct {
	ch      chan Event
	dropped atomic.Int64

	mu     sync.RWMutex
	closed bool
}

// NewEventStream creates a stream with the given buffer size.
func NewEventStream(buffer int) *EventStream {
	if buffer <= 0 {
		buffer = DefaultEventBuffer
	}
	return &EventStream{ch: make(chan Event, buffer)}
}

// Events returns the receive side of the stream.
func (s *EventStream) Events() <-chan Event {
	return s.ch
}

// Dropped returns how many progress events were discarded.
func (s *EventStream) Dropped() int64 {
	return s.dropped.Load()
}

// Close ends the stream. Later notifications are ignored.
func (s *EventStream) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.ch)
}

func (s *EventStream) StatusChanged(job *queue.Job, detail string) {
	s.publish(Event{Kind: EventStatusChanged, Job: copyJob(job), Detail: detail}, true)
}

func (s *EventStream) ProgressText(job *queue.Job, text string) {
	s.publish(Event{Kind: EventProgress, Job: copyJob(job), Text: text}, false)
}

func (s *EventStream) QueueEmpty(summary QueueSummary) {
	s.publish(Event{Kind: EventQueueEmpty, Summary: summary}, true)
}

func (s *EventStream) publish(event Event, mustDeliver bool) {
	event.Time = time.Now()
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}
	if mustDeliver {
		s.ch <- event
		return
	}
	select {
	case s.ch <- event:
	default:
		s.dropped.Add(1)
	}
}

func copyJob(job *queue.Job) *queue.Job {
	if job == nil {
		return nil
	}
	cp := *job
	return &cp
}
