// Package queue provides the backend-agnostic async job abstraction used
// to run review work. Two interchangeable backends implement one
// send/health/stats contract: a Redis broker with real queues and
// workers, and a serverless HTTP relay with no persistent queue
// semantics. The backend is selected once per process from configuration
// and injected into call sites.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// EventName is one of the fixed event kinds flowing through the system.
type EventName string

const (
	EventSubmissionReceived EventName = "submission.received"
	EventContextGenerate    EventName = "context.generate"
	EventReviewSingle       EventName = "review.single"
	EventReviewBatch        EventName = "review.batch"
	EventReviewCompleted    EventName = "review.completed"
	EventNotificationSend   EventName = "notification.send"
)

// Event is a transport-neutral queue message. Backends translate it to
// their own wire format.
type Event struct {
	Name      EventName       `json:"name"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewEvent builds an Event, marshaling data as the payload.
func NewEvent(name EventName, data any) (Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Event{}, fmt.Errorf("marshal event data: %w", err)
	}
	return Event{Name: name, Data: raw, Timestamp: time.Now().UTC()}, nil
}

// BackoffType selects the retry delay curve.
type BackoffType string

const (
	BackoffExponential BackoffType = "exponential"
	BackoffFixed       BackoffType = "fixed"
)

// Backoff describes how retry delays grow between attempts.
type Backoff struct {
	Type  BackoffType   `json:"type"`
	Delay time.Duration `json:"delay"`
}

// DelayFor returns the delay before retrying after the given failed
// attempt (1-based). Exponential doubles per attempt: 5s, 10s, 20s.
func (b Backoff) DelayFor(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if b.Type == BackoffFixed {
		return b.Delay
	}
	return b.Delay * time.Duration(1<<uint(attempt-1))
}

// JobOptions controls scheduling, retries, and retention for one job.
type JobOptions struct {
	Priority      int           `json:"priority,omitempty"`
	Delay         time.Duration `json:"delay,omitempty"`
	Attempts      int           `json:"attempts"`
	Backoff       Backoff       `json:"backoff"`
	KeepCompleted int           `json:"keepCompleted"`
	KeepFailed    int           `json:"keepFailed"`
}

// DefaultJobOptions is the standard policy: three attempts with
// exponential backoff starting at 5s, and bounded retention of recent
// completed/failed jobs for diagnostics.
func DefaultJobOptions() JobOptions {
	return JobOptions{
		Attempts:      3,
		Backoff:       Backoff{Type: BackoffExponential, Delay: 5 * time.Second},
		KeepCompleted: 100,
		KeepFailed:    500,
	}
}

// Physical queue names.
const (
	QueueContextGeneration = "context-generation"
	QueueSingleReview      = "single-review"
	QueueBatchReview       = "batch-review"
	QueueNotifications     = "notifications"
	QueueReviewProcessing  = "review-processing"
)

// eventQueues routes event names to physical queues.
var eventQueues = map[EventName]string{
	EventContextGenerate:  QueueContextGeneration,
	EventReviewSingle:     QueueSingleReview,
	EventReviewBatch:      QueueBatchReview,
	EventReviewCompleted:  QueueNotifications,
	EventNotificationSend: QueueNotifications,
}

// QueueFor returns the physical queue for an event name. Unmapped names
// fall back to the review-processing queue.
func QueueFor(name EventName) string {
	if q, ok := eventQueues[name]; ok {
		return q
	}
	return QueueReviewProcessing
}

// Queues lists every physical queue, for stats collection.
func Queues() []string {
	return []string{
		QueueContextGeneration,
		QueueSingleReview,
		QueueBatchReview,
		QueueNotifications,
		QueueReviewProcessing,
	}
}

// QueueStats is a point-in-time count of jobs by state.
type QueueStats struct {
	Waiting   int64 `json:"waiting"`
	Active    int64 `json:"active"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
}

// HealthStatus reports backend health without throwing: a failed check
// is data, not a crash.
type HealthStatus struct {
	Healthy bool   `json:"healthy"`
	Details string `json:"details,omitempty"`
}

// ErrBackendUnavailable indicates no queue backend could be constructed
// from the current configuration.
var ErrBackendUnavailable = errors.New("queue backend unavailable")

// Dispatcher is the single contract both backends satisfy.
type Dispatcher interface {
	Send(ctx context.Context, event Event, opts JobOptions) (string, error)
	SendBatch(ctx context.Context, events []Event, opts JobOptions) ([]string, error)
	IsConnected(ctx context.Context) bool
	Stats(ctx context.Context) (QueueStats, error)
	Health(ctx context.Context) HealthStatus
	Close() error
}

// newJobID generates a ULID job identifier.
func newJobID() string {
	entropy := rand.New(rand.NewSource(time.Now().UnixNano()))
	return ulid.MustNew(ulid.Timestamp(time.Now()), ulid.Monotonic(entropy, 0)).String()
}
