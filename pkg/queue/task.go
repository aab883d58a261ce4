package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Task is one queued unit of work. Payload keeps the producer's JSON untouched until the
// job decodes it.
type Task struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Payload    json.RawMessage `json:"payload"`
	Attempt    int             `json:"attempt"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
	LastError  string          `json:"last_error,omitempty"`
}

// Decode unmarshals the payload into v.
func (t Task) Decode(v interface{}) error {
	if len(t.Payload) == 0 {
		return fmt.Errorf("task %s: empty payload", t.ID)
	}
	if err := json.Unmarshal(t.Payload, v); err != nil {
		return fmt.Errorf("task %s: decode %s payload: %w", t.ID, t.Type, err)
	}
	return nil
}

// Job handles every task of one type. Errors are retried unless wrapped with Permanent.
type Job interface {
	Type() string
	Handle(ctx context.Context, t Task) error
}

// Publisher enqueues a payload for asynchronous processing and returns the task ID.
type Publisher interface {
	Enqueue(ctx context.Context, taskType string, payload interface{}) (string, error)
}

// Stats is a snapshot of queue lengths.
type Stats struct {
	Pending  int64 `json:"pending"`
	Retrying int64 `json:"retrying"`
	Dead     int64 `json:"dead"`
}

var ErrNotRunning = errors.New("queue: not running")

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as final: the task goes to the dead list without further attempts.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

func IsPermanent(err error) bool {
	var pe *permanentError
	return errors.As(err, &pe)
}

type messageIDKey struct{}

// WithMessageID attaches the ID of the task being handled to ctx.
func WithMessageID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, messageIDKey{}, id)
}

// MessageID returns the ID of the task being handled, if any.
func MessageID(ctx context.Context) string {
	id, _ := ctx.Value(messageIDKey{}).(string)
	return id
}
