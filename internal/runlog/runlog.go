// Package runlog records the history of collection commands so operators can
// see what ran, when, and what it produced.
package runlog

import (
	"context"
	"time"
)

// Status is the lifecycle state of a recorded run.
type Status string

const (
	StatusRunning  Status = "running"
	StatusComplete Status = "complete"
	StatusFailed   Status = "failed"
)

// Entry is one recorded command invocation.
type Entry struct {
	ID          string             `json:"id"`
	Command     string             `json:"command"`
	Status      Status             `json:"status"`
	StartedAt   time.Time          `json:"started_at"`
	CompletedAt *time.Time         `json:"completed_at,omitempty"`
	Artifacts   []string           `json:"artifacts,omitempty"`
	Metrics     map[string]float64 `json:"metrics,omitempty"`
	Error       string             `json:"error,omitempty"`
}

// Duration reports how long the run took, or how long it has been running
// relative to now when it has not completed.
func (e Entry) Duration(now time.Time) time.Duration {
	if e.CompletedAt != nil {
		return e.CompletedAt.Sub(e.StartedAt)
	}
	return now.Sub(e.StartedAt)
}

// Result holds the outcome of a successful run, passed to Complete.
type Result struct {
	Artifacts []string           `json:"artifacts,omitempty"`
	Metrics   map[string]float64 `json:"metrics,omitempty"`
}

// Store persists run history.
type Store interface {
	Start(ctx context.Context, command string) (*Entry, error)
	Complete(ctx context.Context, id string, result *Result) error
	Fail(ctx context.Context, id string, errMsg string) error
	List(ctx context.Context, limit int) ([]Entry, error)
	Migrate(ctx context.Context) error
	Close() error
}
