// Package domain defines the async job model and the runner contract the
// orchestrator consumes.
package domain

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobSucceeded JobStatus = "succeeded"
	JobFailed    JobStatus = "failed"
)

func (s JobStatus) Terminal() bool {
	return s == JobSucceeded || s == JobFailed
}

var (
	ErrJobNotFound    = errors.New("job_not_found")
	ErrNoExecutor     = errors.New("no_executor_for_feature")
	ErrInvalidOutput  = errors.New("invalid_model_output")
	ErrAwaitCancelled = errors.New("await_cancelled")
)

// Job is one execution attempt of a gated feature, identified by RunID.
type Job struct {
	RunID         string         `gorm:"primaryKey;type:text" json:"run_id"`
	AccountID     snowflake.ID   `gorm:"not null;index" json:"account_id"`
	TenantID      snowflake.ID   `gorm:"not null;index" json:"tenant_id"`
	Feature       string         `gorm:"type:text;not null" json:"feature"`
	InputPayload  datatypes.JSON `gorm:"type:json" json:"input_payload,omitempty"`
	Status        JobStatus      `gorm:"type:text;not null;index" json:"status"`
	ResultPayload datatypes.JSON `gorm:"type:json" json:"result_payload,omitempty"`
	FailureReason string         `gorm:"type:text" json:"failure_reason,omitempty"`
	Degraded      bool           `gorm:"not null;default:false" json:"degraded"`
	Attempts      int            `gorm:"not null;default:0" json:"attempts"`
	CreatedAt     time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"not null" json:"updated_at"`
}

func (Job) TableName() string { return "jobs" }

// TerminalHandler receives every job that reaches a terminal status. The
// runner delivers it at least once per run; subscribers must be idempotent.
type TerminalHandler func(ctx context.Context, job *Job) error

type Runner interface {
	// Submit enqueues the job and returns immediately.
	Submit(ctx context.Context, job *Job) error
	// OnTerminal registers a handler for terminal transitions.
	OnTerminal(handler TerminalHandler)
	// Get reads the current job state.
	Get(ctx context.Context, runID string) (*Job, error)
	// Await blocks until the job is terminal or ctx is done. Abandoning the
	// wait does not cancel the job.
	Await(ctx context.Context, runID string) (*Job, error)
}

// Executor performs the feature's model call. Execute is retried by the
// worker; Repair gets one chance to fix syntactically invalid output; fallback
// produces a degraded summary when everything else is exhausted.
type Executor interface {
	Execute(ctx context.Context, job *Job) (json.RawMessage, error)
	Repair(ctx context.Context, job *Job, invalid []byte) (json.RawMessage, error)
	Fallback(ctx context.Context, job *Job) (json.RawMessage, error)
}

// ExecutorRegistry resolves the executor for a feature code.
type ExecutorRegistry interface {
	For(feature string) (Executor, bool)
}

type Repository interface {
	Create(ctx context.Context, job *Job) error
	Get(ctx context.Context, runID string) (*Job, error)
	// MarkRunning transitions queued -> running; false when already claimed.
	MarkRunning(ctx context.Context, runID string) (bool, error)
	SetTerminal(ctx context.Context, job *Job) error
}
