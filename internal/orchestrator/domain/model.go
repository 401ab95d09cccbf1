// Package domain defines the credit-gated run contract: the single entry
// point that debits, enqueues and settles gated feature runs.
package domain

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"

	accountdomain "github.com/pathworklabs/pathwork/internal/account/domain"
	runnerdomain "github.com/pathworklabs/pathwork/internal/runner/domain"
	walletdomain "github.com/pathworklabs/pathwork/internal/wallet/domain"
)

var (
	// ErrSystem covers internal inconsistencies (ledger write failed after a
	// debit, enqueue failed). Compensation has been attempted or queued by
	// the time it is returned.
	ErrSystem = errors.New("system_error")
)

type RunRequest struct {
	AccountID snowflake.ID
	TenantID  snowflake.ID
	Feature   string
	Plan      accountdomain.PlanTier
	Payload   json.RawMessage
	// Wait blocks for the terminal result (bounded by ctx); otherwise the
	// outcome is a queued handle for polling.
	Wait bool
}

type RunStatus string

const (
	RunQueued    RunStatus = "queued"
	RunRunning   RunStatus = "running"
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
)

type Outcome struct {
	RunID         string          `json:"run_id"`
	Status        RunStatus       `json:"status"`
	Data          json.RawMessage `json:"data,omitempty"`
	Degraded      bool            `json:"degraded,omitempty"`
	FailureReason string          `json:"failure_reason,omitempty"`
}

// RepairTask records a wallet/ledger compensation that could not be applied
// inline. It is drained by the scheduler's reconciliation sweep; it is never
// silently dropped.
type RepairTask struct {
	ID         snowflake.ID          `gorm:"primaryKey" json:"id"`
	AccountID  snowflake.ID          `gorm:"not null;index" json:"account_id"`
	TenantID   snowflake.ID          `gorm:"not null" json:"tenant_id"`
	RunID      string                `gorm:"type:text;index" json:"run_id"`
	Feature    string                `gorm:"type:text" json:"feature"`
	Currency   walletdomain.Currency `gorm:"type:text;not null" json:"currency"`
	Amount     int64                 `gorm:"not null" json:"amount"`
	Action     RepairAction          `gorm:"type:text;not null" json:"action"`
	Reason     string                `gorm:"type:text" json:"reason"`
	Attempts   int                   `gorm:"not null;default:0" json:"attempts"`
	ResolvedAt *time.Time            `gorm:"index" json:"resolved_at,omitempty"`
	CreatedAt  time.Time             `gorm:"not null" json:"created_at"`
}

func (RepairTask) TableName() string { return "repair_tasks" }

type RepairAction string

const (
	// RepairRefund: job failed, refund credit did not persist.
	RepairRefund RepairAction = "refund"
	// RepairRecordRefund: refund credited, the refund ledger entry is missing.
	RepairRecordRefund RepairAction = "record_refund"
	// RepairCompensate: debit applied, pending ledger write failed, and the
	// inline compensating credit failed too.
	RepairCompensate RepairAction = "compensate"
)

type RepairRepository interface {
	Create(ctx context.Context, task *RepairTask) error
	ListUnresolved(ctx context.Context, limit int) ([]RepairTask, error)
	MarkResolved(ctx context.Context, id snowflake.ID) error
	IncrementAttempts(ctx context.Context, id snowflake.ID) error
}

type Service interface {
	RunGatedFeature(ctx context.Context, req RunRequest) (*Outcome, error)
	GetRun(ctx context.Context, runID string) (*Outcome, error)
	TopUp(ctx context.Context, accountID, tenantID snowflake.ID, currency walletdomain.Currency, amount int64, note string) error
	// HandleTerminal settles credits for a terminal job. Idempotent against
	// duplicate deliveries for the same run.
	HandleTerminal(ctx context.Context, job *runnerdomain.Job) error
	// Reconcile drains pending repair tasks. Returns the number resolved.
	Reconcile(ctx context.Context) (int, error)
}
