// Package domain contains the credit transaction ledger models. The ledger
// is append-only: amounts, kinds and correlations are never rewritten. The
// only permitted mutation is the single status transition of a debit entry
// when its run reaches a terminal state.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type Kind string

const (
	KindDebit  Kind = "debit"
	KindRefund Kind = "refund"
	KindTopup  Kind = "topup"
	KindSystem Kind = "system"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusRefunded  Status = "refunded"
)

type Entry struct {
	ID        snowflake.ID   `gorm:"primaryKey" json:"id"`
	AccountID snowflake.ID   `gorm:"not null;index" json:"account_id"`
	TenantID  snowflake.ID   `gorm:"not null;index" json:"tenant_id"`
	Feature   string         `gorm:"type:text;not null" json:"feature"`
	Currency  string         `gorm:"type:text;not null" json:"currency"`
	Amount    int64          `gorm:"not null" json:"amount"`
	Kind      Kind           `gorm:"type:text;not null" json:"kind"`
	RunID     string         `gorm:"type:text;index" json:"run_id"`
	Status    Status         `gorm:"type:text;not null" json:"status"`
	Metadata  datatypes.JSON `gorm:"type:json" json:"metadata,omitempty"`
	CreatedAt time.Time      `gorm:"not null;index" json:"created_at"`
}

func (Entry) TableName() string { return "ledger_entries" }

type ListFilter struct {
	Feature string
	Kind    Kind
	Status  Status
	Since   *time.Time
	Until   *time.Time
	Limit   int
}

// FeatureDayStat is one row of the tenant usage aggregation consumed by the
// admin dashboard.
type FeatureDayStat struct {
	Feature string `json:"feature"`
	Day     string `json:"day"`
	Runs    int64  `json:"runs"`
	Silver  int64  `json:"silver"`
	Gold    int64  `json:"gold"`
}
