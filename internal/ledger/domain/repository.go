package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

var (
	ErrEntryNotFound  = errors.New("ledger_entry_not_found")
	ErrDuplicateDebit = errors.New("ledger_duplicate_debit")
	ErrInvalidEntry   = errors.New("ledger_invalid_entry")
)

type Repository interface {
	Append(ctx context.Context, entry *Entry) error
	FindByRunID(ctx context.Context, runID string, kind Kind) (*Entry, error)
	ListByAccount(ctx context.Context, accountID snowflake.ID, filter ListFilter) ([]Entry, error)
	ListByTenant(ctx context.Context, tenantID snowflake.ID, filter ListFilter) ([]Entry, error)
	// MarkStatus transitions the debit entry for runID from one status to
	// another. Returns false without error when the entry is no longer in
	// the from status; this is the orchestrator's idempotence guard.
	MarkStatus(ctx context.Context, runID string, from, to Status) (bool, error)
	AggregateByTenant(ctx context.Context, tenantID snowflake.ID, since, until time.Time) ([]FeatureDayStat, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type Service interface {
	Append(ctx context.Context, entry *Entry) (*Entry, error)
	FindDebitByRunID(ctx context.Context, runID string) (*Entry, error)
	ListByAccount(ctx context.Context, accountID snowflake.ID, filter ListFilter) ([]Entry, error)
	MarkStatus(ctx context.Context, runID string, from, to Status) (bool, error)
	Export(ctx context.Context, req ExportRequest) (*ExportResult, error)
	TenantStats(ctx context.Context, tenantID snowflake.ID, since, until time.Time) ([]FeatureDayStat, error)
}
