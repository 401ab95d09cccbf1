package service

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"

	ledgerdomain "github.com/pathworklabs/pathwork/internal/ledger/domain"
)

type ServiceParam struct {
	fx.In

	Log  *zap.Logger
	Repo ledgerdomain.Repository
	Node *snowflake.Node
}

type service struct {
	log  *zap.Logger
	repo ledgerdomain.Repository
	node *snowflake.Node
}

func NewService(p ServiceParam) ledgerdomain.Service {
	return &service{
		log:  p.Log.Named("ledger.service"),
		repo: p.Repo,
		node: p.Node,
	}
}

func (s *service) Append(ctx context.Context, entry *ledgerdomain.Entry) (*ledgerdomain.Entry, error) {
	if entry.Amount <= 0 || entry.Feature == "" || entry.Kind == "" || entry.Status == "" {
		return nil, ledgerdomain.ErrInvalidEntry
	}

	// One debit per run. Duplicates indicate an orchestrator bug upstream,
	// so they are rejected rather than absorbed.
	if entry.Kind == ledgerdomain.KindDebit && entry.RunID != "" {
		if _, err := s.repo.FindByRunID(ctx, entry.RunID, ledgerdomain.KindDebit); err == nil {
			return nil, ledgerdomain.ErrDuplicateDebit
		} else if !errors.Is(err, ledgerdomain.ErrEntryNotFound) {
			return nil, err
		}
	}

	if entry.ID == 0 {
		entry.ID = s.node.Generate()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if err := s.repo.Append(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *service) FindDebitByRunID(ctx context.Context, runID string) (*ledgerdomain.Entry, error) {
	return s.repo.FindByRunID(ctx, runID, ledgerdomain.KindDebit)
}

func (s *service) ListByAccount(ctx context.Context, accountID snowflake.ID, filter ledgerdomain.ListFilter) ([]ledgerdomain.Entry, error) {
	return s.repo.ListByAccount(ctx, accountID, filter)
}

func (s *service) MarkStatus(ctx context.Context, runID string, from, to ledgerdomain.Status) (bool, error) {
	updated, err := s.repo.MarkStatus(ctx, runID, from, to)
	if err != nil {
		return false, err
	}
	if !updated {
		s.log.Debug("ledger status transition skipped",
			zap.String("run_id", runID),
			zap.String("from", string(from)),
			zap.String("to", string(to)))
	}
	return updated, nil
}

func (s *service) TenantStats(ctx context.Context, tenantID snowflake.ID, since, until time.Time) ([]ledgerdomain.FeatureDayStat, error) {
	return s.repo.AggregateByTenant(ctx, tenantID, since, until)
}
