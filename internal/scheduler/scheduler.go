// Package scheduler runs the background maintenance jobs: credit refills,
// the reconciliation sweep and ledger retention.
package scheduler

import (
	"context"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	accountdomain "github.com/pathworklabs/pathwork/internal/account/domain"
	"github.com/pathworklabs/pathwork/internal/clock"
	"github.com/pathworklabs/pathwork/internal/config"
	ledgerdomain "github.com/pathworklabs/pathwork/internal/ledger/domain"
	orchestratordomain "github.com/pathworklabs/pathwork/internal/orchestrator/domain"
	walletdomain "github.com/pathworklabs/pathwork/internal/wallet/domain"
)

type Params struct {
	fx.In

	Log          *zap.Logger
	Cfg          config.Config
	Clock        clock.Clock
	Accounts     accountdomain.Repository
	Wallet       walletdomain.Service
	Ledger       ledgerdomain.Service
	LedgerRepo   ledgerdomain.Repository
	Orchestrator orchestratordomain.Service
}

type Scheduler struct {
	log          *zap.Logger
	cfg          config.Config
	clock        clock.Clock
	accounts     accountdomain.Repository
	wallet       walletdomain.Service
	ledger       ledgerdomain.Service
	ledgerRepo   ledgerdomain.Repository
	orchestrator orchestratordomain.Service
}

func New(p Params) *Scheduler {
	return &Scheduler{
		log:          p.Log.Named("scheduler"),
		cfg:          p.Cfg,
		clock:        p.Clock,
		accounts:     p.Accounts,
		wallet:       p.Wallet,
		ledger:       p.Ledger,
		ledgerRepo:   p.LedgerRepo,
		orchestrator: p.Orchestrator,
	}
}

// RunForever ticks until ctx is cancelled. Each job is individually
// best-effort; a failing job never stops the loop.
func (s *Scheduler) RunForever(ctx context.Context) {
	tick := time.Duration(s.cfg.Scheduler.TickSeconds) * time.Second
	if tick <= 0 {
		tick = time.Minute
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	s.log.Info("scheduler started", zap.Duration("tick", tick))
	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler stopped")
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	if _, err := s.ReconcileJob(ctx); err != nil {
		s.log.Error("reconcile job failed", zap.Error(err))
	}
	if err := s.DailyRefillJob(ctx); err != nil {
		s.log.Error("daily refill job failed", zap.Error(err))
	}
	if err := s.MonthlyAllowanceJob(ctx); err != nil {
		s.log.Error("monthly allowance job failed", zap.Error(err))
	}
	if err := s.RetentionJob(ctx); err != nil {
		s.log.Error("retention job failed", zap.Error(err))
	}
}
