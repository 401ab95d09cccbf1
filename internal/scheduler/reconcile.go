package scheduler

import (
	"context"

	"go.uber.org/zap"
)

// ReconcileJob drains repair tasks queued by refunds and compensations that
// could not be applied inline.
func (s *Scheduler) ReconcileJob(ctx context.Context) (int, error) {
	resolved, err := s.orchestrator.Reconcile(ctx)
	if err != nil {
		return 0, err
	}
	if resolved > 0 {
		s.log.Info("reconciliation sweep completed", zap.Int("resolved", resolved))
	}
	return resolved, nil
}
