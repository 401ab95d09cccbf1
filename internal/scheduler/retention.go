package scheduler

import (
	"context"

	"go.uber.org/zap"
)

// RetentionJob prunes settled ledger entries older than the configured
// window. Pending entries are kept regardless of age.
func (s *Scheduler) RetentionJob(ctx context.Context) error {
	retentionDays := s.cfg.Scheduler.LedgerRetentionDays
	if retentionDays <= 0 {
		return nil
	}

	cutoff := s.clock.Now(ctx).AddDate(0, 0, -retentionDays)
	deleted, err := s.ledgerRepo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return err
	}
	if deleted > 0 {
		s.log.Info("ledger retention completed",
			zap.Time("cutoff", cutoff),
			zap.Int64("deleted", deleted))
	}
	return nil
}
