package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	accountdomain "github.com/pathworklabs/pathwork/internal/account/domain"
	ledgerdomain "github.com/pathworklabs/pathwork/internal/ledger/domain"
	walletdomain "github.com/pathworklabs/pathwork/internal/wallet/domain"
)

const (
	featureDailyRefill      = "daily_refill"
	featureMonthlyAllowance = "monthly_allowance"
)

// DailyRefillJob grants each account its daily silver, saturating at the
// configured cap. The ledger system entry doubles as the once-per-day guard,
// so reruns and concurrent scheduler instances do not double-grant.
func (s *Scheduler) DailyRefillJob(ctx context.Context) error {
	amount := s.cfg.Credits.DailySilverRefill
	cap := s.cfg.Credits.DailySilverCap
	if amount <= 0 || cap <= 0 {
		return nil
	}

	accounts, err := s.accounts.ListAccounts(ctx)
	if err != nil {
		return err
	}

	now := s.clock.Now(ctx)
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	granted := 0
	for _, account := range accounts {
		done, err := s.hasSystemEntry(ctx, account, featureDailyRefill, dayStart)
		if err != nil {
			s.log.Error("refill guard check failed",
				zap.String("account_id", account.ID.String()), zap.Error(err))
			continue
		}
		if done {
			continue
		}

		added, err := s.wallet.CreditCapped(ctx, account.ID, walletdomain.CurrencySilver, amount, cap)
		if err != nil {
			s.log.Error("daily refill credit failed",
				zap.String("account_id", account.ID.String()), zap.Error(err))
			continue
		}
		if added <= 0 {
			continue
		}

		if _, err := s.ledger.Append(ctx, &ledgerdomain.Entry{
			AccountID: account.ID,
			TenantID:  account.TenantID,
			Feature:   featureDailyRefill,
			Currency:  string(walletdomain.CurrencySilver),
			Amount:    added,
			Kind:      ledgerdomain.KindSystem,
			Status:    ledgerdomain.StatusCompleted,
			CreatedAt: now,
		}); err != nil {
			s.log.Error("daily refill entry write failed",
				zap.String("account_id", account.ID.String()), zap.Error(err))
			continue
		}
		granted++
	}

	if granted > 0 {
		s.log.Info("daily refill completed", zap.Int("accounts", granted))
	}
	return nil
}

// MonthlyAllowanceJob grants pro accounts their monthly gold bundle.
func (s *Scheduler) MonthlyAllowanceJob(ctx context.Context) error {
	amount := s.cfg.Credits.MonthlyGoldPro
	if amount <= 0 {
		return nil
	}

	accounts, err := s.accounts.ListProAccounts(ctx)
	if err != nil {
		return err
	}

	now := s.clock.Now(ctx)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	granted := 0
	for _, account := range accounts {
		done, err := s.hasSystemEntry(ctx, account, featureMonthlyAllowance, monthStart)
		if err != nil {
			s.log.Error("allowance guard check failed",
				zap.String("account_id", account.ID.String()), zap.Error(err))
			continue
		}
		if done {
			continue
		}

		if err := s.wallet.Credit(ctx, account.ID, walletdomain.CurrencyGold, amount); err != nil {
			s.log.Error("monthly allowance credit failed",
				zap.String("account_id", account.ID.String()), zap.Error(err))
			continue
		}

		if _, err := s.ledger.Append(ctx, &ledgerdomain.Entry{
			AccountID: account.ID,
			TenantID:  account.TenantID,
			Feature:   featureMonthlyAllowance,
			Currency:  string(walletdomain.CurrencyGold),
			Amount:    amount,
			Kind:      ledgerdomain.KindSystem,
			Status:    ledgerdomain.StatusCompleted,
			CreatedAt: now,
		}); err != nil {
			s.log.Error("monthly allowance entry write failed",
				zap.String("account_id", account.ID.String()), zap.Error(err))
			continue
		}
		granted++
	}

	if granted > 0 {
		s.log.Info("monthly allowance completed", zap.Int("accounts", granted))
	}
	return nil
}

func (s *Scheduler) hasSystemEntry(ctx context.Context, account accountdomain.Account, feature string, since time.Time) (bool, error) {
	entries, err := s.ledger.ListByAccount(ctx, account.ID, ledgerdomain.ListFilter{
		Feature: feature,
		Kind:    ledgerdomain.KindSystem,
		Since:   &since,
		Limit:   1,
	})
	if err != nil {
		return false, err
	}
	return len(entries) > 0, nil
}
