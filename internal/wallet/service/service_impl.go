package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"

	walletdomain "github.com/pathworklabs/pathwork/internal/wallet/domain"
)

type ServiceParam struct {
	fx.In

	Log  *zap.Logger
	Repo walletdomain.Repository
}

type service struct {
	log  *zap.Logger
	repo walletdomain.Repository
}

func NewService(p ServiceParam) walletdomain.Service {
	return &service{
		log:  p.Log.Named("wallet.service"),
		repo: p.Repo,
	}
}

func (s *service) CreateWallet(ctx context.Context, accountID, tenantID snowflake.ID, silver, gold int64) error {
	return s.repo.Create(ctx, &walletdomain.Wallet{
		AccountID: accountID,
		TenantID:  tenantID,
		Silver:    silver,
		Gold:      gold,
		UpdatedAt: time.Now().UTC(),
	})
}

func (s *service) GetBalances(ctx context.Context, accountID snowflake.ID) (walletdomain.Balances, error) {
	w, err := s.repo.Get(ctx, accountID)
	if err != nil {
		return walletdomain.Balances{}, err
	}
	return walletdomain.Balances{Silver: w.Silver, Gold: w.Gold}, nil
}

func (s *service) Debit(ctx context.Context, accountID snowflake.ID, currency walletdomain.Currency, amount int64) error {
	if !currency.Valid() {
		return walletdomain.ErrInvalidCurrency
	}
	if amount <= 0 {
		return walletdomain.ErrInvalidAmount
	}
	if err := s.repo.Debit(ctx, accountID, currency, amount); err != nil {
		return err
	}
	s.log.Debug("debited wallet",
		zap.String("account_id", accountID.String()),
		zap.String("currency", string(currency)),
		zap.Int64("amount", amount))
	return nil
}

func (s *service) Credit(ctx context.Context, accountID snowflake.ID, currency walletdomain.Currency, amount int64) error {
	if !currency.Valid() {
		return walletdomain.ErrInvalidCurrency
	}
	if amount <= 0 {
		return walletdomain.ErrInvalidAmount
	}
	if err := s.repo.Credit(ctx, accountID, currency, amount); err != nil {
		return err
	}
	s.log.Debug("credited wallet",
		zap.String("account_id", accountID.String()),
		zap.String("currency", string(currency)),
		zap.Int64("amount", amount))
	return nil
}

func (s *service) CreditCapped(ctx context.Context, accountID snowflake.ID, currency walletdomain.Currency, amount, cap int64) (int64, error) {
	if !currency.Valid() {
		return 0, walletdomain.ErrInvalidCurrency
	}
	if amount <= 0 || cap <= 0 {
		return 0, walletdomain.ErrInvalidAmount
	}
	return s.repo.CreditCapped(ctx, accountID, currency, amount, cap)
}
