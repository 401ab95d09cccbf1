// Package domain contains the wallet model and its contracts. Every account
// owns exactly one wallet with two independent credit pools: silver (free
// tier) and gold (paid tier).
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Currency string

const (
	CurrencySilver Currency = "silver"
	CurrencyGold   Currency = "gold"
)

func (c Currency) Valid() bool {
	return c == CurrencySilver || c == CurrencyGold
}

var (
	ErrWalletNotFound      = errors.New("wallet_not_found")
	ErrInsufficientCredits = errors.New("insufficient_credits")
	ErrInvalidCurrency     = errors.New("invalid_currency")
	ErrInvalidAmount       = errors.New("invalid_amount")
)

// Wallet balances are non-negative at all times. All mutation goes through
// Debit/Credit; no caller may read-then-write a balance outside of those.
type Wallet struct {
	AccountID snowflake.ID `gorm:"primaryKey" json:"account_id"`
	TenantID  snowflake.ID `gorm:"not null;index" json:"tenant_id"`
	Silver    int64        `gorm:"not null;default:0" json:"silver"`
	Gold      int64        `gorm:"not null;default:0" json:"gold"`
	Version   int64        `gorm:"not null;default:0" json:"-"`
	UpdatedAt time.Time    `gorm:"not null" json:"updated_at"`
}

func (Wallet) TableName() string { return "wallets" }

type Balances struct {
	Silver int64 `json:"silver"`
	Gold   int64 `json:"gold"`
}

type Repository interface {
	Create(ctx context.Context, wallet *Wallet) error
	Get(ctx context.Context, accountID snowflake.ID) (*Wallet, error)
	// Debit subtracts amount from the given pool as a single conditional
	// update. Returns ErrInsufficientCredits when the pool would go negative;
	// the row is untouched in that case.
	Debit(ctx context.Context, accountID snowflake.ID, currency Currency, amount int64) error
	// Credit adds amount to the given pool. Never fails on balance grounds.
	Credit(ctx context.Context, accountID snowflake.ID, currency Currency, amount int64) error
	// CreditCapped adds up to amount, saturating the pool at cap. Returns the
	// amount actually granted. Used by the daily refill.
	CreditCapped(ctx context.Context, accountID snowflake.ID, currency Currency, amount, cap int64) (int64, error)
}

type Service interface {
	CreateWallet(ctx context.Context, accountID, tenantID snowflake.ID, silver, gold int64) error
	GetBalances(ctx context.Context, accountID snowflake.ID) (Balances, error)
	Debit(ctx context.Context, accountID snowflake.ID, currency Currency, amount int64) error
	Credit(ctx context.Context, accountID snowflake.ID, currency Currency, amount int64) error
	CreditCapped(ctx context.Context, accountID snowflake.ID, currency Currency, amount, cap int64) (int64, error)
}
