package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	walletdomain "github.com/pathworklabs/pathwork/internal/wallet/domain"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) walletdomain.Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, wallet *walletdomain.Wallet) error {
	if wallet.UpdatedAt.IsZero() {
		wallet.UpdatedAt = time.Now().UTC()
	}
	return r.db.WithContext(ctx).Create(wallet).Error
}

func (r *repository) Get(ctx context.Context, accountID snowflake.ID) (*walletdomain.Wallet, error) {
	var w walletdomain.Wallet
	err := r.db.WithContext(ctx).First(&w, "account_id = ?", accountID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, walletdomain.ErrWalletNotFound
		}
		return nil, err
	}
	return &w, nil
}

func column(currency walletdomain.Currency) string {
	if currency == walletdomain.CurrencyGold {
		return "gold"
	}
	return "silver"
}

// Debit is the serialization point for overdraw protection: the balance read
// and write happen inside one UPDATE, so two racing debits can never both
// pass the >= check.
func (r *repository) Debit(ctx context.Context, accountID snowflake.ID, currency walletdomain.Currency, amount int64) error {
	col := column(currency)
	res := r.db.WithContext(ctx).Exec(
		`UPDATE wallets
		 SET `+col+` = `+col+` - ?, version = version + 1, updated_at = ?
		 WHERE account_id = ? AND `+col+` >= ?`,
		amount, time.Now().UTC(), accountID, amount,
	)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		if _, err := r.Get(ctx, accountID); err != nil {
			return err
		}
		return walletdomain.ErrInsufficientCredits
	}
	return nil
}

func (r *repository) Credit(ctx context.Context, accountID snowflake.ID, currency walletdomain.Currency, amount int64) error {
	col := column(currency)
	res := r.db.WithContext(ctx).Exec(
		`UPDATE wallets
		 SET `+col+` = `+col+` + ?, version = version + 1, updated_at = ?
		 WHERE account_id = ?`,
		amount, time.Now().UTC(), accountID,
	)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return walletdomain.ErrWalletNotFound
	}
	return nil
}

func (r *repository) CreditCapped(ctx context.Context, accountID snowflake.ID, currency walletdomain.Currency, amount, cap int64) (int64, error) {
	col := column(currency)
	var granted int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var w walletdomain.Wallet
		if err := tx.Clauses().First(&w, "account_id = ?", accountID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return walletdomain.ErrWalletNotFound
			}
			return err
		}

		current := w.Silver
		if currency == walletdomain.CurrencyGold {
			current = w.Gold
		}
		granted = amount
		if current+amount > cap {
			granted = cap - current
		}
		if granted <= 0 {
			granted = 0
			return nil
		}

		// Guarded by version so a concurrent mutation retries via the
		// caller's next scheduler tick rather than double-granting.
		res := tx.Exec(
			`UPDATE wallets
			 SET `+col+` = `+col+` + ?, version = version + 1, updated_at = ?
			 WHERE account_id = ? AND version = ?`,
			granted, time.Now().UTC(), accountID, w.Version,
		)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			granted = 0
		}
		return nil
	})
	return granted, err
}
