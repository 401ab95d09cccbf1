package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	accountdomain "github.com/pathworklabs/pathwork/internal/account/domain"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) accountdomain.Repository {
	return &repository{db: db}
}

func (r *repository) CreateTenant(ctx context.Context, tenant *accountdomain.Tenant) error {
	if tenant.CreatedAt.IsZero() {
		tenant.CreatedAt = time.Now().UTC()
	}
	return r.db.WithContext(ctx).Create(tenant).Error
}

func (r *repository) GetTenantBySlug(ctx context.Context, slug string) (*accountdomain.Tenant, error) {
	var t accountdomain.Tenant
	err := r.db.WithContext(ctx).First(&t, "slug = ?", strings.ToLower(slug)).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, accountdomain.ErrTenantNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (r *repository) CreateAccount(ctx context.Context, account *accountdomain.Account) error {
	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now().UTC()
	}
	return r.db.WithContext(ctx).Create(account).Error
}

func (r *repository) GetAccount(ctx context.Context, id snowflake.ID) (*accountdomain.Account, error) {
	var a accountdomain.Account
	err := r.db.WithContext(ctx).First(&a, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, accountdomain.ErrAccountNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (r *repository) GetAccountByEmail(ctx context.Context, email string) (*accountdomain.Account, error) {
	var a accountdomain.Account
	err := r.db.WithContext(ctx).First(&a, "email = ?", strings.ToLower(email)).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, accountdomain.ErrAccountNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (r *repository) ListProAccounts(ctx context.Context) ([]accountdomain.Account, error) {
	var accounts []accountdomain.Account
	err := r.db.WithContext(ctx).
		Where("plan = ?", accountdomain.PlanPro).
		Find(&accounts).Error
	return accounts, err
}

func (r *repository) ListAccounts(ctx context.Context) ([]accountdomain.Account, error) {
	var accounts []accountdomain.Account
	err := r.db.WithContext(ctx).Find(&accounts).Error
	return accounts, err
}
