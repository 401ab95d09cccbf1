package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

var (
	ErrAccountNotFound = errors.New("account_not_found")
	ErrTenantNotFound  = errors.New("tenant_not_found")
	ErrEmailTaken      = errors.New("email_taken")
	ErrInvalidPlan     = errors.New("invalid_plan")
)

type Repository interface {
	CreateTenant(ctx context.Context, tenant *Tenant) error
	GetTenantBySlug(ctx context.Context, slug string) (*Tenant, error)
	CreateAccount(ctx context.Context, account *Account) error
	GetAccount(ctx context.Context, id snowflake.ID) (*Account, error)
	GetAccountByEmail(ctx context.Context, email string) (*Account, error)
	ListProAccounts(ctx context.Context) ([]Account, error)
	ListAccounts(ctx context.Context) ([]Account, error)
}

type Service interface {
	CreateTenant(ctx context.Context, name string) (*Tenant, error)
	GetTenantBySlug(ctx context.Context, slug string) (*Tenant, error)
	// CreateAccount registers the account and seeds its wallet with the
	// configured signup bonus for the plan tier.
	CreateAccount(ctx context.Context, req CreateAccountRequest) (*Account, error)
	GetAccount(ctx context.Context, id snowflake.ID) (*Account, error)
}

type CreateAccountRequest struct {
	TenantSlug string   `json:"tenant_slug" binding:"required"`
	Email      string   `json:"email" binding:"required,email"`
	Plan       PlanTier `json:"plan"`
}
