package service_test

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	accountdomain "github.com/pathworklabs/pathwork/internal/account/domain"
	"github.com/pathworklabs/pathwork/internal/account/repository"
	"github.com/pathworklabs/pathwork/internal/account/service"
	"github.com/pathworklabs/pathwork/internal/config"
	walletdomain "github.com/pathworklabs/pathwork/internal/wallet/domain"
	walletrepo "github.com/pathworklabs/pathwork/internal/wallet/repository"
	walletservice "github.com/pathworklabs/pathwork/internal/wallet/service"
)

func setup(t *testing.T) (accountdomain.Service, walletdomain.Service) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&accountdomain.Tenant{},
		&accountdomain.Account{},
		&walletdomain.Wallet{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	log := zap.NewNop()

	wallet := walletservice.NewService(walletservice.ServiceParam{
		Log:  log,
		Repo: walletrepo.NewRepository(db),
	})

	accounts := service.NewService(service.ServiceParam{
		Log:  log,
		Node: node,
		Cfg: config.Config{
			Credits: config.CreditsConfig{
				SignupSilverFree: 20,
				SignupSilverPro:  20,
				SignupGoldPro:    3000,
			},
		},
		Repo:   repository.NewRepository(db),
		Wallet: wallet,
	})
	return accounts, wallet
}

func TestCreateAccountSeedsWallet(t *testing.T) {
	accounts, wallet := setup(t)
	ctx := context.Background()

	tenant, err := accounts.CreateTenant(ctx, "Acme Careers")
	require.NoError(t, err)
	assert.Equal(t, "acme-careers", tenant.Slug)

	tests := []struct {
		name       string
		email      string
		plan       accountdomain.PlanTier
		wantSilver int64
		wantGold   int64
	}{
		{"free plan gets silver only", "free@acme.test", accountdomain.PlanFree, 20, 0},
		{"pro plan gets silver and gold", "pro@acme.test", accountdomain.PlanPro, 20, 3000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			account, err := accounts.CreateAccount(ctx, accountdomain.CreateAccountRequest{
				TenantSlug: tenant.Slug,
				Email:      tt.email,
				Plan:       tt.plan,
			})
			require.NoError(t, err)
			assert.Equal(t, tenant.ID, account.TenantID)
			assert.Equal(t, tt.plan, account.Plan)

			balances, err := wallet.GetBalances(ctx, account.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.wantSilver, balances.Silver)
			assert.Equal(t, tt.wantGold, balances.Gold)
		})
	}
}

func TestCreateAccountDefaultsToFree(t *testing.T) {
	accounts, wallet := setup(t)
	ctx := context.Background()

	tenant, err := accounts.CreateTenant(ctx, "Acme Careers")
	require.NoError(t, err)

	account, err := accounts.CreateAccount(ctx, accountdomain.CreateAccountRequest{
		TenantSlug: tenant.Slug,
		Email:      "Someone@Acme.Test",
	})
	require.NoError(t, err)
	assert.Equal(t, accountdomain.PlanFree, account.Plan)
	assert.Equal(t, "someone@acme.test", account.Email)

	balances, err := wallet.GetBalances(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(20), balances.Silver)
	assert.Zero(t, balances.Gold)
}

func TestCreateAccountRejectsDuplicateEmail(t *testing.T) {
	accounts, _ := setup(t)
	ctx := context.Background()

	tenant, err := accounts.CreateTenant(ctx, "Acme Careers")
	require.NoError(t, err)

	req := accountdomain.CreateAccountRequest{
		TenantSlug: tenant.Slug,
		Email:      "dup@acme.test",
	}
	_, err = accounts.CreateAccount(ctx, req)
	require.NoError(t, err)

	_, err = accounts.CreateAccount(ctx, req)
	assert.ErrorIs(t, err, accountdomain.ErrEmailTaken)
}

func TestCreateAccountUnknownTenant(t *testing.T) {
	accounts, _ := setup(t)

	_, err := accounts.CreateAccount(context.Background(), accountdomain.CreateAccountRequest{
		TenantSlug: "ghost-tenant",
		Email:      "x@acme.test",
	})
	assert.ErrorIs(t, err, accountdomain.ErrTenantNotFound)
}

func TestCreateAccountInvalidPlan(t *testing.T) {
	accounts, _ := setup(t)

	_, err := accounts.CreateAccount(context.Background(), accountdomain.CreateAccountRequest{
		TenantSlug: "any",
		Email:      "x@acme.test",
		Plan:       accountdomain.PlanTier("platinum"),
	})
	assert.ErrorIs(t, err, accountdomain.ErrInvalidPlan)
}
