package scheduler_test

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	accountdomain "github.com/pathworklabs/pathwork/internal/account/domain"
	accountrepo "github.com/pathworklabs/pathwork/internal/account/repository"
	"github.com/pathworklabs/pathwork/internal/config"
	ledgerdomain "github.com/pathworklabs/pathwork/internal/ledger/domain"
	ledgerrepo "github.com/pathworklabs/pathwork/internal/ledger/repository"
	ledgerservice "github.com/pathworklabs/pathwork/internal/ledger/service"
	"github.com/pathworklabs/pathwork/internal/scheduler"
	walletdomain "github.com/pathworklabs/pathwork/internal/wallet/domain"
	walletrepo "github.com/pathworklabs/pathwork/internal/wallet/repository"
	walletservice "github.com/pathworklabs/pathwork/internal/wallet/service"
)

type fixedClock struct {
	now time.Time
}

func (c *fixedClock) Now(context.Context) time.Time { return c.now }

type fixture struct {
	sched      *scheduler.Scheduler
	clock      *fixedClock
	wallet     walletdomain.Service
	ledger     ledgerdomain.Service
	ledgerRepo ledgerdomain.Repository
	accounts   accountdomain.Repository
	node       *snowflake.Node
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&accountdomain.Tenant{},
		&accountdomain.Account{},
		&walletdomain.Wallet{},
		&ledgerdomain.Entry{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	log := zap.NewNop()

	accounts := accountrepo.NewRepository(db)
	wallet := walletservice.NewService(walletservice.ServiceParam{
		Log:  log,
		Repo: walletrepo.NewRepository(db),
	})
	lrepo := ledgerrepo.NewRepository(db)
	ledger := ledgerservice.NewService(ledgerservice.ServiceParam{
		Log:  log,
		Repo: lrepo,
		Node: node,
	})

	clk := &fixedClock{now: time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC)}
	sched := scheduler.New(scheduler.Params{
		Log:   log,
		Clock: clk,
		Cfg: config.Config{
			Credits: config.CreditsConfig{
				DailySilverRefill: 2,
				DailySilverCap:    20,
				MonthlyGoldPro:    3000,
			},
			Scheduler: config.SchedulerConfig{LedgerRetentionDays: 30},
		},
		Accounts:   accounts,
		Wallet:     wallet,
		Ledger:     ledger,
		LedgerRepo: lrepo,
	})

	return &fixture{
		sched:      sched,
		clock:      clk,
		wallet:     wallet,
		ledger:     ledger,
		ledgerRepo: lrepo,
		accounts:   accounts,
		node:       node,
	}
}

func (f *fixture) addAccount(t *testing.T, plan accountdomain.PlanTier, silver, gold int64) snowflake.ID {
	t.Helper()
	ctx := context.Background()
	id := f.node.Generate()
	require.NoError(t, f.accounts.CreateAccount(ctx, &accountdomain.Account{
		ID:       id,
		TenantID: snowflake.ID(1),
		Email:    id.String() + "@pathwork.dev",
		Plan:     plan,
	}))
	require.NoError(t, f.wallet.CreateWallet(ctx, id, snowflake.ID(1), silver, gold))
	return id
}

func TestDailyRefillSaturatesAtCap(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	low := f.addAccount(t, accountdomain.PlanFree, 5, 0)
	nearCap := f.addAccount(t, accountdomain.PlanFree, 19, 0)
	atCap := f.addAccount(t, accountdomain.PlanFree, 20, 0)

	require.NoError(t, f.sched.DailyRefillJob(ctx))

	b, err := f.wallet.GetBalances(ctx, low)
	require.NoError(t, err)
	assert.Equal(t, int64(7), b.Silver)

	b, err = f.wallet.GetBalances(ctx, nearCap)
	require.NoError(t, err)
	assert.Equal(t, int64(20), b.Silver)

	b, err = f.wallet.GetBalances(ctx, atCap)
	require.NoError(t, err)
	assert.Equal(t, int64(20), b.Silver)

	// The partial grant is ledgered at the granted amount, not the nominal one.
	entries, err := f.ledger.ListByAccount(ctx, nearCap, ledgerdomain.ListFilter{Kind: ledgerdomain.KindSystem})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, int64(1), entries[0].Amount)
}

func TestDailyRefillRunsOncePerDay(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	id := f.addAccount(t, accountdomain.PlanFree, 5, 0)

	require.NoError(t, f.sched.DailyRefillJob(ctx))
	require.NoError(t, f.sched.DailyRefillJob(ctx))

	b, err := f.wallet.GetBalances(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(7), b.Silver)

	// Next day grants again.
	f.clock.now = f.clock.now.AddDate(0, 0, 1)
	require.NoError(t, f.sched.DailyRefillJob(ctx))

	b, err = f.wallet.GetBalances(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(9), b.Silver)
}

func TestMonthlyAllowanceProOnly(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	pro := f.addAccount(t, accountdomain.PlanPro, 20, 100)
	free := f.addAccount(t, accountdomain.PlanFree, 20, 0)

	require.NoError(t, f.sched.MonthlyAllowanceJob(ctx))
	require.NoError(t, f.sched.MonthlyAllowanceJob(ctx))

	b, err := f.wallet.GetBalances(ctx, pro)
	require.NoError(t, err)
	assert.Equal(t, int64(3100), b.Gold)

	b, err = f.wallet.GetBalances(ctx, free)
	require.NoError(t, err)
	assert.Zero(t, b.Gold)

	// A new month grants the next bundle.
	f.clock.now = f.clock.now.AddDate(0, 1, 0)
	require.NoError(t, f.sched.MonthlyAllowanceJob(ctx))

	b, err = f.wallet.GetBalances(ctx, pro)
	require.NoError(t, err)
	assert.Equal(t, int64(6100), b.Gold)
}

func TestRunForeverStopsOnCancel(t *testing.T) {
	f := setup(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		f.sched.RunForever(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop after cancellation")
	}
}

func TestRetentionKeepsPendingEntries(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	old := f.clock.now.AddDate(0, 0, -60)

	_, err := f.ledger.Append(ctx, &ledgerdomain.Entry{
		AccountID: snowflake.ID(1001),
		TenantID:  snowflake.ID(1),
		Feature:   "jobpack",
		Currency:  "silver",
		Amount:    1,
		Kind:      ledgerdomain.KindDebit,
		RunID:     "run-old-done",
		Status:    ledgerdomain.StatusCompleted,
		CreatedAt: old,
	})
	require.NoError(t, err)
	_, err = f.ledger.Append(ctx, &ledgerdomain.Entry{
		AccountID: snowflake.ID(1001),
		TenantID:  snowflake.ID(1),
		Feature:   "jobpack",
		Currency:  "silver",
		Amount:    1,
		Kind:      ledgerdomain.KindDebit,
		RunID:     "run-old-pending",
		Status:    ledgerdomain.StatusPending,
		CreatedAt: old,
	})
	require.NoError(t, err)

	require.NoError(t, f.sched.RetentionJob(ctx))

	entries, err := f.ledger.ListByAccount(ctx, snowflake.ID(1001), ledgerdomain.ListFilter{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "run-old-pending", entries[0].RunID)
}
