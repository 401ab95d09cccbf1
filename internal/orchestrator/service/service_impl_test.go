package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	accountdomain "github.com/pathworklabs/pathwork/internal/account/domain"
	"github.com/pathworklabs/pathwork/internal/config"
	ledgerdomain "github.com/pathworklabs/pathwork/internal/ledger/domain"
	ledgerrepo "github.com/pathworklabs/pathwork/internal/ledger/repository"
	ledgerservice "github.com/pathworklabs/pathwork/internal/ledger/service"
	orchestratordomain "github.com/pathworklabs/pathwork/internal/orchestrator/domain"
	"github.com/pathworklabs/pathwork/internal/orchestrator/repository"
	"github.com/pathworklabs/pathwork/internal/orchestrator/service"
	pricingservice "github.com/pathworklabs/pathwork/internal/pricing/service"
	runnerdomain "github.com/pathworklabs/pathwork/internal/runner/domain"
	walletdomain "github.com/pathworklabs/pathwork/internal/wallet/domain"
	walletrepo "github.com/pathworklabs/pathwork/internal/wallet/repository"
	walletservice "github.com/pathworklabs/pathwork/internal/wallet/service"
)

// fakeRunner records submitted jobs instead of touching redis. Terminal
// settlement is driven directly through HandleTerminal in these tests.
type fakeRunner struct {
	jobs      map[string]*runnerdomain.Job
	submitErr error
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{jobs: make(map[string]*runnerdomain.Job)}
}

func (f *fakeRunner) Submit(ctx context.Context, job *runnerdomain.Job) error {
	if f.submitErr != nil {
		return f.submitErr
	}
	job.Status = runnerdomain.JobQueued
	f.jobs[job.RunID] = job
	return nil
}

func (f *fakeRunner) OnTerminal(runnerdomain.TerminalHandler) {}

func (f *fakeRunner) Get(ctx context.Context, runID string) (*runnerdomain.Job, error) {
	job, ok := f.jobs[runID]
	if !ok {
		return nil, runnerdomain.ErrJobNotFound
	}
	return job, nil
}

func (f *fakeRunner) Await(ctx context.Context, runID string) (*runnerdomain.Job, error) {
	return f.Get(ctx, runID)
}

// flakyWallet fails the next N credit calls, then delegates.
type flakyWallet struct {
	walletdomain.Service
	creditFails int
}

// flakyLedger fails the next N debit lookups, then delegates.
type flakyLedger struct {
	ledgerdomain.Service
	findFails int
}

func (f *flakyLedger) FindDebitByRunID(ctx context.Context, runID string) (*ledgerdomain.Entry, error) {
	if f.findFails > 0 {
		f.findFails--
		return nil, errors.New("ledger store unavailable")
	}
	return f.Service.FindDebitByRunID(ctx, runID)
}

func (f *flakyWallet) Credit(ctx context.Context, accountID snowflake.ID, currency walletdomain.Currency, amount int64) error {
	if f.creditFails > 0 {
		f.creditFails--
		return errors.New("wallet store unavailable")
	}
	return f.Service.Credit(ctx, accountID, currency, amount)
}

type fixture struct {
	svc         orchestratordomain.Service
	wallet      walletdomain.Service
	flaky       *flakyWallet
	ledger      ledgerdomain.Service
	flakyLedger *flakyLedger
	repair      orchestratordomain.RepairRepository
	runner      *fakeRunner
	accountID   snowflake.ID
	tenantID    snowflake.ID
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&walletdomain.Wallet{},
		&ledgerdomain.Entry{},
		&orchestratordomain.RepairTask{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	log := zap.NewNop()

	wallet := walletservice.NewService(walletservice.ServiceParam{
		Log:  log,
		Repo: walletrepo.NewRepository(db),
	})
	flaky := &flakyWallet{Service: wallet}

	ledger := ledgerservice.NewService(ledgerservice.ServiceParam{
		Log:  log,
		Repo: ledgerrepo.NewRepository(db),
		Node: node,
	})
	fledger := &flakyLedger{Service: ledger}

	resolver := pricingservice.NewResolver(config.Config{
		Features: map[string]config.FeatureCosts{
			"jobpack": {
				Free: &config.Cost{Currency: "silver", Amount: 1},
				Pro:  &config.Cost{Currency: "gold", Amount: 3},
			},
			"dream_planner": {
				Pro: &config.Cost{Currency: "gold", Amount: 3},
			},
		},
	})

	repair := repository.NewRepairRepository(db)
	runner := newFakeRunner()

	svc := service.NewService(service.ServiceParam{
		Log:      log,
		Node:     node,
		Wallet:   flaky,
		Ledger:   fledger,
		Resolver: resolver,
		Runner:   runner,
		Repair:   repair,
		Registry: prometheus.NewRegistry(),
	})

	f := &fixture{
		svc:         svc,
		wallet:      wallet,
		flaky:       flaky,
		ledger:      ledger,
		flakyLedger: fledger,
		repair:      repair,
		runner:      runner,
		accountID:   node.Generate(),
		tenantID:    node.Generate(),
	}
	require.NoError(t, wallet.CreateWallet(context.Background(), f.accountID, f.tenantID, 20, 0))
	return f
}

func (f *fixture) run(t *testing.T) *orchestratordomain.Outcome {
	t.Helper()
	outcome, err := f.svc.RunGatedFeature(context.Background(), orchestratordomain.RunRequest{
		AccountID: f.accountID,
		TenantID:  f.tenantID,
		Feature:   "jobpack",
		Plan:      accountdomain.PlanFree,
		Payload:   []byte(`{"role":"backend engineer"}`),
	})
	require.NoError(t, err)
	require.Equal(t, orchestratordomain.RunQueued, outcome.Status)
	return outcome
}

func (f *fixture) terminal(runID string, status runnerdomain.JobStatus, degraded bool) *runnerdomain.Job {
	return &runnerdomain.Job{
		RunID:         runID,
		AccountID:     f.accountID,
		TenantID:      f.tenantID,
		Feature:       "jobpack",
		Status:        status,
		Degraded:      degraded,
		FailureReason: "model exhausted retries",
	}
}

func (f *fixture) silver(t *testing.T) int64 {
	t.Helper()
	balances, err := f.wallet.GetBalances(context.Background(), f.accountID)
	require.NoError(t, err)
	return balances.Silver
}

func (f *fixture) refundEntries(t *testing.T) []ledgerdomain.Entry {
	t.Helper()
	entries, err := f.ledger.ListByAccount(context.Background(), f.accountID, ledgerdomain.ListFilter{
		Kind: ledgerdomain.KindRefund,
	})
	require.NoError(t, err)
	return entries
}

func TestSuccessfulRunKeepsCharge(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	outcome := f.run(t)
	assert.Equal(t, int64(19), f.silver(t))

	require.NoError(t, f.svc.HandleTerminal(ctx, f.terminal(outcome.RunID, runnerdomain.JobSucceeded, false)))

	entry, err := f.ledger.FindDebitByRunID(ctx, outcome.RunID)
	require.NoError(t, err)
	assert.Equal(t, ledgerdomain.StatusCompleted, entry.Status)
	assert.Equal(t, int64(19), f.silver(t))
	assert.Empty(t, f.refundEntries(t))
}

func TestFailedRunRefunds(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	outcome := f.run(t)
	assert.Equal(t, int64(19), f.silver(t))

	require.NoError(t, f.svc.HandleTerminal(ctx, f.terminal(outcome.RunID, runnerdomain.JobFailed, false)))

	// Net zero: debit and refund cancel out.
	assert.Equal(t, int64(20), f.silver(t))

	entry, err := f.ledger.FindDebitByRunID(ctx, outcome.RunID)
	require.NoError(t, err)
	assert.Equal(t, ledgerdomain.StatusFailed, entry.Status)

	refunds := f.refundEntries(t)
	require.Len(t, refunds, 1)
	assert.Equal(t, outcome.RunID, refunds[0].RunID)
	assert.Equal(t, ledgerdomain.StatusRefunded, refunds[0].Status)
}

func TestDuplicateTerminalDeliveryIsIdempotent(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	outcome := f.run(t)
	failed := f.terminal(outcome.RunID, runnerdomain.JobFailed, false)

	require.NoError(t, f.svc.HandleTerminal(ctx, failed))
	require.NoError(t, f.svc.HandleTerminal(ctx, failed))
	require.NoError(t, f.svc.HandleTerminal(ctx, f.terminal(outcome.RunID, runnerdomain.JobSucceeded, false)))

	// Exactly one refund, balance restored exactly once.
	assert.Equal(t, int64(20), f.silver(t))
	assert.Len(t, f.refundEntries(t), 1)
}

func TestDegradedSuccessKeepsFullCharge(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	outcome := f.run(t)
	require.NoError(t, f.svc.HandleTerminal(ctx, f.terminal(outcome.RunID, runnerdomain.JobSucceeded, true)))

	entry, err := f.ledger.FindDebitByRunID(ctx, outcome.RunID)
	require.NoError(t, err)
	assert.Equal(t, ledgerdomain.StatusCompleted, entry.Status)
	assert.Equal(t, int64(19), f.silver(t))
	assert.Empty(t, f.refundEntries(t))
}

func TestUnknownFeatureTouchesNothing(t *testing.T) {
	f := setup(t)

	_, err := f.svc.RunGatedFeature(context.Background(), orchestratordomain.RunRequest{
		AccountID: f.accountID,
		TenantID:  f.tenantID,
		Feature:   "resume_ghostwriter",
		Plan:      accountdomain.PlanFree,
	})
	assert.Error(t, err)
	assert.Equal(t, int64(20), f.silver(t))

	entries, err := f.ledger.ListByAccount(context.Background(), f.accountID, ledgerdomain.ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestPlanGating(t *testing.T) {
	f := setup(t)

	_, err := f.svc.RunGatedFeature(context.Background(), orchestratordomain.RunRequest{
		AccountID: f.accountID,
		TenantID:  f.tenantID,
		Feature:   "dream_planner",
		Plan:      accountdomain.PlanFree,
	})
	assert.Error(t, err)
	assert.Equal(t, int64(20), f.silver(t))
}

func TestInsufficientCredits(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	// Drain the wallet first.
	require.NoError(t, f.wallet.Debit(ctx, f.accountID, walletdomain.CurrencySilver, 20))

	_, err := f.svc.RunGatedFeature(ctx, orchestratordomain.RunRequest{
		AccountID: f.accountID,
		TenantID:  f.tenantID,
		Feature:   "jobpack",
		Plan:      accountdomain.PlanFree,
	})
	assert.ErrorIs(t, err, walletdomain.ErrInsufficientCredits)

	entries, err := f.ledger.ListByAccount(ctx, f.accountID, ledgerdomain.ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSubmitFailureRefunds(t *testing.T) {
	f := setup(t)
	f.runner.submitErr = errors.New("queue unavailable")

	_, err := f.svc.RunGatedFeature(context.Background(), orchestratordomain.RunRequest{
		AccountID: f.accountID,
		TenantID:  f.tenantID,
		Feature:   "jobpack",
		Plan:      accountdomain.PlanFree,
	})
	assert.ErrorIs(t, err, orchestratordomain.ErrSystem)

	// The debit was rolled back and its entry marked failed.
	assert.Equal(t, int64(20), f.silver(t))
	require.Len(t, f.refundEntries(t), 1)

	debits, err := f.ledger.ListByAccount(context.Background(), f.accountID, ledgerdomain.ListFilter{
		Kind: ledgerdomain.KindDebit,
	})
	require.NoError(t, err)
	require.Len(t, debits, 1)
	assert.Equal(t, ledgerdomain.StatusFailed, debits[0].Status)
}

func TestDebitLookupFailureIsRetryable(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	outcome := f.run(t)
	assert.Equal(t, int64(19), f.silver(t))

	// The debit lookup fails transiently on the first delivery. The
	// settlement must not consume its idempotence guard, so the runner's
	// redelivery can still issue the refund.
	f.flakyLedger.findFails = 1
	failed := f.terminal(outcome.RunID, runnerdomain.JobFailed, false)
	err := f.svc.HandleTerminal(ctx, failed)
	require.Error(t, err)
	assert.Equal(t, int64(19), f.silver(t))

	require.NoError(t, f.svc.HandleTerminal(ctx, failed))
	assert.Equal(t, int64(20), f.silver(t))
	assert.Len(t, f.refundEntries(t), 1)

	entry, err := f.ledger.FindDebitByRunID(ctx, outcome.RunID)
	require.NoError(t, err)
	assert.Equal(t, ledgerdomain.StatusFailed, entry.Status)
}

func TestRefundFailureQueuesRepairAndReconciles(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	outcome := f.run(t)
	assert.Equal(t, int64(19), f.silver(t))

	// The refund credit fails once; the orchestrator must persist a repair
	// task instead of dropping the refund.
	f.flaky.creditFails = 1
	require.NoError(t, f.svc.HandleTerminal(ctx, f.terminal(outcome.RunID, runnerdomain.JobFailed, false)))
	assert.Equal(t, int64(19), f.silver(t))

	tasks, err := f.repair.ListUnresolved(ctx, 10)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, orchestratordomain.RepairRefund, tasks[0].Action)
	assert.Equal(t, outcome.RunID, tasks[0].RunID)

	// The reconciliation sweep applies the refund.
	resolved, err := f.svc.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, resolved)
	assert.Equal(t, int64(20), f.silver(t))
	assert.Len(t, f.refundEntries(t), 1)

	// Nothing left on a second sweep.
	resolved, err = f.svc.Reconcile(ctx)
	require.NoError(t, err)
	assert.Zero(t, resolved)
	assert.Equal(t, int64(20), f.silver(t))
}

func TestTopUp(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	require.NoError(t, f.svc.TopUp(ctx, f.accountID, f.tenantID, walletdomain.CurrencySilver, 50, "promo"))
	assert.Equal(t, int64(70), f.silver(t))

	entries, err := f.ledger.ListByAccount(ctx, f.accountID, ledgerdomain.ListFilter{
		Kind: ledgerdomain.KindTopup,
	})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, int64(50), entries[0].Amount)
	assert.Equal(t, ledgerdomain.StatusCompleted, entries[0].Status)
}
