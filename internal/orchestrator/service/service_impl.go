package service

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	ledgerdomain "github.com/pathworklabs/pathwork/internal/ledger/domain"
	orchestratordomain "github.com/pathworklabs/pathwork/internal/orchestrator/domain"
	pricingdomain "github.com/pathworklabs/pathwork/internal/pricing/domain"
	runnerdomain "github.com/pathworklabs/pathwork/internal/runner/domain"
	walletdomain "github.com/pathworklabs/pathwork/internal/wallet/domain"
)

type ServiceParam struct {
	fx.In

	Log      *zap.Logger
	Node     *snowflake.Node
	Wallet   walletdomain.Service
	Ledger   ledgerdomain.Service
	Resolver pricingdomain.Resolver
	Runner   runnerdomain.Runner
	Repair   orchestratordomain.RepairRepository
	Registry *prometheus.Registry
}

type service struct {
	log      *zap.Logger
	node     *snowflake.Node
	wallet   walletdomain.Service
	ledger   ledgerdomain.Service
	resolver pricingdomain.Resolver
	runner   runnerdomain.Runner
	repair   orchestratordomain.RepairRepository

	runsStarted  *prometheus.CounterVec
	runsSettled  *prometheus.CounterVec
	creditsSpent *prometheus.CounterVec
	refunds      prometheus.Counter
}

func NewService(p ServiceParam) orchestratordomain.Service {
	s := &service{
		log:      p.Log.Named("orchestrator.service"),
		node:     p.Node,
		wallet:   p.Wallet,
		ledger:   p.Ledger,
		resolver: p.Resolver,
		runner:   p.Runner,
		repair:   p.Repair,
		runsStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pathwork_runs_started_total",
			Help: "Gated feature runs that passed the credit gate.",
		}, []string{"feature"}),
		runsSettled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pathwork_runs_settled_total",
			Help: "Terminal settlements by outcome.",
		}, []string{"status"}),
		creditsSpent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pathwork_credits_spent_total",
			Help: "Credits debited for gated runs.",
		}, []string{"currency"}),
		refunds: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pathwork_refunds_total",
			Help: "Refunds issued for failed runs.",
		}),
	}
	p.Registry.MustRegister(s.runsStarted, s.runsSettled, s.creditsSpent, s.refunds)
	return s
}

// RunGatedFeature is the single entry point: resolve cost, debit, record the
// pending debit, enqueue, and optionally wait for the terminal result.
func (s *service) RunGatedFeature(ctx context.Context, req orchestratordomain.RunRequest) (*orchestratordomain.Outcome, error) {
	cost, err := s.resolver.Resolve(req.Feature, req.Plan)
	if err != nil {
		// No wallet touched, no ledger entry, not retried.
		return nil, err
	}

	runID := uuid.NewString()

	if err := s.wallet.Debit(ctx, req.AccountID, cost.Currency, cost.Amount); err != nil {
		return nil, err
	}
	s.creditsSpent.WithLabelValues(string(cost.Currency)).Add(float64(cost.Amount))

	if _, err := s.ledger.Append(ctx, &ledgerdomain.Entry{
		AccountID: req.AccountID,
		TenantID:  req.TenantID,
		Feature:   req.Feature,
		Currency:  string(cost.Currency),
		Amount:    cost.Amount,
		Kind:      ledgerdomain.KindDebit,
		RunID:     runID,
		Status:    ledgerdomain.StatusPending,
	}); err != nil {
		s.log.Error("pending debit entry write failed, compensating",
			zap.String("run_id", runID), zap.Error(err))
		s.compensate(ctx, req, cost, runID, "ledger_write_failed")
		return nil, orchestratordomain.ErrSystem
	}

	job := &runnerdomain.Job{
		RunID:        runID,
		AccountID:    req.AccountID,
		TenantID:     req.TenantID,
		Feature:      req.Feature,
		InputPayload: datatypes.JSON(req.Payload),
	}
	if err := s.runner.Submit(ctx, job); err != nil {
		s.log.Error("job submit failed, refunding", zap.String("run_id", runID), zap.Error(err))
		if _, merr := s.ledger.MarkStatus(ctx, runID, ledgerdomain.StatusPending, ledgerdomain.StatusFailed); merr != nil {
			s.log.Error("debit entry transition failed", zap.String("run_id", runID), zap.Error(merr))
		}
		s.refund(ctx, req.AccountID, req.TenantID, req.Feature, cost, runID, "submit_failed")
		return nil, orchestratordomain.ErrSystem
	}

	s.runsStarted.WithLabelValues(req.Feature).Inc()

	if !req.Wait {
		return &orchestratordomain.Outcome{RunID: runID, Status: orchestratordomain.RunQueued}, nil
	}

	done, err := s.runner.Await(ctx, runID)
	if err != nil {
		if errors.Is(err, runnerdomain.ErrAwaitCancelled) {
			// The job keeps running; settlement happens via the terminal
			// callback regardless of the abandoned wait.
			return &orchestratordomain.Outcome{RunID: runID, Status: orchestratordomain.RunRunning}, nil
		}
		return nil, err
	}
	return outcomeFromJob(done), nil
}

func (s *service) GetRun(ctx context.Context, runID string) (*orchestratordomain.Outcome, error) {
	job, err := s.runner.Get(ctx, runID)
	if err != nil {
		return nil, err
	}
	return outcomeFromJob(job), nil
}

// HandleTerminal settles credits exactly once per run. The debit entry's
// pending -> terminal transition is the idempotence guard: a duplicate
// delivery loses the compare-and-set and mutates nothing.
func (s *service) HandleTerminal(ctx context.Context, job *runnerdomain.Job) error {
	switch job.Status {
	case runnerdomain.JobSucceeded:
		updated, err := s.ledger.MarkStatus(ctx, job.RunID, ledgerdomain.StatusPending, ledgerdomain.StatusCompleted)
		if err != nil {
			return err
		}
		if updated {
			// Full charge stands, degraded or not: a usable result was
			// produced, so no refund is issued.
			s.runsSettled.WithLabelValues(string(runnerdomain.JobSucceeded)).Inc()
		}
		return nil

	case runnerdomain.JobFailed:
		// Read the debit before consuming the CAS: a transient read failure
		// here is retryable on redelivery, whereas after the transition the
		// refund amount would be unrecoverable.
		entry, err := s.ledger.FindDebitByRunID(ctx, job.RunID)
		if err != nil {
			return err
		}
		updated, err := s.ledger.MarkStatus(ctx, job.RunID, ledgerdomain.StatusPending, ledgerdomain.StatusFailed)
		if err != nil {
			return err
		}
		if !updated {
			return nil
		}
		s.refund(ctx, job.AccountID, job.TenantID, job.Feature,
			pricingdomain.Cost{Currency: walletdomain.Currency(entry.Currency), Amount: entry.Amount},
			job.RunID, job.FailureReason)
		s.runsSettled.WithLabelValues(string(runnerdomain.JobFailed)).Inc()
		return nil

	default:
		return nil
	}
}

// refund credits the wallet back and appends the refund entry. Either step
// failing is queued as a repair task; it is never dropped.
func (s *service) refund(ctx context.Context, accountID, tenantID snowflake.ID, feature string, cost pricingdomain.Cost, runID, reason string) {
	if err := s.wallet.Credit(ctx, accountID, cost.Currency, cost.Amount); err != nil {
		s.log.Error("refund credit failed, queueing repair",
			zap.String("run_id", runID), zap.Error(err))
		s.queueRepair(ctx, accountID, tenantID, feature, cost, runID, orchestratordomain.RepairRefund, reason)
		return
	}
	s.refunds.Inc()

	if _, err := s.ledger.Append(ctx, &ledgerdomain.Entry{
		AccountID: accountID,
		TenantID:  tenantID,
		Feature:   feature,
		Currency:  string(cost.Currency),
		Amount:    cost.Amount,
		Kind:      ledgerdomain.KindRefund,
		RunID:     runID,
		Status:    ledgerdomain.StatusRefunded,
		Metadata:  mustMetadata(map[string]any{"reason": reason}),
	}); err != nil {
		s.log.Error("refund entry write failed, queueing repair",
			zap.String("run_id", runID), zap.Error(err))
		s.queueRepair(ctx, accountID, tenantID, feature, cost, runID, orchestratordomain.RepairRecordRefund, reason)
	}
}

// compensate rolls back a debit whose pending ledger entry never landed.
func (s *service) compensate(ctx context.Context, req orchestratordomain.RunRequest, cost pricingdomain.Cost, runID, reason string) {
	if err := s.wallet.Credit(ctx, req.AccountID, cost.Currency, cost.Amount); err != nil {
		s.log.Error("compensating credit failed, queueing repair",
			zap.String("run_id", runID), zap.Error(err))
		s.queueRepair(ctx, req.AccountID, req.TenantID, req.Feature, cost, runID, orchestratordomain.RepairCompensate, reason)
	}
}

func (s *service) queueRepair(ctx context.Context, accountID, tenantID snowflake.ID, feature string, cost pricingdomain.Cost, runID string, action orchestratordomain.RepairAction, reason string) {
	task := &orchestratordomain.RepairTask{
		ID:        s.node.Generate(),
		AccountID: accountID,
		TenantID:  tenantID,
		RunID:     runID,
		Feature:   feature,
		Currency:  cost.Currency,
		Amount:    cost.Amount,
		Action:    action,
		Reason:    reason,
	}
	if err := s.repair.Create(ctx, task); err != nil {
		// Last line of defense: loud log with everything a human needs.
		s.log.Error("repair task persist failed",
			zap.String("run_id", runID),
			zap.String("action", string(action)),
			zap.String("account_id", accountID.String()),
			zap.String("currency", string(cost.Currency)),
			zap.Int64("amount", cost.Amount),
			zap.Error(err))
	}
}

func (s *service) TopUp(ctx context.Context, accountID, tenantID snowflake.ID, currency walletdomain.Currency, amount int64, note string) error {
	if err := s.wallet.Credit(ctx, accountID, currency, amount); err != nil {
		return err
	}

	entry := &ledgerdomain.Entry{
		AccountID: accountID,
		TenantID:  tenantID,
		Feature:   "topup",
		Currency:  string(currency),
		Amount:    amount,
		Kind:      ledgerdomain.KindTopup,
		RunID:     uuid.NewString(),
		Status:    ledgerdomain.StatusCompleted,
		Metadata:  mustMetadata(map[string]any{"note": note}),
	}
	if _, err := s.ledger.Append(ctx, entry); err != nil {
		s.log.Error("topup entry write failed",
			zap.String("account_id", accountID.String()), zap.Error(err))
		return orchestratordomain.ErrSystem
	}
	return nil
}

// Reconcile drains repair tasks queued by failed refunds and compensations.
func (s *service) Reconcile(ctx context.Context) (int, error) {
	tasks, err := s.repair.ListUnresolved(ctx, 50)
	if err != nil {
		return 0, err
	}

	resolved := 0
	for _, task := range tasks {
		if err := s.repair.IncrementAttempts(ctx, task.ID); err != nil {
			s.log.Error("repair attempt bump failed", zap.Error(err))
			continue
		}

		cost := pricingdomain.Cost{Currency: task.Currency, Amount: task.Amount}
		var repairErr error
		switch task.Action {
		case orchestratordomain.RepairRefund:
			repairErr = s.applyRefund(ctx, task, cost)
		case orchestratordomain.RepairRecordRefund:
			repairErr = s.appendRefundEntry(ctx, task, cost)
		case orchestratordomain.RepairCompensate:
			repairErr = s.wallet.Credit(ctx, task.AccountID, cost.Currency, cost.Amount)
		default:
			s.log.Warn("unknown repair action", zap.String("action", string(task.Action)))
			continue
		}
		if repairErr != nil {
			s.log.Error("repair task failed",
				zap.String("run_id", task.RunID),
				zap.String("action", string(task.Action)),
				zap.Error(repairErr))
			continue
		}
		if err := s.repair.MarkResolved(ctx, task.ID); err != nil {
			s.log.Error("repair resolve failed", zap.Error(err))
			continue
		}
		resolved++
	}
	return resolved, nil
}

func (s *service) applyRefund(ctx context.Context, task orchestratordomain.RepairTask, cost pricingdomain.Cost) error {
	if err := s.wallet.Credit(ctx, task.AccountID, cost.Currency, cost.Amount); err != nil {
		return err
	}
	s.refunds.Inc()
	return s.appendRefundEntry(ctx, task, cost)
}

func (s *service) appendRefundEntry(ctx context.Context, task orchestratordomain.RepairTask, cost pricingdomain.Cost) error {
	_, err := s.ledger.Append(ctx, &ledgerdomain.Entry{
		AccountID: task.AccountID,
		TenantID:  task.TenantID,
		Feature:   task.Feature,
		Currency:  string(cost.Currency),
		Amount:    cost.Amount,
		Kind:      ledgerdomain.KindRefund,
		RunID:     task.RunID,
		Status:    ledgerdomain.StatusRefunded,
		Metadata:  mustMetadata(map[string]any{"reason": task.Reason, "via": "reconciliation"}),
	})
	return err
}

func mustMetadata(m map[string]any) datatypes.JSON {
	b, err := json.Marshal(m)
	if err != nil {
		return nil
	}
	return datatypes.JSON(b)
}

func outcomeFromJob(job *runnerdomain.Job) *orchestratordomain.Outcome {
	out := &orchestratordomain.Outcome{RunID: job.RunID}
	switch job.Status {
	case runnerdomain.JobQueued:
		out.Status = orchestratordomain.RunQueued
	case runnerdomain.JobRunning:
		out.Status = orchestratordomain.RunRunning
	case runnerdomain.JobSucceeded:
		out.Status = orchestratordomain.RunSucceeded
		out.Data = []byte(job.ResultPayload)
		out.Degraded = job.Degraded
	case runnerdomain.JobFailed:
		out.Status = orchestratordomain.RunFailed
		out.FailureReason = job.FailureReason
	}
	return out
}
