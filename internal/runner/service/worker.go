package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/pathworklabs/pathwork/internal/config"
	runnerdomain "github.com/pathworklabs/pathwork/internal/runner/domain"
)

const (
	dequeueBlock  = 2 * time.Second
	awaitInterval = 150 * time.Millisecond
)

type RunnerParam struct {
	fx.In

	Log      *zap.Logger
	Redis    *redis.Client
	Repo     runnerdomain.Repository
	Registry runnerdomain.ExecutorRegistry
	Cfg      config.Config
}

type Runner struct {
	log         *zap.Logger
	repo        runnerdomain.Repository
	queue       *queue
	registry    runnerdomain.ExecutorRegistry
	maxRetries  int
	concurrency int

	mu       sync.RWMutex
	handlers []runnerdomain.TerminalHandler
}

func NewRunner(p RunnerParam) *Runner {
	maxRetries := p.Cfg.Runner.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	concurrency := p.Cfg.Runner.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Runner{
		log:         p.Log.Named("runner"),
		repo:        p.Repo,
		queue:       newQueue(p.Redis, p.Cfg.Runner.Queue),
		registry:    p.Registry,
		maxRetries:  maxRetries,
		concurrency: concurrency,
	}
}

func (r *Runner) Submit(ctx context.Context, job *runnerdomain.Job) error {
	job.Status = runnerdomain.JobQueued
	if err := r.repo.Create(ctx, job); err != nil {
		return err
	}
	return r.queue.Enqueue(ctx, job.RunID)
}

func (r *Runner) OnTerminal(handler runnerdomain.TerminalHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers = append(r.handlers, handler)
}

func (r *Runner) Get(ctx context.Context, runID string) (*runnerdomain.Job, error) {
	return r.repo.Get(ctx, runID)
}

func (r *Runner) Await(ctx context.Context, runID string) (*runnerdomain.Job, error) {
	ticker := time.NewTicker(awaitInterval)
	defer ticker.Stop()

	for {
		job, err := r.repo.Get(ctx, runID)
		if err != nil {
			return nil, err
		}
		if job.Status.Terminal() {
			return job, nil
		}
		select {
		case <-ctx.Done():
			return nil, runnerdomain.ErrAwaitCancelled
		case <-ticker.C:
		}
	}
}

// Work runs the worker pool until ctx is cancelled.
func (r *Runner) Work(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 0; i < r.concurrency; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			r.loop(ctx, n)
		}(i)
	}
	wg.Wait()
}

func (r *Runner) loop(ctx context.Context, n int) {
	log := r.log.With(zap.Int("worker", n))
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		runID, err := r.queue.Dequeue(ctx, dequeueBlock)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Error("dequeue failed", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}
		if runID == "" {
			continue
		}
		r.Process(ctx, runID)
	}
}

// Process claims and executes one run. Exported so tests and the worker loop
// share the same path.
func (r *Runner) Process(ctx context.Context, runID string) {
	claimed, err := r.repo.MarkRunning(ctx, runID)
	if err != nil {
		r.log.Error("claim failed", zap.String("run_id", runID), zap.Error(err))
		return
	}
	if !claimed {
		// Duplicate queue delivery or a run already handled elsewhere.
		return
	}

	job, err := r.repo.Get(ctx, runID)
	if err != nil {
		r.log.Error("load job failed", zap.String("run_id", runID), zap.Error(err))
		return
	}

	result, degraded, attempts, execErr := r.executeWithPolicy(ctx, job)
	job.Attempts = attempts
	if execErr != nil {
		job.Status = runnerdomain.JobFailed
		job.FailureReason = execErr.Error()
	} else {
		job.Status = runnerdomain.JobSucceeded
		job.ResultPayload = datatypes.JSON(result)
		job.Degraded = degraded
	}

	if err := r.repo.SetTerminal(ctx, job); err != nil {
		r.log.Error("persist terminal state failed", zap.String("run_id", runID), zap.Error(err))
		return
	}

	r.log.Info("job terminal",
		zap.String("run_id", runID),
		zap.String("feature", job.Feature),
		zap.String("status", string(job.Status)),
		zap.Bool("degraded", job.Degraded),
		zap.Int("attempts", attempts))

	r.dispatch(ctx, job)
}

// executeWithPolicy applies the retry policy: up to maxRetries model calls,
// one repair pass per syntactically invalid output, then a fallback-summary
// attempt that succeeds degraded.
func (r *Runner) executeWithPolicy(ctx context.Context, job *runnerdomain.Job) (json.RawMessage, bool, int, error) {
	exec, ok := r.registry.For(job.Feature)
	if !ok {
		return nil, false, 0, runnerdomain.ErrNoExecutor
	}

	var lastErr error
	attempts := 0
	for attempt := 1; attempt <= r.maxRetries; attempt++ {
		attempts = attempt
		out, err := exec.Execute(ctx, job)
		if err != nil {
			lastErr = err
			continue
		}
		if json.Valid(out) {
			return out, false, attempts, nil
		}
		repaired, rerr := exec.Repair(ctx, job, out)
		if rerr == nil && json.Valid(repaired) {
			return repaired, false, attempts, nil
		}
		lastErr = runnerdomain.ErrInvalidOutput
	}

	if fb, err := exec.Fallback(ctx, job); err == nil && json.Valid(fb) {
		return fb, true, attempts, nil
	}
	return nil, false, attempts, lastErr
}

// dispatch delivers the terminal job to every subscriber. Delivery is
// retried a few times; subscribers own their durable compensation (the
// orchestrator persists repair tasks), so a final failure is logged only.
func (r *Runner) dispatch(ctx context.Context, job *runnerdomain.Job) {
	r.mu.RLock()
	handlers := make([]runnerdomain.TerminalHandler, len(r.handlers))
	copy(handlers, r.handlers)
	r.mu.RUnlock()

	for _, handler := range handlers {
		var err error
		for attempt := 0; attempt < 3; attempt++ {
			if err = handler(ctx, job); err == nil {
				break
			}
			time.Sleep(time.Duration(attempt+1) * 100 * time.Millisecond)
		}
		if err != nil {
			r.log.Error("terminal handler failed",
				zap.String("run_id", job.RunID),
				zap.Error(err))
		}
	}
}
