package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	runnerdomain "github.com/pathworklabs/pathwork/internal/runner/domain"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) runnerdomain.Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, job *runnerdomain.Job) error {
	now := time.Now().UTC()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now
	return r.db.WithContext(ctx).Create(job).Error
}

func (r *repository) Get(ctx context.Context, runID string) (*runnerdomain.Job, error) {
	var job runnerdomain.Job
	err := r.db.WithContext(ctx).First(&job, "run_id = ?", runID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, runnerdomain.ErrJobNotFound
		}
		return nil, err
	}
	return &job, nil
}

func (r *repository) MarkRunning(ctx context.Context, runID string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&runnerdomain.Job{}).
		Where("run_id = ? AND status = ?", runID, runnerdomain.JobQueued).
		Updates(map[string]any{
			"status":     runnerdomain.JobRunning,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) SetTerminal(ctx context.Context, job *runnerdomain.Job) error {
	job.UpdatedAt = time.Now().UTC()
	return r.db.WithContext(ctx).Model(&runnerdomain.Job{}).
		Where("run_id = ?", job.RunID).
		Updates(map[string]any{
			"status":         job.Status,
			"result_payload": job.ResultPayload,
			"failure_reason": job.FailureReason,
			"degraded":       job.Degraded,
			"attempts":       job.Attempts,
			"updated_at":     job.UpdatedAt,
		}).Error
}
