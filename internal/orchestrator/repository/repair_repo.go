package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	orchestratordomain "github.com/pathworklabs/pathwork/internal/orchestrator/domain"
)

type repairRepository struct {
	db *gorm.DB
}

func NewRepairRepository(db *gorm.DB) orchestratordomain.RepairRepository {
	return &repairRepository{db: db}
}

func (r *repairRepository) Create(ctx context.Context, task *orchestratordomain.RepairTask) error {
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now().UTC()
	}
	return r.db.WithContext(ctx).Create(task).Error
}

func (r *repairRepository) ListUnresolved(ctx context.Context, limit int) ([]orchestratordomain.RepairTask, error) {
	if limit <= 0 {
		limit = 50
	}
	var tasks []orchestratordomain.RepairTask
	err := r.db.WithContext(ctx).
		Where("resolved_at IS NULL").
		Order("created_at ASC").
		Limit(limit).
		Find(&tasks).Error
	return tasks, err
}

func (r *repairRepository) MarkResolved(ctx context.Context, id snowflake.ID) error {
	now := time.Now().UTC()
	return r.db.WithContext(ctx).Model(&orchestratordomain.RepairTask{}).
		Where("id = ? AND resolved_at IS NULL", id).
		Update("resolved_at", now).Error
}

func (r *repairRepository) IncrementAttempts(ctx context.Context, id snowflake.ID) error {
	return r.db.WithContext(ctx).Model(&orchestratordomain.RepairTask{}).
		Where("id = ?", id).
		UpdateColumn("attempts", gorm.Expr("attempts + 1")).Error
}
