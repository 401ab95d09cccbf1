package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	ledgerdomain "github.com/pathworklabs/pathwork/internal/ledger/domain"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) ledgerdomain.Repository {
	return &repository{db: db}
}

func (r *repository) Append(ctx context.Context, entry *ledgerdomain.Entry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) FindByRunID(ctx context.Context, runID string, kind ledgerdomain.Kind) (*ledgerdomain.Entry, error) {
	var entry ledgerdomain.Entry
	err := r.db.WithContext(ctx).
		Where("run_id = ? AND kind = ?", runID, kind).
		First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ledgerdomain.ErrEntryNotFound
		}
		return nil, err
	}
	return &entry, nil
}

func applyFilter(q *gorm.DB, filter ledgerdomain.ListFilter) *gorm.DB {
	if filter.Feature != "" {
		q = q.Where("feature = ?", filter.Feature)
	}
	if filter.Kind != "" {
		q = q.Where("kind = ?", filter.Kind)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Since != nil {
		q = q.Where("created_at >= ?", *filter.Since)
	}
	if filter.Until != nil {
		q = q.Where("created_at < ?", *filter.Until)
	}
	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return q.Order("created_at DESC").Limit(limit)
}

func (r *repository) ListByAccount(ctx context.Context, accountID snowflake.ID, filter ledgerdomain.ListFilter) ([]ledgerdomain.Entry, error) {
	var entries []ledgerdomain.Entry
	q := r.db.WithContext(ctx).Where("account_id = ?", accountID)
	err := applyFilter(q, filter).Find(&entries).Error
	return entries, err
}

func (r *repository) ListByTenant(ctx context.Context, tenantID snowflake.ID, filter ledgerdomain.ListFilter) ([]ledgerdomain.Entry, error) {
	var entries []ledgerdomain.Entry
	q := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID)
	err := applyFilter(q, filter).Find(&entries).Error
	return entries, err
}

// MarkStatus is a compare-and-set on the debit entry's status column. The
// WHERE clause makes duplicate terminal notifications lose the race cleanly.
func (r *repository) MarkStatus(ctx context.Context, runID string, from, to ledgerdomain.Status) (bool, error) {
	res := r.db.WithContext(ctx).Model(&ledgerdomain.Entry{}).
		Where("run_id = ? AND kind = ? AND status = ?", runID, ledgerdomain.KindDebit, from).
		Update("status", to)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// AggregateByTenant folds debit entries into per-feature per-day buckets.
// Day bucketing happens in Go so the query stays portable across drivers.
func (r *repository) AggregateByTenant(ctx context.Context, tenantID snowflake.ID, since, until time.Time) ([]ledgerdomain.FeatureDayStat, error) {
	var rows []ledgerdomain.Entry
	err := r.db.WithContext(ctx).
		Select("feature", "currency", "amount", "created_at").
		Where("tenant_id = ? AND kind = ? AND created_at >= ? AND created_at < ?",
			tenantID, ledgerdomain.KindDebit, since, until).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	type key struct {
		feature string
		day     string
	}
	buckets := make(map[key]*ledgerdomain.FeatureDayStat)
	order := make([]key, 0)
	for _, row := range rows {
		k := key{feature: row.Feature, day: row.CreatedAt.UTC().Format("2006-01-02")}
		stat, ok := buckets[k]
		if !ok {
			stat = &ledgerdomain.FeatureDayStat{Feature: k.feature, Day: k.day}
			buckets[k] = stat
			order = append(order, k)
		}
		stat.Runs++
		if row.Currency == "gold" {
			stat.Gold += row.Amount
		} else {
			stat.Silver += row.Amount
		}
	}

	stats := make([]ledgerdomain.FeatureDayStat, 0, len(order))
	for _, k := range order {
		stats = append(stats, *buckets[k])
	}
	return stats, nil
}

func (r *repository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("created_at < ? AND status <> ?", cutoff, ledgerdomain.StatusPending).
		Delete(&ledgerdomain.Entry{})
	return res.RowsAffected, res.Error
}
