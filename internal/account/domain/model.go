// Package domain contains the account and tenant persistence models.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type PlanTier string

const (
	PlanFree PlanTier = "free"
	PlanPro  PlanTier = "pro"
)

func (p PlanTier) Valid() bool {
	return p == PlanFree || p == PlanPro
}

// Tenant partitions accounts into an organizational scope, e.g. a university.
type Tenant struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	Name      string       `gorm:"type:text;not null" json:"name"`
	Slug      string       `gorm:"type:text;not null;uniqueIndex" json:"slug"`
	CreatedAt time.Time    `gorm:"not null" json:"created_at"`
}

func (Tenant) TableName() string { return "tenants" }

type Account struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	TenantID  snowflake.ID `gorm:"not null;index" json:"tenant_id"`
	Email     string       `gorm:"type:text;not null;uniqueIndex" json:"email"`
	Plan      PlanTier     `gorm:"type:text;not null;default:free" json:"plan"`
	CreatedAt time.Time    `gorm:"not null" json:"created_at"`
}

func (Account) TableName() string { return "accounts" }
