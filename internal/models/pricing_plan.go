package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const PlanTrial = "TRIAL"

type PricingPlan struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	Code         string          `gorm:"size:30;not null;uniqueIndex" json:"code"`
	Name         string          `gorm:"size:100;not null" json:"name"`
	PriceINR     decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"price_inr"`
	DurationDays int             `gorm:"not null" json:"duration_days"`
	Features     string          `gorm:"size:500" json:"features"` // newline separated
	IsActive     bool            `gorm:"default:true" json:"is_active"`
	SortOrder    int             `gorm:"default:0" json:"sort_order"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}
