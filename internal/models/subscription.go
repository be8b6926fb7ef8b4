package models

import "time"

type SubscriptionStatus string

const (
	SubscriptionActive    SubscriptionStatus = "ACTIVE"
	SubscriptionSuspended SubscriptionStatus = "SUSPENDED"
)

// Subscription is the single subscription record of a vendor.
type Subscription struct {
	ID        uint               `gorm:"primaryKey" json:"id"`
	VendorID  uint               `gorm:"not null;uniqueIndex" json:"vendor_id"`
	PlanCode  string             `gorm:"size:30;not null" json:"plan"`
	Status    SubscriptionStatus `gorm:"size:20;not null" json:"status"`
	StartDate time.Time          `json:"start_date"`
	EndDate   time.Time          `gorm:"index" json:"end_date"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// IsUsable reports whether the vendor may record new ledger entries at t.
func (s Subscription) IsUsable(t time.Time) bool {
	return s.Status == SubscriptionActive && t.Before(s.EndDate)
}
