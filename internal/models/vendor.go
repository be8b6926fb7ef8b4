package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Vendor is the tenant root. Counters are maintained with SQL increments by
// the ledger write path; the document mirror keeps its own copy.
type Vendor struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	BusinessName string `gorm:"size:150;not null" json:"business_name"`
	OwnerName    string `gorm:"size:100" json:"owner_name"`
	Phone        string `gorm:"size:20;not null;uniqueIndex" json:"phone"`
	City         string `gorm:"size:100" json:"city"`

	TotalCustomers int64           `gorm:"not null;default:0" json:"total_customers"`
	TotalPending   decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"total_pending"`
	TotalCollected decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"total_collected"`

	Subscription *Subscription `json:"subscription,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
