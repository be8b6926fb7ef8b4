package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Customer belongs to one vendor. Balance is signed: negative means the
// customer owes the vendor. It only changes through transactions.
type Customer struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	VendorID    uint            `gorm:"not null;uniqueIndex:idx_customer_vendor_phone,priority:1,where:deleted_at IS NULL" json:"vendor_id"`
	Vendor      Vendor          `json:"-"`
	Name        string          `gorm:"size:100;not null" json:"name"`
	Phone       string          `gorm:"size:20;not null;uniqueIndex:idx_customer_vendor_phone,priority:2" json:"phone"`
	CreditLimit decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"credit_limit"`
	Balance     decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"balance"`

	LastTransactionAt *time.Time     `json:"last_transaction_at"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`
}
