package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionCredit  TransactionType = "CREDIT"  // goods/money given on credit
	TransactionPayment TransactionType = "PAYMENT" // money received
	TransactionDebit   TransactionType = "DEBIT"   // legacy alias of PAYMENT
)

// Transaction is immutable once created.
type Transaction struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	VendorID    uint            `gorm:"index:idx_tx_vendor_date,priority:1;not null" json:"vendor_id"`
	CustomerID  uint            `gorm:"index;not null" json:"customer_id"`
	Customer    Customer        `json:"-"`
	Type        TransactionType `gorm:"size:10;not null" json:"type"`
	Amount      decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"amount"`
	Description string          `gorm:"size:255" json:"description"`
	Date        time.Time       `gorm:"index:idx_tx_vendor_date,priority:2;not null" json:"date"`
	CreatedAt   time.Time       `json:"created_at"`
}

func (t TransactionType) Valid() bool {
	switch t {
	case TransactionCredit, TransactionPayment, TransactionDebit:
		return true
	}
	return false
}

// IsReceipt reports whether the entry records money received from the customer.
func (t TransactionType) IsReceipt() bool {
	return t == TransactionPayment || t == TransactionDebit
}
