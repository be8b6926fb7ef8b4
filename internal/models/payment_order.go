package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentOrderStatus string

const (
	PaymentOrderCreated PaymentOrderStatus = "created"
	PaymentOrderPaid    PaymentOrderStatus = "paid"
)

// PaymentOrder tracks a gateway order bought for a plan.
type PaymentOrder struct {
	ID               uint               `gorm:"primaryKey" json:"id"`
	VendorID         uint               `gorm:"index;not null" json:"vendor_id"`
	PlanCode         string             `gorm:"size:30;not null" json:"plan"`
	Amount           decimal.Decimal    `gorm:"type:numeric(10,2);not null" json:"amount"`
	Receipt          string             `gorm:"size:64;not null;uniqueIndex" json:"receipt"`
	GatewayOrderID   string             `gorm:"size:64;uniqueIndex" json:"order_id"`
	GatewayPaymentID *string            `gorm:"size:64" json:"payment_id"`
	Status           PaymentOrderStatus `gorm:"size:20;not null" json:"status"`
	PaidAt           *time.Time         `json:"paid_at"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
}
