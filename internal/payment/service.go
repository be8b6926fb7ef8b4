package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"kada-backend/internal/mirror"
	"kada-backend/internal/models"
	"kada-backend/internal/subscription"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrInvalidSignature     = errors.New("payment signature mismatch")
	ErrOrderNotFound        = errors.New("payment order not found")
	ErrPlanUnavailable      = errors.New("plan is not available for purchase")
	ErrGatewayNotConfigured = errors.New("payment gateway is not configured")
)

// newReceipt stays inside the gateway's 40 character receipt limit.
func newReceipt() string {
	return "kada_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// CreateOrder opens a gateway order for one period of an active plan.
func CreateOrder(ctx context.Context, db *gorm.DB, gw Gateway, vendorID uint, planCode string) (*models.PaymentOrder, error) {
	var plan models.PricingPlan
	if err := db.WithContext(ctx).Where("code = ? AND is_active = ?", planCode, true).First(&plan).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPlanUnavailable
		}
		return nil, err
	}
	if !plan.PriceINR.IsPositive() {
		return nil, ErrPlanUnavailable
	}

	receipt := newReceipt()
	gwOrder, err := gw.CreateOrder(ctx, OrderRequest{
		AmountPaise: mirror.ToPaise(plan.PriceINR),
		Currency:    "INR",
		Receipt:     receipt,
		Notes: map[string]string{
			"vendor_id": fmt.Sprint(vendorID),
			"plan":      plan.Code,
		},
	})
	if err != nil {
		return nil, err
	}

	order := models.PaymentOrder{
		VendorID:       vendorID,
		PlanCode:       plan.Code,
		Amount:         plan.PriceINR,
		Receipt:        receipt,
		GatewayOrderID: gwOrder.ID,
		Status:         models.PaymentOrderCreated,
	}
	if err := db.WithContext(ctx).Create(&order).Error; err != nil {
		return nil, fmt.Errorf("save payment order: %w", err)
	}
	return &order, nil
}

type Settlement struct {
	Order        models.PaymentOrder
	Subscription *models.Subscription
	// Applied is false when the order had already been paid.
	Applied bool
}

// MarkPaid settles a gateway order exactly once and extends the vendor's
// subscription. vendorID restricts the lookup when non-zero.
func MarkPaid(ctx context.Context, db *gorm.DB, gatewayOrderID, paymentID string, vendorID uint, now time.Time) (*Settlement, error) {
	var out Settlement
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("gateway_order_id = ?", gatewayOrderID)
		if vendorID != 0 {
			q = q.Where("vendor_id = ?", vendorID)
		}
		if err := q.First(&out.Order).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOrderNotFound
			}
			return err
		}
		if out.Order.Status == models.PaymentOrderPaid {
			return nil
		}

		sub, err := subscription.ApplyPlan(ctx, tx, out.Order.VendorID, out.Order.PlanCode, now)
		if err != nil {
			return err
		}

		out.Order.Status = models.PaymentOrderPaid
		out.Order.GatewayPaymentID = &paymentID
		out.Order.PaidAt = &now
		if err := tx.Save(&out.Order).Error; err != nil {
			return fmt.Errorf("save payment order: %w", err)
		}
		out.Subscription = sub
		out.Applied = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}
