package mirror

import (
	"context"
	"fmt"
	"strings"
	"time"

	"kada-backend/internal/config"
	"kada-backend/internal/models"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// SyncService propagates committed primary-store mutations to the mirror.
//
// Every method is fire-and-forget: failures (including panics) are logged and
// swallowed. Postgres is the source of truth; a mirror that lags is
// acceptable, a request that fails because of the mirror is not. There is no
// retry, the next write on the same document overwrites the stale copy.
type SyncService struct {
	store   Store
	logger  *logrus.Logger
	timeout time.Duration
	now     func() time.Time
}

func NewSyncService(store Store, logger *logrus.Logger, timeout time.Duration) *SyncService {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &SyncService{
		store:   store,
		logger:  logger,
		timeout: timeout,
		now:     time.Now,
	}
}

func (s *SyncService) Store() Store { return s.store }

// SyncTransaction writes the transaction record, the customer's new balance
// and the vendor counter increments as one atomic batch.
func (s *SyncService) SyncTransaction(ctx context.Context, vendorID, customerID uint, tx models.Transaction, newBalance decimal.Decimal) {
	data := logrus.Fields{"vendor_id": vendorID, "customer_id": customerID, "transaction_id": tx.ID}
	defer s.guard("SyncTransaction", data)

	now := s.now()
	amount := ToPaise(tx.Amount)
	writes := []Write{
		{
			Kind: WriteSet,
			Path: TransactionPath(vendorID, tx.ID),
			Data: map[string]any{
				"id":          int64(tx.ID),
				"customerId":  int64(customerID),
				"type":        string(tx.Type),
				"amount":      amount,
				"description": tx.Description,
				"date":        tx.Date,
				"createdAt":   tx.CreatedAt,
			},
		},
		{
			Kind: WriteMerge,
			Path: CustomerPath(vendorID, customerID),
			Data: map[string]any{
				"balance":           ToPaise(newBalance),
				"lastTransactionAt": tx.Date,
				"updatedAt":         now,
			},
		},
		{
			Kind: WriteMerge,
			Path: VendorPath(vendorID),
			Data: map[string]any{
				"stats":     CounterDeltas(tx.Type, amount),
				"updatedAt": now,
			},
		},
	}

	s.commit(ctx, "SyncTransaction", writes, data)
}

// SyncSubscription merges the vendor's subscription sub-object.
func (s *SyncService) SyncSubscription(ctx context.Context, vendorID uint, sub models.Subscription) {
	data := logrus.Fields{"vendor_id": vendorID, "plan": sub.PlanCode, "status": sub.Status}
	defer s.guard("SyncSubscription", data)

	s.commit(ctx, "SyncSubscription", []Write{{
		Kind: WriteMerge,
		Path: VendorPath(vendorID),
		Data: map[string]any{
			"subscription": map[string]any{
				"plan":      sub.PlanCode,
				"status":    string(sub.Status),
				"expiry":    sub.EndDate,
				"updatedAt": s.now(),
			},
		},
	}}, data)
}

// SyncPricingPlans replaces the global pricing document with plans.
func (s *SyncService) SyncPricingPlans(ctx context.Context, plans []models.PricingPlan) {
	data := logrus.Fields{"plans": len(plans)}
	defer s.guard("SyncPricingPlans", data)

	list := make([]any, 0, len(plans))
	for _, p := range plans {
		list = append(list, map[string]any{
			"code":         p.Code,
			"name":         p.Name,
			"price":        ToPaise(p.PriceINR),
			"durationDays": int64(p.DurationDays),
			"features":     splitFeatures(p.Features),
			"sortOrder":    int64(p.SortOrder),
		})
	}

	s.commit(ctx, "SyncPricingPlans", []Write{{
		Kind: WriteSet,
		Path: PricingPath,
		Data: map[string]any{
			"plans":     list,
			"updatedAt": s.now(),
		},
	}}, data)
}

// SyncCustomerCount applies +1 on create and -1 on delete. Call it exactly
// once per customer create/delete or the mirrored count drifts.
func (s *SyncService) SyncCustomerCount(ctx context.Context, vendorID uint, delta int) {
	data := logrus.Fields{"vendor_id": vendorID, "delta": delta}
	defer s.guard("SyncCustomerCount", data)

	if delta != 1 && delta != -1 {
		config.LogError(s.logger, "mirror", "SyncCustomerCount", "delta must be +1 or -1", data, fmt.Errorf("invalid delta %d", delta))
		return
	}

	s.commit(ctx, "SyncCustomerCount", []Write{{
		Kind: WriteMerge,
		Path: VendorPath(vendorID),
		Data: map[string]any{
			"stats":     map[string]any{"totalCustomers": Increment(delta)},
			"updatedAt": s.now(),
		},
	}}, data)
}

// SyncCustomer merges identity fields. Balance is owned by SyncTransaction.
func (s *SyncService) SyncCustomer(ctx context.Context, vendorID uint, customer models.Customer) {
	data := logrus.Fields{"vendor_id": vendorID, "customer_id": customer.ID}
	defer s.guard("SyncCustomer", data)

	s.commit(ctx, "SyncCustomer", []Write{{
		Kind: WriteMerge,
		Path: CustomerPath(vendorID, customer.ID),
		Data: map[string]any{
			"id":          int64(customer.ID),
			"name":        customer.Name,
			"phone":       customer.Phone,
			"creditLimit": ToPaise(customer.CreditLimit),
			"updatedAt":   s.now(),
		},
	}}, data)
}

func (s *SyncService) SyncCustomerRemoved(ctx context.Context, vendorID, customerID uint) {
	data := logrus.Fields{"vendor_id": vendorID, "customer_id": customerID}
	defer s.guard("SyncCustomerRemoved", data)

	s.commit(ctx, "SyncCustomerRemoved", []Write{{
		Kind: WriteDelete,
		Path: CustomerPath(vendorID, customerID),
	}}, data)
}

func (s *SyncService) SyncVendorProfile(ctx context.Context, vendor models.Vendor) {
	data := logrus.Fields{"vendor_id": vendor.ID}
	defer s.guard("SyncVendorProfile", data)

	s.commit(ctx, "SyncVendorProfile", []Write{{
		Kind: WriteMerge,
		Path: VendorPath(vendor.ID),
		Data: map[string]any{
			"businessName": vendor.BusinessName,
			"ownerName":    vendor.OwnerName,
			"phone":        vendor.Phone,
			"city":         vendor.City,
			"updatedAt":    s.now(),
		},
	}}, data)
}

func (s *SyncService) commit(ctx context.Context, op string, writes []Write, data logrus.Fields) {
	if ctx == nil {
		ctx = context.Background()
	}
	// the request may finish before the mirror does
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	if err := s.store.Commit(ctx, writes); err != nil {
		config.LogError(s.logger, "mirror", op, "mirror write failed", data, err)
		return
	}
	s.logger.WithFields(data).WithField("op", op).Debug("mirror write ok")
}

func (s *SyncService) guard(op string, data logrus.Fields) {
	if r := recover(); r != nil {
		config.LogError(s.logger, "mirror", op, "panic recovered", data, fmt.Errorf("%v", r))
	}
}

func splitFeatures(features string) []any {
	out := []any{}
	for _, f := range strings.Split(features, "\n") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
