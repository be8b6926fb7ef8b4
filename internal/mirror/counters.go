package mirror

import (
	"context"
	"errors"
	"fmt"
	"time"

	"kada-backend/internal/models"
)

const (
	FieldTotalCustomers = "totalCustomers"
	FieldTotalPending   = "totalPending"
	FieldTodayCredit    = "todayCredit"
	FieldTodayPayment   = "todayPayment"
	FieldTotalCollected = "totalCollected"
	FieldCountersDate   = "countersDate"
)

// RolloverPath records the business date of the last completed rollover.
const RolloverPath = "config/rollover"

// rolloverBatchSize stays under Firestore's 500 writes per batch.
const rolloverBatchSize = 400

// CounterDeltas returns the stats increments for one transaction of amount
// paise. Only increments are used so concurrent writers never lose updates.
func CounterDeltas(t models.TransactionType, amount int64) map[string]any {
	if t.IsReceipt() {
		return map[string]any{
			FieldTodayPayment:   Increment(amount),
			FieldTotalCollected: Increment(amount),
			FieldTotalPending:   Increment(-amount),
		}
	}
	return map[string]any{
		FieldTodayCredit:  Increment(amount),
		FieldTotalPending: Increment(amount),
	}
}

// VendorStats is the mirrored counter block read by the live dashboard tiles.
type VendorStats struct {
	TotalCustomers int64     `json:"total_customers"`
	TotalPending   int64     `json:"total_pending_paise"`
	TodayCredit    int64     `json:"today_credit_paise"`
	TodayPayment   int64     `json:"today_payment_paise"`
	TotalCollected int64     `json:"total_collected_paise"`
	CountersDate   string    `json:"counters_date"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ReadVendorStats reads the vendor document. A vendor that was never mirrored
// yields zero stats.
func ReadVendorStats(ctx context.Context, store Store, vendorID uint) (VendorStats, error) {
	doc, err := store.Get(ctx, VendorPath(vendorID))
	if errors.Is(err, ErrNotFound) {
		return VendorStats{}, nil
	}
	if err != nil {
		return VendorStats{}, err
	}

	var out VendorStats
	if t, ok := doc["updatedAt"].(time.Time); ok {
		out.UpdatedAt = t
	}
	stats, _ := doc["stats"].(map[string]any)
	if stats == nil {
		return out, nil
	}
	out.TotalCustomers = asInt64(stats[FieldTotalCustomers])
	out.TotalPending = asInt64(stats[FieldTotalPending])
	out.TodayCredit = asInt64(stats[FieldTodayCredit])
	out.TodayPayment = asInt64(stats[FieldTodayPayment])
	out.TotalCollected = asInt64(stats[FieldTotalCollected])
	out.CountersDate, _ = stats[FieldCountersDate].(string)
	return out, nil
}

// ResetDailyCounters zeroes the "today" counters of every vendor and stamps
// the business date they now refer to. Lifetime counters are untouched.
func ResetDailyCounters(ctx context.Context, store Store, vendorIDs []uint, date string) error {
	for start := 0; start < len(vendorIDs); start += rolloverBatchSize {
		end := min(start+rolloverBatchSize, len(vendorIDs))
		writes := make([]Write, 0, end-start)
		for _, id := range vendorIDs[start:end] {
			writes = append(writes, Write{
				Kind: WriteMerge,
				Path: VendorPath(id),
				Data: map[string]any{
					"stats": map[string]any{
						FieldTodayCredit:  int64(0),
						FieldTodayPayment: int64(0),
						FieldCountersDate: date,
					},
				},
			})
		}
		if err := store.Commit(ctx, writes); err != nil {
			return fmt.Errorf("reset daily counters (vendors %d..%d): %w", start, end-1, err)
		}
	}
	marker := Write{Kind: WriteSet, Path: RolloverPath, Data: map[string]any{
		"lastDate":  date,
		"updatedAt": time.Now().UTC(),
	}}
	if err := store.Commit(ctx, []Write{marker}); err != nil {
		return fmt.Errorf("record rollover date: %w", err)
	}
	return nil
}

// LastRolloverDate returns the date of the last completed rollover, or ""
// when none ever ran.
func LastRolloverDate(ctx context.Context, store Store) (string, error) {
	doc, err := store.Get(ctx, RolloverPath)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	date, _ := doc["lastDate"].(string)
	return date, nil
}

func asInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	default:
		return 0
	}
}
