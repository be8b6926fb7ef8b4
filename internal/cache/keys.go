package cache

import (
	"context"
	"fmt"
)

func DashboardSummaryKey(vendorID uint) string {
	return fmt.Sprintf("dashboard:summary:%d", vendorID)
}

func RolloverLockKey(date string) string {
	return "rollover:" + date
}

// InvalidateSummary drops the cached dashboard summary of a vendor. Call it
// after any write that changes customer counts or balances.
func InvalidateSummary(ctx context.Context, vendorID uint) error {
	return Delete(ctx, DashboardSummaryKey(vendorID))
}
