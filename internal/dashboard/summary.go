package dashboard

import (
	"time"

	"kada-backend/internal/auth"
	"kada-backend/internal/cache"
	"kada-backend/internal/config"
	"kada-backend/internal/database"
	"kada-backend/internal/httputil"
	"kada-backend/internal/mirror"
	"kada-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

const summaryTTL = 30 * time.Second

type Summary struct {
	TotalCustomers   int64           `json:"total_customers"`
	TotalOutstanding decimal.Decimal `json:"total_outstanding"`
	TotalAdvance     decimal.Decimal `json:"total_advance"`
	TotalCollected   decimal.Decimal `json:"total_collected"`
	TodayCredit      decimal.Decimal `json:"today_credit"`
	TodayPayment     decimal.Decimal `json:"today_payment"`
	OverLimitCount   int64           `json:"over_limit_count"`
	GeneratedAt      time.Time       `json:"generated_at"`
}

// GET /api/dashboard/summary - computed from the primary store.
func SummaryHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		vendorID, err := auth.VendorID(c)
		if err != nil {
			return err
		}
		ctx := c.UserContext()
		logger := config.GetLogger()
		key := cache.DashboardSummaryKey(vendorID)

		var cached Summary
		if found, err := cache.GetObject(ctx, key, &cached); err != nil {
			config.LogError(logger, "dashboard", "SummaryHandler", "cache read failed", vendorID, err)
		} else if found {
			return c.JSON(cached)
		}

		db := database.DB.WithContext(ctx)
		var s Summary

		var balances struct {
			Customers   int64
			Outstanding decimal.Decimal
			Advance     decimal.Decimal
			OverLimit   int64
		}
		if err := db.Model(&models.Customer{}).
			Select(`COUNT(*) AS customers,
				COALESCE(SUM(CASE WHEN balance < 0 THEN -balance ELSE 0 END), 0) AS outstanding,
				COALESCE(SUM(CASE WHEN balance > 0 THEN balance ELSE 0 END), 0) AS advance,
				COUNT(*) FILTER (WHERE credit_limit > 0 AND -balance > credit_limit) AS over_limit`).
			Where("vendor_id = ?", vendorID).
			Scan(&balances).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not load balances")
		}
		s.TotalCustomers = balances.Customers
		s.TotalOutstanding = balances.Outstanding
		s.TotalAdvance = balances.Advance
		s.OverLimitCount = balances.OverLimit

		var vendor models.Vendor
		if err := db.First(&vendor, vendorID).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "vendor not found")
		}
		s.TotalCollected = vendor.TotalCollected

		now := time.Now()
		dayStart := httputil.StartOfDay(now, cfg.Location())
		var today []struct {
			Type  string
			Total decimal.Decimal
		}
		if err := db.Model(&models.Transaction{}).
			Select("type, COALESCE(SUM(amount), 0) AS total").
			Where("vendor_id = ? AND date >= ? AND date < ?", vendorID, dayStart, dayStart.AddDate(0, 0, 1)).
			Group("type").
			Scan(&today).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not load today's totals")
		}
		for _, r := range today {
			if models.TransactionType(r.Type).IsReceipt() {
				s.TodayPayment = s.TodayPayment.Add(r.Total)
			} else {
				s.TodayCredit = s.TodayCredit.Add(r.Total)
			}
		}
		s.GeneratedAt = now

		if err := cache.SetObject(ctx, key, s, summaryTTL); err != nil {
			config.LogError(logger, "dashboard", "SummaryHandler", "cache write failed", vendorID, err)
		}
		return c.JSON(s)
	}
}

type LiveResponse struct {
	TotalCustomers int64           `json:"total_customers"`
	TotalPending   decimal.Decimal `json:"total_pending"`
	TodayCredit    decimal.Decimal `json:"today_credit"`
	TodayPayment   decimal.Decimal `json:"today_payment"`
	TotalCollected decimal.Decimal `json:"total_collected"`
	CountersDate   string          `json:"counters_date"`
	// CountersStale is set when the today counters belong to an earlier day
	// because the rollover for today has not run yet.
	CountersStale bool      `json:"counters_stale"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func liveFromStats(s mirror.VendorStats, today string) LiveResponse {
	return LiveResponse{
		CountersStale:  s.CountersDate != "" && s.CountersDate < today,
		TotalCustomers: s.TotalCustomers,
		TotalPending:   mirror.FromPaise(s.TotalPending),
		TodayCredit:    mirror.FromPaise(s.TodayCredit),
		TodayPayment:   mirror.FromPaise(s.TodayPayment),
		TotalCollected: mirror.FromPaise(s.TotalCollected),
		CountersDate:   s.CountersDate,
		UpdatedAt:      s.UpdatedAt,
	}
}

// GET /api/dashboard/live - counters read straight from the mirror document.
func LiveHandler(cfg *config.Config, sync *mirror.SyncService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		vendorID, err := auth.VendorID(c)
		if err != nil {
			return err
		}

		stats, err := mirror.ReadVendorStats(c.UserContext(), sync.Store(), vendorID)
		if err != nil {
			config.LogError(config.GetLogger(), "dashboard", "LiveHandler", "mirror read failed", vendorID, err)
			return fiber.NewError(fiber.StatusServiceUnavailable, "live counters unavailable")
		}
		today := time.Now().In(cfg.Location()).Format("2006-01-02")
		return c.JSON(liveFromStats(stats, today))
	}
}
