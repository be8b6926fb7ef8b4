package admin

import (
	"time"

	"kada-backend/internal/config"
	"kada-backend/internal/database"
	"kada-backend/internal/httputil"
	"kada-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type MonthStat struct {
	Month      string          `json:"month"` // YYYY-MM
	NewVendors int64           `json:"new_vendors"`
	Revenue    decimal.Decimal `json:"revenue"`
}

type PlatformStats struct {
	Vendors             int64           `json:"vendors"`
	ActiveSubscriptions int64           `json:"active_subscriptions"`
	TrialSubscriptions  int64           `json:"trial_subscriptions"`
	Expired             int64           `json:"expired"`
	Suspended           int64           `json:"suspended"`
	Customers           int64           `json:"customers"`
	TransactionsToday   int64           `json:"transactions_today"`
	Revenue             decimal.Decimal `json:"revenue"`
	Months              []MonthStat     `json:"months"`
}

// GET /api/admin/stats?months=6
func StatsHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		db := database.DB.WithContext(c.UserContext())
		now := time.Now()
		loc := cfg.Location()
		var s PlatformStats

		db.Model(&models.Vendor{}).Count(&s.Vendors)
		db.Model(&models.Customer{}).Count(&s.Customers)
		db.Model(&models.Subscription{}).
			Where("status = ? AND end_date > ?", models.SubscriptionActive, now).
			Count(&s.ActiveSubscriptions)
		db.Model(&models.Subscription{}).
			Where("status = ? AND end_date > ? AND plan_code = ?", models.SubscriptionActive, now, models.PlanTrial).
			Count(&s.TrialSubscriptions)
		db.Model(&models.Subscription{}).
			Where("status = ? AND end_date <= ?", models.SubscriptionActive, now).
			Count(&s.Expired)
		db.Model(&models.Subscription{}).
			Where("status = ?", models.SubscriptionSuspended).
			Count(&s.Suspended)

		dayStart := httputil.StartOfDay(now, loc)
		db.Model(&models.Transaction{}).Where("created_at >= ?", dayStart).Count(&s.TransactionsToday)

		if err := db.Model(&models.PaymentOrder{}).
			Select("COALESCE(SUM(amount), 0)").
			Where("status = ?", models.PaymentOrderPaid).
			Scan(&s.Revenue).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not load revenue")
		}

		months := c.QueryInt("months", 6)
		if months <= 0 || months > 24 {
			months = 6
		}
		t := now.In(loc)
		thisMonth := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, loc)
		s.Months = make([]MonthStat, 0, months)
		for i := months - 1; i >= 0; i-- {
			start := thisMonth.AddDate(0, -i, 0)
			end := start.AddDate(0, 1, 0)
			m := MonthStat{Month: start.Format("2006-01")}
			db.Model(&models.Vendor{}).Where("created_at >= ? AND created_at < ?", start, end).Count(&m.NewVendors)
			db.Model(&models.PaymentOrder{}).
				Select("COALESCE(SUM(amount), 0)").
				Where("status = ? AND paid_at >= ? AND paid_at < ?", models.PaymentOrderPaid, start, end).
				Scan(&m.Revenue)
			s.Months = append(s.Months, m)
		}

		return c.JSON(s)
	}
}
