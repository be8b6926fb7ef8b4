package dashboard

import (
	"fmt"
	"time"

	"kada-backend/internal/auth"
	"kada-backend/internal/config"
	"kada-backend/internal/database"
	"kada-backend/internal/httputil"
	"kada-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type ChartPoint struct {
	Label   string          `json:"label"` // day / week start / month start
	Credit  decimal.Decimal `json:"credit"`
	Payment decimal.Decimal `json:"payment"`
	Net     decimal.Decimal `json:"net"` // payment - credit
}

type ChartTotals struct {
	Credit  decimal.Decimal `json:"credit"`
	Payment decimal.Decimal `json:"payment"`
	Net     decimal.Decimal `json:"net"`
}

type AnalyticsResponse struct {
	Period string       `json:"period"` // daily | weekly | monthly
	From   string       `json:"from"`
	To     string       `json:"to"`
	Points []ChartPoint `json:"points"`
	Totals ChartTotals  `json:"totals"`
}

type bucketRow struct {
	Bucket time.Time       `gorm:"column:bucket"`
	Type   string          `gorm:"column:type"`
	Total  decimal.Decimal `gorm:"column:total"`
}

// window returns the first bucket start and the exclusive end for count
// buckets ending with the current one.
func window(period string, count int, now time.Time, loc *time.Location) (start, end time.Time) {
	today := httputil.StartOfDay(now, loc)
	switch period {
	case "weekly":
		// weeks start on Monday, as date_trunc('week') does
		offset := (int(today.Weekday()) + 6) % 7
		thisWeek := today.AddDate(0, 0, -offset)
		return thisWeek.AddDate(0, 0, -7*(count-1)), thisWeek.AddDate(0, 0, 7)
	case "monthly":
		thisMonth := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, loc)
		return thisMonth.AddDate(0, -(count - 1), 0), thisMonth.AddDate(0, 1, 0)
	default:
		return today.AddDate(0, 0, -(count - 1)), today.AddDate(0, 0, 1)
	}
}

func step(period string, t time.Time) time.Time {
	switch period {
	case "weekly":
		return t.AddDate(0, 0, 7)
	case "monthly":
		return t.AddDate(0, 1, 0)
	default:
		return t.AddDate(0, 0, 1)
	}
}

// buildSeries folds the aggregated rows into one point per bucket, filling
// empty buckets with zeros.
func buildSeries(period string, start, end time.Time, rows []bucketRow) ([]ChartPoint, ChartTotals) {
	byLabel := make(map[string]*ChartPoint)
	points := make([]ChartPoint, 0)
	for t := start; t.Before(end); t = step(period, t) {
		points = append(points, ChartPoint{Label: t.Format(httputil.DateLayout)})
	}
	for i := range points {
		byLabel[points[i].Label] = &points[i]
	}

	var totals ChartTotals
	for _, r := range rows {
		p, ok := byLabel[r.Bucket.Format(httputil.DateLayout)]
		if !ok {
			continue
		}
		if models.TransactionType(r.Type).IsReceipt() {
			p.Payment = p.Payment.Add(r.Total)
			totals.Payment = totals.Payment.Add(r.Total)
		} else {
			p.Credit = p.Credit.Add(r.Total)
			totals.Credit = totals.Credit.Add(r.Total)
		}
	}
	for i := range points {
		points[i].Net = points[i].Payment.Sub(points[i].Credit)
	}
	totals.Net = totals.Payment.Sub(totals.Credit)
	return points, totals
}

// GET /api/dashboard/analytics?period=daily&count=7
// ?days=N is accepted as a shorthand for period=daily&count=N.
func AnalyticsHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		vendorID, err := auth.VendorID(c)
		if err != nil {
			return err
		}

		period := c.Query("period", "daily")
		count := c.QueryInt("count", 0)
		if days := c.QueryInt("days", 0); days > 0 {
			period, count = "daily", days
		}
		if count <= 0 {
			switch period {
			case "weekly":
				count = 8
			case "monthly":
				count = 12
			default:
				period = "daily"
				count = 7
			}
		}
		if count > 366 {
			return fiber.NewError(fiber.StatusBadRequest, "count must be at most 366")
		}
		trunc := map[string]string{"daily": "day", "weekly": "week", "monthly": "month"}[period]
		if trunc == "" {
			return fiber.NewError(fiber.StatusBadRequest, "period must be daily, weekly or monthly")
		}

		loc := cfg.Location()
		start, end := window(period, count, time.Now(), loc)

		sql := fmt.Sprintf(`
			SELECT date_trunc('%s', (date AT TIME ZONE 'UTC') + make_interval(secs => ?))::date AS bucket,
				   type,
				   SUM(amount) AS total
			FROM transactions
			WHERE vendor_id = ? AND date >= ? AND date < ?
			GROUP BY bucket, type
			ORDER BY bucket ASC;
		`, trunc)

		// buckets follow the business zone's offset at the window start
		_, offset := start.Zone()

		var rows []bucketRow
		if err := database.DB.WithContext(c.UserContext()).Raw(sql, offset, vendorID, start, end).Scan(&rows).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not aggregate transactions")
		}

		points, totals := buildSeries(period, start, end, rows)
		return c.JSON(AnalyticsResponse{
			Period: period,
			From:   start.Format(httputil.DateLayout),
			To:     end.AddDate(0, 0, -1).Format(httputil.DateLayout),
			Points: points,
			Totals: totals,
		})
	}
}
