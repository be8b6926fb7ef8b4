package transaction

import (
	"time"

	"kada-backend/internal/auth"
	"kada-backend/internal/cache"
	"kada-backend/internal/config"
	"kada-backend/internal/database"
	"kada-backend/internal/httputil"
	"kada-backend/internal/ledger"
	"kada-backend/internal/mirror"
	"kada-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type CreateTransactionRequest struct {
	CustomerID  uint            `json:"customer_id" validate:"required"`
	Type        string          `json:"type" validate:"required,oneof=CREDIT PAYMENT DEBIT"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description" validate:"max=255"`
	Date        string          `json:"date" validate:"omitempty,datetime=2006-01-02"`
}

type TransactionResponse struct {
	Transaction models.Transaction `json:"transaction"`
	NewBalance  decimal.Decimal    `json:"new_balance"`
	Outstanding decimal.Decimal    `json:"outstanding"`
	OverLimit   bool               `json:"over_limit"`
}

// entryDate keeps the wall-clock time for today's entries and pins backdated
// ones to midday in the business zone.
func entryDate(raw string, now time.Time, loc *time.Location) (time.Time, error) {
	if raw == "" {
		return now, nil
	}
	d, err := time.ParseInLocation(httputil.DateLayout, raw, loc)
	if err != nil {
		return time.Time{}, fiber.NewError(fiber.StatusBadRequest, "date must be YYYY-MM-DD")
	}
	if d.Equal(httputil.StartOfDay(now, loc)) {
		return now, nil
	}
	if d.After(now) {
		return time.Time{}, fiber.NewError(fiber.StatusBadRequest, "date must not be in the future")
	}
	return d.Add(12 * time.Hour), nil
}

// CreateTransactionHandler records the entry in the primary store, then
// mirrors it. The mirror write cannot fail the request.
func CreateTransactionHandler(cfg *config.Config, sync *mirror.SyncService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		vendorID, err := auth.VendorID(c)
		if err != nil {
			return err
		}

		var body CreateTransactionRequest
		if err := httputil.ParseBody(c, &body); err != nil {
			return err
		}
		date, err := entryDate(body.Date, time.Now(), cfg.Location())
		if err != nil {
			return err
		}

		res, err := ledger.RecordTransaction(c.UserContext(), database.DB, vendorID, ledger.NewTransaction{
			CustomerID:  body.CustomerID,
			Type:        models.TransactionType(body.Type),
			Amount:      body.Amount,
			Description: body.Description,
			Date:        date,
		})
		if err != nil {
			return ledger.HTTPError(err)
		}

		sync.SyncTransaction(c.UserContext(), vendorID, res.Customer.ID, res.Transaction, res.NewBalance)

		if err := cache.InvalidateSummary(c.UserContext(), vendorID); err != nil {
			config.LogError(config.GetLogger(), "transaction", "CreateTransactionHandler", "dashboard cache not invalidated", vendorID, err)
		}

		return c.Status(fiber.StatusCreated).JSON(TransactionResponse{
			Transaction: res.Transaction,
			NewBalance:  res.NewBalance,
			Outstanding: ledger.Outstanding(res.NewBalance),
			OverLimit:   res.OverLimit,
		})
	}
}

// GET /api/transactions?type=CREDIT&customer_id=3&from=2025-01-01&to=2025-01-31
func ListTransactionsHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		vendorID, err := auth.VendorID(c)
		if err != nil {
			return err
		}

		from, to, err := httputil.DateRangeQuery(c, cfg.Location())
		if err != nil {
			return err
		}

		dbq := database.DB.Model(&models.Transaction{}).Where("vendor_id = ?", vendorID)
		if t := models.TransactionType(c.Query("type")); t != "" {
			if !t.Valid() {
				return fiber.NewError(fiber.StatusBadRequest, ledger.ErrInvalidType.Error())
			}
			dbq = dbq.Where("type = ?", t)
		}
		if cid := c.QueryInt("customer_id"); cid > 0 {
			dbq = dbq.Where("customer_id = ?", cid)
		}
		if from != nil {
			dbq = dbq.Where("date >= ?", *from)
		}
		if to != nil {
			dbq = dbq.Where("date < ?", *to)
		}

		var total int64
		if err := dbq.Count(&total).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not count transactions")
		}

		page := httputil.PageQuery(c)
		var txs []models.Transaction
		if err := dbq.Order("date DESC, id DESC").Limit(page.Limit).Offset(page.Offset).Find(&txs).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not list transactions")
		}

		return c.JSON(fiber.Map{"total": total, "items": txs})
	}
}
