package report

import (
	"bytes"
	"fmt"
	"time"

	"kada-backend/internal/auth"
	"kada-backend/internal/config"
	"kada-backend/internal/database"
	"kada-backend/internal/httputil"
	"kada-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

func filterFromQuery(c *fiber.Ctx, cfg *config.Config) (Filter, error) {
	from, to, err := httputil.DateRangeQuery(c, cfg.Location())
	if err != nil {
		return Filter{}, err
	}
	f := Filter{From: from, To: to, CustomerID: uint(c.QueryInt("customer_id"))}
	if t := models.TransactionType(c.Query("type")); t != "" {
		if !t.Valid() {
			return Filter{}, fiber.NewError(fiber.StatusBadRequest, "type must be CREDIT, PAYMENT or DEBIT")
		}
		f.Type = t
	}
	return f, nil
}

func filename(cfg *config.Config, ext string) string {
	return fmt.Sprintf("kada-transactions-%s.%s", time.Now().In(cfg.Location()).Format("2006-01-02"), ext)
}

// GET /api/reports/transactions.csv?from=&to=&customer_id=&type=
func TransactionsCSVHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		vendorID, err := auth.VendorID(c)
		if err != nil {
			return err
		}
		f, err := filterFromQuery(c, cfg)
		if err != nil {
			return err
		}
		lines, err := LoadLines(c.UserContext(), database.DB, vendorID, f, cfg.Location())
		if err != nil {
			config.LogError(config.GetLogger(), "report", "TransactionsCSVHandler", "load failed", vendorID, err)
			return fiber.NewError(fiber.StatusInternalServerError, "could not build report")
		}

		var buf bytes.Buffer
		if err := WriteCSV(&buf, lines); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not build report")
		}
		c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
		c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+filename(cfg, "csv")+`"`)
		return c.Send(buf.Bytes())
	}
}

// GET /api/reports/transactions.xlsx?from=&to=&customer_id=&type=
func TransactionsXLSXHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		vendorID, err := auth.VendorID(c)
		if err != nil {
			return err
		}
		f, err := filterFromQuery(c, cfg)
		if err != nil {
			return err
		}
		ctx := c.UserContext()
		lines, err := LoadLines(ctx, database.DB, vendorID, f, cfg.Location())
		if err != nil {
			config.LogError(config.GetLogger(), "report", "TransactionsXLSXHandler", "load failed", vendorID, err)
			return fiber.NewError(fiber.StatusInternalServerError, "could not build report")
		}
		customers, err := LoadCustomers(ctx, database.DB, vendorID)
		if err != nil {
			config.LogError(config.GetLogger(), "report", "TransactionsXLSXHandler", "load customers failed", vendorID, err)
			return fiber.NewError(fiber.StatusInternalServerError, "could not build report")
		}

		var buf bytes.Buffer
		if err := WriteXLSX(&buf, lines, customers); err != nil {
			config.LogError(config.GetLogger(), "report", "TransactionsXLSXHandler", "xlsx failed", vendorID, err)
			return fiber.NewError(fiber.StatusInternalServerError, "could not build report")
		}
		c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+filename(cfg, "xlsx")+`"`)
		return c.Send(buf.Bytes())
	}
}
