package customer

import (
	"strings"

	"kada-backend/internal/audit"
	"kada-backend/internal/auth"
	"kada-backend/internal/cache"
	"kada-backend/internal/config"
	"kada-backend/internal/database"
	"kada-backend/internal/httputil"
	"kada-backend/internal/ledger"
	"kada-backend/internal/mirror"
	"kada-backend/internal/models"
	"kada-backend/internal/phone"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type CreateCustomerRequest struct {
	Name        string           `json:"name" validate:"required,max=100"`
	Phone       string           `json:"phone" validate:"required"`
	CreditLimit *decimal.Decimal `json:"credit_limit"`
}

type UpdateCustomerRequest struct {
	Name        *string          `json:"name" validate:"omitempty,max=100"`
	Phone       *string          `json:"phone"`
	CreditLimit *decimal.Decimal `json:"credit_limit"`
}

type CustomerResponse struct {
	models.Customer
	Outstanding decimal.Decimal `json:"outstanding"`
	OverLimit   bool            `json:"over_limit"`
}

func toResponse(c models.Customer) CustomerResponse {
	return CustomerResponse{
		Customer:    c,
		Outstanding: ledger.Outstanding(c.Balance),
		OverLimit:   ledger.OverLimit(c.Balance, c.CreditLimit),
	}
}

func creditLimit(d *decimal.Decimal) (decimal.Decimal, error) {
	if d == nil {
		return decimal.Zero, nil
	}
	if d.IsNegative() {
		return decimal.Zero, fiber.NewError(fiber.StatusBadRequest, "credit_limit must not be negative")
	}
	return *d, nil
}

func invalidateSummary(c *fiber.Ctx, vendorID uint, funcName string) {
	if err := cache.InvalidateSummary(c.UserContext(), vendorID); err != nil {
		config.LogError(config.GetLogger(), "customer", funcName, "dashboard cache not invalidated", vendorID, err)
	}
}

func CreateCustomerHandler(sync *mirror.SyncService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		vendorID, err := auth.VendorID(c)
		if err != nil {
			return err
		}

		var body CreateCustomerRequest
		if err := httputil.ParseBody(c, &body); err != nil {
			return err
		}
		e164, err := phone.Normalize(body.Phone)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid phone number")
		}
		limit, err := creditLimit(body.CreditLimit)
		if err != nil {
			return err
		}

		cust, err := ledger.CreateCustomer(c.UserContext(), database.DB, vendorID, ledger.NewCustomer{
			Name:        body.Name,
			Phone:       e164,
			CreditLimit: limit,
		})
		if err != nil {
			return ledger.HTTPError(err)
		}

		sync.SyncCustomer(c.UserContext(), vendorID, *cust)
		sync.SyncCustomerCount(c.UserContext(), vendorID, 1)
		invalidateSummary(c, vendorID, "CreateCustomerHandler")

		audit.Record(c, audit.LogOptions{
			VendorID:    &vendorID,
			EntityType:  "customer",
			EntityID:    cust.ID,
			Action:      models.AuditActionCreate,
			Description: "customer created: " + cust.Name,
			After:       cust,
		})

		return c.Status(fiber.StatusCreated).JSON(toResponse(*cust))
	}
}

// GET /api/customers?q=ram&limit=50&offset=0
func ListCustomersHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		vendorID, err := auth.VendorID(c)
		if err != nil {
			return err
		}

		dbq := database.DB.Model(&models.Customer{}).Where("vendor_id = ?", vendorID)
		if q := strings.TrimSpace(c.Query("q")); q != "" {
			like := "%" + strings.ToLower(q) + "%"
			if digits := phone.Digits(q); digits != "" {
				dbq = dbq.Where("LOWER(name) LIKE ? OR phone LIKE ?", like, "%"+digits+"%")
			} else {
				dbq = dbq.Where("LOWER(name) LIKE ?", like)
			}
		}
		if c.QueryBool("owing") {
			dbq = dbq.Where("balance < 0")
		}

		var total int64
		if err := dbq.Count(&total).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not count customers")
		}

		page := httputil.PageQuery(c)
		var customers []models.Customer
		if err := dbq.Order("name ASC").Limit(page.Limit).Offset(page.Offset).Find(&customers).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not list customers")
		}

		items := make([]CustomerResponse, 0, len(customers))
		for _, cu := range customers {
			items = append(items, toResponse(cu))
		}
		return c.JSON(fiber.Map{"total": total, "items": items})
	}
}

func GetCustomerHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		cust, err := loadCustomer(c)
		if err != nil {
			return err
		}
		return c.JSON(toResponse(*cust))
	}
}

func UpdateCustomerHandler(sync *mirror.SyncService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		vendorID, err := auth.VendorID(c)
		if err != nil {
			return err
		}
		id, err := httputil.IDParam(c, "id")
		if err != nil {
			return err
		}

		var body UpdateCustomerRequest
		if err := httputil.ParseBody(c, &body); err != nil {
			return err
		}

		in := ledger.CustomerUpdate{Name: body.Name}
		if body.Phone != nil {
			e164, err := phone.Normalize(*body.Phone)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "invalid phone number")
			}
			in.Phone = &e164
		}
		if body.CreditLimit != nil {
			limit, err := creditLimit(body.CreditLimit)
			if err != nil {
				return err
			}
			in.CreditLimit = &limit
		}

		before, after, err := ledger.UpdateCustomer(c.UserContext(), database.DB, vendorID, id, in)
		if err != nil {
			return ledger.HTTPError(err)
		}

		sync.SyncCustomer(c.UserContext(), vendorID, *after)

		audit.Record(c, audit.LogOptions{
			VendorID:    &vendorID,
			EntityType:  "customer",
			EntityID:    id,
			Action:      models.AuditActionUpdate,
			Description: "customer updated: " + after.Name,
			Before:      before,
			After:       after,
		})

		return c.JSON(toResponse(*after))
	}
}

func DeleteCustomerHandler(sync *mirror.SyncService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		vendorID, err := auth.VendorID(c)
		if err != nil {
			return err
		}
		id, err := httputil.IDParam(c, "id")
		if err != nil {
			return err
		}

		cust, err := ledger.DeleteCustomer(c.UserContext(), database.DB, vendorID, id)
		if err != nil {
			return ledger.HTTPError(err)
		}

		sync.SyncCustomerRemoved(c.UserContext(), vendorID, id)
		sync.SyncCustomerCount(c.UserContext(), vendorID, -1)
		invalidateSummary(c, vendorID, "DeleteCustomerHandler")

		audit.Record(c, audit.LogOptions{
			VendorID:    &vendorID,
			EntityType:  "customer",
			EntityID:    id,
			Action:      models.AuditActionDelete,
			Description: "customer deleted: " + cust.Name,
			Before:      cust,
		})

		return c.SendStatus(fiber.StatusNoContent)
	}
}

// GET /api/customers/:id/transactions?from=2025-01-01&to=2025-01-31
func ListCustomerTransactionsHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		cust, err := loadCustomer(c)
		if err != nil {
			return err
		}

		from, to, err := httputil.DateRangeQuery(c, cfg.Location())
		if err != nil {
			return err
		}

		dbq := database.DB.Where("vendor_id = ? AND customer_id = ?", cust.VendorID, cust.ID)
		if from != nil {
			dbq = dbq.Where("date >= ?", *from)
		}
		if to != nil {
			dbq = dbq.Where("date < ?", *to)
		}

		page := httputil.PageQuery(c)
		var txs []models.Transaction
		if err := dbq.Order("date DESC, id DESC").Limit(page.Limit).Offset(page.Offset).Find(&txs).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not list transactions")
		}

		return c.JSON(fiber.Map{
			"customer":     toResponse(*cust),
			"transactions": txs,
		})
	}
}

func loadCustomer(c *fiber.Ctx) (*models.Customer, error) {
	vendorID, err := auth.VendorID(c)
	if err != nil {
		return nil, err
	}
	id, err := httputil.IDParam(c, "id")
	if err != nil {
		return nil, err
	}

	var cust models.Customer
	if err := database.DB.WithContext(c.UserContext()).
		Where("id = ? AND vendor_id = ?", id, vendorID).
		First(&cust).Error; err != nil {
		return nil, fiber.NewError(fiber.StatusNotFound, "customer not found")
	}
	return &cust, nil
}
