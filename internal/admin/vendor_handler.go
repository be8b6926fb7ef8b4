package admin

import (
	"errors"
	"strings"
	"time"

	"kada-backend/internal/audit"
	"kada-backend/internal/database"
	"kada-backend/internal/httputil"
	"kada-backend/internal/mirror"
	"kada-backend/internal/models"
	"kada-backend/internal/subscription"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
)

type VendorResponse struct {
	models.Vendor
	SubscriptionState string `json:"subscription_state"` // active | expired | suspended | none
}

type UpdateSubscriptionRequest struct {
	Plan    *string `json:"plan"`
	Status  *string `json:"status" validate:"omitempty,oneof=ACTIVE SUSPENDED"`
	EndDate *string `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
}

type ResetPasswordRequest struct {
	Password string `json:"password" validate:"required,min=8"`
}

func subscriptionState(sub *models.Subscription, now time.Time) string {
	switch {
	case sub == nil:
		return "none"
	case sub.Status == models.SubscriptionSuspended:
		return "suspended"
	case !sub.IsUsable(now):
		return "expired"
	}
	return "active"
}

func toVendorResponse(v models.Vendor, now time.Time) VendorResponse {
	return VendorResponse{Vendor: v, SubscriptionState: subscriptionState(v.Subscription, now)}
}

// GET /api/admin/vendors?q=sharma&state=expired&limit=50&offset=0
func ListVendorsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq := database.DB.Model(&models.Vendor{})
		if q := strings.TrimSpace(c.Query("q")); q != "" {
			like := "%" + strings.ToLower(q) + "%"
			dbq = dbq.Where("LOWER(business_name) LIKE ? OR LOWER(owner_name) LIKE ? OR phone LIKE ? OR LOWER(city) LIKE ?", like, like, like, like)
		}

		now := time.Now()
		switch c.Query("state") {
		case "":
		case "active":
			dbq = dbq.Where("id IN (SELECT vendor_id FROM subscriptions WHERE status = ? AND end_date > ?)", models.SubscriptionActive, now)
		case "expired":
			dbq = dbq.Where("id IN (SELECT vendor_id FROM subscriptions WHERE status = ? AND end_date <= ?)", models.SubscriptionActive, now)
		case "suspended":
			dbq = dbq.Where("id IN (SELECT vendor_id FROM subscriptions WHERE status = ?)", models.SubscriptionSuspended)
		default:
			return fiber.NewError(fiber.StatusBadRequest, "state must be active, expired or suspended")
		}

		var total int64
		if err := dbq.Count(&total).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not count vendors")
		}

		page := httputil.PageQuery(c)
		var vendors []models.Vendor
		if err := dbq.Preload("Subscription").Order("created_at DESC").Limit(page.Limit).Offset(page.Offset).Find(&vendors).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not list vendors")
		}

		items := make([]VendorResponse, 0, len(vendors))
		for _, v := range vendors {
			items = append(items, toVendorResponse(v, now))
		}
		return c.JSON(fiber.Map{"total": total, "items": items})
	}
}

func GetVendorHandler(sync *mirror.SyncService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httputil.IDParam(c, "id")
		if err != nil {
			return err
		}

		var vendor models.Vendor
		if err := database.DB.Preload("Subscription").First(&vendor, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "vendor not found")
		}

		var txCount int64
		database.DB.Model(&models.Transaction{}).Where("vendor_id = ?", id).Count(&txCount)

		var lastTx models.Transaction
		var lastTxAt *time.Time
		if err := database.DB.Where("vendor_id = ?", id).Order("created_at DESC").First(&lastTx).Error; err == nil {
			lastTxAt = &lastTx.CreatedAt
		}

		resp := fiber.Map{
			"vendor":              toVendorResponse(vendor, time.Now()),
			"transaction_count":   txCount,
			"last_transaction_at": lastTxAt,
		}
		// mirror copy, for spotting drift against the primary counters
		if stats, err := mirror.ReadVendorStats(c.UserContext(), sync.Store(), id); err == nil {
			resp["mirror_stats"] = stats
		}
		return c.JSON(resp)
	}
}

// PUT /api/admin/vendors/:id/subscription
func UpdateSubscriptionHandler(sync *mirror.SyncService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httputil.IDParam(c, "id")
		if err != nil {
			return err
		}
		var body UpdateSubscriptionRequest
		if err := httputil.ParseBody(c, &body); err != nil {
			return err
		}

		ch := subscription.Change{PlanCode: body.Plan}
		if body.Status != nil {
			st := models.SubscriptionStatus(*body.Status)
			ch.Status = &st
		}
		if body.EndDate != nil {
			end, err := time.Parse(httputil.DateLayout, *body.EndDate)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "end_date must be YYYY-MM-DD")
			}
			// valid through the whole end date
			end = end.AddDate(0, 0, 1)
			ch.EndDate = &end
		}
		return applySubscriptionChange(c, sync, id, ch, "subscription updated by admin")
	}
}

func SuspendVendorHandler(sync *mirror.SyncService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httputil.IDParam(c, "id")
		if err != nil {
			return err
		}
		st := models.SubscriptionSuspended
		return applySubscriptionChange(c, sync, id, subscription.Change{Status: &st}, "vendor suspended")
	}
}

func ActivateVendorHandler(sync *mirror.SyncService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httputil.IDParam(c, "id")
		if err != nil {
			return err
		}
		st := models.SubscriptionActive
		return applySubscriptionChange(c, sync, id, subscription.Change{Status: &st}, "vendor activated")
	}
}

func applySubscriptionChange(c *fiber.Ctx, sync *mirror.SyncService, vendorID uint, ch subscription.Change, desc string) error {
	before, after, err := subscription.Update(c.UserContext(), database.DB, vendorID, ch)
	switch {
	case errors.Is(err, subscription.ErrSubscriptionNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, subscription.ErrPlanNotFound):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case err != nil:
		return fiber.NewError(fiber.StatusInternalServerError, "could not update subscription")
	}

	sync.SyncSubscription(c.UserContext(), vendorID, *after)

	audit.Record(c, audit.LogOptions{
		VendorID:    &vendorID,
		EntityType:  "subscription",
		EntityID:    after.ID,
		Action:      models.AuditActionUpdate,
		Description: desc,
		Before:      before,
		After:       after,
	})
	return c.JSON(after)
}

// POST /api/admin/vendors/:id/reset-password
func ResetVendorPasswordHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httputil.IDParam(c, "id")
		if err != nil {
			return err
		}
		var body ResetPasswordRequest
		if err := httputil.ParseBody(c, &body); err != nil {
			return err
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.DefaultCost)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not hash password")
		}
		res := database.DB.Model(&models.User{}).
			Where("vendor_id = ? AND role = ?", id, models.RoleVendor).
			Update("password_hash", string(hash))
		if res.Error != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not reset password")
		}
		if res.RowsAffected == 0 {
			return fiber.NewError(fiber.StatusNotFound, "vendor login not found")
		}

		audit.Record(c, audit.LogOptions{
			VendorID:    &id,
			EntityType:  "user",
			Action:      models.AuditActionUpdate,
			Description: "vendor password reset by admin",
		})
		return c.SendStatus(fiber.StatusNoContent)
	}
}
