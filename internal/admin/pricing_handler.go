package admin

import (
	"strings"

	"kada-backend/internal/audit"
	"kada-backend/internal/config"
	"kada-backend/internal/database"
	"kada-backend/internal/httputil"
	"kada-backend/internal/mirror"
	"kada-backend/internal/models"
	"kada-backend/internal/subscription"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type CreatePlanRequest struct {
	Code         string          `json:"code" validate:"required,max=30,alphanum"`
	Name         string          `json:"name" validate:"required,max=100"`
	PriceINR     decimal.Decimal `json:"price_inr"`
	DurationDays int             `json:"duration_days" validate:"required,min=1,max=3660"`
	Features     []string        `json:"features"`
	IsActive     *bool           `json:"is_active"`
	SortOrder    int             `json:"sort_order"`
}

type UpdatePlanRequest struct {
	Name         *string          `json:"name" validate:"omitempty,max=100"`
	PriceINR     *decimal.Decimal `json:"price_inr"`
	DurationDays *int             `json:"duration_days" validate:"omitempty,min=1,max=3660"`
	Features     []string         `json:"features"`
	IsActive     *bool            `json:"is_active"`
	SortOrder    *int             `json:"sort_order"`
}

func joinFeatures(features []string) string {
	out := make([]string, 0, len(features))
	for _, f := range features {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return strings.Join(out, "\n")
}

// publishPlans replaces the mirrored pricing document with the active plans.
func publishPlans(c *fiber.Ctx, sync *mirror.SyncService) {
	plans, err := subscription.ActivePlans(database.DB.WithContext(c.UserContext()))
	if err != nil {
		config.LogError(config.GetLogger(), "admin", "publishPlans", "could not load active plans", nil, err)
		return
	}
	sync.SyncPricingPlans(c.UserContext(), plans)
}

func CreatePlanHandler(sync *mirror.SyncService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreatePlanRequest
		if err := httputil.ParseBody(c, &body); err != nil {
			return err
		}
		if body.PriceINR.IsNegative() {
			return fiber.NewError(fiber.StatusBadRequest, "price_inr must not be negative")
		}

		plan := models.PricingPlan{
			Code:         strings.ToUpper(body.Code),
			Name:         strings.TrimSpace(body.Name),
			PriceINR:     body.PriceINR.Round(2),
			DurationDays: body.DurationDays,
			Features:     joinFeatures(body.Features),
			IsActive:     body.IsActive == nil || *body.IsActive,
			SortOrder:    body.SortOrder,
		}

		var count int64
		database.DB.Model(&models.PricingPlan{}).Where("code = ?", plan.Code).Count(&count)
		if count > 0 {
			return fiber.NewError(fiber.StatusConflict, "a plan with this code already exists")
		}
		if err := database.DB.Create(&plan).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not create plan")
		}

		publishPlans(c, sync)
		audit.Record(c, audit.LogOptions{
			EntityType:  "pricing_plan",
			EntityID:    plan.ID,
			Action:      models.AuditActionCreate,
			Description: "plan created: " + plan.Code,
			After:       plan,
		})
		return c.Status(fiber.StatusCreated).JSON(plan)
	}
}

func ListPlansHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var plans []models.PricingPlan
		if err := database.DB.Order("sort_order ASC, id ASC").Find(&plans).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not list plans")
		}
		return c.JSON(plans)
	}
}

func UpdatePlanHandler(sync *mirror.SyncService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httputil.IDParam(c, "id")
		if err != nil {
			return err
		}

		var plan models.PricingPlan
		if err := database.DB.First(&plan, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "plan not found")
		}
		before := plan

		var body UpdatePlanRequest
		if err := httputil.ParseBody(c, &body); err != nil {
			return err
		}
		if body.Name != nil {
			plan.Name = strings.TrimSpace(*body.Name)
		}
		if body.PriceINR != nil {
			if body.PriceINR.IsNegative() {
				return fiber.NewError(fiber.StatusBadRequest, "price_inr must not be negative")
			}
			plan.PriceINR = body.PriceINR.Round(2)
		}
		if body.DurationDays != nil {
			plan.DurationDays = *body.DurationDays
		}
		if body.Features != nil {
			plan.Features = joinFeatures(body.Features)
		}
		if body.IsActive != nil {
			plan.IsActive = *body.IsActive
		}
		if body.SortOrder != nil {
			plan.SortOrder = *body.SortOrder
		}

		if err := database.DB.Save(&plan).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not update plan")
		}

		publishPlans(c, sync)
		audit.Record(c, audit.LogOptions{
			EntityType:  "pricing_plan",
			EntityID:    plan.ID,
			Action:      models.AuditActionUpdate,
			Description: "plan updated: " + plan.Code,
			Before:      before,
			After:       plan,
		})
		return c.JSON(plan)
	}
}

// DeletePlanHandler removes a plan. Existing subscriptions keep the code.
func DeletePlanHandler(sync *mirror.SyncService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httputil.IDParam(c, "id")
		if err != nil {
			return err
		}

		var plan models.PricingPlan
		if err := database.DB.First(&plan, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "plan not found")
		}
		if err := database.DB.Delete(&plan).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not delete plan")
		}

		publishPlans(c, sync)
		audit.Record(c, audit.LogOptions{
			EntityType:  "pricing_plan",
			EntityID:    plan.ID,
			Action:      models.AuditActionDelete,
			Description: "plan deleted: " + plan.Code,
			Before:      plan,
		})
		return c.SendStatus(fiber.StatusNoContent)
	}
}
