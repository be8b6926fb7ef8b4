package subscription

import (
	"kada-backend/internal/auth"
	"kada-backend/internal/database"
	"kada-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GET /api/pricing-plans - active plans, public.
func ListActivePlansHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		plans, err := ActivePlans(database.DB.WithContext(c.UserContext()))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not list plans")
		}
		return c.JSON(plans)
	}
}

// GET /api/subscription - the calling vendor's subscription.
func GetMySubscriptionHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		vendorID, err := auth.VendorID(c)
		if err != nil {
			return err
		}
		var sub models.Subscription
		if err := database.DB.Where("vendor_id = ?", vendorID).First(&sub).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, ErrSubscriptionNotFound.Error())
		}
		return c.JSON(sub)
	}
}
