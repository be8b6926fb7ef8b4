package auth

import (
	"strings"

	"kada-backend/internal/database"
	"kada-backend/internal/httputil"
	"kada-backend/internal/mirror"
	"kada-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

type UpdateProfileRequest struct {
	BusinessName *string `json:"business_name" validate:"omitempty,min=1,max=150"`
	OwnerName    *string `json:"owner_name" validate:"omitempty,max=100"`
	City         *string `json:"city" validate:"omitempty,max=100"`
}

// PUT /api/vendor/profile. The phone is the login and is not editable here.
func UpdateProfileHandler(sync *mirror.SyncService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		vendorID, err := VendorID(c)
		if err != nil {
			return err
		}
		var body UpdateProfileRequest
		if err := httputil.ParseBody(c, &body); err != nil {
			return err
		}

		var vendor models.Vendor
		if err := database.DB.First(&vendor, vendorID).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "vendor not found")
		}
		if body.BusinessName != nil {
			vendor.BusinessName = strings.TrimSpace(*body.BusinessName)
		}
		if body.OwnerName != nil {
			vendor.OwnerName = strings.TrimSpace(*body.OwnerName)
		}
		if body.City != nil {
			vendor.City = strings.TrimSpace(*body.City)
		}

		if err := database.DB.Model(&vendor).Select("business_name", "owner_name", "city").Updates(&vendor).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not update profile")
		}

		sync.SyncVendorProfile(c.UserContext(), vendor)
		return c.JSON(vendor)
	}
}
