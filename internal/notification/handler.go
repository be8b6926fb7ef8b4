package notification

import (
	"kada-backend/internal/auth"
	"kada-backend/internal/database"
	"kada-backend/internal/httputil"
	"kada-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

type RegisterDeviceRequest struct {
	Token    string `json:"token" validate:"required,max=255"`
	Platform string `json:"platform" validate:"required,oneof=android ios web"`
}

type BroadcastRequest struct {
	Message
	VendorIDs []uint `json:"vendor_ids"`
}

// POST /api/devices
func RegisterDeviceHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		vendorID, err := auth.VendorID(c)
		if err != nil {
			return err
		}
		var body RegisterDeviceRequest
		if err := httputil.ParseBody(c, &body); err != nil {
			return err
		}

		dt, err := RegisterDevice(c.UserContext(), database.DB, vendorID, body.Token, body.Platform)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not register device")
		}
		return c.Status(fiber.StatusCreated).JSON(dt)
	}
}

// DELETE /api/devices/:token
func DeleteDeviceHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		vendorID, err := auth.VendorID(c)
		if err != nil {
			return err
		}
		res := database.DB.Where("vendor_id = ? AND token = ?", vendorID, c.Params("token")).Delete(&models.DeviceToken{})
		if res.Error != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not remove device")
		}
		if res.RowsAffected == 0 {
			return fiber.NewError(fiber.StatusNotFound, "device not found")
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// POST /api/admin/notifications
func BroadcastHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body BroadcastRequest
		if err := httputil.ParseBody(c, &body); err != nil {
			return err
		}

		counts, err := svc.SendToVendors(c.UserContext(), database.DB, body.VendorIDs, body.Message)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(counts)
	}
}
