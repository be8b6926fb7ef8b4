package auth

import (
	"context"
	"strings"
	"time"

	"kada-backend/internal/config"
	"kada-backend/internal/database"
	"kada-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

const (
	CtxUserIDKey   = "user_id"
	CtxUserRoleKey = "user_role"
	CtxVendorIDKey = "vendor_id"
)

func JWTMiddleware(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing Authorization header")
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			return fiber.NewError(fiber.StatusUnauthorized, "Authorization must be 'Bearer <token>'")
		}

		claims, err := ParseToken(cfg.JWTSecret, parts[1])
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, err.Error())
		}

		c.Locals(CtxUserIDKey, claims.UserID)
		c.Locals(CtxUserRoleKey, claims.Role)
		c.Locals(CtxVendorIDKey, claims.VendorID)

		return c.Next()
	}
}

func RequireRole(allowedRoles ...models.UserRole) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role, ok := c.Locals(CtxUserRoleKey).(models.UserRole)
		if !ok {
			return fiber.NewError(fiber.StatusForbidden, "role missing")
		}

		for _, r := range allowedRoles {
			if r == role {
				return c.Next()
			}
		}
		return fiber.NewError(fiber.StatusForbidden, "not allowed")
	}
}

// SubscriptionLoader returns the subscription of a vendor.
type SubscriptionLoader func(ctx context.Context, vendorID uint) (*models.Subscription, error)

func loadSubscription(ctx context.Context, vendorID uint) (*models.Subscription, error) {
	var sub models.Subscription
	if err := database.DB.WithContext(ctx).Where("vendor_id = ?", vendorID).First(&sub).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

// RequireActiveSubscription blocks ledger writes for suspended or expired
// vendors. Every route that ends in a ledger write goes behind it.
func RequireActiveSubscription() fiber.Handler {
	return RequireSubscription(loadSubscription)
}

func RequireSubscription(load SubscriptionLoader) fiber.Handler {
	return func(c *fiber.Ctx) error {
		vendorID, err := VendorID(c)
		if err != nil {
			return err
		}

		sub, err := load(c.UserContext(), vendorID)
		if err != nil {
			return fiber.NewError(fiber.StatusPaymentRequired, "no subscription")
		}
		if !sub.IsUsable(time.Now()) {
			return fiber.NewError(fiber.StatusPaymentRequired, "subscription is suspended or expired")
		}
		return c.Next()
	}
}

// VendorID returns the tenant of the authenticated vendor user.
func VendorID(c *fiber.Ctx) (uint, error) {
	vPtr, ok := c.Locals(CtxVendorIDKey).(*uint)
	if !ok || vPtr == nil {
		return 0, fiber.NewError(fiber.StatusForbidden, "vendor account required")
	}
	return *vPtr, nil
}

// UserID returns the authenticated user id.
func UserID(c *fiber.Ctx) (uint, error) {
	id, ok := c.Locals(CtxUserIDKey).(uint)
	if !ok {
		return 0, fiber.NewError(fiber.StatusForbidden, "user missing")
	}
	return id, nil
}

// CurrentUser loads the authenticated user for audit entries.
func CurrentUser(c *fiber.Ctx) (*models.User, error) {
	id, err := UserID(c)
	if err != nil {
		return nil, err
	}
	var user models.User
	if err := database.DB.First(&user, "id = ?", id).Error; err != nil {
		return nil, fiber.NewError(fiber.StatusInternalServerError, "user not found")
	}
	return &user, nil
}
