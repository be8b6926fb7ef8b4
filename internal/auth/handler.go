package auth

import (
	"errors"
	"strings"
	"time"

	"kada-backend/internal/config"
	"kada-backend/internal/database"
	"kada-backend/internal/httputil"
	"kada-backend/internal/mirror"
	"kada-backend/internal/models"
	"kada-backend/internal/phone"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type RegisterVendorRequest struct {
	BusinessName string `json:"business_name" validate:"required,max=150"`
	OwnerName    string `json:"owner_name" validate:"required,max=100"`
	Phone        string `json:"phone" validate:"required"`
	City         string `json:"city" validate:"max=100"`
	Password     string `json:"password" validate:"required,min=8"`
}

type RegisterSuperAdminRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// LoginRequest accepts a vendor phone or an admin email as identifier.
type LoginRequest struct {
	Identifier string `json:"identifier" validate:"required"`
	Password   string `json:"password" validate:"required"`
}

var errPhoneTaken = errors.New("phone already registered")

// RegisterVendorHandler creates the vendor, its owner login and a trial
// subscription in one transaction.
func RegisterVendorHandler(cfg *config.Config, sync *mirror.SyncService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body RegisterVendorRequest
		if err := httputil.ParseBody(c, &body); err != nil {
			return err
		}

		e164, err := phone.Normalize(body.Phone)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid phone number")
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.DefaultCost)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not hash password")
		}

		now := time.Now()
		vendor := models.Vendor{
			BusinessName: strings.TrimSpace(body.BusinessName),
			OwnerName:    strings.TrimSpace(body.OwnerName),
			Phone:        e164,
			City:         strings.TrimSpace(body.City),
		}
		var user models.User
		sub := models.Subscription{
			PlanCode:  models.PlanTrial,
			Status:    models.SubscriptionActive,
			StartDate: now,
			EndDate:   now.AddDate(0, 0, cfg.TrialDays),
		}

		err = database.DB.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
			var count int64
			if err := tx.Model(&models.Vendor{}).Where("phone = ?", e164).Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				return errPhoneTaken
			}
			if err := tx.Create(&vendor).Error; err != nil {
				return err
			}
			user = models.User{
				VendorID:     &vendor.ID,
				Name:         vendor.OwnerName,
				Phone:        &e164,
				PasswordHash: string(hash),
				Role:         models.RoleVendor,
			}
			if err := tx.Create(&user).Error; err != nil {
				return err
			}
			sub.VendorID = vendor.ID
			return tx.Create(&sub).Error
		})
		if errors.Is(err, errPhoneTaken) {
			return fiber.NewError(fiber.StatusConflict, errPhoneTaken.Error())
		}
		if err != nil {
			config.LogError(config.GetLogger(), "auth", "RegisterVendorHandler", "registration failed", e164, err)
			return fiber.NewError(fiber.StatusInternalServerError, "could not register vendor")
		}

		sync.SyncVendorProfile(c.UserContext(), vendor)
		sync.SyncSubscription(c.UserContext(), vendor.ID, sub)

		token, err := GenerateToken(cfg.JWTSecret, &user)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not create token")
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"token":        token,
			"vendor":       vendor,
			"subscription": sub,
		})
	}
}

func RegisterSuperAdminHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body RegisterSuperAdminRequest
		if err := httputil.ParseBody(c, &body); err != nil {
			return err
		}

		email := strings.TrimSpace(strings.ToLower(body.Email))

		// only the first admin can self-register
		var count int64
		database.DB.Model(&models.User{}).
			Where("role = ?", models.RoleSuperAdmin).
			Count(&count)
		if count > 0 {
			return fiber.NewError(fiber.StatusForbidden, "a super admin already exists")
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.DefaultCost)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not hash password")
		}

		user := models.User{
			Name:         body.Name,
			Email:        &email,
			PasswordHash: string(hash),
			Role:         models.RoleSuperAdmin,
		}

		if err := database.DB.Create(&user).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not create user")
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"id":    user.ID,
			"email": email,
			"role":  user.Role,
		})
	}
}

func LoginHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body LoginRequest
		if err := httputil.ParseBody(c, &body); err != nil {
			return err
		}

		q := database.DB.Model(&models.User{})
		ident := strings.TrimSpace(body.Identifier)
		if strings.Contains(ident, "@") {
			q = q.Where("email = ?", strings.ToLower(ident))
		} else {
			e164, err := phone.Normalize(ident)
			if err != nil {
				return fiber.NewError(fiber.StatusUnauthorized, "invalid credentials")
			}
			q = q.Where("phone = ?", e164)
		}

		var user models.User
		if err := q.First(&user).Error; err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid credentials")
		}

		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(body.Password)); err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid credentials")
		}

		token, err := GenerateToken(cfg.JWTSecret, &user)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not create token")
		}

		return c.JSON(fiber.Map{
			"token": token,
			"user":  userView(user),
		})
	}
}

func MeHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, err := CurrentUser(c)
		if err != nil {
			return err
		}

		response := userView(*user)
		if user.VendorID != nil {
			var vendor models.Vendor
			if err := database.DB.Preload("Subscription").First(&vendor, *user.VendorID).Error; err == nil {
				response["vendor"] = vendor
			}
		}
		return c.JSON(response)
	}
}

func userView(u models.User) fiber.Map {
	return fiber.Map{
		"id":        u.ID,
		"name":      u.Name,
		"email":     u.Email,
		"phone":     u.Phone,
		"role":      u.Role,
		"vendor_id": u.VendorID,
	}
}
