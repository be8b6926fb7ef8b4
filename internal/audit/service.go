package audit

import (
	"encoding/json"
	"fmt"

	"kada-backend/internal/auth"
	"kada-backend/internal/config"
	"kada-backend/internal/database"
	"kada-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type LogOptions struct {
	VendorID    *uint
	UserID      uint
	UserName    string
	EntityType  string
	EntityID    uint
	Action      models.AuditAction
	Description string
	Before      any
	After       any
}

// jsonb columns take the JSON literal null rather than an empty string
func toJSON(v any) string {
	if v == nil {
		return "null"
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(b)
}

func BuildLog(opts LogOptions) models.AuditLog {
	return models.AuditLog{
		VendorID:    opts.VendorID,
		UserID:      opts.UserID,
		UserName:    opts.UserName,
		EntityType:  opts.EntityType,
		EntityID:    opts.EntityID,
		Action:      opts.Action,
		Description: opts.Description,
		BeforeData:  toJSON(opts.Before),
		AfterData:   toJSON(opts.After),
	}
}

func WriteLog(db *gorm.DB, opts LogOptions) error {
	log := BuildLog(opts)
	if err := db.Create(&log).Error; err != nil {
		return fmt.Errorf("write audit log: %w", err)
	}
	return nil
}

// Record fills the acting user from the request and writes the entry. An
// audit failure never fails the request that triggered it.
func Record(c *fiber.Ctx, opts LogOptions) {
	if user, err := auth.CurrentUser(c); err == nil {
		opts.UserID = user.ID
		opts.UserName = user.Name
	}
	if err := WriteLog(database.DB.WithContext(c.UserContext()), opts); err != nil {
		config.LogError(config.GetLogger(), "audit", "Record", "audit log not written", opts.EntityType, err)
	}
}
