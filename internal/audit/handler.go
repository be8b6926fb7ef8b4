package audit

import (
	"kada-backend/internal/database"
	"kada-backend/internal/httputil"
	"kada-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GET /api/admin/audit-logs?vendor_id=1&entity_type=customer&entity_id=3&user_id=2
func ListAuditLogsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq := database.DB.Model(&models.AuditLog{})

		if vid := c.QueryInt("vendor_id"); vid > 0 {
			dbq = dbq.Where("vendor_id = ?", vid)
		}
		if uid := c.QueryInt("user_id"); uid > 0 {
			dbq = dbq.Where("user_id = ?", uid)
		}
		if entityType := c.Query("entity_type"); entityType != "" {
			dbq = dbq.Where("entity_type = ?", entityType)
		}
		if eid := c.QueryInt("entity_id"); eid > 0 {
			dbq = dbq.Where("entity_id = ?", eid)
		}

		var total int64
		if err := dbq.Count(&total).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not count audit logs")
		}

		page := httputil.PageQuery(c)
		var logs []models.AuditLog
		if err := dbq.Order("created_at DESC").Limit(page.Limit).Offset(page.Offset).Find(&logs).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not list audit logs")
		}

		return c.JSON(fiber.Map{
			"total": total,
			"items": logs,
		})
	}
}
