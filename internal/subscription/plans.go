package subscription

import (
	"kada-backend/internal/models"

	"gorm.io/gorm"
)

func ActivePlans(db *gorm.DB) ([]models.PricingPlan, error) {
	var plans []models.PricingPlan
	err := db.Where("is_active = ?", true).Order("sort_order ASC, id ASC").Find(&plans).Error
	return plans, err
}
