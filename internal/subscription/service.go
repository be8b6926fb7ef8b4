package subscription

import (
	"context"
	"errors"
	"fmt"
	"time"

	"kada-backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrPlanNotFound         = errors.New("pricing plan not found")
	ErrSubscriptionNotFound = errors.New("subscription not found")
)

// Extend adds the plan's duration to sub. Time still left on an unexpired
// subscription is kept; an expired one restarts at now.
func Extend(sub *models.Subscription, plan models.PricingPlan, now time.Time) {
	from := now
	if sub.EndDate.After(now) {
		from = sub.EndDate
	} else {
		sub.StartDate = now
	}
	sub.PlanCode = plan.Code
	sub.Status = models.SubscriptionActive
	sub.EndDate = from.AddDate(0, 0, plan.DurationDays)
}

// ApplyPlan extends the vendor's subscription by one period of planCode.
func ApplyPlan(ctx context.Context, db *gorm.DB, vendorID uint, planCode string, now time.Time) (*models.Subscription, error) {
	var sub models.Subscription
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var plan models.PricingPlan
		if err := tx.Where("code = ?", planCode).First(&plan).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPlanNotFound
			}
			return err
		}

		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("vendor_id = ?", vendorID).
			First(&sub).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			sub = models.Subscription{VendorID: vendorID, StartDate: now, EndDate: now}
		} else if err != nil {
			return err
		}

		Extend(&sub, plan, now)
		if err := tx.Save(&sub).Error; err != nil {
			return fmt.Errorf("save subscription: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

type Change struct {
	PlanCode *string
	Status   *models.SubscriptionStatus
	EndDate  *time.Time
}

// Update applies an admin override and returns the previous and new state.
func Update(ctx context.Context, db *gorm.DB, vendorID uint, ch Change) (before, after *models.Subscription, err error) {
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sub models.Subscription
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("vendor_id = ?", vendorID).
			First(&sub).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSubscriptionNotFound
			}
			return err
		}
		prev := sub

		if ch.PlanCode != nil {
			var count int64
			if err := tx.Model(&models.PricingPlan{}).Where("code = ?", *ch.PlanCode).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 && *ch.PlanCode != models.PlanTrial {
				return ErrPlanNotFound
			}
			sub.PlanCode = *ch.PlanCode
		}
		if ch.Status != nil {
			sub.Status = *ch.Status
		}
		if ch.EndDate != nil {
			sub.EndDate = *ch.EndDate
		}
		if err := tx.Save(&sub).Error; err != nil {
			return fmt.Errorf("save subscription: %w", err)
		}
		before, after = &prev, &sub
		return nil
	})
	return before, after, err
}
