package subscription

import (
	"testing"
	"time"

	"kada-backend/internal/models"
)

func TestExtend(t *testing.T) {
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	plan := models.PricingPlan{Code: "MONTHLY", DurationDays: 30}

	cases := []struct {
		name      string
		sub       models.Subscription
		wantEnd   time.Time
		wantStart time.Time
	}{
		{
			name:      "unexpired keeps remaining days",
			sub:       models.Subscription{PlanCode: models.PlanTrial, Status: models.SubscriptionActive, StartDate: now.AddDate(0, 0, -10), EndDate: now.AddDate(0, 0, 4)},
			wantEnd:   now.AddDate(0, 0, 34),
			wantStart: now.AddDate(0, 0, -10),
		},
		{
			name:      "expired restarts now",
			sub:       models.Subscription{PlanCode: models.PlanTrial, Status: models.SubscriptionActive, StartDate: now.AddDate(0, 0, -40), EndDate: now.AddDate(0, 0, -26)},
			wantEnd:   now.AddDate(0, 0, 30),
			wantStart: now,
		},
		{
			name:      "suspended is reactivated",
			sub:       models.Subscription{Status: models.SubscriptionSuspended, EndDate: now.AddDate(0, 0, 1)},
			wantEnd:   now.AddDate(0, 0, 31),
			wantStart: time.Time{},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sub := tc.sub
			Extend(&sub, plan, now)
			if !sub.EndDate.Equal(tc.wantEnd) {
				t.Fatalf("EndDate = %s, want %s", sub.EndDate, tc.wantEnd)
			}
			if !sub.StartDate.Equal(tc.wantStart) {
				t.Fatalf("StartDate = %s, want %s", sub.StartDate, tc.wantStart)
			}
			if sub.Status != models.SubscriptionActive || sub.PlanCode != "MONTHLY" {
				t.Fatalf("sub = %+v", sub)
			}
			if !sub.IsUsable(now) {
				t.Fatal("extended subscription not usable")
			}
		})
	}
}
