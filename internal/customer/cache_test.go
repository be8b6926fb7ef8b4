package customer

import (
	"context"
	"fmt"
	"io"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"kada-backend/internal/auth"
	"kada-backend/internal/cache"
	"kada-backend/internal/database"
	"kada-backend/internal/mirror"
	"kada-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// Needs TEST_DATABASE_DSN and TEST_REDIS_ADDRESS.
func TestCustomerWrites_InvalidateDashboardSummary(t *testing.T) {
	dsn, addr := os.Getenv("TEST_DATABASE_DSN"), os.Getenv("TEST_REDIS_ADDRESS")
	if dsn == "" || addr == "" {
		t.Skip("set TEST_DATABASE_DSN and TEST_REDIS_ADDRESS to run this test")
	}
	db, err := database.Open(dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	database.DB = db

	ctx := context.Background()
	cache.Connect(ctx, addr)
	if cache.GetClient() == nil {
		t.Fatal("redis not connected")
	}
	t.Cleanup(func() { cache.Close() })

	v := models.Vendor{BusinessName: "Cache Stores", Phone: fmt.Sprintf("+91%010d", time.Now().UnixNano()%1e10)}
	if err := db.Create(&v).Error; err != nil {
		t.Fatalf("create vendor: %v", err)
	}
	t.Cleanup(func() {
		db.Where("vendor_id = ?", v.ID).Delete(&models.AuditLog{})
		db.Unscoped().Where("vendor_id = ?", v.ID).Delete(&models.Customer{})
		db.Delete(&v)
		cache.Delete(ctx, cache.DashboardSummaryKey(v.ID))
	})

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	sync := mirror.NewSyncService(mirror.NewMemoryStore(), logger, time.Second)

	vendorID := v.ID
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals(auth.CtxUserIDKey, uint(0))
		c.Locals(auth.CtxUserRoleKey, models.RoleVendor)
		c.Locals(auth.CtxVendorIDKey, &vendorID)
		return c.Next()
	})
	app.Post("/customers", CreateCustomerHandler(sync))
	app.Delete("/customers/:id", DeleteCustomerHandler(sync))

	cached := func() bool {
		var dest map[string]any
		found, err := cache.GetObject(ctx, cache.DashboardSummaryKey(v.ID), &dest)
		if err != nil {
			t.Fatalf("GetObject: %v", err)
		}
		return found
	}
	prime := func() {
		if err := cache.SetObject(ctx, cache.DashboardSummaryKey(v.ID), map[string]any{"total_customers": 0}, time.Minute); err != nil {
			t.Fatalf("SetObject: %v", err)
		}
	}

	prime()
	req := httptest.NewRequest("POST", "/customers", strings.NewReader(`{"name":"Meena","phone":"9811122233"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("create status = %d", resp.StatusCode)
	}
	if cached() {
		t.Fatal("summary still cached after customer create")
	}

	var cust models.Customer
	if err := db.Where("vendor_id = ?", v.ID).First(&cust).Error; err != nil {
		t.Fatalf("load customer: %v", err)
	}

	prime()
	resp, err = app.Test(httptest.NewRequest("DELETE", fmt.Sprintf("/customers/%d", cust.ID), nil))
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if resp.StatusCode != fiber.StatusNoContent {
		t.Fatalf("delete status = %d", resp.StatusCode)
	}
	if cached() {
		t.Fatal("summary still cached after customer delete")
	}
}
