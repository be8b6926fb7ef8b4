package auth

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"kada-backend/internal/config"
	"kada-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func testApp(cfg *config.Config, handlers ...fiber.Handler) *fiber.App {
	app := fiber.New()
	all := append([]fiber.Handler{JWTMiddleware(cfg)}, handlers...)
	all = append(all, func(c *fiber.Ctx) error {
		vendorID, err := VendorID(c)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"vendor_id": vendorID})
	})
	app.Get("/p", all...)
	return app
}

func request(t *testing.T, app *fiber.App, token string) int {
	t.Helper()
	req := httptest.NewRequest("GET", "/p", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	return resp.StatusCode
}

func TestJWTMiddleware(t *testing.T) {
	cfg := &config.Config{JWTSecret: testSecret}
	app := testApp(cfg)

	vendorID := uint(7)
	token, err := GenerateToken(testSecret, &models.User{ID: 1, Role: models.RoleVendor, VendorID: &vendorID})
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	cases := []struct {
		name  string
		token string
		want  int
	}{
		{"valid", token, fiber.StatusOK},
		{"missing", "", fiber.StatusUnauthorized},
		{"garbage", "not-a-jwt", fiber.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := request(t, app, tc.token); got != tc.want {
				t.Fatalf("status = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestJWTMiddleware_RejectsForeignSignature(t *testing.T) {
	cfg := &config.Config{JWTSecret: testSecret}
	token, _ := GenerateToken(strings.Repeat("x", 32), &models.User{ID: 1, Role: models.RoleVendor})
	if got := request(t, testApp(cfg), token); got != fiber.StatusUnauthorized {
		t.Fatalf("status = %d", got)
	}
}

func TestJWTMiddleware_RejectsExpired(t *testing.T) {
	cfg := &config.Config{JWTSecret: testSecret}
	claims := &JWTCustomClaims{
		UserID: 1,
		Role:   models.RoleVendor,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	}
	token, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if got := request(t, testApp(cfg), token); got != fiber.StatusUnauthorized {
		t.Fatalf("status = %d", got)
	}
}

func TestRequireRole(t *testing.T) {
	cfg := &config.Config{JWTSecret: testSecret}
	vendorID := uint(3)
	vendorToken, _ := GenerateToken(testSecret, &models.User{ID: 1, Role: models.RoleVendor, VendorID: &vendorID})
	adminToken, _ := GenerateToken(testSecret, &models.User{ID: 2, Role: models.RoleSuperAdmin})

	app := testApp(cfg, RequireRole(models.RoleVendor))
	if got := request(t, app, vendorToken); got != fiber.StatusOK {
		t.Fatalf("vendor status = %d", got)
	}
	if got := request(t, app, adminToken); got != fiber.StatusForbidden {
		t.Fatalf("admin status = %d", got)
	}
}

func TestVendorID_RequiresVendorClaim(t *testing.T) {
	cfg := &config.Config{JWTSecret: testSecret}
	adminToken, _ := GenerateToken(testSecret, &models.User{ID: 2, Role: models.RoleSuperAdmin})
	if got := request(t, testApp(cfg), adminToken); got != fiber.StatusForbidden {
		t.Fatalf("status = %d", got)
	}
}

func TestParseToken(t *testing.T) {
	vendorID := uint(9)
	good, _ := GenerateToken(testSecret, &models.User{ID: 4, Role: models.RoleVendor, VendorID: &vendorID})
	claims, err := ParseToken(testSecret, good)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if claims.UserID != 4 || claims.VendorID == nil || *claims.VendorID != 9 || claims.Subject != "4" {
		t.Fatalf("claims = %+v", claims)
	}

	orphan, _ := GenerateToken(testSecret, &models.User{ID: 5, Role: models.RoleVendor})
	if _, err := ParseToken(testSecret, orphan); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("vendor token without vendor id: err = %v", err)
	}

	noExp := jwt.NewWithClaims(jwt.SigningMethodHS256, &JWTCustomClaims{UserID: 2, Role: models.RoleSuperAdmin})
	raw, _ := noExp.SignedString([]byte(testSecret))
	if _, err := ParseToken(testSecret, raw); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("token without exp: err = %v", err)
	}

	hs512, _ := jwt.NewWithClaims(jwt.SigningMethodHS512, &JWTCustomClaims{
		UserID: 2, Role: models.RoleSuperAdmin,
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}).SignedString([]byte(testSecret))
	if _, err := ParseToken(testSecret, hs512); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("HS512 token: err = %v", err)
	}
}

func TestRequireSubscription(t *testing.T) {
	cfg := &config.Config{JWTSecret: testSecret}
	vendorID := uint(3)
	token, _ := GenerateToken(testSecret, &models.User{ID: 1, Role: models.RoleVendor, VendorID: &vendorID})
	now := time.Now()

	cases := []struct {
		name string
		sub  *models.Subscription
		want int
	}{
		{"active", &models.Subscription{Status: models.SubscriptionActive, EndDate: now.Add(24 * time.Hour)}, fiber.StatusOK},
		{"suspended", &models.Subscription{Status: models.SubscriptionSuspended, EndDate: now.Add(24 * time.Hour)}, fiber.StatusPaymentRequired},
		{"expired", &models.Subscription{Status: models.SubscriptionActive, EndDate: now.Add(-time.Minute)}, fiber.StatusPaymentRequired},
		{"missing", nil, fiber.StatusPaymentRequired},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			load := func(_ context.Context, id uint) (*models.Subscription, error) {
				if id != vendorID {
					t.Fatalf("loaded vendor %d", id)
				}
				if tc.sub == nil {
					return nil, errors.New("record not found")
				}
				return tc.sub, nil
			}
			if got := request(t, testApp(cfg, RequireSubscription(load)), token); got != tc.want {
				t.Fatalf("status = %d, want %d", got, tc.want)
			}
		})
	}
}
