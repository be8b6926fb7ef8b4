package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"kada-backend/internal/admin"
	"kada-backend/internal/audit"
	"kada-backend/internal/auth"
	"kada-backend/internal/backup"
	"kada-backend/internal/cache"
	"kada-backend/internal/config"
	"kada-backend/internal/customer"
	"kada-backend/internal/dashboard"
	"kada-backend/internal/database"
	"kada-backend/internal/httputil"
	"kada-backend/internal/mirror"
	"kada-backend/internal/models"
	"kada-backend/internal/notification"
	"kada-backend/internal/payment"
	"kada-backend/internal/report"
	"kada-backend/internal/rollover"
	"kada-backend/internal/subscription"
	"kada-backend/internal/transaction"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

func main() {
	cfg := config.Load()
	logger := config.GetLogger()
	loc := cfg.Location()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database.Init(cfg)
	cache.Connect(ctx, cfg.RedisAddress)
	defer cache.Close()

	var store mirror.Store
	if cfg.FirestoreProjectID != "" {
		fs, err := mirror.NewFirestoreStore(ctx, cfg.FirestoreProjectID, cfg.FirestoreCredentialsJSON)
		if err != nil {
			logger.Fatalf("firestore init failed: %v", err)
		}
		store = fs
	} else {
		logger.Warn("mirror running in memory, mobile clients will not see live data")
		store = mirror.NewMemoryStore()
	}
	defer store.Close()
	sync := mirror.NewSyncService(store, logger, cfg.MirrorWriteTimeout)

	gateway := payment.NewRazorpayClient(cfg.RazorpayKeyID, cfg.RazorpayKeySecret, cfg.RazorpayBaseURL)

	var publisher notification.Publisher
	if cfg.PubSubProjectID != "" {
		pub, err := notification.NewPubSubPublisher(ctx, cfg.PubSubProjectID, cfg.PubSubCredentialsJSON, cfg.PushTopic)
		if err != nil {
			config.LogError(logger, "main", "main", "pubsub init failed, push disabled", cfg.PushTopic, err)
		} else {
			defer pub.Close()
			publisher = pub
		}
	}
	notifier := notification.NewService(publisher, logger)

	var backups backup.ObjectStore
	if cfg.GCSBucket != "" {
		gcs, err := backup.NewGCSStore(ctx, cfg.GCSBucket, cfg.GCSCredentialsJSON)
		if err != nil {
			config.LogError(logger, "main", "main", "gcs init failed, cloud backup disabled", cfg.GCSBucket, err)
		} else {
			defer gcs.Close()
			backups = gcs
		}
	}

	job := rollover.NewJob(rollover.DBVendors{DB: database.DB}, store, rollover.NewRedisLocker(cache.GetLocker()), logger)
	if cfg.RolloverEnabled {
		job.Start(ctx, loc)
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 12 * 1024 * 1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var verr *httputil.ValidationError
			if errors.As(err, &verr) {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error":  "validation failed",
					"fields": verr.Fields,
				})
			}
			var e *fiber.Error
			if errors.As(err, &e) {
				return c.Status(e.Code).JSON(fiber.Map{
					"error": e.Message,
				})
			}
			config.LogError(logger, "http", c.Method(), "unexpected error", c.Path(), err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "unexpected server error",
			})
		},
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(cfg.CORSOriginList(), ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
	}))

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")

	// Public
	authLimit := limiter.New(limiter.Config{
		Max:        10,
		Expiration: time.Minute,
	})
	api.Post("/auth/register", authLimit, auth.RegisterVendorHandler(cfg, sync))
	api.Post("/auth/register-super-admin", authLimit, auth.RegisterSuperAdminHandler(cfg))
	api.Post("/auth/login", authLimit, auth.LoginHandler(cfg))
	api.Get("/pricing-plans", subscription.ListActivePlansHandler())
	api.Post("/payments/webhook", payment.WebhookHandler(cfg, sync))

	protected := api.Group("")
	protected.Use(auth.JWTMiddleware(cfg))
	protected.Get("/auth/me", auth.MeHandler())

	// Super admin. Must be registered before the empty-prefix vendor group.
	adminRoutes := protected.Group("/admin")
	adminRoutes.Use(auth.RequireRole(models.RoleSuperAdmin))

	adminRoutes.Get("/vendors", admin.ListVendorsHandler())
	adminRoutes.Get("/vendors/:id", admin.GetVendorHandler(sync))
	adminRoutes.Put("/vendors/:id/subscription", admin.UpdateSubscriptionHandler(sync))
	adminRoutes.Post("/vendors/:id/suspend", admin.SuspendVendorHandler(sync))
	adminRoutes.Post("/vendors/:id/activate", admin.ActivateVendorHandler(sync))
	adminRoutes.Post("/vendors/:id/reset-password", admin.ResetVendorPasswordHandler())

	adminRoutes.Post("/pricing-plans", admin.CreatePlanHandler(sync))
	adminRoutes.Get("/pricing-plans", admin.ListPlansHandler())
	adminRoutes.Put("/pricing-plans/:id", admin.UpdatePlanHandler(sync))
	adminRoutes.Delete("/pricing-plans/:id", admin.DeletePlanHandler(sync))

	adminRoutes.Get("/stats", admin.StatsHandler(cfg))
	adminRoutes.Post("/notifications", notification.BroadcastHandler(notifier))
	adminRoutes.Get("/audit-logs", audit.ListAuditLogsHandler())
	adminRoutes.Post("/rollover", rollover.TriggerHandler(cfg, job))

	// Vendor
	vendor := protected.Group("")
	vendor.Use(auth.RequireRole(models.RoleVendor))

	vendor.Put("/vendor/profile", auth.UpdateProfileHandler(sync))
	vendor.Get("/subscription", subscription.GetMySubscriptionHandler())

	vendor.Post("/customers", customer.CreateCustomerHandler(sync))
	vendor.Get("/customers", customer.ListCustomersHandler())
	vendor.Get("/customers/:id", customer.GetCustomerHandler())
	vendor.Put("/customers/:id", customer.UpdateCustomerHandler(sync))
	vendor.Delete("/customers/:id", customer.DeleteCustomerHandler(sync))
	vendor.Get("/customers/:id/transactions", customer.ListCustomerTransactionsHandler(cfg))

	vendor.Post("/transactions", auth.RequireActiveSubscription(), transaction.CreateTransactionHandler(cfg, sync))
	vendor.Get("/transactions", transaction.ListTransactionsHandler(cfg))

	vendor.Get("/dashboard/summary", dashboard.SummaryHandler(cfg))
	vendor.Get("/dashboard/live", dashboard.LiveHandler(cfg, sync))
	vendor.Get("/dashboard/analytics", dashboard.AnalyticsHandler(cfg))

	vendor.Get("/reports/transactions.csv", report.TransactionsCSVHandler(cfg))
	vendor.Get("/reports/transactions.xlsx", report.TransactionsXLSXHandler(cfg))

	vendor.Get("/backup/export", backup.ExportHandler(cfg))
	vendor.Post("/backup/import", auth.RequireActiveSubscription(), backup.ImportHandler(cfg, sync))
	vendor.Post("/backup/cloud", backup.CloudBackupHandler(cfg, backups))
	vendor.Post("/backup/cloud/restore", auth.RequireActiveSubscription(), backup.CloudRestoreHandler(cfg, backups, sync))

	vendor.Post("/payments/orders", payment.CreateOrderHandler(cfg, gateway))
	vendor.Post("/payments/verify", payment.VerifyPaymentHandler(cfg, sync))

	vendor.Post("/devices", notification.RegisterDeviceHandler())
	vendor.Delete("/devices/:token", notification.DeleteDeviceHandler())

	go func() {
		<-ctx.Done()
		logger.Info("shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			config.LogError(logger, "main", "main", "shutdown failed", nil, err)
		}
	}()

	logger.WithField("port", cfg.HTTPPort).Info("server listening")
	if err := app.Listen(":" + cfg.HTTPPort); err != nil {
		logger.Fatal(err)
	}
}
