package database

import (
	"kada-backend/internal/config"
	"kada-backend/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

func Init(cfg *config.Config) {
	log := config.GetLogger()

	var err error
	DB, err = Open(cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}

	if err := Migrate(DB); err != nil {
		log.Fatalf("AutoMigrate failed: %v", err)
	}

	log.Info("database connected, migrations applied")
}

func Open(dsn string) (*gorm.DB, error) {
	return gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Vendor{},
		&models.User{},
		&models.Subscription{},
		&models.PricingPlan{},
		&models.Customer{},
		&models.Transaction{},
		&models.AuditLog{},
		&models.DeviceToken{},
		&models.PaymentOrder{},
	); err != nil {
		return err
	}

	// amounts are strictly positive; enforce it below the application too
	return db.Exec(`
		DO $$
		BEGIN
			IF NOT EXISTS (
				SELECT 1 FROM information_schema.table_constraints
				WHERE table_name = 'transactions' AND constraint_name = 'chk_transactions_amount_positive'
			) THEN
				ALTER TABLE transactions ADD CONSTRAINT chk_transactions_amount_positive CHECK (amount > 0);
			END IF;
		END $$;
	`).Error
}
