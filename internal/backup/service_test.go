package backup

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"testing"
	"time"

	"kada-backend/internal/database"
	"kada-backend/internal/mirror"
	"kada-backend/internal/models"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("set TEST_DATABASE_DSN to run database tests")
	}
	db, err := database.Open(dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newVendor(t *testing.T, db *gorm.DB) models.Vendor {
	t.Helper()
	v := models.Vendor{BusinessName: "Backup Stores", Phone: fmt.Sprintf("+91%010d", time.Now().UnixNano()%1e10)}
	if err := db.Create(&v).Error; err != nil {
		t.Fatalf("create vendor: %v", err)
	}
	t.Cleanup(func() {
		db.Unscoped().Where("vendor_id = ?", v.ID).Delete(&models.Transaction{})
		db.Unscoped().Where("vendor_id = ?", v.ID).Delete(&models.Customer{})
		db.Delete(&v)
	})
	return v
}

func TestImportThenExport_RoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	v := newVendor(t, db)

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	store := mirror.NewMemoryStore()
	sync := mirror.NewSyncService(store, logger, 0)

	in := "Date,CustomerName,CustomerPhone,Type,Amount,Description\n" +
		"2025-01-03,Rahul,9876543210,PAYMENT,200,cash\n" +
		"2025-01-01,Rahul,9876543210,CREDIT,500,rice\n"
	dec, err := DecodeCSV(bytes.NewBufferString(in), ist)
	if err != nil {
		t.Fatalf("DecodeCSV: %v", err)
	}

	res, err := Import(ctx, db, sync, v.ID, dec)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if res.CustomersCreated != 1 || res.TransactionsImported != 2 || len(res.Failed) != 0 {
		t.Fatalf("result = %+v", res)
	}

	var cust models.Customer
	if err := db.Where("vendor_id = ?", v.ID).First(&cust).Error; err != nil {
		t.Fatalf("load customer: %v", err)
	}
	if !cust.Balance.Equal(decimal.NewFromInt(-300)) {
		t.Fatalf("balance = %s, want -300", cust.Balance)
	}

	doc, err := store.Get(ctx, mirror.CustomerPath(v.ID, cust.ID))
	if err != nil || doc["balance"] != int64(-30000) {
		t.Fatalf("mirrored customer = %v, %v", doc, err)
	}

	rows, err := ExportRows(ctx, db, v.ID, ist)
	if err != nil {
		t.Fatalf("ExportRows: %v", err)
	}
	if len(rows) != 2 || rows[0].Type != models.TransactionCredit || rows[0].Date.Format("2006-01-02") != "2025-01-01" {
		t.Fatalf("rows = %+v", rows)
	}

	again, _ := Import(ctx, db, sync, v.ID, dec)
	if again.CustomersMatched != 1 || again.CustomersCreated != 0 {
		t.Fatalf("second import = %+v", again)
	}
}
