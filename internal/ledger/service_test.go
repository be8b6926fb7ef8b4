package ledger

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"kada-backend/internal/database"
	"kada-backend/internal/models"

	"gorm.io/gorm"
)

// openTestDB needs a disposable postgres database in TEST_DATABASE_DSN.
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
	v := models.Vendor{BusinessName: "Sharma Kirana", Phone: fmt.Sprintf("+91%010d", time.Now().UnixNano()%1e10)}
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

func TestRecordTransaction_UpdatesBalanceAndCounters(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	v := newVendor(t, db)

	cust, err := CreateCustomer(ctx, db, v.ID, NewCustomer{Name: "Rahul", Phone: "+919876543210"})
	if err != nil {
		t.Fatalf("CreateCustomer: %v", err)
	}

	if _, err := RecordTransaction(ctx, db, v.ID, NewTransaction{CustomerID: cust.ID, Type: models.TransactionCredit, Amount: d("1000")}); err != nil {
		t.Fatalf("credit: %v", err)
	}
	res, err := RecordTransaction(ctx, db, v.ID, NewTransaction{CustomerID: cust.ID, Type: models.TransactionPayment, Amount: d("400")})
	if err != nil {
		t.Fatalf("payment: %v", err)
	}
	if !res.NewBalance.Equal(d("-600")) {
		t.Fatalf("NewBalance = %s, want -600", res.NewBalance)
	}

	var got models.Vendor
	db.First(&got, v.ID)
	if got.TotalCustomers != 1 || !got.TotalPending.Equal(d("600")) || !got.TotalCollected.Equal(d("400")) {
		t.Fatalf("vendor counters = %+v", got)
	}
}

func TestRecordTransaction_ConcurrentEntriesKeepInvariant(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	v := newVendor(t, db)
	cust, err := CreateCustomer(ctx, db, v.ID, NewCustomer{Name: "Asha", Phone: "+919812345678"})
	if err != nil {
		t.Fatalf("CreateCustomer: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			typ := models.TransactionCredit
			if i%2 == 0 {
				typ = models.TransactionPayment
			}
			if _, err := RecordTransaction(ctx, db, v.ID, NewTransaction{CustomerID: cust.ID, Type: typ, Amount: d("10")}); err != nil {
				t.Errorf("RecordTransaction: %v", err)
			}
		}(i)
	}
	wg.Wait()

	var txs []models.Transaction
	db.Where("customer_id = ?", cust.ID).Find(&txs)
	var stored models.Customer
	db.First(&stored, cust.ID)
	if !stored.Balance.Equal(Replay(txs)) {
		t.Fatalf("balance %s != replay %s", stored.Balance, Replay(txs))
	}
}

func TestCustomerLifecycle(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	v := newVendor(t, db)

	cust, err := CreateCustomer(ctx, db, v.ID, NewCustomer{Name: "Ravi", Phone: "+919900000001"})
	if err != nil {
		t.Fatalf("CreateCustomer: %v", err)
	}
	if _, err := CreateCustomer(ctx, db, v.ID, NewCustomer{Name: "Ravi 2", Phone: "+919900000001"}); !errors.Is(err, ErrDuplicatePhone) {
		t.Fatalf("duplicate err = %v", err)
	}

	if _, err := RecordTransaction(ctx, db, v.ID, NewTransaction{CustomerID: cust.ID, Type: models.TransactionCredit, Amount: d("50")}); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if _, err := DeleteCustomer(ctx, db, v.ID, cust.ID); !errors.Is(err, ErrBalanceNotSettled) {
		t.Fatalf("delete err = %v", err)
	}
	if _, err := RecordTransaction(ctx, db, v.ID, NewTransaction{CustomerID: cust.ID, Type: models.TransactionPayment, Amount: d("50")}); err != nil {
		t.Fatalf("payment: %v", err)
	}
	if _, err := DeleteCustomer(ctx, db, v.ID, cust.ID); err != nil {
		t.Fatalf("DeleteCustomer: %v", err)
	}

	var got models.Vendor
	db.First(&got, v.ID)
	if got.TotalCustomers != 0 {
		t.Fatalf("TotalCustomers = %d", got.TotalCustomers)
	}
}

func TestRecordTransaction_Validation(t *testing.T) {
	ctx := context.Background()
	if _, err := RecordTransaction(ctx, nil, 1, NewTransaction{Type: "REFUND", Amount: d("1")}); !errors.Is(err, ErrInvalidType) {
		t.Fatalf("err = %v", err)
	}
	for _, amount := range []string{"0", "-5", "0.004", "1000000000000"} {
		if _, err := RecordTransaction(ctx, nil, 1, NewTransaction{Type: models.TransactionCredit, Amount: d(amount)}); !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("amount %s: err = %v", amount, err)
		}
	}
}
