package mirror

import (
	"context"
	"errors"
	"io"
	"math/rand"
	"sync"
	"testing"
	"time"

	"kada-backend/internal/models"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

type failingStore struct{ err error }

func (f failingStore) Commit(context.Context, []Write) error { return f.err }
func (f failingStore) Get(context.Context, string) (map[string]any, error) {
	return nil, f.err
}
func (f failingStore) Close() error { return nil }

type panickingStore struct{ failingStore }

func (panickingStore) Commit(context.Context, []Write) error { panic("connection reset") }

type blockingStore struct{ *MemoryStore }

func (b blockingStore) Commit(ctx context.Context, _ []Write) error {
	<-ctx.Done()
	return ctx.Err()
}

func tx(id uint, typ models.TransactionType, amount string) models.Transaction {
	return models.Transaction{
		ID:          id,
		Type:        typ,
		Amount:      decimal.RequireFromString(amount),
		Description: "test",
		Date:        time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		CreatedAt:   time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestSyncOperations_NeverPanicWhenStoreFails(t *testing.T) {
	stores := map[string]Store{
		"error":    failingStore{err: errors.New("unavailable")},
		"panic":    panickingStore{},
		"nilStore": nil,
	}
	for name, store := range stores {
		t.Run(name, func(t *testing.T) {
			svc := NewSyncService(store, quietLogger(), time.Second)
			ctx := context.Background()

			svc.SyncTransaction(ctx, 1, 2, tx(3, models.TransactionCredit, "500"), decimal.NewFromInt(-500))
			svc.SyncSubscription(ctx, 1, models.Subscription{PlanCode: "PRO", Status: models.SubscriptionActive})
			svc.SyncPricingPlans(ctx, []models.PricingPlan{{Code: "PRO"}})
			svc.SyncCustomerCount(ctx, 1, 1)
			svc.SyncCustomer(ctx, 1, models.Customer{ID: 2, Name: "Rahul"})
			svc.SyncCustomerRemoved(ctx, 1, 2)
			svc.SyncVendorProfile(ctx, models.Vendor{ID: 1})
		})
	}
}

func TestSyncTransaction_CancelledRequestDoesNotAbortWrite(t *testing.T) {
	store := NewMemoryStore()
	svc := NewSyncService(store, quietLogger(), time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	svc.SyncTransaction(ctx, 1, 2, tx(3, models.TransactionCredit, "500"), decimal.NewFromInt(-500))

	if _, err := store.Get(context.Background(), TransactionPath(1, 3)); err != nil {
		t.Fatalf("transaction doc missing: %v", err)
	}
}

func TestSyncTransaction_TimesOut(t *testing.T) {
	svc := NewSyncService(blockingStore{NewMemoryStore()}, quietLogger(), 20*time.Millisecond)

	done := make(chan struct{})
	go func() {
		svc.SyncTransaction(context.Background(), 1, 2, tx(3, models.TransactionCredit, "1"), decimal.Zero)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("SyncTransaction did not return after its timeout")
	}
}

func TestSyncTransaction_WritesAllThreeDocuments(t *testing.T) {
	store := NewMemoryStore()
	svc := NewSyncService(store, quietLogger(), time.Second)
	ctx := context.Background()

	svc.SyncTransaction(ctx, 7, 9, tx(100, models.TransactionCredit, "500"), decimal.NewFromInt(-500))

	txDoc, err := store.Get(ctx, TransactionPath(7, 100))
	if err != nil {
		t.Fatalf("transaction doc: %v", err)
	}
	if txDoc["type"] != "CREDIT" || txDoc["amount"] != int64(50000) {
		t.Fatalf("unexpected transaction doc: %v", txDoc)
	}

	custDoc, err := store.Get(ctx, CustomerPath(7, 9))
	if err != nil {
		t.Fatalf("customer doc: %v", err)
	}
	if custDoc["balance"] != int64(-50000) {
		t.Fatalf("balance = %v, want -50000", custDoc["balance"])
	}

	stats, err := ReadVendorStats(ctx, store, 7)
	if err != nil {
		t.Fatalf("ReadVendorStats: %v", err)
	}
	if stats.TodayCredit != 50000 || stats.TotalPending != 50000 || stats.TodayPayment != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestSyncTransaction_PaymentCounters(t *testing.T) {
	store := NewMemoryStore()
	svc := NewSyncService(store, quietLogger(), time.Second)
	ctx := context.Background()

	svc.SyncTransaction(ctx, 1, 1, tx(1, models.TransactionCredit, "1000"), decimal.NewFromInt(-1000))
	svc.SyncTransaction(ctx, 1, 1, tx(2, models.TransactionPayment, "400"), decimal.NewFromInt(-600))
	svc.SyncTransaction(ctx, 1, 1, tx(3, models.TransactionDebit, "100"), decimal.NewFromInt(-500))

	stats, _ := ReadVendorStats(ctx, store, 1)
	want := VendorStats{
		TotalPending:   50000,
		TodayCredit:    100000,
		TodayPayment:   50000,
		TotalCollected: 50000,
	}
	stats.UpdatedAt = time.Time{}
	if stats != want {
		t.Fatalf("stats = %+v, want %+v", stats, want)
	}

	cust, _ := store.Get(ctx, CustomerPath(1, 1))
	if cust["balance"] != int64(-50000) {
		t.Fatalf("balance = %v", cust["balance"])
	}
}

func TestCounters_AreOrderIndependent(t *testing.T) {
	type entry struct {
		typ    models.TransactionType
		amount string
	}
	entries := []entry{
		{models.TransactionCredit, "500"},
		{models.TransactionCredit, "120.50"},
		{models.TransactionPayment, "300"},
		{models.TransactionDebit, "0.75"},
		{models.TransactionCredit, "99.99"},
		{models.TransactionPayment, "42.10"},
	}

	var wantCredit, wantPayment int64
	for _, e := range entries {
		p := ToPaise(decimal.RequireFromString(e.amount))
		if e.typ.IsReceipt() {
			wantPayment += p
		} else {
			wantCredit += p
		}
	}

	rng := rand.New(rand.NewSource(42))
	for round := 0; round < 20; round++ {
		store := NewMemoryStore()
		svc := NewSyncService(store, quietLogger(), time.Second)
		order := rng.Perm(len(entries))

		var wg sync.WaitGroup
		for i, idx := range order {
			wg.Add(1)
			go func(id uint, e entry) {
				defer wg.Done()
				svc.SyncTransaction(context.Background(), 1, id, tx(id, e.typ, e.amount), decimal.Zero)
			}(uint(i+1), entries[idx])
		}
		wg.Wait()

		stats, err := ReadVendorStats(context.Background(), store, 1)
		if err != nil {
			t.Fatalf("ReadVendorStats: %v", err)
		}
		if stats.TodayCredit != wantCredit || stats.TodayPayment != wantPayment || stats.TotalCollected != wantPayment {
			t.Fatalf("round %d order %v: got %+v", round, order, stats)
		}
		if stats.TotalPending != wantCredit-wantPayment {
			t.Fatalf("round %d: pending %d, want %d", round, stats.TotalPending, wantCredit-wantPayment)
		}
	}
}

func TestSyncCustomerCount_TracksCreatesAndDeletes(t *testing.T) {
	store := NewMemoryStore()
	svc := NewSyncService(store, quietLogger(), time.Second)
	ctx := context.Background()

	rng := rand.New(rand.NewSource(7))
	live := 0
	for i := 0; i < 200; i++ {
		if live > 0 && rng.Intn(3) == 0 {
			live--
			svc.SyncCustomerCount(ctx, 5, -1)
		} else {
			live++
			svc.SyncCustomerCount(ctx, 5, 1)
		}
	}

	stats, _ := ReadVendorStats(ctx, store, 5)
	if stats.TotalCustomers != int64(live) {
		t.Fatalf("mirrored count %d, live %d", stats.TotalCustomers, live)
	}
}

func TestSyncCustomerCount_RejectsOtherDeltas(t *testing.T) {
	store := NewMemoryStore()
	svc := NewSyncService(store, quietLogger(), time.Second)

	svc.SyncCustomerCount(context.Background(), 5, 3)
	if store.Len() != 0 {
		t.Fatal("a delta of 3 must not be written")
	}
}

func TestSyncCustomer_DoesNotTouchBalance(t *testing.T) {
	store := NewMemoryStore()
	svc := NewSyncService(store, quietLogger(), time.Second)
	ctx := context.Background()

	svc.SyncTransaction(ctx, 1, 2, tx(3, models.TransactionCredit, "250"), decimal.NewFromInt(-250))
	svc.SyncCustomer(ctx, 1, models.Customer{ID: 2, Name: "Rahul", Phone: "+919876543210", CreditLimit: decimal.NewFromInt(1000)})

	doc, _ := store.Get(ctx, CustomerPath(1, 2))
	if doc["balance"] != int64(-25000) {
		t.Fatalf("balance changed: %v", doc["balance"])
	}
	if doc["name"] != "Rahul" || doc["creditLimit"] != int64(100000) {
		t.Fatalf("identity not merged: %v", doc)
	}
}

func TestSyncSubscription_MergesWithoutClobberingStats(t *testing.T) {
	store := NewMemoryStore()
	svc := NewSyncService(store, quietLogger(), time.Second)
	ctx := context.Background()

	svc.SyncCustomerCount(ctx, 1, 1)
	end := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	svc.SyncSubscription(ctx, 1, models.Subscription{PlanCode: "PRO", Status: models.SubscriptionSuspended, EndDate: end})

	doc, _ := store.Get(ctx, VendorPath(1))
	sub := doc["subscription"].(map[string]any)
	if sub["plan"] != "PRO" || sub["status"] != "SUSPENDED" || !sub["expiry"].(time.Time).Equal(end) {
		t.Fatalf("subscription = %v", sub)
	}
	stats, _ := ReadVendorStats(ctx, store, 1)
	if stats.TotalCustomers != 1 {
		t.Fatalf("stats lost: %+v", stats)
	}
}

func TestSyncPricingPlans_ReplacesWholeList(t *testing.T) {
	store := NewMemoryStore()
	svc := NewSyncService(store, quietLogger(), time.Second)
	ctx := context.Background()

	svc.SyncPricingPlans(ctx, []models.PricingPlan{
		{Code: "BASIC", PriceINR: decimal.NewFromInt(99), Features: "1 user\nCSV export"},
		{Code: "PRO", PriceINR: decimal.NewFromInt(299)},
	})
	svc.SyncPricingPlans(ctx, []models.PricingPlan{{Code: "PRO", PriceINR: decimal.NewFromInt(249)}})

	doc, err := store.Get(ctx, PricingPath)
	if err != nil {
		t.Fatalf("pricing doc: %v", err)
	}
	plans := doc["plans"].([]any)
	if len(plans) != 1 {
		t.Fatalf("plans = %v", plans)
	}
	if p := plans[0].(map[string]any); p["code"] != "PRO" || p["price"] != int64(24900) {
		t.Fatalf("plan = %v", p)
	}
}

func TestSyncCustomerRemoved_DeletesDocument(t *testing.T) {
	store := NewMemoryStore()
	svc := NewSyncService(store, quietLogger(), time.Second)
	ctx := context.Background()

	svc.SyncCustomer(ctx, 1, models.Customer{ID: 2, Name: "Asha"})
	svc.SyncCustomerRemoved(ctx, 1, 2)

	if _, err := store.Get(ctx, CustomerPath(1, 2)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
