package mirror

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
)

func TestMemoryStore_CommitIsAllOrNothing(t *testing.T) {
	store := NewMemoryStore()
	err := store.Commit(context.Background(), []Write{
		{Kind: WriteSet, Path: "vendors/1", Data: map[string]any{"a": 1}},
		{Kind: WriteSet, Path: "vendors/1/customers", Data: map[string]any{"b": 2}},
	})
	if err == nil {
		t.Fatal("expected invalid path error")
	}
	if store.Len() != 0 {
		t.Fatalf("partial batch applied: %d docs", store.Len())
	}
}

func TestMemoryStore_UnknownKindAppliesNothing(t *testing.T) {
	store := NewMemoryStore()
	err := store.Commit(context.Background(), []Write{
		{Kind: WriteSet, Path: "vendors/1", Data: map[string]any{"a": 1}},
		{Kind: WriteKind(9), Path: "vendors/2", Data: map[string]any{"b": 2}},
	})
	if err == nil {
		t.Fatal("expected unknown kind error")
	}
	if store.Len() != 0 {
		t.Fatalf("partial batch applied: %d docs", store.Len())
	}
}

func TestMemoryStore_MergeAndIncrement(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	writes := []Write{
		{Kind: WriteMerge, Path: "vendors/1", Data: map[string]any{"stats": map[string]any{"n": Increment(5)}, "name": "x"}},
		{Kind: WriteMerge, Path: "vendors/1", Data: map[string]any{"stats": map[string]any{"n": Increment(-2), "m": int64(1)}}},
	}
	if err := store.Commit(ctx, writes); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	doc, err := store.Get(ctx, "vendors/1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	stats := doc["stats"].(map[string]any)
	if stats["n"] != int64(3) || stats["m"] != int64(1) || doc["name"] != "x" {
		t.Fatalf("doc = %v", doc)
	}
}

func TestMemoryStore_SetReplaces(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_ = store.Commit(ctx, []Write{{Kind: WriteSet, Path: "config/pricing", Data: map[string]any{"a": 1, "b": 2}}})
	_ = store.Commit(ctx, []Write{{Kind: WriteSet, Path: "config/pricing", Data: map[string]any{"a": 3}}})

	doc, _ := store.Get(ctx, "config/pricing")
	if _, ok := doc["b"]; ok || doc["a"] != 3 {
		t.Fatalf("doc = %v", doc)
	}
}

func TestMemoryStore_GetReturnsCopy(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	_ = store.Commit(ctx, []Write{{Kind: WriteSet, Path: "vendors/1", Data: map[string]any{"stats": map[string]any{"n": int64(1)}}}})

	doc, _ := store.Get(ctx, "vendors/1")
	doc["stats"].(map[string]any)["n"] = int64(99)

	again, _ := store.Get(ctx, "vendors/1")
	if again["stats"].(map[string]any)["n"] != int64(1) {
		t.Fatal("Get leaked internal state")
	}
}

func TestMemoryStore_GetMissing(t *testing.T) {
	if _, err := NewMemoryStore().Get(context.Background(), "vendors/404"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
}

func TestPaths(t *testing.T) {
	cases := map[string]string{
		VendorPath(3):         "vendors/3",
		CustomerPath(3, 4):    "vendors/3/customers/4",
		TransactionPath(3, 5): "vendors/3/transactions/5",
	}
	for got, want := range cases {
		if got != want {
			t.Fatalf("path %q, want %q", got, want)
		}
		if !validDocPath(got) {
			t.Fatalf("%q should be a valid document path", got)
		}
	}
	for _, bad := range []string{"", "vendors", "vendors//customers/1", "vendors/1/customers"} {
		if validDocPath(bad) {
			t.Fatalf("%q should be invalid", bad)
		}
	}
}

func TestToPaise(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"500", 50000},
		{"0.01", 1},
		{"10.005", 1001},
		{"-12.345", -1235},
		{"99.99", 9999},
	}
	for _, tc := range cases {
		if got := ToPaise(decimal.RequireFromString(tc.in)); got != tc.want {
			t.Fatalf("ToPaise(%s) = %d, want %d", tc.in, got, tc.want)
		}
	}
	if got := FromPaise(12345).String(); got != "123.45" {
		t.Fatalf("FromPaise = %s", got)
	}
}

func TestResetDailyCounters(t *testing.T) {
	store := NewMemoryStore()
	svc := NewSyncService(store, quietLogger(), 0)
	ctx := context.Background()

	ids := make([]uint, 0, 950)
	for i := 1; i <= 950; i++ {
		ids = append(ids, uint(i))
	}
	svc.SyncTransaction(ctx, 1, 1, tx(1, "CREDIT", "100"), decimal.NewFromInt(-100))
	svc.SyncTransaction(ctx, 1, 1, tx(2, "PAYMENT", "40"), decimal.NewFromInt(-60))

	if err := ResetDailyCounters(ctx, store, ids, "2025-01-02"); err != nil {
		t.Fatalf("ResetDailyCounters: %v", err)
	}

	stats, _ := ReadVendorStats(ctx, store, 1)
	if stats.TodayCredit != 0 || stats.TodayPayment != 0 {
		t.Fatalf("today counters not reset: %+v", stats)
	}
	if stats.TotalPending != 6000 || stats.TotalCollected != 4000 {
		t.Fatalf("lifetime counters changed: %+v", stats)
	}
	if stats.CountersDate != "2025-01-02" {
		t.Fatalf("CountersDate = %q", stats.CountersDate)
	}
	if last, err := LastRolloverDate(ctx, store); err != nil || last != "2025-01-02" {
		t.Fatalf("LastRolloverDate = %q, %v", last, err)
	}

	last, _ := ReadVendorStats(ctx, store, 950)
	if last.CountersDate != "2025-01-02" {
		t.Fatal("last batch not written")
	}
}

func TestResetDailyCounters_ReportsBatchFailure(t *testing.T) {
	err := ResetDailyCounters(context.Background(), failingStore{err: fmt.Errorf("down")}, []uint{1}, "2025-01-02")
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestCounterDeltas(t *testing.T) {
	credit := CounterDeltas("CREDIT", 100)
	if credit[FieldTodayCredit] != Increment(100) || credit[FieldTotalPending] != Increment(100) {
		t.Fatalf("credit deltas = %v", credit)
	}
	if _, ok := credit[FieldTotalCollected]; ok {
		t.Fatal("credit must not touch totalCollected")
	}
	payment := CounterDeltas("PAYMENT", 100)
	if payment[FieldTodayPayment] != Increment(100) || payment[FieldTotalCollected] != Increment(100) || payment[FieldTotalPending] != Increment(-100) {
		t.Fatalf("payment deltas = %v", payment)
	}
}
