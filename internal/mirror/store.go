// Package mirror keeps a denormalised copy of ledger data in a document
// database for low latency dashboard reads.
//
// Layout:
//
//	vendors/{vendorId}                        profile, stats, subscription
//	vendors/{vendorId}/customers/{customerId} identity fields and balance
//	vendors/{vendorId}/transactions/{txId}    transaction records
//	config/pricing                            active pricing plans
//
// Money fields are stored as integer paise so counter increments stay exact.
package mirror

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrNotFound = errors.New("mirror: document not found")

type WriteKind int

const (
	// WriteSet replaces the whole document.
	WriteSet WriteKind = iota
	// WriteMerge merges nested maps into the existing document.
	WriteMerge
	WriteDelete
)

func (k WriteKind) valid() bool {
	return k == WriteSet || k == WriteMerge || k == WriteDelete
}

// Write is one document operation inside an atomic batch.
type Write struct {
	Kind WriteKind
	Path string
	Data map[string]any
}

// Increment marks a field that is atomically incremented by the store
// instead of overwritten.
type Increment int64

// Store is the slice of a document database the sync path relies on.
type Store interface {
	// Commit applies all writes atomically.
	Commit(ctx context.Context, writes []Write) error
	// Get returns ErrNotFound when the document does not exist.
	Get(ctx context.Context, path string) (map[string]any, error)
	Close() error
}

func VendorPath(vendorID uint) string {
	return fmt.Sprintf("vendors/%d", vendorID)
}

func CustomerPath(vendorID, customerID uint) string {
	return fmt.Sprintf("vendors/%d/customers/%d", vendorID, customerID)
}

func TransactionPath(vendorID, txID uint) string {
	return fmt.Sprintf("vendors/%d/transactions/%d", vendorID, txID)
}

const PricingPath = "config/pricing"

// ToPaise converts rupees to integer paise, rounding half away from zero.
func ToPaise(d decimal.Decimal) int64 {
	return d.Shift(2).Round(0).IntPart()
}

// FromPaise converts integer paise back to rupees.
func FromPaise(p int64) decimal.Decimal {
	return decimal.New(p, -2)
}

// validDocPath accepts collection/doc pairs only.
func validDocPath(path string) bool {
	parts := strings.Split(path, "/")
	if len(parts) == 0 || len(parts)%2 != 0 {
		return false
	}
	for _, p := range parts {
		if p == "" {
			return false
		}
	}
	return true
}

func validateWrites(writes []Write) error {
	for i, w := range writes {
		if !w.Kind.valid() {
			return fmt.Errorf("mirror: write %d: unknown write kind %d", i, w.Kind)
		}
		if !validDocPath(w.Path) {
			return fmt.Errorf("mirror: write %d: invalid document path %q", i, w.Path)
		}
		if w.Kind != WriteDelete && w.Data == nil {
			return fmt.Errorf("mirror: write %d: no data for %q", i, w.Path)
		}
	}
	return nil
}
