package backup

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"kada-backend/internal/ledger"
	"kada-backend/internal/mirror"
	"kada-backend/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ExportRows lists every transaction of the vendor with its customer, oldest
// first. Customers that were deleted later are still included.
func ExportRows(ctx context.Context, db *gorm.DB, vendorID uint, loc *time.Location) ([]Row, error) {
	var recs []struct {
		Date          time.Time
		CustomerName  string
		CustomerPhone string
		Type          models.TransactionType
		Amount        decimal.Decimal
		Description   string
	}
	err := db.WithContext(ctx).Table("transactions AS t").
		Select("t.date, c.name AS customer_name, c.phone AS customer_phone, t.type, t.amount, t.description").
		Joins("JOIN customers c ON c.id = t.customer_id").
		Where("t.vendor_id = ?", vendorID).
		Order("t.date ASC, t.id ASC").
		Scan(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("export rows: %w", err)
	}

	rows := make([]Row, 0, len(recs))
	for _, r := range recs {
		row := Row{
			Date:          r.Date.In(loc),
			CustomerName:  r.CustomerName,
			CustomerPhone: r.CustomerPhone,
			Type:          r.Type,
			Amount:        r.Amount,
			Description:   r.Description,
		}
		rows = append(rows, row)
	}
	return rows, nil
}

type ImportResult struct {
	CustomersCreated     int         `json:"customers_created"`
	CustomersMatched     int         `json:"customers_matched"`
	TransactionsImported int         `json:"transactions_imported"`
	Skipped              []LineError `json:"skipped"`
	Failed               []string    `json:"failed"`
}

// Import resolves each temporary customer by phone, creating the ones the
// vendor does not have yet, then replays the transactions oldest first
// through the ledger so balances are re-derived. It is not idempotent:
// importing the same file twice doubles the entries.
func Import(ctx context.Context, db *gorm.DB, sync *mirror.SyncService, vendorID uint, dec *Decoded) (*ImportResult, error) {
	res := &ImportResult{Skipped: dec.Skipped, Failed: []string{}}
	if res.Skipped == nil {
		res.Skipped = []LineError{}
	}

	ids := make(map[string]uint, len(dec.Customers))
	for _, ic := range dec.Customers {
		cust, err := ledger.FindCustomerByPhone(ctx, db, vendorID, ic.Phone)
		if errors.Is(err, ledger.ErrCustomerNotFound) {
			cust, err = ledger.CreateCustomer(ctx, db, vendorID, ledger.NewCustomer{Name: ic.Name, Phone: ic.Phone})
			if err == nil {
				res.CustomersCreated++
				sync.SyncCustomer(ctx, vendorID, *cust)
				sync.SyncCustomerCount(ctx, vendorID, 1)
			}
		} else if err == nil {
			res.CustomersMatched++
		}
		if err != nil {
			res.Failed = append(res.Failed, fmt.Sprintf("customer %s: %v", ic.Phone, err))
			continue
		}
		ids[ic.TempID] = cust.ID
	}

	txs := make([]ImportTransaction, len(dec.Transactions))
	copy(txs, dec.Transactions)
	sort.SliceStable(txs, func(i, j int) bool { return txs[i].Date.Before(txs[j].Date) })

	for _, it := range txs {
		customerID, ok := ids[it.CustomerTempID]
		if !ok {
			continue
		}
		out, err := ledger.RecordTransaction(ctx, db, vendorID, ledger.NewTransaction{
			CustomerID:  customerID,
			Type:        it.Type,
			Amount:      it.Amount,
			Description: it.Description,
			Date:        it.Date,
		})
		if err != nil {
			res.Failed = append(res.Failed, fmt.Sprintf("transaction %s %s: %v", it.Date.Format("2006-01-02"), it.Amount, err))
			continue
		}
		sync.SyncTransaction(ctx, vendorID, customerID, out.Transaction, out.NewBalance)
		res.TransactionsImported++
	}
	return res, nil
}
