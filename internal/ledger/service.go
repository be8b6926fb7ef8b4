package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"kada-backend/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrInvalidAmount     = errors.New("amount must be greater than zero")
	ErrInvalidType       = errors.New("type must be CREDIT, PAYMENT or DEBIT")
	ErrCustomerNotFound  = errors.New("customer not found")
	ErrDuplicatePhone    = errors.New("a customer with this phone already exists")
	ErrBalanceNotSettled = errors.New("customer balance is not settled")
	ErrNameRequired      = errors.New("customer name is required")
)

type NewTransaction struct {
	CustomerID  uint
	Type        models.TransactionType
	Amount      decimal.Decimal
	Description string
	Date        time.Time
}

type Result struct {
	Transaction models.Transaction
	Customer    models.Customer
	NewBalance  decimal.Decimal
	OverLimit   bool
}

// RecordTransaction inserts a transaction and applies its balance effect in a
// single database transaction. The customer row is locked so concurrent
// entries for the same customer serialise.
func RecordTransaction(ctx context.Context, db *gorm.DB, vendorID uint, in NewTransaction) (*Result, error) {
	if !in.Type.Valid() {
		return nil, ErrInvalidType
	}
	amount, err := NormalizeAmount(in.Amount)
	if err != nil {
		return nil, err
	}
	if in.Date.IsZero() {
		in.Date = time.Now()
	}

	var res Result
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cust models.Customer
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND vendor_id = ?", in.CustomerID, vendorID).
			First(&cust).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCustomerNotFound
			}
			return err
		}

		entry := models.Transaction{
			VendorID:    vendorID,
			CustomerID:  cust.ID,
			Type:        in.Type,
			Amount:      amount,
			Description: strings.TrimSpace(in.Description),
			Date:        in.Date,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return fmt.Errorf("insert transaction: %w", err)
		}

		newBalance := Apply(cust.Balance, in.Type, amount)
		if err := tx.Model(&models.Customer{}).Where("id = ?", cust.ID).Updates(map[string]any{
			"balance":             newBalance,
			"last_transaction_at": in.Date,
		}).Error; err != nil {
			return fmt.Errorf("update balance: %w", err)
		}

		counters := map[string]any{"total_pending": gorm.Expr("total_pending + ?", amount)}
		if in.Type.IsReceipt() {
			counters = map[string]any{
				"total_pending":   gorm.Expr("total_pending - ?", amount),
				"total_collected": gorm.Expr("total_collected + ?", amount),
			}
		}
		if err := tx.Model(&models.Vendor{}).Where("id = ?", vendorID).Updates(counters).Error; err != nil {
			return fmt.Errorf("update vendor counters: %w", err)
		}

		cust.Balance = newBalance
		cust.LastTransactionAt = &in.Date
		res = Result{
			Transaction: entry,
			Customer:    cust,
			NewBalance:  newBalance,
			OverLimit:   OverLimit(newBalance, cust.CreditLimit),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

type NewCustomer struct {
	Name        string
	Phone       string // E.164
	CreditLimit decimal.Decimal
}

func CreateCustomer(ctx context.Context, db *gorm.DB, vendorID uint, in NewCustomer) (*models.Customer, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, ErrNameRequired
	}

	cust := models.Customer{
		VendorID:    vendorID,
		Name:        name,
		Phone:       in.Phone,
		CreditLimit: in.CreditLimit.Round(2),
		Balance:     decimal.Zero,
	}
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Customer{}).
			Where("vendor_id = ? AND phone = ?", vendorID, in.Phone).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrDuplicatePhone
		}
		if err := tx.Create(&cust).Error; err != nil {
			return fmt.Errorf("insert customer: %w", err)
		}
		return tx.Model(&models.Vendor{}).Where("id = ?", vendorID).
			Update("total_customers", gorm.Expr("total_customers + 1")).Error
	})
	if err != nil {
		return nil, err
	}
	return &cust, nil
}

type CustomerUpdate struct {
	Name        *string
	Phone       *string // E.164
	CreditLimit *decimal.Decimal
}

func UpdateCustomer(ctx context.Context, db *gorm.DB, vendorID, customerID uint, in CustomerUpdate) (before, after *models.Customer, err error) {
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cust models.Customer
		if err := tx.Where("id = ? AND vendor_id = ?", customerID, vendorID).First(&cust).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCustomerNotFound
			}
			return err
		}
		prev := cust

		updates := map[string]any{}
		if in.Name != nil {
			name := strings.TrimSpace(*in.Name)
			if name == "" {
				return ErrNameRequired
			}
			updates["name"] = name
			cust.Name = name
		}
		if in.Phone != nil && *in.Phone != cust.Phone {
			var count int64
			if err := tx.Model(&models.Customer{}).
				Where("vendor_id = ? AND phone = ? AND id <> ?", vendorID, *in.Phone, customerID).
				Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				return ErrDuplicatePhone
			}
			updates["phone"] = *in.Phone
			cust.Phone = *in.Phone
		}
		if in.CreditLimit != nil {
			updates["credit_limit"] = in.CreditLimit.Round(2)
			cust.CreditLimit = in.CreditLimit.Round(2)
		}
		if len(updates) > 0 {
			if err := tx.Model(&models.Customer{}).Where("id = ?", customerID).Updates(updates).Error; err != nil {
				return fmt.Errorf("update customer: %w", err)
			}
		}
		before, after = &prev, &cust
		return nil
	})
	return before, after, err
}

// DeleteCustomer soft-deletes a customer whose balance is zero. Transactions
// are kept.
func DeleteCustomer(ctx context.Context, db *gorm.DB, vendorID, customerID uint) (*models.Customer, error) {
	var cust models.Customer
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND vendor_id = ?", customerID, vendorID).
			First(&cust).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCustomerNotFound
			}
			return err
		}
		if !cust.Balance.IsZero() {
			return ErrBalanceNotSettled
		}
		if err := tx.Delete(&cust).Error; err != nil {
			return fmt.Errorf("delete customer: %w", err)
		}
		return tx.Model(&models.Vendor{}).Where("id = ?", vendorID).
			Update("total_customers", gorm.Expr("total_customers - 1")).Error
	})
	if err != nil {
		return nil, err
	}
	return &cust, nil
}

func FindCustomerByPhone(ctx context.Context, db *gorm.DB, vendorID uint, phone string) (*models.Customer, error) {
	var cust models.Customer
	err := db.WithContext(ctx).Where("vendor_id = ? AND phone = ?", vendorID, phone).First(&cust).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCustomerNotFound
	}
	if err != nil {
		return nil, err
	}
	return &cust, nil
}
