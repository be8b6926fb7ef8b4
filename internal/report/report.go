package report

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"kada-backend/internal/ledger"
	"kada-backend/internal/models"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

const (
	sheetTransactions = "Transactions"
	sheetCustomers    = "Customers"
)

var (
	transactionHeader = []string{"Date", "Customer", "Phone", "Type", "Amount", "Description"}
	customerHeader    = []string{"Customer", "Phone", "Balance", "Outstanding", "Credit Limit", "Last Transaction"}
)

type Line struct {
	Date         time.Time
	CustomerName string
	Phone        string
	Type         models.TransactionType
	Amount       decimal.Decimal
	Description  string
}

type CustomerLine struct {
	Name              string
	Phone             string
	Balance           decimal.Decimal
	CreditLimit       decimal.Decimal
	LastTransactionAt *time.Time
}

type Filter struct {
	From       *time.Time
	To         *time.Time // exclusive
	CustomerID uint
	Type       models.TransactionType
}

func LoadLines(ctx context.Context, db *gorm.DB, vendorID uint, f Filter, loc *time.Location) ([]Line, error) {
	q := db.WithContext(ctx).Table("transactions AS t").
		Select("t.date, c.name AS customer_name, c.phone, t.type, t.amount, t.description").
		Joins("JOIN customers c ON c.id = t.customer_id").
		Where("t.vendor_id = ?", vendorID)
	if f.From != nil {
		q = q.Where("t.date >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("t.date < ?", *f.To)
	}
	if f.CustomerID != 0 {
		q = q.Where("t.customer_id = ?", f.CustomerID)
	}
	if f.Type != "" {
		q = q.Where("t.type = ?", f.Type)
	}

	var lines []Line
	if err := q.Order("t.date ASC, t.id ASC").Scan(&lines).Error; err != nil {
		return nil, fmt.Errorf("load report lines: %w", err)
	}
	for i := range lines {
		lines[i].Date = lines[i].Date.In(loc)
	}
	return lines, nil
}

func LoadCustomers(ctx context.Context, db *gorm.DB, vendorID uint) ([]CustomerLine, error) {
	var out []CustomerLine
	err := db.WithContext(ctx).Model(&models.Customer{}).
		Select("name, phone, balance, credit_limit, last_transaction_at").
		Where("vendor_id = ?", vendorID).
		Order("balance ASC, name ASC").
		Scan(&out).Error
	if err != nil {
		return nil, fmt.Errorf("load report customers: %w", err)
	}
	return out, nil
}

// Totals sums credit and receipts of lines.
func Totals(lines []Line) (credit, payment decimal.Decimal) {
	for _, l := range lines {
		if l.Type.IsReceipt() {
			payment = payment.Add(l.Amount)
		} else {
			credit = credit.Add(l.Amount)
		}
	}
	return credit, payment
}

func WriteCSV(w io.Writer, lines []Line) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(transactionHeader); err != nil {
		return err
	}
	for _, l := range lines {
		if err := cw.Write([]string{
			l.Date.Format("2006-01-02 15:04"),
			l.CustomerName,
			l.Phone,
			string(l.Type),
			l.Amount.StringFixed(2),
			l.Description,
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX writes a workbook with a transactions sheet ending in totals and
// a customer balances sheet.
func WriteXLSX(w io.Writer, lines []Line, customers []CustomerLine) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetTransactions); err != nil {
		return err
	}
	if _, err := f.NewSheet(sheetCustomers); err != nil {
		return err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	if err := writeHeader(f, sheetTransactions, transactionHeader, bold); err != nil {
		return err
	}
	row := 2
	for _, l := range lines {
		values := []any{
			l.Date.Format("2006-01-02 15:04"),
			l.CustomerName,
			l.Phone,
			string(l.Type),
			l.Amount.InexactFloat64(),
			l.Description,
		}
		if err := f.SetSheetRow(sheetTransactions, cell(1, row), &values); err != nil {
			return err
		}
		row++
	}

	credit, payment := Totals(lines)
	row++
	totals := [][]any{
		{"Total credit", credit.InexactFloat64()},
		{"Total received", payment.InexactFloat64()},
		{"Net", payment.Sub(credit).InexactFloat64()},
	}
	for _, t := range totals {
		values := []any{t[0], "", "", "", t[1]}
		if err := f.SetSheetRow(sheetTransactions, cell(1, row), &values); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheetTransactions, cell(1, row), cell(5, row), bold); err != nil {
			return err
		}
		row++
	}

	if err := writeHeader(f, sheetCustomers, customerHeader, bold); err != nil {
		return err
	}
	for i, c := range customers {
		last := ""
		if c.LastTransactionAt != nil {
			last = c.LastTransactionAt.Format("2006-01-02")
		}
		values := []any{
			c.Name,
			c.Phone,
			c.Balance.InexactFloat64(),
			ledger.Outstanding(c.Balance).InexactFloat64(),
			c.CreditLimit.InexactFloat64(),
			last,
		}
		if err := f.SetSheetRow(sheetCustomers, cell(1, i+2), &values); err != nil {
			return err
		}
	}

	for _, sheet := range []string{sheetTransactions, sheetCustomers} {
		if err := f.SetColWidth(sheet, "A", "F", 18); err != nil {
			return err
		}
	}
	return f.Write(w)
}

func writeHeader(f *excelize.File, sheet string, header []string, style int) error {
	values := make([]any, len(header))
	for i, h := range header {
		values[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &values); err != nil {
		return err
	}
	return f.SetCellStyle(sheet, "A1", cell(len(header), 1), style)
}

func cell(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}
