package backup

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"kada-backend/internal/httputil"
	"kada-backend/internal/ledger"
	"kada-backend/internal/models"
	"kada-backend/internal/phone"

	"github.com/shopspring/decimal"
)

var Header = []string{"Date", "CustomerName", "CustomerPhone", "Type", "Amount", "Description"}

var ErrBadHeader = errors.New("csv header must be: " + strings.Join(Header, ","))

// Row is one transaction line of the interchange file.
type Row struct {
	Date          time.Time
	CustomerName  string
	CustomerPhone string
	Type          models.TransactionType
	Amount        decimal.Decimal
	Description   string
}

// EncodeCSV writes rows with the interchange header. Dates are written in
// the zone they carry.
func EncodeCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write([]string{
			r.Date.Format(httputil.DateLayout),
			r.CustomerName,
			r.CustomerPhone,
			string(r.Type),
			r.Amount.StringFixed(2),
			r.Description,
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

type ImportCustomer struct {
	TempID string
	Name   string
	Phone  string // E.164
}

type ImportTransaction struct {
	CustomerTempID string
	Type           models.TransactionType
	Amount         decimal.Decimal
	Date           time.Time
	Description    string
}

type LineError struct {
	Line int    `json:"line"`
	Err  string `json:"error"`
}

// Decoded is a parsed file: customers keyed by temporary id, transactions in
// file order and the lines that were skipped.
type Decoded struct {
	Customers    []ImportCustomer
	Transactions []ImportTransaction
	Skipped      []LineError
}

// TempID is the placeholder key of a customer before it exists on the
// server. Customers sharing a normalised phone share a key.
func TempID(e164 string) string {
	return "tmp-" + phone.Digits(e164)
}

// DecodeCSV parses an interchange file. Rows that fail validation are
// reported in Skipped; a bad header fails the whole file.
func DecodeCSV(r io.Reader, loc *time.Location) (*Decoded, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	head, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(head) > 0 {
		head[0] = strings.TrimPrefix(head[0], "\ufeff")
	}
	if len(head) < len(Header) {
		return nil, ErrBadHeader
	}
	for i, h := range Header {
		if !strings.EqualFold(strings.TrimSpace(head[i]), h) {
			return nil, ErrBadHeader
		}
	}

	out := &Decoded{}
	seen := make(map[string]bool)
	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			out.Skipped = append(out.Skipped, LineError{Line: line, Err: err.Error()})
			continue
		}
		if len(rec) < 5 {
			out.Skipped = append(out.Skipped, LineError{Line: line, Err: "too few columns"})
			continue
		}

		tx, cust, err := parseRecord(rec, loc)
		if err != nil {
			out.Skipped = append(out.Skipped, LineError{Line: line, Err: err.Error()})
			continue
		}
		if !seen[cust.TempID] {
			seen[cust.TempID] = true
			out.Customers = append(out.Customers, cust)
		}
		out.Transactions = append(out.Transactions, tx)
	}
	return out, nil
}

func parseRecord(rec []string, loc *time.Location) (ImportTransaction, ImportCustomer, error) {
	field := func(i int) string {
		if i < len(rec) {
			return strings.TrimSpace(rec[i])
		}
		return ""
	}

	date, err := parseDate(field(0), loc)
	if err != nil {
		return ImportTransaction{}, ImportCustomer{}, err
	}
	name := field(1)
	if name == "" {
		return ImportTransaction{}, ImportCustomer{}, errors.New("customer name is empty")
	}
	e164, err := phone.Normalize(field(2))
	if err != nil {
		return ImportTransaction{}, ImportCustomer{}, fmt.Errorf("phone %q: %w", field(2), err)
	}
	typ := models.TransactionType(strings.ToUpper(field(3)))
	if !typ.Valid() {
		return ImportTransaction{}, ImportCustomer{}, fmt.Errorf("type %q is not CREDIT, PAYMENT or DEBIT", field(3))
	}
	raw, err := decimal.NewFromString(field(4))
	if err != nil {
		return ImportTransaction{}, ImportCustomer{}, fmt.Errorf("amount %q is not a number", field(4))
	}
	amount, err := ledger.NormalizeAmount(raw)
	if err != nil {
		return ImportTransaction{}, ImportCustomer{}, fmt.Errorf("amount %q: %w", field(4), err)
	}

	cust := ImportCustomer{TempID: TempID(e164), Name: name, Phone: e164}
	tx := ImportTransaction{
		CustomerTempID: cust.TempID,
		Type:           typ,
		Amount:         amount,
		Date:           date,
		Description:    field(5),
	}
	return tx, cust, nil
}

func parseDate(s string, loc *time.Location) (time.Time, error) {
	for _, layout := range []string{httputil.DateLayout, "02/01/2006", time.RFC3339} {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("date %q must be YYYY-MM-DD", s)
}
