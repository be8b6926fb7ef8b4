package ledger

import (
	"kada-backend/internal/models"

	"github.com/shopspring/decimal"
)

// MaxAmount is the largest value a numeric(14,2) column holds.
var MaxAmount = decimal.RequireFromString("999999999999.99")

// NormalizeAmount rounds to paise and rejects amounts that round to zero or
// do not fit the amount column.
func NormalizeAmount(amount decimal.Decimal) (decimal.Decimal, error) {
	rounded := amount.Round(2)
	if !rounded.IsPositive() || rounded.GreaterThan(MaxAmount) {
		return decimal.Zero, ErrInvalidAmount
	}
	return rounded, nil
}

// Effect returns the signed change a transaction makes to a customer balance.
// Balances are negative when the customer owes the vendor, so a CREDIT of A
// lowers the balance by A and a PAYMENT of A raises it by A.
func Effect(t models.TransactionType, amount decimal.Decimal) decimal.Decimal {
	if t.IsReceipt() {
		return amount
	}
	return amount.Neg()
}

// Apply returns balance after one transaction.
func Apply(balance decimal.Decimal, t models.TransactionType, amount decimal.Decimal) decimal.Decimal {
	return balance.Add(Effect(t, amount))
}

// Replay derives a balance from a transaction history.
func Replay(txs []models.Transaction) decimal.Decimal {
	balance := decimal.Zero
	for _, tx := range txs {
		balance = Apply(balance, tx.Type, tx.Amount)
	}
	return balance
}

// Outstanding is what the customer owes the vendor (never negative).
func Outstanding(balance decimal.Decimal) decimal.Decimal {
	if balance.IsNegative() {
		return balance.Neg()
	}
	return decimal.Zero
}

// OverLimit reports whether an owed balance exceeds a non-zero credit limit.
func OverLimit(balance, creditLimit decimal.Decimal) bool {
	if !creditLimit.IsPositive() {
		return false
	}
	return Outstanding(balance).GreaterThan(creditLimit)
}
