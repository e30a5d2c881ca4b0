package wallet

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/boostsocial/boost-api/internal/domain/transaction"
)

// Entry is a balance movement recorded as an approved ledger row.
type Entry struct {
	// ID is the ledger row id; zero means generate one.
	ID      uuid.UUID
	UserID  uuid.UUID
	Type    transaction.Type
	Amount  decimal.Decimal
	Method  string
	OrderID uuid.NullUUID
}

// Debit reports whether the entry lowers the balance.
func (e Entry) Debit() bool {
	return e.Type == transaction.TypeOrder
}

// Signed returns the balance delta.
func (e Entry) Signed() decimal.Decimal {
	if e.Debit() {
		return e.Amount.Neg()
	}
	return e.Amount
}
