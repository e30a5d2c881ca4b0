package transaction

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MatchKind records which rule located a transaction.
type MatchKind string

const (
	MatchNone      MatchKind = ""
	MatchReference MatchKind = "reference"
	MatchMetadata  MatchKind = "metadata"
	MatchHeuristic MatchKind = "heuristic"
)

// Lookup is the read side the matcher needs.
type Lookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Transaction, error)
	GetByPaystackReference(ctx context.Context, reference string) (*Transaction, error)
	// FindPendingDeposit returns the newest pending Paystack deposit of
	// userID for exactly amount.
	FindPendingDeposit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (*Transaction, error)
}

// Event is what a payment notification tells us about the payment.
type Event struct {
	Reference     string
	TransactionID string
	UserID        string
	Amount        decimal.Decimal
}

// Matcher finds the stored transaction a payment event refers to.
type Matcher struct {
	lookup Lookup
}

func NewMatcher(lookup Lookup) *Matcher {
	return &Matcher{lookup: lookup}
}

// Match tries, in order: provider reference, metadata transaction id, then
// the most recent pending deposit of the same user and amount. A nil
// transaction with a nil error means nothing matched. Metadata and heuristic
// matches only ever land on Paystack deposits, so a charge can never settle a
// manual or Moolre deposit.
//
// The heuristic cannot tell apart two pending deposits of the same amount
// for the same user; it takes the newest.
func (m *Matcher) Match(ctx context.Context, ev Event) (*Transaction, MatchKind, error) {
	if ev.Reference != "" {
		t, err := m.lookup.GetByPaystackReference(ctx, ev.Reference)
		if err != nil {
			return nil, MatchNone, fmt.Errorf("match by reference: %w", err)
		}
		if t != nil {
			return t, MatchReference, nil
		}
	}

	if id, err := uuid.Parse(ev.TransactionID); err == nil {
		t, err := m.lookup.GetByID(ctx, id)
		if err != nil {
			return nil, MatchNone, fmt.Errorf("match by metadata id: %w", err)
		}
		if isPaystackDeposit(t) {
			return t, MatchMetadata, nil
		}
	}

	userID, err := uuid.Parse(ev.UserID)
	if err != nil || !ev.Amount.IsPositive() {
		return nil, MatchNone, nil
	}
	t, err := m.lookup.FindPendingDeposit(ctx, userID, ev.Amount)
	if err != nil {
		return nil, MatchNone, fmt.Errorf("match by amount: %w", err)
	}
	if !isPaystackDeposit(t) {
		return nil, MatchNone, nil
	}
	return t, MatchHeuristic, nil
}

func isPaystackDeposit(t *Transaction) bool {
	return t != nil && t.Type == TypeDeposit && t.PaymentMethod == MethodPaystack
}
