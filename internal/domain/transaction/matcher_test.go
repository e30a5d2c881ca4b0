package transaction

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type fakeLookup struct {
	byID      map[uuid.UUID]*Transaction
	byRef     map[string]*Transaction
	heuristic *Transaction
	err       error

	heuristicCalls int
}

func (f *fakeLookup) GetByID(_ context.Context, id uuid.UUID) (*Transaction, error) {
	return f.byID[id], f.err
}

func (f *fakeLookup) GetByPaystackReference(_ context.Context, ref string) (*Transaction, error) {
	return f.byRef[ref], f.err
}

func (f *fakeLookup) FindPendingDeposit(_ context.Context, _ uuid.UUID, _ decimal.Decimal) (*Transaction, error) {
	f.heuristicCalls++
	return f.heuristic, f.err
}

func TestMatcherReferenceWinsOverHeuristic(t *testing.T) {
	byRef := &Transaction{ID: uuid.New(), Type: TypeDeposit, Status: StatusPending}
	byAmount := &Transaction{ID: uuid.New(), Type: TypeDeposit, Status: StatusPending}
	lookup := &fakeLookup{
		byRef:     map[string]*Transaction{"R1": byRef},
		heuristic: byAmount,
	}

	got, kind, err := NewMatcher(lookup).Match(context.Background(), Event{
		Reference: "R1",
		UserID:    uuid.NewString(),
		Amount:    decimal.NewFromInt(50),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != byRef || kind != MatchReference {
		t.Fatalf("expected reference match, got %v (%s)", got, kind)
	}
	if lookup.heuristicCalls != 0 {
		t.Fatal("heuristic must not run after a reference match")
	}
}

func paystackDeposit() *Transaction {
	return &Transaction{ID: uuid.New(), Type: TypeDeposit, Status: StatusPending, PaymentMethod: MethodPaystack}
}

func TestMatcherMetadataTransactionID(t *testing.T) {
	tx := paystackDeposit()
	lookup := &fakeLookup{byID: map[uuid.UUID]*Transaction{tx.ID: tx}}

	got, kind, err := NewMatcher(lookup).Match(context.Background(), Event{
		Reference:     "unknown-ref",
		TransactionID: tx.ID.String(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != tx || kind != MatchMetadata {
		t.Fatalf("expected metadata match, got %v (%s)", got, kind)
	}
}

func TestMatcherMetadataIgnoresNonDeposits(t *testing.T) {
	order := &Transaction{ID: uuid.New(), Type: TypeOrder, Status: StatusApproved}
	lookup := &fakeLookup{byID: map[uuid.UUID]*Transaction{order.ID: order}}

	got, kind, err := NewMatcher(lookup).Match(context.Background(), Event{TransactionID: order.ID.String()})
	if err != nil || got != nil || kind != MatchNone {
		t.Fatalf("expected no match, got %v %s %v", got, kind, err)
	}
}

func TestMatcherHeuristic(t *testing.T) {
	tx := paystackDeposit()
	lookup := &fakeLookup{heuristic: tx}

	got, kind, err := NewMatcher(lookup).Match(context.Background(), Event{
		UserID: uuid.NewString(),
		Amount: decimal.RequireFromString("12.50"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != tx || kind != MatchHeuristic {
		t.Fatalf("expected heuristic match, got %v (%s)", got, kind)
	}
}

func TestMatcherOnlyReachesPaystackDeposits(t *testing.T) {
	for _, method := range []string{MethodManual, MethodMoolre} {
		t.Run(method, func(t *testing.T) {
			tx := &Transaction{ID: uuid.New(), Type: TypeDeposit, Status: StatusPending, PaymentMethod: method}
			lookup := &fakeLookup{byID: map[uuid.UUID]*Transaction{tx.ID: tx}, heuristic: tx}

			got, kind, err := NewMatcher(lookup).Match(context.Background(), Event{
				TransactionID: tx.ID.String(),
				UserID:        uuid.NewString(),
				Amount:        decimal.NewFromInt(10000),
			})
			if err != nil || got != nil || kind != MatchNone {
				t.Fatalf("expected no match for %s deposit, got %v %s %v", method, got, kind, err)
			}
		})
	}
}

func TestMatcherNoMatch(t *testing.T) {
	tests := []struct {
		name string
		ev   Event
	}{
		{"empty event", Event{}},
		{"no user id", Event{Amount: decimal.NewFromInt(10)}},
		{"zero amount", Event{UserID: uuid.NewString()}},
		{"heuristic miss", Event{UserID: uuid.NewString(), Amount: decimal.NewFromInt(10)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, kind, err := NewMatcher(&fakeLookup{}).Match(context.Background(), tt.ev)
			if err != nil || got != nil || kind != MatchNone {
				t.Fatalf("expected no match, got %v %s %v", got, kind, err)
			}
		})
	}
}

func TestMatcherPropagatesLookupErrors(t *testing.T) {
	boom := errors.New("db down")
	_, _, err := NewMatcher(&fakeLookup{err: boom}).Match(context.Background(), Event{Reference: "R1"})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped lookup error, got %v", err)
	}
}
