package profile

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type fakeRepo struct {
	Repository

	balances map[uuid.UUID]decimal.Decimal
	ledgers  map[uuid.UUID]Ledger
	// raceOnSet simulates a concurrent credit between read and write.
	raceOnSet bool
	profiles  []*Profile
}

func (f *fakeRepo) List(_ context.Context, limit int) ([]*Profile, error) {
	if limit < len(f.profiles) {
		return f.profiles[:limit], nil
	}
	return f.profiles, nil
}

func (f *fakeRepo) GetBalance(_ context.Context, id uuid.UUID) (decimal.Decimal, error) {
	b, ok := f.balances[id]
	if !ok {
		return decimal.Zero, ErrNotFound
	}
	return b, nil
}

func (f *fakeRepo) Ledger(_ context.Context, id uuid.UUID) (Ledger, error) {
	return f.ledgers[id], nil
}

func (f *fakeRepo) ListIDs(_ context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for id := range f.balances {
		ids = append(ids, id)
	}
	return ids, nil
}

func (f *fakeRepo) SetBalanceIfUnchanged(_ context.Context, id uuid.UUID, prev, next decimal.Decimal) (bool, error) {
	if f.raceOnSet || !f.balances[id].Equal(prev) {
		return false, nil
	}
	f.balances[id] = next
	return true, nil
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestLedgerExpected(t *testing.T) {
	l := Ledger{Deposits: dec("100"), Refunds: dec("5.50"), Orders: dec("30.25")}
	if !l.Expected().Equal(dec("75.25")) {
		t.Fatalf("expected 75.25, got %s", l.Expected())
	}
}

func TestBalanceCheckWithinTolerance(t *testing.T) {
	id := uuid.New()
	repo := &fakeRepo{
		balances: map[uuid.UUID]decimal.Decimal{id: dec("50.01")},
		ledgers:  map[uuid.UUID]Ledger{id: {Deposits: dec("50")}},
	}

	res, err := NewBalanceReconciler(repo).Check(context.Background(), id, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Corrected {
		t.Fatal("drift of 0.01 must not be corrected")
	}
	if !repo.balances[id].Equal(dec("50.01")) {
		t.Fatalf("balance must be untouched, got %s", repo.balances[id])
	}
}

func TestBalanceCheckCorrectsDrift(t *testing.T) {
	id := uuid.New()
	repo := &fakeRepo{
		balances: map[uuid.UUID]decimal.Decimal{id: dec("100")},
		ledgers:  map[uuid.UUID]Ledger{id: {Deposits: dec("50")}},
	}

	res, err := NewBalanceReconciler(repo).Check(context.Background(), id, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Corrected || !res.Drift.Equal(dec("50")) {
		t.Fatalf("expected corrected drift of 50, got %+v", res)
	}
	if !repo.balances[id].Equal(dec("50")) {
		t.Fatalf("expected balance 50, got %s", repo.balances[id])
	}
}

func TestBalanceCheckReportOnly(t *testing.T) {
	id := uuid.New()
	repo := &fakeRepo{
		balances: map[uuid.UUID]decimal.Decimal{id: dec("10")},
		ledgers:  map[uuid.UUID]Ledger{id: {Deposits: dec("20")}},
	}

	res, err := NewBalanceReconciler(repo).Check(context.Background(), id, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Corrected || !repo.balances[id].Equal(dec("10")) {
		t.Fatal("report-only check must not write")
	}
}

func TestBalanceCheckConcurrentChange(t *testing.T) {
	id := uuid.New()
	repo := &fakeRepo{
		balances:  map[uuid.UUID]decimal.Decimal{id: dec("100")},
		ledgers:   map[uuid.UUID]Ledger{id: {Deposits: dec("50")}},
		raceOnSet: true,
	}

	_, err := NewBalanceReconciler(repo).Check(context.Background(), id, true)
	if !errors.Is(err, ErrBalanceChanged) {
		t.Fatalf("expected ErrBalanceChanged, got %v", err)
	}
}

func TestCheckAllReportsOnlyDrifted(t *testing.T) {
	ok, drifted := uuid.New(), uuid.New()
	repo := &fakeRepo{
		balances: map[uuid.UUID]decimal.Decimal{ok: dec("10"), drifted: dec("3")},
		ledgers: map[uuid.UUID]Ledger{
			ok:      {Deposits: dec("10")},
			drifted: {Deposits: dec("10"), Orders: dec("4")},
		},
	}

	res, err := NewBalanceReconciler(repo).CheckAll(context.Background(), true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res) != 1 || res[0].UserID != drifted {
		t.Fatalf("expected only the drifted profile, got %+v", res)
	}
	if !repo.balances[drifted].Equal(dec("6")) {
		t.Fatalf("expected corrected balance 6, got %s", repo.balances[drifted])
	}
}
