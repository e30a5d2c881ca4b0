package deposit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/boostsocial/boost-api/internal/domain/transaction"
	"github.com/boostsocial/boost-api/internal/pkg/moolre"
)

type fakeMoolre struct {
	result *moolre.StatusResult
	err    error
	calls  int
}

func (f *fakeMoolre) CheckStatus(context.Context, string) (*moolre.StatusResult, error) {
	f.calls++
	return f.result, f.err
}

func moolreDeposit(store *memStore, userID uuid.UUID, amount string) *transaction.Transaction {
	tx := store.addPending(userID, amount, transaction.MethodMoolre)
	store.mu.Lock()
	store.txs[tx.ID].MoolreReference.String = "MLR_" + tx.ID.String()
	store.txs[tx.ID].MoolreReference.Valid = true
	store.mu.Unlock()
	return tx
}

func TestStatusCheckSettlesMoolreSuccess(t *testing.T) {
	store := newMemStore()
	userID := uuid.New()
	tx := moolreDeposit(store, userID, "15.00")
	notifier := &recordingNotifier{}
	svc := NewStatusService(store, store, &fakeMoolre{result: &moolre.StatusResult{Status: moolre.StatusSuccess, Amount: decimal.RequireFromString("15.00")}}, notifier)

	resp, err := svc.Status(context.Background(), tx.ID, userID, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Status != transaction.StatusApproved {
		t.Fatalf("expected approved, got %s", resp.Status)
	}
	if resp.Balance == nil || !resp.Balance.Equal(decimal.RequireFromString("15")) {
		t.Fatalf("expected balance 15, got %v", resp.Balance)
	}
	if notifier.count() != 1 {
		t.Fatalf("expected one notification, got %d", notifier.count())
	}

	// A second check must not credit again.
	if _, err := svc.Status(context.Background(), tx.ID, userID, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !store.balance(userID).Equal(decimal.RequireFromString("15")) {
		t.Fatalf("expected balance to stay 15, got %s", store.balance(userID))
	}
}

func TestStatusCheckRejectsMoolreFailure(t *testing.T) {
	store := newMemStore()
	userID := uuid.New()
	tx := moolreDeposit(store, userID, "15.00")
	svc := NewStatusService(store, store, &fakeMoolre{result: &moolre.StatusResult{Status: moolre.StatusFailed}}, nil)

	status, err := svc.CheckStatus(context.Background(), tx.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != transaction.StatusRejected {
		t.Fatalf("expected rejected, got %s", status)
	}
	if !store.balance(userID).IsZero() {
		t.Fatal("failed collection must not credit")
	}
}

func TestStatusCheckLeavesShortMoolreCollectionPending(t *testing.T) {
	store := newMemStore()
	userID := uuid.New()
	tx := moolreDeposit(store, userID, "10000.00")
	notifier := &recordingNotifier{}
	svc := NewStatusService(store, store, &fakeMoolre{result: &moolre.StatusResult{
		Status: moolre.StatusSuccess,
		Amount: decimal.RequireFromString("1.00"),
	}}, notifier)

	status, err := svc.CheckStatus(context.Background(), tx.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != transaction.StatusPending {
		t.Fatalf("expected pending, got %s", status)
	}
	if store.approveCalls != 0 || !store.balance(userID).IsZero() {
		t.Fatalf("short collection must not credit, balance %s", store.balance(userID))
	}
	if notifier.count() != 0 {
		t.Fatal("no update expected for an unsettled deposit")
	}
}

func TestStatusCheckKeepsPendingOnProviderError(t *testing.T) {
	store := newMemStore()
	userID := uuid.New()
	tx := moolreDeposit(store, userID, "15.00")
	svc := NewStatusService(store, store, &fakeMoolre{err: errors.New("timeout")}, nil)

	status, err := svc.CheckStatus(context.Background(), tx.ID)
	if err != nil {
		t.Fatalf("provider errors must not surface, got %v", err)
	}
	if status != transaction.StatusPending {
		t.Fatalf("expected pending, got %s", status)
	}
}

func TestStatusCheckSkipsProviderForOtherMethods(t *testing.T) {
	store := newMemStore()
	userID := uuid.New()
	tx := store.addPending(userID, "5", transaction.MethodPaystack)
	provider := &fakeMoolre{result: &moolre.StatusResult{Status: moolre.StatusSuccess, Amount: decimal.RequireFromString("15.00")}}
	svc := NewStatusService(store, store, provider, nil)

	if _, err := svc.CheckStatus(context.Background(), tx.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if provider.calls != 0 {
		t.Fatal("paystack deposit must not be checked with moolre")
	}
}

func TestMoolreDepositPolledToApproval(t *testing.T) {
	store := newMemStore()
	userID := uuid.New()
	provider := &fakeMoolre{result: &moolre.StatusResult{Status: moolre.StatusSuccess, Amount: decimal.RequireFromString("25")}}
	status := NewStatusService(store, store, provider, nil)
	poller := NewPoller(PollerConfig{Interval: 5 * time.Millisecond, MaxAttempts: 5, MaxDuration: time.Second},
		status, store, store, nil)
	watcher := NewWatcher(poller)
	defer watcher.Close()

	svc := NewService(store, watcher, nil)
	resp, err := svc.Create(context.Background(), userID, &CreateDepositRequest{
		Amount: decimal.RequireFromString("25"),
		Method: "moolre",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !resp.Watched || resp.Reference == "" {
		t.Fatalf("expected watched deposit with reference, got %+v", resp)
	}

	deadline := time.Now().Add(2 * time.Second)
	for store.status(resp.ID) != transaction.StatusApproved {
		if time.Now().After(deadline) {
			t.Fatalf("deposit not approved, status %s", store.status(resp.ID))
		}
		time.Sleep(5 * time.Millisecond)
	}
	if !store.balance(userID).Equal(decimal.RequireFromString("25")) {
		t.Fatalf("expected balance 25, got %s", store.balance(userID))
	}
}

func TestCreateDepositValidation(t *testing.T) {
	svc := NewService(newMemStore(), nil, nil)

	_, err := svc.Create(context.Background(), uuid.New(), &CreateDepositRequest{
		Amount: decimal.RequireFromString("-1"),
		Method: "manual",
	})
	if !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}

	resp, err := svc.Create(context.Background(), uuid.New(), &CreateDepositRequest{
		Amount: decimal.RequireFromString("10.005"),
		Method: "paystack",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Reference == "" || resp.Watched {
		t.Fatalf("paystack deposit gets a reference and no watcher, got %+v", resp)
	}
	if !resp.Amount.Equal(decimal.RequireFromString("10.01")) {
		t.Fatalf("expected amount rounded to 10.01, got %s", resp.Amount)
	}
}

func TestAdminDecide(t *testing.T) {
	store := newMemStore()
	userID := uuid.New()
	tx := store.addPending(userID, "40", transaction.MethodManual)
	svc := NewService(store, nil, nil)

	resp, err := svc.Decide(context.Background(), tx.ID, uuid.New(), true)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if resp.Status != transaction.StatusApproved || !store.balance(userID).Equal(decimal.RequireFromString("40")) {
		t.Fatalf("expected approved and credited, got %s / %s", resp.Status, store.balance(userID))
	}

	if _, err := svc.Decide(context.Background(), tx.ID, uuid.New(), false); !errors.Is(err, ErrAlreadyProcessed) {
		t.Fatalf("expected ErrAlreadyProcessed, got %v", err)
	}
	if _, err := svc.Decide(context.Background(), uuid.New(), uuid.New(), true); !errors.Is(err, ErrTransactionNotFound) {
		t.Fatalf("expected ErrTransactionNotFound, got %v", err)
	}
}

func TestSweepStaleSkipsManualDeposits(t *testing.T) {
	store := newMemStore()
	userID := uuid.New()
	manual := store.addPending(userID, "5", transaction.MethodManual)
	provider := store.addPending(userID, "5", transaction.MethodPaystack)
	svc := NewService(store, nil, nil)

	n, err := svc.SweepStale(context.Background(), time.Minute, 100)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected one expired deposit, got %d", n)
	}
	if store.status(manual.ID) != transaction.StatusPending || store.status(provider.ID) != transaction.StatusRejected {
		t.Fatal("only the provider deposit may expire")
	}
}

func TestWebhookMetadataParsing(t *testing.T) {
	cases := []struct {
		raw  string
		want WebhookMetadata
	}{
		{``, WebhookMetadata{}},
		{`""`, WebhookMetadata{}},
		{`null`, WebhookMetadata{}},
		{`{"transaction_id":"abc","user_id":"u1"}`, WebhookMetadata{TransactionID: "abc", UserID: "u1"}},
		{`"{\"transaction_id\":\"abc\"}"`, WebhookMetadata{TransactionID: "abc"}},
		{`{"user_id":42}`, WebhookMetadata{UserID: "42"}},
	}
	for _, tc := range cases {
		got := WebhookData{Metadata: []byte(tc.raw)}.Meta()
		if got != tc.want {
			t.Errorf("Meta(%s) = %+v, want %+v", tc.raw, got, tc.want)
		}
	}

	if got := (WebhookData{Amount: 5000}).MajorAmount(); !got.Equal(decimal.RequireFromString("50.00")) {
		t.Errorf("MajorAmount = %s, want 50.00", got)
	}
}
