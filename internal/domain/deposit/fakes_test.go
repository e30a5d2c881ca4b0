package deposit

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/boostsocial/boost-api/internal/domain/transaction"
)

// memStore mimics the guarded SQL: approve credits the balance only when the
// row is still pending.
type memStore struct {
	mu       sync.Mutex
	txs      map[uuid.UUID]*transaction.Transaction
	balances map[uuid.UUID]decimal.Decimal

	approveCalls int
	rejectCalls  int
}

func newMemStore() *memStore {
	return &memStore{
		txs:      map[uuid.UUID]*transaction.Transaction{},
		balances: map[uuid.UUID]decimal.Decimal{},
	}
}

func (m *memStore) addPending(userID uuid.UUID, amount string, method string) *transaction.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := &transaction.Transaction{
		ID:            uuid.New(),
		UserID:        userID,
		Type:          transaction.TypeDeposit,
		Amount:        decimal.RequireFromString(amount),
		Status:        transaction.StatusPending,
		PaymentMethod: method,
		CreatedAt:     time.Now().Add(-time.Duration(len(m.txs)+1) * time.Hour),
	}
	m.txs[t.ID] = t
	if _, ok := m.balances[userID]; !ok {
		m.balances[userID] = decimal.Zero
	}
	return t
}

func (m *memStore) balance(userID uuid.UUID) decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[userID]
}

func (m *memStore) status(id uuid.UUID) transaction.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.txs[id].Status
}

func (m *memStore) copyOf(t *transaction.Transaction) *transaction.Transaction {
	c := *t
	return &c
}

func (m *memStore) GetByID(_ context.Context, id uuid.UUID) (*transaction.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.txs[id]; ok {
		return m.copyOf(t), nil
	}
	return nil, nil
}

func (m *memStore) GetByPaystackReference(_ context.Context, ref string) (*transaction.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.txs {
		if t.PaystackReference.Valid && t.PaystackReference.String == ref {
			return m.copyOf(t), nil
		}
	}
	return nil, nil
}

func (m *memStore) FindPendingDeposit(_ context.Context, userID uuid.UUID, amount decimal.Decimal) (*transaction.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var best *transaction.Transaction
	for _, t := range m.txs {
		if t.UserID == userID && t.IsPendingDeposit() && t.PaymentMethod == transaction.MethodPaystack && t.Amount.Equal(amount) {
			if best == nil || t.CreatedAt.After(best.CreatedAt) {
				best = t
			}
		}
	}
	if best == nil {
		return nil, nil
	}
	return m.copyOf(best), nil
}

func (m *memStore) ApproveDeposit(_ context.Context, id uuid.UUID, ref, providerStatus string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.approveCalls++
	t, ok := m.txs[id]
	if !ok || !t.IsPendingDeposit() {
		return false, nil
	}
	t.Status = transaction.StatusApproved
	if !t.PaystackReference.Valid && ref != "" {
		t.PaystackReference.String, t.PaystackReference.Valid = ref, true
	}
	t.ProviderStatus.String, t.ProviderStatus.Valid = providerStatus, providerStatus != ""
	m.balances[t.UserID] = m.balances[t.UserID].Add(t.Amount)
	return true, nil
}

func (m *memStore) RejectIfPending(_ context.Context, id uuid.UUID, providerStatus string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejectCalls++
	t, ok := m.txs[id]
	if !ok || t.Status != transaction.StatusPending {
		return false, nil
	}
	t.Status = transaction.StatusRejected
	t.ProviderStatus.String, t.ProviderStatus.Valid = providerStatus, providerStatus != ""
	return true, nil
}

func (m *memStore) Create(_ context.Context, t *transaction.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	t.CreatedAt = time.Now()
	m.txs[t.ID] = m.copyOf(t)
	return nil
}

func (m *memStore) ListByUser(_ context.Context, userID uuid.UUID, txType transaction.Type, _ int) ([]*transaction.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*transaction.Transaction
	for _, t := range m.txs {
		if t.UserID == userID && (txType == "" || t.Type == txType) {
			out = append(out, m.copyOf(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memStore) ListPendingDeposits(_ context.Context, before time.Time, _ int) ([]*transaction.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*transaction.Transaction
	for _, t := range m.txs {
		if t.IsPendingDeposit() && t.CreatedAt.Before(before) {
			out = append(out, m.copyOf(t))
		}
	}
	return out, nil
}

func (m *memStore) GetBalance(_ context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	return m.balance(userID), nil
}

type recordingNotifier struct {
	mu      sync.Mutex
	updates []Update
}

func (n *recordingNotifier) DepositUpdated(_ context.Context, _ uuid.UUID, u Update) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.updates = append(n.updates, u)
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.updates)
}

func (n *recordingNotifier) last() Update {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.updates[len(n.updates)-1]
}
