package order

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/boostsocial/boost-api/internal/domain/catalog"
	"github.com/boostsocial/boost-api/internal/domain/transaction"
	"github.com/boostsocial/boost-api/internal/domain/wallet"
	"github.com/boostsocial/boost-api/internal/pkg/smm"
)

type memStore struct {
	mu       sync.Mutex
	orders   map[uuid.UUID]*Order
	touched  []uuid.UUID
	updates  int
	staleIDs map[uuid.UUID]bool
}

func newMemStore(orders ...*Order) *memStore {
	s := &memStore{orders: map[uuid.UUID]*Order{}, staleIDs: map[uuid.UUID]bool{}}
	for _, o := range orders {
		s.orders[o.ID] = o
	}
	return s
}

func (s *memStore) add(o *Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *o
	s.orders[o.ID] = &cp
}

func (s *memStore) get(id uuid.UUID) *Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orders[id]
}

func (s *memStore) UpdateStatus(_ context.Context, id uuid.UUID, old, next smm.Status) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok || s.staleIDs[id] || o.Status != old {
		return false, nil
	}
	cp := *o
	cp.Status = next
	s.orders[id] = &cp
	s.updates++
	return true, nil
}

func (s *memStore) UpdateComponents(_ context.Context, id uuid.UUID, c Components) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o, ok := s.orders[id]; ok {
		cp := *o
		cp.Components = c
		s.orders[id] = &cp
	}
	return nil
}

func (s *memStore) TouchChecked(_ context.Context, ids []uuid.UUID, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touched = append(s.touched, ids...)
	return nil
}

func (s *memStore) GetByIDs(_ context.Context, ids []uuid.UUID) ([]*Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Order
	for _, id := range ids {
		if o, ok := s.orders[id]; ok {
			cp := *o
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *memStore) ListByUser(_ context.Context, userID uuid.UUID, _ int) ([]*Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Order
	for _, o := range s.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (s *memStore) GetByID(_ context.Context, id uuid.UUID) (*Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o, ok := s.orders[id]; ok {
		cp := *o
		return &cp, nil
	}
	return nil, nil
}

func (s *memStore) ListAll(_ context.Context, limit int) ([]*Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Order
	for _, o := range s.orders {
		if limit > 0 && len(out) == limit {
			break
		}
		cp := *o
		out = append(out, &cp)
	}
	return out, nil
}

func (s *memStore) ListOpen(_ context.Context, _ time.Time, _ int) ([]*Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Order
	for _, o := range s.orders {
		if o.Status.Active() {
			cp := *o
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *memStore) SaveUpstream(_ context.Context, o *Order) error {
	s.add(o)
	return nil
}

// fakeFetcher answers from a table keyed by "provider:id".
type fakeFetcher struct {
	mu       sync.Mutex
	statuses map[string]smm.Status
	errs     map[string]error
	calls    []string
	delay    time.Duration

	inFlight    int32
	maxInFlight int32
}

func (f *fakeFetcher) Status(_ context.Context, p smm.Provider, id string) (*smm.OrderStatus, error) {
	n := atomic.AddInt32(&f.inFlight, 1)
	defer atomic.AddInt32(&f.inFlight, -1)
	for {
		m := atomic.LoadInt32(&f.maxInFlight)
		if n <= m || atomic.CompareAndSwapInt32(&f.maxInFlight, m, n) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	key := fmt.Sprintf("%s:%s", p, id)
	f.mu.Lock()
	f.calls = append(f.calls, key)
	err := f.errs[key]
	st, ok := f.statuses[key]
	f.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, smm.ErrUpstreamStatus
	}
	return &smm.OrderStatus{Provider: p, OrderID: id, Status: st}, nil
}

type fakeCatalog struct {
	services map[uuid.UUID]*catalog.Service
}

func (c *fakeCatalog) Get(_ context.Context, id uuid.UUID) (*catalog.Service, error) {
	if s, ok := c.services[id]; ok {
		return s, nil
	}
	return nil, catalog.ErrServiceNotFound
}

type fakeWallet struct {
	balance decimal.Decimal
	refunds []decimal.Decimal
}

func (w *fakeWallet) Debit(ctx context.Context, e wallet.Entry, within wallet.TxFunc) (*transaction.Transaction, error) {
	if w.balance.LessThan(e.Amount) {
		return nil, wallet.ErrInsufficientFunds
	}
	if within != nil {
		if err := within(ctx, nil); err != nil {
			return nil, err
		}
	}
	w.balance = w.balance.Sub(e.Amount)
	return &transaction.Transaction{ID: uuid.New(), Amount: e.Amount}, nil
}

func (w *fakeWallet) Refund(_ context.Context, e wallet.Entry, _ wallet.TxFunc) (*transaction.Transaction, error) {
	w.balance = w.balance.Add(e.Amount)
	w.refunds = append(w.refunds, e.Amount)
	return &transaction.Transaction{ID: uuid.New(), Amount: e.Amount}, nil
}

type fakePlacer struct {
	reject map[smm.Provider]bool
	next   int
	calls  []smm.AddOrderRequest
}

func (p *fakePlacer) AddOrder(_ context.Context, provider smm.Provider, req smm.AddOrderRequest) (string, error) {
	p.calls = append(p.calls, req)
	if p.reject[provider] {
		return "", smm.ErrProviderRejected
	}
	p.next++
	return fmt.Sprintf("%s-%d", provider, p.next), nil
}

func newTestService(store *memStore, cat *fakeCatalog, w *fakeWallet, placer *fakePlacer, fetcher *fakeFetcher) *Service {
	svc := NewService(store, cat, w, placer, NewReconciler(fetcher, store, nil), Options{Concurrency: 4})
	svc.insert = func(_ context.Context, _ *sqlx.Tx, o *Order) error {
		store.add(o)
		return nil
	}
	return svc
}

func nullStr(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
