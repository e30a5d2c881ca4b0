package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/boostsocial/boost-api/internal/domain/catalog"
	"github.com/boostsocial/boost-api/internal/domain/transaction"
	"github.com/boostsocial/boost-api/internal/domain/wallet"
	"github.com/boostsocial/boost-api/internal/pkg/smm"
)

var (
	ErrInvalidQuantity = errors.New("quantity outside service limits")
	ErrTooManyOrders   = errors.New("too many orders in one check")
	ErrOrderNotFound   = errors.New("order not found")
	ErrInvalidStatus   = errors.New("invalid order status")
	ErrStatusChanged   = errors.New("order status changed concurrently")
)

// MaxCheckBatch bounds one manual status check.
const MaxCheckBatch = 100

// Catalog resolves sellable services.
type Catalog interface {
	Get(ctx context.Context, id uuid.UUID) (*catalog.Service, error)
}

// Wallet moves money for placements and refunds.
type Wallet interface {
	Debit(ctx context.Context, e wallet.Entry, within wallet.TxFunc) (*transaction.Transaction, error)
	Refund(ctx context.Context, e wallet.Entry, within wallet.TxFunc) (*transaction.Transaction, error)
}

// Placer submits orders to an SMM panel.
type Placer interface {
	AddOrder(ctx context.Context, p smm.Provider, req smm.AddOrderRequest) (string, error)
}

// Store is the persistence the order service needs.
type Store interface {
	StatusStore
	GetByID(ctx context.Context, id uuid.UUID) (*Order, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*Order, error)
	ListAll(ctx context.Context, limit int) ([]*Order, error)
	ListOpen(ctx context.Context, checkedBefore time.Time, limit int) ([]*Order, error)
	SaveUpstream(ctx context.Context, o *Order) error
}

// InsertFunc writes a new order inside the wallet transaction.
type InsertFunc func(ctx context.Context, tx *sqlx.Tx, o *Order) error

// Service handles order business logic
type Service struct {
	store      Store
	catalog    Catalog
	wallet     Wallet
	placer     Placer
	reconciler *Reconciler
	insert     InsertFunc
	opts       Options
}

// NewService creates order service
func NewService(store Store, cat Catalog, w Wallet, placer Placer, reconciler *Reconciler, opts Options) *Service {
	return &Service{
		store:      store,
		catalog:    cat,
		wallet:     w,
		placer:     placer,
		reconciler: reconciler,
		insert: func(ctx context.Context, tx *sqlx.Tx, o *Order) error {
			return Insert(ctx, tx, o)
		},
		opts: opts,
	}
}

// Place charges the balance, records the order and forwards it upstream.
// When no provider accepts it the charge is refunded and the order canceled.
func (s *Service) Place(ctx context.Context, userID uuid.UUID, req *CreateOrderRequest) (*Order, error) {
	svc, err := s.catalog.Get(ctx, req.ServiceID)
	if err != nil {
		return nil, err
	}
	if !svc.AcceptsQuantity(req.Quantity) {
		return nil, ErrInvalidQuantity
	}

	o := &Order{
		ID:        uuid.New(),
		UserID:    userID,
		ServiceID: uuid.NullUUID{UUID: svc.ID, Valid: true},
		Link:      req.Link,
		Quantity:  req.Quantity,
		Charge:    svc.Price(req.Quantity),
		Status:    smm.StatusPending,
	}
	if svc.IsCombo() {
		o.Components = make(Components, len(svc.Components))
		for i, p := range svc.Components {
			o.Components[i] = smm.Component{Provider: p.Provider, Status: smm.StatusPending}
		}
	}

	entry := wallet.Entry{
		UserID:  userID,
		Amount:  o.Charge,
		Method:  transaction.MethodBalance,
		OrderID: uuid.NullUUID{UUID: o.ID, Valid: true},
	}
	if _, err := s.wallet.Debit(ctx, entry, func(ctx context.Context, tx *sqlx.Tx) error {
		return s.insert(ctx, tx, o)
	}); err != nil {
		return nil, err
	}

	placed := s.submit(ctx, svc, o)
	switch {
	case placed == 0:
		o.Status = smm.StatusCanceled
		s.refund(ctx, entry)
	case svc.IsCombo() && placed < len(svc.Components):
		// The rejected parts are refunded pro rata; the accepted ones keep
		// the order open and the combo settles as partial once they finish.
		share := entry
		rejected := int64(len(svc.Components) - placed)
		share.Amount = o.Charge.Mul(decimal.NewFromInt(rejected)).
			Div(decimal.NewFromInt(int64(len(svc.Components)))).Round(2)
		if share.Amount.IsPositive() {
			s.refund(ctx, share)
		}
	}
	if err := s.store.SaveUpstream(ctx, o); err != nil {
		return nil, fmt.Errorf("save upstream ids: %w", err)
	}
	if placed == 0 {
		return o, smm.ErrProviderRejected
	}
	return o, nil
}

func (s *Service) refund(ctx context.Context, e wallet.Entry) {
	if _, err := s.wallet.Refund(ctx, e, nil); err != nil {
		log.Error().Err(err).
			Str("order_id", e.OrderID.UUID.String()).
			Str("amount", e.Amount.String()).
			Msg("Failed to refund rejected order")
	}
}

// submit sends the order to every provider it routes to and returns how many
// accepted it.
func (s *Service) submit(ctx context.Context, svc *catalog.Service, o *Order) int {
	add := func(p smm.Provider, serviceID string) string {
		id, err := s.placer.AddOrder(ctx, p, smm.AddOrderRequest{
			ServiceID: serviceID,
			Link:      o.Link,
			Quantity:  o.Quantity,
		})
		if err != nil {
			log.Warn().Err(err).
				Str("order_id", o.ID.String()).
				Str("provider", string(p)).
				Msg("Provider did not accept order")
			return ""
		}
		return id
	}

	if !svc.IsCombo() {
		id := add(svc.Provider, svc.ProviderServiceID)
		if id == "" {
			return 0
		}
		o.SetProviderOrderID(svc.Provider, id)
		return 1
	}

	placed := 0
	for i, part := range svc.Components {
		id := add(part.Provider, part.ServiceID)
		o.Components[i].OrderID = id
		if id == "" {
			o.Components[i].Status = smm.StatusCanceled
			continue
		}
		placed++
	}
	return placed
}

// List returns the caller's orders, newest first.
func (s *Service) List(ctx context.Context, userID uuid.UUID, limit int) ([]*Order, error) {
	return s.store.ListByUser(ctx, userID, limit)
}

// Get returns one of the caller's orders. Orders of other users are reported
// as not found.
func (s *Service) Get(ctx context.Context, id, userID uuid.UUID) (*Order, error) {
	o, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o == nil || o.UserID != userID {
		return nil, ErrOrderNotFound
	}
	return o, nil
}

// ListAll returns every order, newest first.
func (s *Service) ListAll(ctx context.Context, limit int) ([]*Order, error) {
	return s.store.ListAll(ctx, limit)
}

// SetStatus overrides an order's status. The write is conditional on the
// status read here, so a concurrent reconcile makes it fail with
// ErrStatusChanged instead of being overwritten. No money moves.
func (s *Service) SetStatus(ctx context.Context, id uuid.UUID, raw string) (*Order, error) {
	next, ok := smm.ParseStatus(raw)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
	}

	o, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, ErrOrderNotFound
	}
	if o.Status == next {
		return o, nil
	}

	old := o.Status
	changed, err := s.store.UpdateStatus(ctx, id, old, next)
	if err != nil {
		return nil, err
	}
	if !changed {
		return nil, ErrStatusChanged
	}
	o.Status = next

	log.Info().
		Str("order_id", id.String()).
		Str("old", string(old)).
		Str("new", string(next)).
		Msg("Order status set by admin")
	if s.reconciler != nil && s.reconciler.listener != nil {
		s.reconciler.listener.OrderStatusChanged(ctx, o, old, next)
	}
	return o, nil
}

// CheckStatus refreshes the given orders from their providers. Non-admins
// only see their own orders; anything else is silently dropped.
func (s *Service) CheckStatus(ctx context.Context, ids []uuid.UUID, requester uuid.UUID, isAdmin bool) (*Result, error) {
	if len(ids) > MaxCheckBatch {
		return nil, ErrTooManyOrders
	}
	orders, err := s.store.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	if !isAdmin {
		own := orders[:0]
		for _, o := range orders {
			if o.UserID == requester {
				own = append(own, o)
			}
		}
		orders = own
	}
	return s.reconciler.CheckBatch(ctx, orders, s.opts)
}

// Sweep refreshes open orders that were not checked recently.
func (s *Service) Sweep(ctx context.Context, limit int) (*Result, error) {
	orders, err := s.store.ListOpen(ctx, time.Now().Add(-s.opts.MinInterval), limit)
	if err != nil {
		return nil, err
	}
	return s.reconciler.CheckBatch(ctx, orders, s.opts)
}
