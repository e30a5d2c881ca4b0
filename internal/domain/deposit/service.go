package deposit

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/boostsocial/boost-api/internal/domain/transaction"
)

// DepositStore adds the create/list side to Store.
type DepositStore interface {
	Store
	Create(ctx context.Context, t *transaction.Transaction) error
	ListByUser(ctx context.Context, userID uuid.UUID, txType transaction.Type, limit int) ([]*transaction.Transaction, error)
	ListPendingDeposits(ctx context.Context, createdBefore time.Time, limit int) ([]*transaction.Transaction, error)
}

// Service handles deposit creation, history and manual decisions.
type Service struct {
	store    DepositStore
	watcher  *Watcher
	notifier Notifier
}

// NewService creates deposit service. watcher may be nil, in which case
// Moolre deposits are only settled by status checks and the sweep job.
func NewService(store DepositStore, watcher *Watcher, notifier Notifier) *Service {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &Service{store: store, watcher: watcher, notifier: notifier}
}

// Create records a pending deposit. Paystack and Moolre deposits get the
// reference the checkout passes to the provider; Moolre ones are polled.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, req *CreateDepositRequest) (*DepositResponse, error) {
	amount := req.Amount.Round(2)
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	method := strings.ToLower(req.Method)
	tx := &transaction.Transaction{
		UserID:        userID,
		Type:          transaction.TypeDeposit,
		Amount:        amount,
		Status:        transaction.StatusPending,
		PaymentMethod: method,
	}

	ref := strings.TrimSpace(req.Reference)
	switch method {
	case transaction.MethodPaystack:
		if ref == "" {
			ref = newReference("PSK")
		}
		tx.PaystackReference.String, tx.PaystackReference.Valid = ref, true
	case transaction.MethodMoolre:
		if ref == "" {
			ref = newReference("MLR")
		}
		tx.MoolreReference.String, tx.MoolreReference.Valid = ref, true
	}

	if err := s.store.Create(ctx, tx); err != nil {
		return nil, err
	}

	log.Info().
		Str("transaction_id", tx.ID.String()).
		Str("user_id", userID.String()).
		Str("method", method).
		Str("amount", amount.String()).
		Msg("Deposit created")

	resp := DepositResponseFromEntity(tx)
	if method == transaction.MethodMoolre && s.watcher != nil {
		resp.Watched = s.watcher.Watch(Target{TransactionID: tx.ID, UserID: userID, Amount: amount})
	}
	return resp, nil
}

// List returns the user's deposits, newest first.
func (s *Service) List(ctx context.Context, userID uuid.UUID, limit int) ([]*DepositResponse, error) {
	rows, err := s.store.ListByUser(ctx, userID, transaction.TypeDeposit, limit)
	if err != nil {
		return nil, err
	}
	out := make([]*DepositResponse, 0, len(rows))
	for _, t := range rows {
		out = append(out, DepositResponseFromEntity(t))
	}
	return out, nil
}

// ListPending returns pending deposits for the admin queue.
func (s *Service) ListPending(ctx context.Context, limit int) ([]*DepositResponse, error) {
	rows, err := s.store.ListPendingDeposits(ctx, time.Now(), limit)
	if err != nil {
		return nil, err
	}
	out := make([]*DepositResponse, 0, len(rows))
	for _, t := range rows {
		out = append(out, DepositResponseFromEntity(t))
	}
	return out, nil
}

// Decide approves or rejects a pending deposit on behalf of an admin.
// Approval goes through the same atomic credit as every other path.
func (s *Service) Decide(ctx context.Context, txID, adminID uuid.UUID, approve bool) (*DepositResponse, error) {
	tx, err := s.store.GetByID(ctx, txID)
	if err != nil {
		return nil, err
	}
	if tx == nil {
		return nil, ErrTransactionNotFound
	}
	if tx.Type != transaction.TypeDeposit {
		return nil, ErrNotDeposit
	}

	var changed bool
	if approve {
		changed, err = s.store.ApproveDeposit(ctx, txID, "", "admin_approved")
	} else {
		changed, err = s.store.RejectIfPending(ctx, txID, "admin_rejected")
	}
	if err != nil {
		return nil, err
	}
	if !changed {
		return nil, ErrAlreadyProcessed
	}

	if approve {
		tx.Status = transaction.StatusApproved
	} else {
		tx.Status = transaction.StatusRejected
	}

	log.Info().
		Str("transaction_id", txID.String()).
		Str("admin_id", adminID.String()).
		Str("status", string(tx.Status)).
		Msg("Deposit decided by admin")

	if s.watcher != nil {
		s.watcher.Stop(txID)
	}
	s.notifier.DepositUpdated(ctx, tx.UserID, updateFrom(tx, ""))
	return DepositResponseFromEntity(tx), nil
}

// SweepStale rejects provider deposits still pending after maxAge. Each row goes
// through RejectIfPending so a concurrent credit is never undone.
func (s *Service) SweepStale(ctx context.Context, maxAge time.Duration, limit int) (int, error) {
	rows, err := s.store.ListPendingDeposits(ctx, time.Now().Add(-maxAge), limit)
	if err != nil {
		return 0, err
	}

	rejected := 0
	for _, t := range rows {
		if ctx.Err() != nil {
			return rejected, ctx.Err()
		}
		// Manual deposits wait for an admin, however long that takes.
		if t.PaymentMethod == transaction.MethodManual {
			continue
		}
		if s.watcher != nil && s.watcher.Watching(t.ID) {
			continue
		}
		ok, err := s.store.RejectIfPending(ctx, t.ID, "expired")
		if err != nil {
			log.Error().Err(err).Str("transaction_id", t.ID.String()).Msg("Failed to expire deposit")
			continue
		}
		if ok {
			rejected++
			t.Status = transaction.StatusRejected
			s.notifier.DepositUpdated(ctx, t.UserID, updateFrom(t, "Deposit expired"))
		}
	}
	return rejected, nil
}

func newReference(prefix string) string {
	return prefix + "_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}
