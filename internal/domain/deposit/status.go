package deposit

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/boostsocial/boost-api/internal/domain/transaction"
	"github.com/boostsocial/boost-api/internal/pkg/moolre"
)

// MoolreChecker looks up a mobile money collection.
type MoolreChecker interface {
	CheckStatus(ctx context.Context, reference string) (*moolre.StatusResult, error)
}

// BalanceVerifier reads a balance. It never writes.
type BalanceVerifier interface {
	GetBalance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error)
}

// StatusService answers deposit status checks. Pending Moolre deposits are
// verified with the provider on the way and settled through the same guarded
// writes as the webhook.
type StatusService struct {
	store    Store
	balances BalanceVerifier
	moolre   MoolreChecker
	notifier Notifier
}

// NewStatusService creates status service. moolreChecker may be nil when
// Moolre is not configured.
func NewStatusService(store Store, balances BalanceVerifier, moolreChecker MoolreChecker, notifier Notifier) *StatusService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &StatusService{store: store, balances: balances, moolre: moolreChecker, notifier: notifier}
}

// Status returns the state of a deposit owned by requester. Admins may read
// any deposit.
func (s *StatusService) Status(ctx context.Context, txID, requester uuid.UUID, isAdmin bool) (*StatusResponse, error) {
	tx, err := s.store.GetByID(ctx, txID)
	if err != nil {
		return nil, err
	}
	if tx == nil {
		return nil, ErrTransactionNotFound
	}
	if tx.UserID != requester && !isAdmin {
		return nil, ErrForbidden
	}

	tx, err = s.refresh(ctx, tx)
	if err != nil {
		return nil, err
	}

	resp := &StatusResponse{
		Status:        tx.Status,
		Amount:        tx.Amount,
		TransactionID: tx.ID,
	}
	if tx.Status == transaction.StatusApproved && s.balances != nil {
		balance, err := s.balances.GetBalance(ctx, tx.UserID)
		if err != nil {
			log.Warn().Err(err).Str("user_id", tx.UserID.String()).Msg("Balance read failed on status check")
		} else {
			resp.Balance = &balance
		}
	}
	return resp, nil
}

// CheckStatus returns the current status of a deposit after provider
// verification. It is the poller's status source.
func (s *StatusService) CheckStatus(ctx context.Context, txID uuid.UUID) (transaction.Status, error) {
	tx, err := s.store.GetByID(ctx, txID)
	if err != nil {
		return "", err
	}
	if tx == nil {
		return "", ErrTransactionNotFound
	}
	tx, err = s.refresh(ctx, tx)
	if err != nil {
		return "", err
	}
	return tx.Status, nil
}

// refresh settles a pending Moolre deposit when the provider has a final
// answer. Provider errors leave the deposit pending.
func (s *StatusService) refresh(ctx context.Context, tx *transaction.Transaction) (*transaction.Transaction, error) {
	if s.moolre == nil || !tx.IsPendingDeposit() ||
		tx.PaymentMethod != transaction.MethodMoolre || !tx.MoolreReference.Valid {
		return tx, nil
	}

	res, err := s.moolre.CheckStatus(ctx, tx.MoolreReference.String)
	if err != nil {
		if !errors.Is(err, moolre.ErrNotConfigured) {
			log.Warn().Err(err).
				Str("transaction_id", tx.ID.String()).
				Msg("Moolre status check failed")
		}
		return tx, nil
	}

	switch res.Status {
	case moolre.StatusSuccess:
		// Short collections stay pending for an admin to settle by hand.
		if res.Amount.LessThan(tx.Amount) {
			log.Warn().
				Str("transaction_id", tx.ID.String()).
				Str("expected", tx.Amount.String()).
				Str("paid", res.Amount.String()).
				Msg("SECURITY: Moolre collection is short of the deposit; not crediting")
			return tx, nil
		}
		credited, err := s.store.ApproveDeposit(ctx, tx.ID, "", string(res.Status))
		if err != nil {
			return nil, err
		}
		if credited {
			log.Info().
				Str("transaction_id", tx.ID.String()).
				Str("amount", tx.Amount.String()).
				Msg("Moolre deposit credited")
			tx.Status = transaction.StatusApproved
			s.notifier.DepositUpdated(ctx, tx.UserID, updateFrom(tx, "Payment confirmed"))
		}
	case moolre.StatusFailed:
		rejected, err := s.store.RejectIfPending(ctx, tx.ID, string(res.Status))
		if err != nil {
			return nil, err
		}
		if rejected {
			log.Info().
				Str("transaction_id", tx.ID.String()).
				Str("message", res.Message).
				Msg("Moolre deposit rejected")
			tx.Status = transaction.StatusRejected
			s.notifier.DepositUpdated(ctx, tx.UserID, updateFrom(tx, "Payment failed"))
		}
	default:
		return tx, nil
	}

	// Another path may have settled it first; report what is stored.
	fresh, err := s.store.GetByID(ctx, tx.ID)
	if err != nil || fresh == nil {
		return tx, err
	}
	return fresh, nil
}
