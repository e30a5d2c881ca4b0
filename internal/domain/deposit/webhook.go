package deposit

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/boostsocial/boost-api/internal/domain/transaction"
)

// Store is the transaction persistence the deposit flows need.
type Store interface {
	transaction.Lookup
	ApproveDeposit(ctx context.Context, id uuid.UUID, paystackRef, providerStatus string) (bool, error)
	RejectIfPending(ctx context.Context, id uuid.UUID, providerStatus string) (bool, error)
}

// Outcome is what processing a webhook did.
type Outcome string

const (
	OutcomeCredited         Outcome = "credited"
	OutcomeRejected         Outcome = "rejected"
	OutcomeAlreadyProcessed Outcome = "already_processed"
	OutcomeUnmatched        Outcome = "unmatched"
	OutcomeUnderpaid        Outcome = "underpaid"
	OutcomeIgnored          Outcome = "ignored"
)

// WebhookResult describes one processed notification.
type WebhookResult struct {
	Event         string
	Outcome       Outcome
	TransactionID uuid.UUID
	MatchKind     transaction.MatchKind
}

// WebhookService applies Paystack charge events to stored deposits.
type WebhookService struct {
	store    Store
	matcher  *transaction.Matcher
	notifier Notifier
}

// NewWebhookService creates webhook service
func NewWebhookService(store Store, notifier Notifier) *WebhookService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &WebhookService{
		store:    store,
		matcher:  transaction.NewMatcher(store),
		notifier: notifier,
	}
}

// Process handles one authenticated event. Replays of an already settled
// charge are reported as OutcomeAlreadyProcessed with a nil error.
func (s *WebhookService) Process(ctx context.Context, ev *WebhookEvent) (*WebhookResult, error) {
	res := &WebhookResult{Event: ev.Event, Outcome: OutcomeIgnored}
	if ev.Event != EventChargeSuccess && ev.Event != EventChargeFailed {
		log.Info().Str("event", ev.Event).Msg("Ignoring Paystack event")
		return res, nil
	}

	tx, kind, err := s.matcher.Match(ctx, ev.MatchEvent())
	if err != nil {
		return res, fmt.Errorf("match: %w", err)
	}
	if tx == nil {
		res.Outcome = OutcomeUnmatched
		log.Warn().
			Str("event", ev.Event).
			Str("reference", ev.Data.Reference).
			Str("amount", ev.Data.MajorAmount().String()).
			Msg("Paystack event did not match any transaction")
		return res, ErrTransactionNotMatched
	}
	res.TransactionID = tx.ID
	res.MatchKind = kind

	if tx.Type != transaction.TypeDeposit {
		return res, ErrNotDeposit
	}
	if tx.IsTerminal() {
		res.Outcome = OutcomeAlreadyProcessed
		log.Info().
			Str("transaction_id", tx.ID.String()).
			Str("status", string(tx.Status)).
			Msg("Paystack event for settled transaction")
		return res, nil
	}

	switch ev.Event {
	case EventChargeSuccess:
		return s.credit(ctx, tx, ev, res)
	default:
		return s.reject(ctx, tx, ev, res)
	}
}

func (s *WebhookService) credit(ctx context.Context, tx *transaction.Transaction, ev *WebhookEvent, res *WebhookResult) (*WebhookResult, error) {
	// The deposit stays pending for an admin to settle by hand.
	paid := ev.Data.MajorAmount()
	if paid.LessThan(tx.Amount) {
		res.Outcome = OutcomeUnderpaid
		log.Warn().
			Str("transaction_id", tx.ID.String()).
			Str("expected", tx.Amount.String()).
			Str("paid", paid.String()).
			Msg("SECURITY: Paystack charge is short of the deposit; not crediting")
		return res, fmt.Errorf("%w: paid %s of %s", ErrUnderpaid, paid, tx.Amount)
	}
	if paid.GreaterThan(tx.Amount) {
		log.Warn().
			Str("transaction_id", tx.ID.String()).
			Str("expected", tx.Amount.String()).
			Str("paid", paid.String()).
			Msg("Paystack charge exceeds the deposit; crediting the stored amount")
	}

	credited, err := s.store.ApproveDeposit(ctx, tx.ID, ev.Data.Reference, ev.Data.Status)
	if err != nil {
		return res, err
	}
	if !credited {
		res.Outcome = OutcomeAlreadyProcessed
		return res, nil
	}
	res.Outcome = OutcomeCredited

	log.Info().
		Str("transaction_id", tx.ID.String()).
		Str("user_id", tx.UserID.String()).
		Str("amount", tx.Amount.String()).
		Str("match", string(res.MatchKind)).
		Msg("Deposit credited from webhook")

	tx.Status = transaction.StatusApproved
	s.notifier.DepositUpdated(ctx, tx.UserID, updateFrom(tx, "Payment confirmed"))
	return res, nil
}

func (s *WebhookService) reject(ctx context.Context, tx *transaction.Transaction, ev *WebhookEvent, res *WebhookResult) (*WebhookResult, error) {
	status := ev.Data.Status
	if status == "" {
		status = "failed"
	}
	rejected, err := s.store.RejectIfPending(ctx, tx.ID, status)
	if err != nil {
		return res, err
	}
	if !rejected {
		res.Outcome = OutcomeAlreadyProcessed
		return res, nil
	}
	res.Outcome = OutcomeRejected

	log.Info().
		Str("transaction_id", tx.ID.String()).
		Str("gateway_response", ev.Data.GatewayResponse).
		Msg("Deposit rejected from webhook")

	tx.Status = transaction.StatusRejected
	s.notifier.DepositUpdated(ctx, tx.UserID, updateFrom(tx, "Payment failed"))
	return res, nil
}
