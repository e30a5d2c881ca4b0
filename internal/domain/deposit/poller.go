package deposit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/boostsocial/boost-api/internal/domain/transaction"
)

// StatusSource reports the current status of a transaction.
type StatusSource interface {
	CheckStatus(ctx context.Context, txID uuid.UUID) (transaction.Status, error)
}

// Rejecter marks a still-pending transaction rejected.
type Rejecter interface {
	RejectIfPending(ctx context.Context, id uuid.UUID, providerStatus string) (bool, error)
}

// PollerConfig bounds one polling run.
type PollerConfig struct {
	Interval    time.Duration
	MaxAttempts int
	MaxDuration time.Duration
}

// DefaultPollerConfig matches the checkout page behaviour.
var DefaultPollerConfig = PollerConfig{
	Interval:    2 * time.Second,
	MaxAttempts: 30,
	MaxDuration: 60 * time.Second,
}

// PollOutcome is how a polling run ended.
type PollOutcome string

const (
	PollApproved PollOutcome = "approved"
	PollRejected PollOutcome = "rejected"
	PollTimedOut PollOutcome = "timed_out"
	PollCanceled PollOutcome = "canceled"
)

const timeoutMessage = "Payment verification timed out. The transaction has been marked as rejected."

// Target identifies the deposit being watched.
type Target struct {
	TransactionID uuid.UUID
	UserID        uuid.UUID
	Amount        decimal.Decimal
}

// PollResult summarises a run.
type PollResult struct {
	Outcome  PollOutcome
	Attempts int
	Balance  *decimal.Decimal
}

// Poller checks a pending deposit on a fixed interval until it settles or
// the attempt/time budget runs out. It never credits; on exhaustion it only
// rejects a transaction that is still pending.
type Poller struct {
	cfg      PollerConfig
	source   StatusSource
	rejecter Rejecter
	balances BalanceVerifier
	notifier Notifier
}

// NewPoller creates a poller. Zero config fields take the defaults.
func NewPoller(cfg PollerConfig, source StatusSource, rejecter Rejecter, balances BalanceVerifier, notifier Notifier) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultPollerConfig.Interval
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultPollerConfig.MaxAttempts
	}
	if cfg.MaxDuration <= 0 {
		cfg.MaxDuration = DefaultPollerConfig.MaxDuration
	}
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &Poller{cfg: cfg, source: source, rejecter: rejecter, balances: balances, notifier: notifier}
}

// Run polls until a terminal status, budget exhaustion or ctx cancellation.
func (p *Poller) Run(ctx context.Context, target Target) PollResult {
	runCtx, cancel := context.WithTimeout(ctx, p.cfg.MaxDuration)
	defer cancel()

	timer := time.NewTimer(p.cfg.Interval)
	defer timer.Stop()

	logger := log.With().Str("transaction_id", target.TransactionID.String()).Logger()
	res := PollResult{}

	for res.Attempts < p.cfg.MaxAttempts {
		select {
		case <-runCtx.Done():
			if ctx.Err() != nil {
				res.Outcome = PollCanceled
				return res
			}
			return p.expire(ctx, target, res)
		case <-timer.C:
		}

		res.Attempts++
		status, err := p.source.CheckStatus(runCtx, target.TransactionID)
		if err != nil {
			if errors.Is(err, ErrTransactionNotFound) {
				logger.Warn().Msg("Polled transaction disappeared")
				res.Outcome = PollRejected
				return res
			}
			logger.Warn().Err(err).Int("attempt", res.Attempts).Msg("Deposit status check failed")
		}

		switch status {
		case transaction.StatusApproved:
			return p.approved(ctx, target, res)
		case transaction.StatusRejected:
			res.Outcome = PollRejected
			p.notifier.DepositUpdated(ctx, target.UserID, Update{
				TransactionID: target.TransactionID,
				Status:        transaction.StatusRejected,
				Amount:        target.Amount,
				Message:       "Payment failed",
			})
			return res
		}

		timer.Reset(p.cfg.Interval)
	}

	return p.expire(ctx, target, res)
}

func (p *Poller) approved(ctx context.Context, target Target, res PollResult) PollResult {
	res.Outcome = PollApproved
	if p.balances != nil {
		if balance, err := p.balances.GetBalance(ctx, target.UserID); err == nil {
			res.Balance = &balance
		}
	}
	p.notifier.DepositUpdated(ctx, target.UserID, Update{
		TransactionID: target.TransactionID,
		Status:        transaction.StatusApproved,
		Amount:        target.Amount,
		Balance:       res.Balance,
		Message:       "Payment confirmed",
	})
	return res
}

// expire rejects the deposit if it is still pending. A concurrent settlement
// wins: the stored status is re-read and reported instead.
func (p *Poller) expire(ctx context.Context, target Target, res PollResult) PollResult {
	rejected, err := p.rejecter.RejectIfPending(ctx, target.TransactionID, "verification_timeout")
	if err != nil {
		log.Error().Err(err).Str("transaction_id", target.TransactionID.String()).Msg("Failed to reject timed out deposit")
	}
	if !rejected {
		if status, err := p.source.CheckStatus(ctx, target.TransactionID); err == nil && status == transaction.StatusApproved {
			return p.approved(ctx, target, res)
		}
	}

	res.Outcome = PollTimedOut
	log.Info().
		Str("transaction_id", target.TransactionID.String()).
		Int("attempts", res.Attempts).
		Bool("rejected", rejected).
		Msg("Deposit polling timed out")

	p.notifier.DepositUpdated(ctx, target.UserID, Update{
		TransactionID: target.TransactionID,
		Status:        transaction.StatusRejected,
		Amount:        target.Amount,
		Message:       timeoutMessage,
	})
	return res
}
