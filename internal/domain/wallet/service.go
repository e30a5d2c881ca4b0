package wallet

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/boostsocial/boost-api/internal/domain/transaction"
)

// Ledger applies balance movements.
type Ledger interface {
	Apply(ctx context.Context, e Entry, within TxFunc) (*transaction.Transaction, decimal.Decimal, error)
}

type Service struct {
	repo Ledger
}

func NewService(repo Ledger) *Service {
	return &Service{repo: repo}
}

// Debit charges the balance for an order. It fails with ErrInsufficientFunds
// when the balance does not cover the amount.
func (s *Service) Debit(ctx context.Context, e Entry, within TxFunc) (*transaction.Transaction, error) {
	e.Type = transaction.TypeOrder
	return s.apply(ctx, e, within)
}

// Refund returns an amount to the balance as a refund transaction.
func (s *Service) Refund(ctx context.Context, e Entry, within TxFunc) (*transaction.Transaction, error) {
	e.Type = transaction.TypeRefund
	return s.apply(ctx, e, within)
}

// Credit adds an approved deposit that needs no provider confirmation, such
// as a reward payout.
func (s *Service) Credit(ctx context.Context, e Entry, within TxFunc) (*transaction.Transaction, error) {
	e.Type = transaction.TypeDeposit
	return s.apply(ctx, e, within)
}

func (s *Service) apply(ctx context.Context, e Entry, within TxFunc) (*transaction.Transaction, error) {
	if !e.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	row, balance, err := s.repo.Apply(ctx, e, within)
	if err != nil {
		return nil, err
	}
	log.Info().
		Str("user_id", e.UserID.String()).
		Str("type", string(e.Type)).
		Str("amount", e.Amount.String()).
		Str("balance", balance.String()).
		Str("transaction_id", row.ID.String()).
		Msg("Ledger entry applied")
	return row, nil
}
