package wallet

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/boostsocial/boost-api/internal/domain/transaction"
)

// TxFunc runs inside the ledger DB transaction, after the profile row is
// locked and before the ledger row is written. Returning an error rolls
// everything back.
type TxFunc func(ctx context.Context, tx *sqlx.Tx) error

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) beginTx(ctx context.Context) (*sqlx.Tx, error) {
	return r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
}

func (r *Repository) lockProfile(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := tx.GetContext(ctx, &balance, `SELECT balance FROM profiles WHERE id = $1 FOR UPDATE`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, ErrProfileNotFound
	}
	return balance, err
}

func (r *Repository) updateBalance(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, balance decimal.Decimal) error {
	_, err := tx.ExecContext(ctx, `UPDATE profiles SET balance = $1, updated_at = NOW() WHERE id = $2`, balance, userID)
	return err
}

// Apply locks the profile, checks funds for debits, runs within, records the
// entry as an approved transaction and moves the balance, all in one DB
// transaction.
func (r *Repository) Apply(ctx context.Context, e Entry, within TxFunc) (*transaction.Transaction, decimal.Decimal, error) {
	tx, err := r.beginTx(ctx)
	if err != nil {
		return nil, decimal.Zero, err
	}
	defer tx.Rollback()

	balance, err := r.lockProfile(ctx, tx, e.UserID)
	if err != nil {
		return nil, decimal.Zero, err
	}

	next := balance.Add(e.Signed())
	if next.IsNegative() {
		return nil, balance, ErrInsufficientFunds
	}

	if within != nil {
		if err := within(ctx, tx); err != nil {
			return nil, balance, err
		}
	}

	row := &transaction.Transaction{
		ID:            e.ID,
		UserID:        e.UserID,
		Type:          e.Type,
		Amount:        e.Amount,
		Status:        transaction.StatusApproved,
		PaymentMethod: e.Method,
		OrderID:       e.OrderID,
		CreatedAt:     time.Now(),
	}
	if err := transaction.Insert(ctx, tx, row); err != nil {
		return nil, balance, err
	}

	if err := r.updateBalance(ctx, tx, e.UserID, next); err != nil {
		return nil, balance, err
	}

	if err := tx.Commit(); err != nil {
		return nil, balance, err
	}
	return row, next, nil
}
