package transaction

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// Repository defines transaction data access. Status changes only go through
// ApproveDeposit and RejectIfPending, both guarded on status = 'pending'.
type Repository interface {
	Create(ctx context.Context, t *Transaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*Transaction, error)
	GetByPaystackReference(ctx context.Context, reference string) (*Transaction, error)
	GetByMoolreReference(ctx context.Context, reference string) (*Transaction, error)
	FindPendingDeposit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (*Transaction, error)
	ListByUser(ctx context.Context, userID uuid.UUID, txType Type, limit int) ([]*Transaction, error)
	ListPendingDeposits(ctx context.Context, createdBefore time.Time, limit int) ([]*Transaction, error)

	// ApproveDeposit flips a pending deposit to approved and credits the
	// owner's balance in one statement. It returns false when the row was not
	// pending, which callers treat as already processed.
	ApproveDeposit(ctx context.Context, id uuid.UUID, paystackRef, providerStatus string) (bool, error)
	// RejectIfPending marks a pending transaction rejected. It returns false
	// when the row was not pending.
	RejectIfPending(ctx context.Context, id uuid.UUID, providerStatus string) (bool, error)
}

type repository struct {
	db *sqlx.DB
}

// NewRepository creates transaction repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

const selectColumns = `
	SELECT id, user_id, type, amount, status, payment_method, paystack_reference,
	       moolre_reference, provider_status, order_id, created_at, updated_at
	FROM transactions`

// Insert writes t using any sqlx executor, so callers can create ledger rows
// inside their own DB transaction.
func Insert(ctx context.Context, ext sqlx.ExtContext, t *Transaction) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	now := time.Now()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = t.CreatedAt

	_, err := sqlx.NamedExecContext(ctx, ext, `
		INSERT INTO transactions (id, user_id, type, amount, status, payment_method,
			paystack_reference, moolre_reference, provider_status, order_id, created_at, updated_at)
		VALUES (:id, :user_id, :type, :amount, :status, :payment_method,
			:paystack_reference, :moolre_reference, :provider_status, :order_id, :created_at, :updated_at)
	`, t)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateRef
		}
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

func (r *repository) Create(ctx context.Context, t *Transaction) error {
	return Insert(ctx, r.db, t)
}

func (r *repository) getOne(ctx context.Context, where string, arg interface{}) (*Transaction, error) {
	var t Transaction
	err := r.db.GetContext(ctx, &t, selectColumns+" WHERE "+where+" LIMIT 1", arg)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Transaction, error) {
	return r.getOne(ctx, "id = $1", id)
}

func (r *repository) GetByPaystackReference(ctx context.Context, reference string) (*Transaction, error) {
	return r.getOne(ctx, "paystack_reference = $1", reference)
}

func (r *repository) GetByMoolreReference(ctx context.Context, reference string) (*Transaction, error) {
	return r.getOne(ctx, "moolre_reference = $1", reference)
}

func (r *repository) FindPendingDeposit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (*Transaction, error) {
	var t Transaction
	err := r.db.GetContext(ctx, &t, selectColumns+`
		WHERE user_id = $1 AND type = 'deposit' AND status = 'pending' AND amount = $2
		  AND payment_method = 'paystack'
		ORDER BY created_at DESC
		LIMIT 1
	`, userID, amount)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID, txType Type, limit int) ([]*Transaction, error) {
	if limit <= 0 {
		limit = 50
	}
	var out []*Transaction
	err := r.db.SelectContext(ctx, &out, selectColumns+`
		WHERE user_id = $1 AND ($2 = '' OR type = $2)
		ORDER BY created_at DESC
		LIMIT $3
	`, userID, string(txType), limit)
	return out, err
}

func (r *repository) ListPendingDeposits(ctx context.Context, createdBefore time.Time, limit int) ([]*Transaction, error) {
	if limit <= 0 {
		limit = 100
	}
	var out []*Transaction
	err := r.db.SelectContext(ctx, &out, selectColumns+`
		WHERE type = 'deposit' AND status = 'pending' AND created_at < $1
		ORDER BY created_at ASC
		LIMIT $2
	`, createdBefore, limit)
	return out, err
}

func (r *repository) ApproveDeposit(ctx context.Context, id uuid.UUID, paystackRef, providerStatus string) (bool, error) {
	var credited bool
	err := r.db.GetContext(ctx, &credited,
		`SELECT approve_deposit_transaction_universal($1, $2, $3)`,
		id, nullString(paystackRef), nullString(providerStatus))
	if err != nil {
		return false, fmt.Errorf("approve deposit %s: %w", id, err)
	}
	return credited, nil
}

func (r *repository) RejectIfPending(ctx context.Context, id uuid.UUID, providerStatus string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE transactions
		SET status = 'rejected',
		    provider_status = COALESCE($2, provider_status),
		    updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
	`, id, nullString(providerStatus))
	if err != nil {
		return false, fmt.Errorf("reject transaction %s: %w", id, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows > 0, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
