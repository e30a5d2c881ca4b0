package profile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// Repository defines profile data access
type Repository interface {
	Create(ctx context.Context, p *Profile) error
	GetByID(ctx context.Context, id uuid.UUID) (*Profile, error)
	GetByEmail(ctx context.Context, email string) (*Profile, error)
	GetRole(ctx context.Context, id uuid.UUID) (Role, error)
	GetBalance(ctx context.Context, id uuid.UUID) (decimal.Decimal, error)
	ListIDs(ctx context.Context) ([]uuid.UUID, error)
	// List returns profiles newest first. Password hashes are never loaded.
	List(ctx context.Context, limit int) ([]*Profile, error)
	Count(ctx context.Context) (int, error)

	// Ledger sums the approved transactions of a profile.
	Ledger(ctx context.Context, id uuid.UUID) (Ledger, error)
	// SetBalanceIfUnchanged writes next only if the stored balance still
	// equals prev.
	SetBalanceIfUnchanged(ctx context.Context, id uuid.UUID, prev, next decimal.Decimal) (bool, error)
}

type repository struct {
	db *sqlx.DB
}

// NewRepository creates profile repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, p *Profile) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO profiles (id, email, name, password_hash, balance, role, created_at, updated_at)
		VALUES (:id, :email, :name, :password_hash, :balance, :role, :created_at, :updated_at)
	`, p)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrEmailAlreadyExists
		}
		return fmt.Errorf("create profile: %w", err)
	}
	return nil
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Profile, error) {
	var p Profile
	err := r.db.GetContext(ctx, &p, `SELECT * FROM profiles WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *repository) GetByEmail(ctx context.Context, email string) (*Profile, error) {
	var p Profile
	err := r.db.GetContext(ctx, &p, `SELECT * FROM profiles WHERE email = $1`, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *repository) GetRole(ctx context.Context, id uuid.UUID) (Role, error) {
	var role Role
	err := r.db.GetContext(ctx, &role, `SELECT role FROM profiles WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return role, err
}

func (r *repository) GetBalance(ctx context.Context, id uuid.UUID) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := r.db.GetContext(ctx, &balance, `SELECT balance FROM profiles WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, ErrNotFound
	}
	return balance, err
}

func (r *repository) ListIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.SelectContext(ctx, &ids, `SELECT id FROM profiles ORDER BY created_at`)
	return ids, err
}

func (r *repository) List(ctx context.Context, limit int) ([]*Profile, error) {
	if limit <= 0 {
		limit = 100
	}
	var out []*Profile
	err := r.db.SelectContext(ctx, &out, `
		SELECT id, email, name, balance, role, created_at, updated_at
		FROM profiles
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	return out, err
}

func (r *repository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM profiles`)
	return n, err
}

func (r *repository) Ledger(ctx context.Context, id uuid.UUID) (Ledger, error) {
	var l Ledger
	err := r.db.GetContext(ctx, &l, `
		SELECT
			COALESCE(SUM(amount) FILTER (WHERE type = 'deposit'), 0) AS deposits,
			COALESCE(SUM(amount) FILTER (WHERE type = 'refund'), 0)  AS refunds,
			COALESCE(SUM(amount) FILTER (WHERE type = 'order'), 0)   AS orders
		FROM transactions
		WHERE user_id = $1 AND status = 'approved'
	`, id)
	return l, err
}

func (r *repository) SetBalanceIfUnchanged(ctx context.Context, id uuid.UUID, prev, next decimal.Decimal) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE profiles SET balance = $3, updated_at = NOW()
		WHERE id = $1 AND balance = $2
	`, id, prev, next)
	if err != nil {
		return false, fmt.Errorf("set balance: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}
