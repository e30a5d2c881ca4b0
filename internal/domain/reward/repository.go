package reward

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

// Repository defines reward data access
type Repository interface {
	ListTiers(ctx context.Context, activeOnly bool) ([]*Tier, error)
	GetTier(ctx context.Context, id uuid.UUID) (*Tier, error)
	CreateTier(ctx context.Context, t *Tier) error
	UpdateTier(ctx context.Context, t *Tier) error
	DeactivateTier(ctx context.Context, id uuid.UUID) error

	// DepositedOn sums the approved customer deposits of day, excluding
	// reward payouts.
	DepositedOn(ctx context.Context, userID uuid.UUID, day time.Time) (decimal.Decimal, error)
	ClaimedTiers(ctx context.Context, userID uuid.UUID, day time.Time) (map[uuid.UUID]bool, error)
}

type repository struct {
	db *sqlx.DB
}

// NewRepository creates reward repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

// InsertClaim writes c with any executor so it commits together with the
// payout. A second claim for the same day returns ErrAlreadyClaimed.
func InsertClaim(ctx context.Context, ext sqlx.ExtContext, c *Claim) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	_, err := sqlx.NamedExecContext(ctx, ext, `
		INSERT INTO daily_reward_claims (id, user_id, tier_id, claim_date, amount, transaction_id)
		VALUES (:id, :user_id, :tier_id, :claim_date, :amount, :transaction_id)
	`, c)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrAlreadyClaimed
		}
		return fmt.Errorf("insert reward claim: %w", err)
	}
	return nil
}

func (r *repository) ListTiers(ctx context.Context, activeOnly bool) ([]*Tier, error) {
	var out []*Tier
	err := r.db.SelectContext(ctx, &out, `
		SELECT * FROM reward_tiers
		WHERE ($1 = FALSE OR is_active)
		ORDER BY required_daily_deposit
	`, activeOnly)
	return out, err
}

func (r *repository) GetTier(ctx context.Context, id uuid.UUID) (*Tier, error) {
	var t Tier
	err := r.db.GetContext(ctx, &t, `SELECT * FROM reward_tiers WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTierNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *repository) CreateTier(ctx context.Context, t *Tier) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO reward_tiers (id, name, required_daily_deposit, reward_amount, is_active, created_at, updated_at)
		VALUES (:id, :name, :required_daily_deposit, :reward_amount, :is_active, :created_at, :updated_at)
	`, t)
	return err
}

func (r *repository) UpdateTier(ctx context.Context, t *Tier) error {
	result, err := r.db.NamedExecContext(ctx, `
		UPDATE reward_tiers
		SET name = :name,
		    required_daily_deposit = :required_daily_deposit,
		    reward_amount = :reward_amount,
		    is_active = :is_active,
		    updated_at = NOW()
		WHERE id = :id
	`, t)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrTierNotFound
	}
	return nil
}

func (r *repository) DeactivateTier(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE reward_tiers SET is_active = FALSE, updated_at = NOW() WHERE id = $1
	`, id)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrTierNotFound
	}
	return nil
}

func (r *repository) DepositedOn(ctx context.Context, userID uuid.UUID, day time.Time) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.db.GetContext(ctx, &total, `
		SELECT COALESCE(SUM(amount), 0) FROM transactions
		WHERE user_id = $1
		  AND type = 'deposit'
		  AND status = 'approved'
		  AND payment_method <> 'reward'
		  AND created_at >= $2 AND created_at < $3
	`, userID, day, day.AddDate(0, 0, 1))
	return total, err
}

func (r *repository) ClaimedTiers(ctx context.Context, userID uuid.UUID, day time.Time) (map[uuid.UUID]bool, error) {
	var ids []uuid.UUID
	err := r.db.SelectContext(ctx, &ids, `
		SELECT tier_id FROM daily_reward_claims WHERE user_id = $1 AND claim_date = $2
	`, userID, day)
	if err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}
