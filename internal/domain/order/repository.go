package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/boostsocial/boost-api/internal/pkg/smm"
)

// Repository defines order data access
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Order, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*Order, error)
	ListAll(ctx context.Context, limit int) ([]*Order, error)
	// ListOpen returns orders still being fulfilled that were not checked
	// since checkedBefore, oldest check first.
	ListOpen(ctx context.Context, checkedBefore time.Time, limit int) ([]*Order, error)
	Count(ctx context.Context) (int, error)

	SaveUpstream(ctx context.Context, o *Order) error
	// UpdateStatus moves an order from old to next. It returns false when the
	// stored status is no longer old.
	UpdateStatus(ctx context.Context, id uuid.UUID, old, next smm.Status) (bool, error)
	UpdateComponents(ctx context.Context, id uuid.UUID, c Components) error
	TouchChecked(ctx context.Context, ids []uuid.UUID, at time.Time) error
}

type repository struct {
	db *sqlx.DB
}

// NewRepository creates order repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

// Insert writes o using any executor so placement can run inside the wallet
// transaction.
func Insert(ctx context.Context, ext sqlx.ExtContext, o *Order) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	now := time.Now()
	if o.CreatedAt.IsZero() {
		o.CreatedAt = now
	}
	o.UpdatedAt = o.CreatedAt

	_, err := sqlx.NamedExecContext(ctx, ext, `
		INSERT INTO orders (id, user_id, service_id, promotion_package_id, link, quantity, charge, status,
			smmgen_order_id, smmcost_order_id, jbsmmpanel_order_id, component_provider_order_ids,
			created_at, updated_at)
		VALUES (:id, :user_id, :service_id, :promotion_package_id, :link, :quantity, :charge, :status,
			:smmgen_order_id, :smmcost_order_id, :jbsmmpanel_order_id, :component_provider_order_ids,
			:created_at, :updated_at)
	`, o)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	var o Order
	err := r.db.GetContext(ctx, &o, `SELECT * FROM orders WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &o, nil
}

func (r *repository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*Order, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var out []*Order
	err := r.db.SelectContext(ctx, &out, `SELECT * FROM orders WHERE id = ANY($1::uuid[])`, pq.Array(uuidStrings(ids)))
	return out, err
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*Order, error) {
	if limit <= 0 {
		limit = 50
	}
	var out []*Order
	err := r.db.SelectContext(ctx, &out, `
		SELECT * FROM orders WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	return out, err
}

func (r *repository) ListAll(ctx context.Context, limit int) ([]*Order, error) {
	if limit <= 0 {
		limit = 100
	}
	var out []*Order
	err := r.db.SelectContext(ctx, &out, `
		SELECT * FROM orders
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	return out, err
}

func (r *repository) ListOpen(ctx context.Context, checkedBefore time.Time, limit int) ([]*Order, error) {
	if limit <= 0 {
		limit = 200
	}
	var out []*Order
	err := r.db.SelectContext(ctx, &out, `
		SELECT * FROM orders
		WHERE status IN ('pending', 'in progress', 'processing')
		  AND (last_status_check IS NULL OR last_status_check < $1)
		ORDER BY last_status_check ASC NULLS FIRST
		LIMIT $2
	`, checkedBefore, limit)
	return out, err
}

func (r *repository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM orders`)
	return n, err
}

func (r *repository) SaveUpstream(ctx context.Context, o *Order) error {
	_, err := r.db.NamedExecContext(ctx, `
		UPDATE orders
		SET smmgen_order_id = :smmgen_order_id,
		    smmcost_order_id = :smmcost_order_id,
		    jbsmmpanel_order_id = :jbsmmpanel_order_id,
		    component_provider_order_ids = :component_provider_order_ids,
		    status = :status,
		    updated_at = NOW()
		WHERE id = :id
	`, o)
	return err
}

func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, old, next smm.Status) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE orders SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
	`, id, string(old), string(next))
	if err != nil {
		return false, fmt.Errorf("update order status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

func (r *repository) UpdateComponents(ctx context.Context, id uuid.UUID, c Components) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE orders SET component_provider_order_ids = $2 WHERE id = $1
	`, id, c)
	return err
}

func (r *repository) TouchChecked(ctx context.Context, ids []uuid.UUID, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.db.ExecContext(ctx, `
		UPDATE orders SET last_status_check = $2 WHERE id = ANY($1::uuid[])
	`, pq.Array(uuidStrings(ids)), at)
	return err
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
