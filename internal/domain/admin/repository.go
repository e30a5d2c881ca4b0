package admin

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Repository defines admin data access
type Repository interface {
	GetDashboardStats(ctx context.Context) (*DashboardStats, error)
}

type repository struct {
	db *sqlx.DB
}

// NewRepository creates admin repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetDashboardStats(ctx context.Context) (*DashboardStats, error) {
	stats := &DashboardStats{}

	if err := r.db.GetContext(ctx, &stats.Users, `
		SELECT COUNT(*) AS total,
		       COUNT(*) FILTER (WHERE created_at >= CURRENT_DATE) AS new_today,
		       COUNT(*) FILTER (WHERE created_at >= CURRENT_DATE - INTERVAL '7 days') AS new_this_week
		FROM profiles
	`); err != nil {
		return nil, fmt.Errorf("user stats: %w", err)
	}

	if err := r.db.GetContext(ctx, &stats.Orders, `
		SELECT COUNT(*) AS total,
		       COUNT(*) FILTER (WHERE status IN ('pending', 'in progress', 'processing')) AS open,
		       COUNT(*) FILTER (WHERE status = 'completed') AS completed,
		       COUNT(*) FILTER (WHERE created_at >= CURRENT_DATE) AS today,
		       COALESCE(SUM(charge) FILTER (WHERE status <> 'canceled'), 0) AS revenue
		FROM orders
	`); err != nil {
		return nil, fmt.Errorf("order stats: %w", err)
	}

	if err := r.db.GetContext(ctx, &stats.Deposits, `
		SELECT COUNT(*) FILTER (WHERE status = 'pending') AS pending,
		       COALESCE(SUM(amount) FILTER (WHERE status = 'pending'), 0) AS pending_amount,
		       COALESCE(SUM(amount) FILTER (WHERE status = 'approved' AND updated_at >= CURRENT_DATE
		           AND payment_method <> 'reward'), 0) AS approved_today
		FROM transactions
		WHERE type = 'deposit'
	`); err != nil {
		return nil, fmt.Errorf("deposit stats: %w", err)
	}

	return stats, nil
}
