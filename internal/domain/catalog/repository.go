package catalog

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Repository defines catalog data access
type Repository interface {
	Create(ctx context.Context, s *Service) error
	GetByID(ctx context.Context, id uuid.UUID) (*Service, error)
	List(ctx context.Context, platform string) ([]*Service, error)
}

type repository struct {
	db *sqlx.DB
}

// NewRepository creates catalog repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, s *Service) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
	}
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO services (id, platform, service_type, name, description, rate, min_quantity,
			max_quantity, provider, provider_service_id, components, is_active, created_at)
		VALUES (:id, :platform, :service_type, :name, :description, :rate, :min_quantity,
			:max_quantity, :provider, :provider_service_id, :components, :is_active, :created_at)
	`, s)
	return err
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Service, error) {
	var s Service
	err := r.db.GetContext(ctx, &s, `SELECT * FROM services WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

func (r *repository) List(ctx context.Context, platform string) ([]*Service, error) {
	var out []*Service
	err := r.db.SelectContext(ctx, &out, `
		SELECT * FROM services
		WHERE is_active AND ($1 = '' OR platform = $1)
		ORDER BY platform, service_type, rate
	`, platform)
	return out, err
}
