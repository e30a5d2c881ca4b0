package catalog

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/boostsocial/boost-api/internal/pkg/smm"
)

// perQuantity is the unit the rate is quoted in.
var perQuantity = decimal.NewFromInt(1000)

// Part is one provider service inside a combo.
type Part struct {
	Provider  smm.Provider `json:"provider"`
	ServiceID string       `json:"service_id"`
}

// Parts is stored as JSONB.
type Parts []Part

// Value implements driver.Valuer
func (p Parts) Value() (driver.Value, error) {
	if len(p) == 0 {
		return nil, nil
	}
	return json.Marshal(p)
}

// Scan implements sql.Scanner
func (p *Parts) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*p = nil
		return nil
	case []byte:
		return json.Unmarshal(v, p)
	case string:
		return json.Unmarshal([]byte(v), p)
	}
	return errors.New("catalog: unsupported components type")
}

// Service is a sellable catalog entry. Rate is the price per 1000 units.
type Service struct {
	ID                uuid.UUID       `db:"id" json:"id"`
	Platform          string          `db:"platform" json:"platform"`
	ServiceType       string          `db:"service_type" json:"service_type"`
	Name              string          `db:"name" json:"name"`
	Description       string          `db:"description" json:"description"`
	Rate              decimal.Decimal `db:"rate" json:"rate"`
	MinQuantity       int             `db:"min_quantity" json:"min_quantity"`
	MaxQuantity       int             `db:"max_quantity" json:"max_quantity"`
	Provider          smm.Provider    `db:"provider" json:"-"`
	ProviderServiceID string          `db:"provider_service_id" json:"-"`
	Components        Parts           `db:"components" json:"-"`
	IsActive          bool            `db:"is_active" json:"is_active"`
	CreatedAt         time.Time       `db:"created_at" json:"created_at"`
}

// IsCombo reports whether the service fans out to several providers.
func (s *Service) IsCombo() bool {
	return len(s.Components) > 0
}

// Price returns the charge for quantity, rounded to cents.
func (s *Service) Price(quantity int) decimal.Decimal {
	return s.Rate.Mul(decimal.NewFromInt(int64(quantity))).Div(perQuantity).Round(2)
}

// AcceptsQuantity reports whether quantity is within the service limits.
func (s *Service) AcceptsQuantity(quantity int) bool {
	return quantity >= s.MinQuantity && quantity <= s.MaxQuantity
}
