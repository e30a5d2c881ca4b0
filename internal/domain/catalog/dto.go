package catalog

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/boostsocial/boost-api/internal/pkg/smm"
)

// ServiceResponse is the public view of a catalog entry.
type ServiceResponse struct {
	ID          uuid.UUID       `json:"id"`
	Platform    string          `json:"platform"`
	ServiceType string          `json:"service_type"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Rate        decimal.Decimal `json:"rate"`
	MinQuantity int             `json:"min_quantity"`
	MaxQuantity int             `json:"max_quantity"`
	Combo       bool            `json:"combo,omitempty"`
}

// ServiceResponseFromEntity converts entity to response
func ServiceResponseFromEntity(s *Service) *ServiceResponse {
	return &ServiceResponse{
		ID:          s.ID,
		Platform:    s.Platform,
		ServiceType: s.ServiceType,
		Name:        s.Name,
		Description: s.Description,
		Rate:        s.Rate,
		MinQuantity: s.MinQuantity,
		MaxQuantity: s.MaxQuantity,
		Combo:       s.IsCombo(),
	}
}

// CreateServiceRequest is the admin payload for a new catalog entry.
type CreateServiceRequest struct {
	Platform          string          `json:"platform" validate:"required,platform"`
	ServiceType       string          `json:"service_type" validate:"required,max=50"`
	Name              string          `json:"name" validate:"required,max=200"`
	Description       string          `json:"description" validate:"max=2000"`
	Rate              decimal.Decimal `json:"rate"`
	MinQuantity       int             `json:"min_quantity" validate:"gte=1"`
	MaxQuantity       int             `json:"max_quantity" validate:"gtefield=MinQuantity"`
	Provider          smm.Provider    `json:"provider"`
	ProviderServiceID string          `json:"provider_service_id"`
	Components        []Part          `json:"components"`
}
