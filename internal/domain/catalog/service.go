package catalog

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/boostsocial/boost-api/internal/pkg/cache"
	"github.com/boostsocial/boost-api/internal/pkg/smm"
	"github.com/boostsocial/boost-api/internal/pkg/validator"
)

var (
	ErrServiceNotFound = errors.New("service not found")
	ErrInvalidRate     = errors.New("rate must be positive")
	ErrInvalidProvider = errors.New("unknown provider or missing provider service id")
)

const listKeyPrefix = "catalog:services:"

// Service handles catalog business logic
type Service struct {
	repo     Repository
	cache    cache.Cache
	cacheTTL time.Duration
}

// NewService creates catalog service. A nil cache disables caching.
func NewService(repo Repository, c cache.Cache, ttl time.Duration) *Service {
	return &Service{repo: repo, cache: c, cacheTTL: ttl}
}

// List returns active services, optionally for one platform.
func (s *Service) List(ctx context.Context, platform string) ([]*ServiceResponse, error) {
	platform = strings.ToLower(strings.TrimSpace(platform))
	key := listKeyPrefix + platform

	var cached []*ServiceResponse
	if cache.GetJSON(ctx, s.cache, key, &cached) {
		return cached, nil
	}

	rows, err := s.repo.List(ctx, platform)
	if err != nil {
		return nil, err
	}
	out := make([]*ServiceResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, ServiceResponseFromEntity(row))
	}

	if err := cache.SetJSON(ctx, s.cache, key, out, s.cacheTTL); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Failed to cache service list")
	}
	return out, nil
}

// Get returns an active service.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Service, error) {
	svc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if svc == nil || !svc.IsActive {
		return nil, ErrServiceNotFound
	}
	return svc, nil
}

// Create adds a catalog entry and drops cached listings.
func (s *Service) Create(ctx context.Context, req *CreateServiceRequest) (*Service, error) {
	if !req.Rate.IsPositive() {
		return nil, ErrInvalidRate
	}

	svc := &Service{
		Platform:          strings.ToLower(req.Platform),
		ServiceType:       req.ServiceType,
		Name:              req.Name,
		Description:       req.Description,
		Rate:              req.Rate,
		MinQuantity:       req.MinQuantity,
		MaxQuantity:       req.MaxQuantity,
		Provider:          req.Provider,
		ProviderServiceID: req.ProviderServiceID,
		Components:        req.Components,
		IsActive:          true,
	}
	if err := validateRouting(svc); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, svc); err != nil {
		return nil, err
	}
	s.invalidate(ctx, svc.Platform)
	return svc, nil
}

func (s *Service) invalidate(ctx context.Context, platform string) {
	if s.cache == nil {
		return
	}
	for _, key := range []string{listKeyPrefix, listKeyPrefix + platform} {
		if err := s.cache.Delete(ctx, key); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("Failed to invalidate service list")
		}
	}
}

// validateRouting checks that a service can be sent upstream.
func validateRouting(svc *Service) error {
	if svc.IsCombo() {
		for _, p := range svc.Components {
			if !isProvider(p.Provider) || p.ServiceID == "" {
				return ErrInvalidProvider
			}
		}
		return nil
	}
	if svc.Provider == "" {
		svc.Provider = smm.ProviderSMMGen
	}
	if !isProvider(svc.Provider) || svc.ProviderServiceID == "" {
		return ErrInvalidProvider
	}
	return nil
}

func isProvider(p smm.Provider) bool {
	for _, known := range smm.Providers {
		if p == known {
			return true
		}
	}
	return false
}

// Platforms lists the platforms the catalog accepts.
func Platforms() []string {
	return validator.Platforms
}
