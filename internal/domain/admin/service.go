package admin

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/boostsocial/boost-api/internal/pkg/cache"
	"github.com/boostsocial/boost-api/internal/pkg/moolre"
)

const statsKey = "admin:dashboard"

// TransactionLister reads the Moolre account history.
type TransactionLister interface {
	ListTransactions(ctx context.Context) ([]moolre.Transaction, error)
}

// Service handles admin business logic
type Service struct {
	repo     Repository
	moolre   TransactionLister
	cache    cache.Cache
	cacheTTL time.Duration
}

// NewService creates admin service. A nil cache disables caching.
func NewService(repo Repository, lister TransactionLister, c cache.Cache, ttl time.Duration) *Service {
	return &Service{repo: repo, moolre: lister, cache: c, cacheTTL: ttl}
}

// GetDashboardStats returns the overview, served from cache when fresh.
func (s *Service) GetDashboardStats(ctx context.Context) (*DashboardStats, error) {
	var cached DashboardStats
	if cache.GetJSON(ctx, s.cache, statsKey, &cached) {
		return &cached, nil
	}

	stats, err := s.repo.GetDashboardStats(ctx)
	if err != nil {
		return nil, err
	}
	if err := cache.SetJSON(ctx, s.cache, statsKey, stats, s.cacheTTL); err != nil {
		log.Warn().Err(err).Msg("Failed to cache dashboard stats")
	}
	return stats, nil
}

// MoolreTransactions lists recent transactions on the Moolre account.
func (s *Service) MoolreTransactions(ctx context.Context) ([]moolre.Transaction, error) {
	if s.moolre == nil {
		return nil, moolre.ErrNotConfigured
	}
	return s.moolre.ListTransactions(ctx)
}
