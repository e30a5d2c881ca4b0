package admin

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/boostsocial/boost-api/internal/pkg/moolre"
	"github.com/boostsocial/boost-api/internal/pkg/response"
	"github.com/boostsocial/boost-api/internal/pkg/upstream"
)

// Handler handles admin HTTP requests
type Handler struct {
	service *Service
}

// NewHandler creates admin handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Dashboard handles GET /admin/stats
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.GetDashboardStats(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to load dashboard stats")
		response.InternalError(w)
		return
	}
	response.OK(w, stats)
}

// MoolreTransactions handles GET /admin/moolre/transactions
func (h *Handler) MoolreTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := h.service.MoolreTransactions(r.Context())
	if err != nil {
		switch {
		case errors.Is(err, moolre.ErrNotConfigured):
			response.ConfigError(w, "Moolre is not configured")
		case errors.Is(err, upstream.ErrTimeout):
			response.GatewayTimeout(w, "Moolre did not answer in time")
		default:
			log.Error().Err(err).Msg("Failed to list moolre transactions")
			response.BadGateway(w, "Could not load Moolre transactions")
		}
		return
	}
	if txs == nil {
		txs = []moolre.Transaction{}
	}
	response.OK(w, txs)
}

// Mount pairs an admin sub-path with the router serving it.
type Mount struct {
	Path   string
	Router http.Handler
}

// Routes returns the admin router. guard runs before every route.
func (h *Handler) Routes(guard func(http.Handler) http.Handler, mounts ...Mount) chi.Router {
	r := chi.NewRouter()
	r.Use(guard)

	r.Get("/stats", h.Dashboard)
	r.Get("/moolre/transactions", h.MoolreTransactions)
	for _, m := range mounts {
		r.Mount(m.Path, m.Router)
	}

	return r
}
