package profile

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/boostsocial/boost-api/internal/middleware"
	"github.com/boostsocial/boost-api/internal/pkg/response"
)

// Handler serves balance endpoints.
type Handler struct {
	repo       Repository
	reconciler *BalanceReconciler
}

// NewHandler creates profile handler
func NewHandler(repo Repository, reconciler *BalanceReconciler) *Handler {
	return &Handler{repo: repo, reconciler: reconciler}
}

// BalanceResponse is the body of GET /user/balance.
type BalanceResponse struct {
	Balance decimal.Decimal `json:"balance"`
}

// Balance handles GET /user/balance
func (h *Handler) Balance(w http.ResponseWriter, r *http.Request) {
	balance, err := h.repo.GetBalance(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(w, "Profile not found")
			return
		}
		log.Error().Err(err).Msg("Failed to load balance")
		response.InternalError(w)
		return
	}
	response.OK(w, BalanceResponse{Balance: balance})
}

// CheckBalance handles GET /admin/balances/{id}?correct=true
func (h *Handler) CheckBalance(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid user id")
		return
	}

	res, err := h.reconciler.Check(r.Context(), id, r.URL.Query().Get("correct") == "true")
	switch {
	case errors.Is(err, ErrNotFound):
		response.NotFound(w, "Profile not found")
	case errors.Is(err, ErrBalanceChanged):
		response.Conflict(w, "Balance changed while checking; retry")
	case err != nil:
		log.Error().Err(err).Str("user_id", id.String()).Msg("Balance check failed")
		response.InternalError(w)
	default:
		response.OK(w, res)
	}
}

// ReconcileAll handles POST /admin/balances/reconcile?correct=true
func (h *Handler) ReconcileAll(w http.ResponseWriter, r *http.Request) {
	drifted, err := h.reconciler.CheckAll(r.Context(), r.URL.Query().Get("correct") == "true")
	if err != nil {
		log.Error().Err(err).Msg("Balance reconciliation failed")
		response.InternalError(w)
		return
	}
	if drifted == nil {
		drifted = []BalanceCheck{}
	}
	response.OK(w, drifted)
}

// ListUsers handles GET /admin/users
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 && v <= 1000 {
		limit = v
	}

	users, err := h.repo.List(r.Context(), limit)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list users")
		response.InternalError(w)
		return
	}
	if users == nil {
		users = []*Profile{}
	}
	response.OK(w, users)
}

// Routes returns the authenticated user routes.
func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Get("/balance", h.Balance)
	return r
}

// AdminUserRoutes returns the routes mounted under /admin/users.
func (h *Handler) AdminUserRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ListUsers)
	return r
}

// AdminRoutes returns routes mounted under the admin guard.
func (h *Handler) AdminRoutes() chi.Router {
	r := chi.NewRouter()
	r.Post("/reconcile", h.ReconcileAll)
	r.Get("/{id}", h.CheckBalance)
	return r
}
