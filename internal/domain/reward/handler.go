package reward

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/boostsocial/boost-api/internal/middleware"
	"github.com/boostsocial/boost-api/internal/pkg/response"
	"github.com/boostsocial/boost-api/internal/pkg/validator"
)

// Handler handles reward HTTP requests
type Handler struct {
	service *Service
}

// NewHandler creates reward handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Overview handles GET /rewards
func (h *Handler) Overview(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.Overview(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.OK(w, out)
}

// Claim handles POST /rewards/{id}/claim
func (h *Handler) Claim(w http.ResponseWriter, r *http.Request) {
	tierID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid tier id")
		return
	}
	out, err := h.service.Claim(r.Context(), middleware.GetUserID(r.Context()), tierID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.Created(w, out)
}

// AdminList handles GET /admin/rewards
func (h *Handler) AdminList(w http.ResponseWriter, r *http.Request) {
	tiers, err := h.service.ListTiers(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	if tiers == nil {
		tiers = []*Tier{}
	}
	response.OK(w, tiers)
}

// AdminCreate handles POST /admin/rewards
func (h *Handler) AdminCreate(w http.ResponseWriter, r *http.Request) {
	var req TierRequest
	if !decodeTier(w, r, &req) {
		return
	}
	t, err := h.service.CreateTier(r.Context(), &req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.Created(w, t)
}

// AdminUpdate handles PUT /admin/rewards/{id}
func (h *Handler) AdminUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid tier id")
		return
	}
	var req TierRequest
	if !decodeTier(w, r, &req) {
		return
	}
	t, err := h.service.UpdateTier(r.Context(), id, &req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.OK(w, t)
}

// AdminDelete handles DELETE /admin/rewards/{id}
func (h *Handler) AdminDelete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid tier id")
		return
	}
	if err := h.service.DeleteTier(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	response.NoContent(w)
}

func decodeTier(w http.ResponseWriter, r *http.Request, req *TierRequest) bool {
	if err := response.DecodeJSON(r.Body, req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return false
	}
	if errs := validator.Validate(req); errs != nil {
		response.ValidationError(w, errs)
		return false
	}
	return true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrTierNotFound):
		response.NotFound(w, "Reward tier not found")
	case errors.Is(err, ErrAlreadyClaimed):
		response.Conflict(w, err.Error())
	case errors.Is(err, ErrThresholdNotMet), errors.Is(err, ErrInvalidTierAmount):
		response.BadRequest(w, err.Error())
	default:
		log.Error().Err(err).Msg("Reward request failed")
		response.InternalError(w)
	}
}

// Routes returns the authenticated user routes.
func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Get("/", h.Overview)
	r.Post("/{id}/claim", h.Claim)
	return r
}

// AdminRoutes returns routes mounted under the admin guard.
func (h *Handler) AdminRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.AdminList)
	r.Post("/", h.AdminCreate)
	r.Put("/{id}", h.AdminUpdate)
	r.Delete("/{id}", h.AdminDelete)
	return r
}
