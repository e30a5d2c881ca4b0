package catalog

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/boostsocial/boost-api/internal/pkg/response"
	"github.com/boostsocial/boost-api/internal/pkg/validator"
)

// Handler handles catalog HTTP requests
type Handler struct {
	service *Service
}

// NewHandler creates catalog handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// List handles GET /services?platform=
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	services, err := h.service.List(r.Context(), r.URL.Query().Get("platform"))
	if err != nil {
		log.Error().Err(err).Msg("Failed to list services")
		response.InternalError(w)
		return
	}
	response.OK(w, services)
}

// ListPlatforms handles GET /services/platforms
func (h *Handler) ListPlatforms(w http.ResponseWriter, r *http.Request) {
	response.OK(w, Platforms())
}

// Create handles POST /admin/services
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateServiceRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	svc, err := h.service.Create(r.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidRate), errors.Is(err, ErrInvalidProvider):
			response.BadRequest(w, err.Error())
		default:
			log.Error().Err(err).Msg("Failed to create service")
			response.InternalError(w)
		}
		return
	}
	response.Created(w, ServiceResponseFromEntity(svc))
}

// Routes returns the public catalog routes.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Get("/platforms", h.ListPlatforms)
	return r
}
