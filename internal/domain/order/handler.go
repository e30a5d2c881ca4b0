package order

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/boostsocial/boost-api/internal/domain/catalog"
	"github.com/boostsocial/boost-api/internal/domain/wallet"
	"github.com/boostsocial/boost-api/internal/middleware"
	"github.com/boostsocial/boost-api/internal/pkg/response"
	"github.com/boostsocial/boost-api/internal/pkg/smm"
	"github.com/boostsocial/boost-api/internal/pkg/validator"
)

// Handler handles order HTTP requests
type Handler struct {
	service *Service
}

// NewHandler creates order handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Create handles POST /orders
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	ctx := r.Context()
	o, err := h.service.Place(ctx, middleware.GetUserID(ctx), &req)
	if err != nil {
		switch {
		case errors.Is(err, catalog.ErrServiceNotFound):
			response.NotFound(w, "Service not found")
		case errors.Is(err, ErrInvalidQuantity):
			response.BadRequest(w, err.Error())
		case errors.Is(err, wallet.ErrInsufficientFunds):
			response.PaymentRequired(w, "Insufficient balance")
		case errors.Is(err, smm.ErrProviderRejected):
			response.BadGateway(w, "Provider rejected the order; the charge was refunded")
		default:
			log.Error().Err(err).Msg("Failed to place order")
			response.InternalError(w)
		}
		return
	}
	response.Created(w, OrderResponseFromEntity(o))
}

// List handles GET /orders
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orders, err := h.service.List(ctx, middleware.GetUserID(ctx), limitParam(r, 50, 200))
	if err != nil {
		log.Error().Err(err).Msg("Failed to list orders")
		response.InternalError(w)
		return
	}
	response.OK(w, toResponses(orders))
}

// Get handles GET /orders/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid order id")
		return
	}

	ctx := r.Context()
	o, err := h.service.Get(ctx, id, middleware.GetUserID(ctx))
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			response.NotFound(w, "Order not found")
			return
		}
		log.Error().Err(err).Str("order_id", id.String()).Msg("Failed to get order")
		response.InternalError(w)
		return
	}
	response.OK(w, OrderResponseFromEntity(o))
}

// AdminList handles GET /admin/orders
func (h *Handler) AdminList(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.ListAll(r.Context(), limitParam(r, 100, 1000))
	if err != nil {
		log.Error().Err(err).Msg("Failed to list all orders")
		response.InternalError(w)
		return
	}
	response.OK(w, toResponses(orders))
}

// AdminSetStatus handles PUT /admin/orders/{id}/status
func (h *Handler) AdminSetStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid order id")
		return
	}

	var req SetStatusRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	o, err := h.service.SetStatus(r.Context(), id, req.Status)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidStatus):
			response.BadRequest(w, "Invalid status")
		case errors.Is(err, ErrOrderNotFound):
			response.NotFound(w, "Order not found")
		case errors.Is(err, ErrStatusChanged):
			response.Conflict(w, "Order status changed, reload and retry")
		default:
			log.Error().Err(err).Str("order_id", id.String()).Msg("Failed to set order status")
			response.InternalError(w)
		}
		return
	}
	response.OK(w, OrderResponseFromEntity(o))
}

func toResponses(orders []*Order) []*OrderResponse {
	out := make([]*OrderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, OrderResponseFromEntity(o))
	}
	return out
}

func limitParam(r *http.Request, def, max int) int {
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 && v <= max {
		return v
	}
	return def
}

// CheckStatus handles POST /orders/check-status
func (h *Handler) CheckStatus(w http.ResponseWriter, r *http.Request) {
	var req CheckStatusRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	ctx := r.Context()
	res, err := h.service.CheckStatus(ctx, req.OrderIDs, middleware.GetUserID(ctx), middleware.IsAdmin(ctx))
	if err != nil {
		switch {
		case errors.Is(err, ErrTooManyOrders):
			response.BadRequest(w, err.Error())
		case res != nil:
			// partial results are still worth returning
			log.Warn().Err(err).Msg("Order status check finished with error")
			writeCheckResult(w, res)
		default:
			log.Error().Err(err).Msg("Order status check failed")
			response.InternalError(w)
		}
		return
	}
	writeCheckResult(w, res)
}

func writeCheckResult(w http.ResponseWriter, res *Result) {
	if res.AllTimedOut() {
		response.GatewayTimeout(w, "Providers did not answer in time")
		return
	}
	response.OK(w, CheckStatusResponse{Checked: res.Checked, Updated: res.Updated, Details: res.Details})
}

// Routes returns the authenticated order routes.
func (h *Handler) Routes(authMiddleware, resolveRole func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)

	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.With(resolveRole).Post("/check-status", h.CheckStatus)
	r.Get("/{id}", h.Get)

	return r
}

// AdminRoutes returns the order routes mounted under /admin/orders. The
// caller applies the admin guard.
func (h *Handler) AdminRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.AdminList)
	r.Put("/{id}/status", h.AdminSetStatus)
	return r
}
