package deposit

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/boostsocial/boost-api/internal/domain/transaction"
	"github.com/boostsocial/boost-api/internal/middleware"
	"github.com/boostsocial/boost-api/internal/pkg/paystack"
	"github.com/boostsocial/boost-api/internal/pkg/response"
	"github.com/boostsocial/boost-api/internal/pkg/validator"
)

// maxWebhookBody bounds the Paystack notification body.
const maxWebhookBody = 1 << 20

// Handler handles deposit HTTP requests
type Handler struct {
	verifier *Verifier
	webhooks *WebhookService
	status   *StatusService
	service  *Service
}

// NewHandler creates deposit handler
func NewHandler(verifier *Verifier, webhooks *WebhookService, status *StatusService, service *Service) *Handler {
	return &Handler{verifier: verifier, webhooks: webhooks, status: status, service: service}
}

type errorBody struct {
	Error string `json:"error"`
}

// PaystackWebhook handles POST /webhooks/paystack
// Paystack retries anything that is not 2xx, so every failure after
// authentication is acknowledged with 200 and an error field.
func (h *Handler) PaystackWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		response.Raw(w, http.StatusMethodNotAllowed, errorBody{Error: "Method not allowed"})
		return
	}
	if !h.verifier.Configured() {
		log.Error().Msg("PAYSTACK_SECRET_KEY is not set; rejecting webhook")
		response.Raw(w, http.StatusInternalServerError, errorBody{Error: "Webhook secret not configured"})
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		response.Raw(w, http.StatusBadRequest, errorBody{Error: "Could not read body"})
		return
	}

	remote := middleware.ClientIP(r)
	trust, err := h.verifier.Authenticate(body, r.Header.Get(paystack.SignatureHeader), remote)
	if err != nil {
		log.Warn().Err(err).Str("remote_addr", remote).Msg("SECURITY: rejected Paystack webhook")
		response.Raw(w, http.StatusUnauthorized, errorBody{Error: "Invalid signature"})
		return
	}

	var ev WebhookEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		response.Raw(w, http.StatusBadRequest, errorBody{Error: "Invalid JSON"})
		return
	}

	if trust == TrustAllowlist {
		if err := h.verifier.Confirm(r.Context(), &ev); err != nil {
			log.Warn().Err(err).
				Str("remote_addr", remote).
				Str("reference", ev.Data.Reference).
				Msg("SECURITY: allowlisted webhook failed provider confirmation")
			response.Raw(w, http.StatusUnauthorized, errorBody{Error: "Invalid signature"})
			return
		}
	}

	res, err := h.webhooks.Process(r.Context(), &ev)
	if err != nil {
		evt := log.Error()
		if errors.Is(err, ErrTransactionNotMatched) {
			evt = log.Warn()
		}
		evt.Err(err).
			Str("event", ev.Event).
			Str("reference", ev.Data.Reference).
			Msg("Paystack webhook not applied")
		response.Raw(w, http.StatusOK, WebhookResponse{Received: true, Error: err.Error()})
		return
	}

	log.Info().
		Str("event", ev.Event).
		Str("reference", ev.Data.Reference).
		Str("outcome", string(res.Outcome)).
		Str("trust", string(trust)).
		Msg("Paystack webhook processed")
	response.Raw(w, http.StatusOK, WebhookResponse{Received: true})
}

// Status handles GET /deposits/status?transactionId=
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	txID, err := uuid.Parse(r.URL.Query().Get("transactionId"))
	if err != nil {
		response.Raw(w, http.StatusBadRequest, errorBody{Error: "transactionId is required"})
		return
	}

	ctx := r.Context()
	resp, err := h.status.Status(ctx, txID, middleware.GetUserID(ctx), middleware.IsAdmin(ctx))
	if err != nil {
		switch {
		case errors.Is(err, ErrTransactionNotFound), errors.Is(err, ErrForbidden):
			response.Raw(w, http.StatusNotFound, errorBody{Error: "Transaction not found"})
		default:
			log.Error().Err(err).Str("transaction_id", txID.String()).Msg("Deposit status check failed")
			response.Raw(w, http.StatusInternalServerError, errorBody{Error: "Internal server error"})
		}
		return
	}
	response.Raw(w, http.StatusOK, resp)
}

// Create handles POST /deposits
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateDepositRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	resp, err := h.service.Create(r.Context(), middleware.GetUserID(r.Context()), &req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.Created(w, resp)
}

// List handles GET /deposits
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.List(r.Context(), middleware.GetUserID(r.Context()), limitParam(r, 50, 200))
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.OK(w, resp)
}

// AdminListPending handles GET /admin/deposits
func (h *Handler) AdminListPending(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.ListPending(r.Context(), limitParam(r, 100, 500))
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.OK(w, resp)
}

// AdminDecide handles PUT /admin/deposits/{id}
func (h *Handler) AdminDecide(w http.ResponseWriter, r *http.Request) {
	txID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid transaction id")
		return
	}

	var req AdminDecisionRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	resp, err := h.service.Decide(r.Context(), txID, middleware.GetUserID(r.Context()), req.Action == "approve")
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.OK(w, resp)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidAmount):
		response.BadRequest(w, err.Error())
	case errors.Is(err, ErrTransactionNotFound), errors.Is(err, ErrForbidden):
		response.NotFound(w, "Transaction not found")
	case errors.Is(err, ErrNotDeposit):
		response.BadRequest(w, err.Error())
	case errors.Is(err, ErrAlreadyProcessed):
		response.Conflict(w, "Transaction already processed")
	case errors.Is(err, transaction.ErrDuplicateRef):
		response.Conflict(w, "Reference already used")
	default:
		log.Error().Err(err).Msg("Deposit request failed")
		response.InternalError(w)
	}
}

func limitParam(r *http.Request, def, max int) int {
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		if v > max {
			return max
		}
		return v
	}
	return def
}
