package deposit

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/boostsocial/boost-api/internal/domain/transaction"
)

// Paystack event names handled by the webhook.
const (
	EventChargeSuccess = "charge.success"
	EventChargeFailed  = "charge.failed"
)

// WebhookEvent is the Paystack notification body.
type WebhookEvent struct {
	Event string      `json:"event"`
	Data  WebhookData `json:"data"`
}

// WebhookData is the charge object inside a notification.
type WebhookData struct {
	ID              int64           `json:"id"`
	Reference       string          `json:"reference"`
	Amount          int64           `json:"amount"` // minor units
	Currency        string          `json:"currency"`
	Status          string          `json:"status"`
	GatewayResponse string          `json:"gateway_response"`
	Metadata        json.RawMessage `json:"metadata"`
}

// WebhookMetadata is what our checkout attaches to a charge.
type WebhookMetadata struct {
	TransactionID string
	UserID        string
}

// MajorAmount converts the minor-unit amount (pesewas, kobo) to cedis.
func (d WebhookData) MajorAmount() decimal.Decimal {
	return decimal.New(d.Amount, -2)
}

// Meta decodes metadata leniently. Paystack sends "" or a JSON string when a
// charge carries no object, and ids may arrive as numbers.
func (d WebhookData) Meta() WebhookMetadata {
	raw := bytes.TrimSpace(d.Metadata)
	if len(raw) == 0 || raw[0] == '"' {
		var s string
		if json.Unmarshal(raw, &s) != nil || s == "" {
			return WebhookMetadata{}
		}
		raw = []byte(s)
	}

	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return WebhookMetadata{}
	}
	return WebhookMetadata{
		TransactionID: stringField(m, "transaction_id"),
		UserID:        stringField(m, "user_id"),
	}
}

func stringField(m map[string]interface{}, key string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

// MatchEvent builds the matcher input from the notification.
func (e *WebhookEvent) MatchEvent() transaction.Event {
	meta := e.Data.Meta()
	return transaction.Event{
		Reference:     e.Data.Reference,
		TransactionID: meta.TransactionID,
		UserID:        meta.UserID,
		Amount:        e.Data.MajorAmount(),
	}
}

// WebhookResponse is the fixed acknowledgement shape Paystack receives.
type WebhookResponse struct {
	Received bool   `json:"received"`
	Error    string `json:"error,omitempty"`
}

// StatusResponse is returned by the deposit status check.
type StatusResponse struct {
	Status        transaction.Status `json:"status"`
	Amount        decimal.Decimal    `json:"amount"`
	Balance       *decimal.Decimal   `json:"balance,omitempty"`
	TransactionID uuid.UUID          `json:"transactionId"`
}

// CreateDepositRequest starts a deposit.
type CreateDepositRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Method string          `json:"method" validate:"required,deposit_method"`
	// Reference is an optional provider reference chosen by the client.
	Reference string `json:"reference,omitempty" validate:"omitempty,max=100"`
}

// DepositResponse represents a deposit in API responses.
type DepositResponse struct {
	ID        uuid.UUID          `json:"id"`
	Amount    decimal.Decimal    `json:"amount"`
	Status    transaction.Status `json:"status"`
	Method    string             `json:"method"`
	Reference string             `json:"reference,omitempty"`
	Watched   bool               `json:"watched,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
}

// DepositResponseFromEntity converts a transaction row.
func DepositResponseFromEntity(t *transaction.Transaction) *DepositResponse {
	resp := &DepositResponse{
		ID:        t.ID,
		Amount:    t.Amount,
		Status:    t.Status,
		Method:    t.PaymentMethod,
		CreatedAt: t.CreatedAt,
	}
	switch {
	case t.PaystackReference.Valid:
		resp.Reference = t.PaystackReference.String
	case t.MoolreReference.Valid:
		resp.Reference = t.MoolreReference.String
	}
	return resp
}

// AdminDecisionRequest approves or rejects a deposit by hand.
type AdminDecisionRequest struct {
	Action string `json:"action" validate:"required,oneof=approve reject"`
}
