package order

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/boostsocial/boost-api/internal/pkg/smm"
)

// CreateOrderRequest is the body of POST /orders.
type CreateOrderRequest struct {
	ServiceID uuid.UUID `json:"service_id" validate:"required"`
	Link      string    `json:"link" validate:"required,url,max=500"`
	Quantity  int       `json:"quantity" validate:"required,gt=0"`
}

// CheckStatusRequest is the body of POST /orders/check-status.
type CheckStatusRequest struct {
	OrderIDs []uuid.UUID `json:"orderIds" validate:"required,min=1"`
}

// SetStatusRequest is the body of PUT /admin/orders/{id}/status.
type SetStatusRequest struct {
	Status string `json:"status" validate:"required,max=32"`
}

// CheckStatusResponse reports a manual status check.
type CheckStatusResponse struct {
	Checked int      `json:"checked"`
	Updated int      `json:"updated"`
	Details []Detail `json:"details"`
}

// ComponentResponse is one combo part as shown to the customer.
type ComponentResponse struct {
	Provider string     `json:"provider"`
	Status   smm.Status `json:"status"`
}

// OrderResponse is an order as shown to the customer. Upstream ids stay
// internal.
type OrderResponse struct {
	ID         uuid.UUID           `json:"id"`
	ServiceID  *uuid.UUID          `json:"service_id,omitempty"`
	Link       string              `json:"link"`
	Quantity   int                 `json:"quantity"`
	Charge     decimal.Decimal     `json:"charge"`
	Status     smm.Status          `json:"status"`
	Components []ComponentResponse `json:"components,omitempty"`
	CheckedAt  *time.Time          `json:"last_status_check,omitempty"`
	CreatedAt  time.Time           `json:"created_at"`
}

// OrderResponseFromEntity converts an order for output.
func OrderResponseFromEntity(o *Order) *OrderResponse {
	resp := &OrderResponse{
		ID:        o.ID,
		Link:      o.Link,
		Quantity:  o.Quantity,
		Charge:    o.Charge,
		Status:    o.Status,
		CreatedAt: o.CreatedAt,
	}
	if o.ServiceID.Valid {
		id := o.ServiceID.UUID
		resp.ServiceID = &id
	}
	if o.LastStatusCheck.Valid {
		t := o.LastStatusCheck.Time
		resp.CheckedAt = &t
	}
	for _, c := range o.Components {
		resp.Components = append(resp.Components, ComponentResponse{Provider: string(c.Provider), Status: c.Status})
	}
	return resp
}
