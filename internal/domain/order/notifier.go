package order

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/boostsocial/boost-api/internal/domain/realtime"
	"github.com/boostsocial/boost-api/internal/pkg/smm"
)

// Publisher is the realtime hub surface the listener needs.
type Publisher interface {
	PublishToUser(ctx context.Context, userID uuid.UUID, event realtime.Event) error
}

type statusUpdate struct {
	OrderID uuid.UUID  `json:"orderId"`
	Old     smm.Status `json:"old"`
	Status  smm.Status `json:"status"`
}

type hubListener struct {
	hub Publisher
}

// NewHubListener pushes order status changes to the owner. It returns nil
// when hub is nil so the reconciler skips notification.
func NewHubListener(hub Publisher) StatusListener {
	if hub == nil {
		return nil
	}
	return &hubListener{hub: hub}
}

func (l *hubListener) OrderStatusChanged(ctx context.Context, o *Order, old, next smm.Status) {
	err := l.hub.PublishToUser(ctx, o.UserID, realtime.Event{
		Type: realtime.EventOrderUpdated,
		Data: statusUpdate{OrderID: o.ID, Old: old, Status: next},
	})
	if err != nil {
		log.Warn().Err(err).Str("order_id", o.ID.String()).Msg("Failed to publish order update")
	}
}
