package deposit

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/boostsocial/boost-api/internal/domain/realtime"
	"github.com/boostsocial/boost-api/internal/domain/transaction"
)

// Update is pushed to the owner when a deposit settles.
type Update struct {
	TransactionID uuid.UUID          `json:"transactionId"`
	Status        transaction.Status `json:"status"`
	Amount        decimal.Decimal    `json:"amount"`
	Balance       *decimal.Decimal   `json:"balance,omitempty"`
	Message       string             `json:"message,omitempty"`
}

// Notifier tells the owner about deposit state changes. Delivery is best
// effort and never affects the stored state.
type Notifier interface {
	DepositUpdated(ctx context.Context, userID uuid.UUID, u Update)
}

// Publisher is the realtime hub surface the notifier needs.
type Publisher interface {
	PublishToUser(ctx context.Context, userID uuid.UUID, event realtime.Event) error
}

type hubNotifier struct {
	hub Publisher
}

// NewHubNotifier pushes updates over the realtime hub.
func NewHubNotifier(hub Publisher) Notifier {
	if hub == nil {
		return nopNotifier{}
	}
	return &hubNotifier{hub: hub}
}

func (n *hubNotifier) DepositUpdated(ctx context.Context, userID uuid.UUID, u Update) {
	err := n.hub.PublishToUser(ctx, userID, realtime.Event{
		Type: realtime.EventTransactionUpdated,
		Data: u,
	})
	if err != nil {
		log.Warn().Err(err).
			Str("user_id", userID.String()).
			Str("transaction_id", u.TransactionID.String()).
			Msg("Failed to publish deposit update")
	}
}

type nopNotifier struct{}

func (nopNotifier) DepositUpdated(context.Context, uuid.UUID, Update) {}

func updateFrom(t *transaction.Transaction, msg string) Update {
	return Update{
		TransactionID: t.ID,
		Status:        t.Status,
		Amount:        t.Amount,
		Message:       msg,
	}
}
