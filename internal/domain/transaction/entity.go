package transaction

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Type is the ledger entry kind.
type Type string

const (
	TypeDeposit Type = "deposit"
	TypeOrder   Type = "order"
	TypeRefund  Type = "refund"
)

// Status is the transaction lifecycle state. pending moves to approved or
// rejected exactly once.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Payment methods recorded on deposits.
const (
	MethodPaystack = "paystack"
	MethodMoolre   = "moolre"
	MethodManual   = "manual"
	MethodReward   = "reward"
	MethodBalance  = "balance"
)

// Transaction is one ledger row.
type Transaction struct {
	ID                uuid.UUID       `db:"id" json:"id"`
	UserID            uuid.UUID       `db:"user_id" json:"user_id"`
	Type              Type            `db:"type" json:"type"`
	Amount            decimal.Decimal `db:"amount" json:"amount"`
	Status            Status          `db:"status" json:"status"`
	PaymentMethod     string          `db:"payment_method" json:"payment_method"`
	PaystackReference sql.NullString  `db:"paystack_reference" json:"-"`
	MoolreReference   sql.NullString  `db:"moolre_reference" json:"-"`
	ProviderStatus    sql.NullString  `db:"provider_status" json:"-"`
	OrderID           uuid.NullUUID   `db:"order_id" json:"-"`
	CreatedAt         time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time       `db:"updated_at" json:"updated_at"`
}

// IsTerminal reports whether the transaction can no longer change.
func (t *Transaction) IsTerminal() bool {
	return t.Status == StatusApproved || t.Status == StatusRejected
}

// IsPendingDeposit reports whether the transaction still awaits settlement.
func (t *Transaction) IsPendingDeposit() bool {
	return t.Type == TypeDeposit && t.Status == StatusPending
}
