package profile

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Role represents account role
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Profile is a storefront account and its balance.
type Profile struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	Email        string          `db:"email" json:"email"`
	Name         string          `db:"name" json:"name"`
	PasswordHash string          `db:"password_hash" json:"-"`
	Balance      decimal.Decimal `db:"balance" json:"balance"`
	Role         Role            `db:"role" json:"role"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
}

// IsAdmin returns true if profile has the admin role
func (p *Profile) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// Ledger is the balance a profile should have according to its approved
// transactions.
type Ledger struct {
	Deposits decimal.Decimal `db:"deposits"`
	Refunds  decimal.Decimal `db:"refunds"`
	Orders   decimal.Decimal `db:"orders"`
}

// Expected returns deposits + refunds - orders.
func (l Ledger) Expected() decimal.Decimal {
	return l.Deposits.Add(l.Refunds).Sub(l.Orders)
}
