package reward

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TierRequest is the body of admin tier create and update.
type TierRequest struct {
	Name                 string          `json:"name" validate:"required,max=100"`
	RequiredDailyDeposit decimal.Decimal `json:"required_daily_deposit"`
	RewardAmount         decimal.Decimal `json:"reward_amount"`
	IsActive             *bool           `json:"is_active"`
}

// TierStatus is a tier as seen by one user today.
type TierStatus struct {
	ID                   uuid.UUID       `json:"id"`
	Name                 string          `json:"name"`
	RequiredDailyDeposit decimal.Decimal `json:"required_daily_deposit"`
	RewardAmount         decimal.Decimal `json:"reward_amount"`
	Eligible             bool            `json:"eligible"`
	Claimed              bool            `json:"claimed"`
}

// Overview is the body of GET /rewards.
type Overview struct {
	DepositedToday decimal.Decimal `json:"deposited_today"`
	Tiers          []TierStatus    `json:"tiers"`
}

// ClaimResponse is returned after a successful claim.
type ClaimResponse struct {
	TierID        uuid.UUID       `json:"tier_id"`
	Amount        decimal.Decimal `json:"amount"`
	TransactionID uuid.UUID       `json:"transaction_id"`
}
