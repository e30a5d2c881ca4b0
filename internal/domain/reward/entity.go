package reward

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Tier pays RewardAmount once per day to users whose approved deposits for
// the day reach RequiredDailyDeposit.
type Tier struct {
	ID                   uuid.UUID       `db:"id" json:"id"`
	Name                 string          `db:"name" json:"name"`
	RequiredDailyDeposit decimal.Decimal `db:"required_daily_deposit" json:"required_daily_deposit"`
	RewardAmount         decimal.Decimal `db:"reward_amount" json:"reward_amount"`
	IsActive             bool            `db:"is_active" json:"is_active"`
	CreatedAt            time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time       `db:"updated_at" json:"updated_at"`
}

// Claim records a paid reward. At most one exists per user, tier and day.
type Claim struct {
	ID            uuid.UUID       `db:"id" json:"id"`
	UserID        uuid.UUID       `db:"user_id" json:"user_id"`
	TierID        uuid.UUID       `db:"tier_id" json:"tier_id"`
	ClaimDate     time.Time       `db:"claim_date" json:"claim_date"`
	Amount        decimal.Decimal `db:"amount" json:"amount"`
	TransactionID uuid.NullUUID   `db:"transaction_id" json:"transaction_id"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
}
