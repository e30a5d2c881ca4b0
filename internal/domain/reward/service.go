package reward

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/boostsocial/boost-api/internal/domain/transaction"
	"github.com/boostsocial/boost-api/internal/domain/wallet"
)

// Payer credits reward payouts.
type Payer interface {
	Credit(ctx context.Context, e wallet.Entry, within wallet.TxFunc) (*transaction.Transaction, error)
}

// ClaimWriter stores a claim inside the payout transaction.
type ClaimWriter func(ctx context.Context, tx *sqlx.Tx, c *Claim) error

// Service handles reward business logic
type Service struct {
	repo   Repository
	payer  Payer
	insert ClaimWriter
	now    func() time.Time
}

// NewService creates reward service
func NewService(repo Repository, payer Payer) *Service {
	return &Service{
		repo:  repo,
		payer: payer,
		insert: func(ctx context.Context, tx *sqlx.Tx, c *Claim) error {
			return InsertClaim(ctx, tx, c)
		},
		now: time.Now,
	}
}

// today is the UTC calendar day claims are keyed on.
func (s *Service) today() time.Time {
	return s.now().UTC().Truncate(24 * time.Hour)
}

// Overview lists active tiers with the caller's eligibility for today.
func (s *Service) Overview(ctx context.Context, userID uuid.UUID) (*Overview, error) {
	day := s.today()
	tiers, err := s.repo.ListTiers(ctx, true)
	if err != nil {
		return nil, err
	}
	deposited, err := s.repo.DepositedOn(ctx, userID, day)
	if err != nil {
		return nil, err
	}
	claimed, err := s.repo.ClaimedTiers(ctx, userID, day)
	if err != nil {
		return nil, err
	}

	out := &Overview{DepositedToday: deposited, Tiers: make([]TierStatus, 0, len(tiers))}
	for _, t := range tiers {
		out.Tiers = append(out.Tiers, TierStatus{
			ID:                   t.ID,
			Name:                 t.Name,
			RequiredDailyDeposit: t.RequiredDailyDeposit,
			RewardAmount:         t.RewardAmount,
			Eligible:             deposited.GreaterThanOrEqual(t.RequiredDailyDeposit),
			Claimed:              claimed[t.ID],
		})
	}
	return out, nil
}

// Claim pays the tier reward if today's deposits reach its threshold. The
// claim row and the payout commit together, and the unique claim key makes a
// second claim for the same day fail with ErrAlreadyClaimed.
func (s *Service) Claim(ctx context.Context, userID, tierID uuid.UUID) (*ClaimResponse, error) {
	tier, err := s.repo.GetTier(ctx, tierID)
	if err != nil {
		return nil, err
	}
	if !tier.IsActive {
		return nil, ErrTierNotFound
	}

	day := s.today()
	deposited, err := s.repo.DepositedOn(ctx, userID, day)
	if err != nil {
		return nil, err
	}
	if deposited.LessThan(tier.RequiredDailyDeposit) {
		return nil, ErrThresholdNotMet
	}

	txID := uuid.New()
	claim := &Claim{
		UserID:        userID,
		TierID:        tier.ID,
		ClaimDate:     day,
		Amount:        tier.RewardAmount,
		TransactionID: uuid.NullUUID{UUID: txID, Valid: true},
	}
	_, err = s.payer.Credit(ctx, wallet.Entry{
		ID:     txID,
		UserID: userID,
		Amount: tier.RewardAmount,
		Method: transaction.MethodReward,
	}, func(ctx context.Context, tx *sqlx.Tx) error {
		return s.insert(ctx, tx, claim)
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("user_id", userID.String()).
		Str("tier_id", tier.ID.String()).
		Str("amount", tier.RewardAmount.String()).
		Msg("Daily reward claimed")
	return &ClaimResponse{TierID: tier.ID, Amount: tier.RewardAmount, TransactionID: txID}, nil
}

// ListTiers returns every tier for the admin.
func (s *Service) ListTiers(ctx context.Context) ([]*Tier, error) {
	return s.repo.ListTiers(ctx, false)
}

// CreateTier adds a tier.
func (s *Service) CreateTier(ctx context.Context, req *TierRequest) (*Tier, error) {
	if err := validAmounts(req); err != nil {
		return nil, err
	}
	now := time.Now()
	t := &Tier{
		ID:                   uuid.New(),
		Name:                 req.Name,
		RequiredDailyDeposit: req.RequiredDailyDeposit.Round(2),
		RewardAmount:         req.RewardAmount.Round(2),
		IsActive:             req.IsActive == nil || *req.IsActive,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if err := s.repo.CreateTier(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// UpdateTier replaces a tier's settings.
func (s *Service) UpdateTier(ctx context.Context, id uuid.UUID, req *TierRequest) (*Tier, error) {
	if err := validAmounts(req); err != nil {
		return nil, err
	}
	t, err := s.repo.GetTier(ctx, id)
	if err != nil {
		return nil, err
	}
	t.Name = req.Name
	t.RequiredDailyDeposit = req.RequiredDailyDeposit.Round(2)
	t.RewardAmount = req.RewardAmount.Round(2)
	if req.IsActive != nil {
		t.IsActive = *req.IsActive
	}
	if err := s.repo.UpdateTier(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// DeleteTier deactivates a tier. Past claims keep referencing it.
func (s *Service) DeleteTier(ctx context.Context, id uuid.UUID) error {
	return s.repo.DeactivateTier(ctx, id)
}

func validAmounts(req *TierRequest) error {
	if !req.RequiredDailyDeposit.IsPositive() || !req.RewardAmount.IsPositive() {
		return ErrInvalidTierAmount
	}
	return nil
}
