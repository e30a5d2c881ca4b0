package profile

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// DriftTolerance is the largest stored/expected difference left alone.
var DriftTolerance = decimal.RequireFromString("0.01")

// BalanceCheck is the outcome of reconciling one profile.
type BalanceCheck struct {
	UserID    uuid.UUID       `json:"user_id"`
	Stored    decimal.Decimal `json:"stored"`
	Expected  decimal.Decimal `json:"expected"`
	Drift     decimal.Decimal `json:"drift"`
	Corrected bool            `json:"corrected"`
}

// BalanceReconciler compares stored balances against the approved ledger and
// corrects drift above DriftTolerance.
type BalanceReconciler struct {
	repo Repository
}

func NewBalanceReconciler(repo Repository) *BalanceReconciler {
	return &BalanceReconciler{repo: repo}
}

// Check reconciles one profile. The correction is conditional on the stored
// balance not having moved since it was read; a concurrent credit makes the
// call return ErrBalanceChanged and the next run picks it up.
func (s *BalanceReconciler) Check(ctx context.Context, userID uuid.UUID, correct bool) (*BalanceCheck, error) {
	stored, err := s.repo.GetBalance(ctx, userID)
	if err != nil {
		return nil, err
	}
	ledger, err := s.repo.Ledger(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}

	expected := ledger.Expected()
	res := &BalanceCheck{
		UserID:   userID,
		Stored:   stored,
		Expected: expected,
		Drift:    stored.Sub(expected),
	}
	if res.Drift.Abs().LessThanOrEqual(DriftTolerance) || !correct {
		return res, nil
	}

	ok, err := s.repo.SetBalanceIfUnchanged(ctx, userID, stored, expected)
	if err != nil {
		return res, err
	}
	if !ok {
		return res, ErrBalanceChanged
	}
	res.Corrected = true

	log.Warn().
		Str("user_id", userID.String()).
		Str("stored", stored.String()).
		Str("expected", expected.String()).
		Msg("Balance drift corrected")
	return res, nil
}

// CheckAll reconciles every profile and returns the ones that drifted. A
// failure on one profile is logged and does not stop the run.
func (s *BalanceReconciler) CheckAll(ctx context.Context, correct bool) ([]BalanceCheck, error) {
	ids, err := s.repo.ListIDs(ctx)
	if err != nil {
		return nil, err
	}

	var drifted []BalanceCheck
	for _, id := range ids {
		if ctx.Err() != nil {
			return drifted, ctx.Err()
		}
		res, err := s.Check(ctx, id, correct)
		if err != nil {
			if !errors.Is(err, ErrBalanceChanged) {
				log.Error().Err(err).Str("user_id", id.String()).Msg("Balance check failed")
			}
			continue
		}
		if res.Corrected || res.Drift.Abs().GreaterThan(DriftTolerance) {
			drifted = append(drifted, *res)
		}
	}
	return drifted, nil
}
