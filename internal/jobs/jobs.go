package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/boostsocial/boost-api/internal/domain/order"
	"github.com/boostsocial/boost-api/internal/domain/profile"
)

// OrderSweeper refreshes open orders.
type OrderSweeper interface {
	Sweep(ctx context.Context, limit int) (*order.Result, error)
}

// DepositSweeper expires abandoned deposits.
type DepositSweeper interface {
	SweepStale(ctx context.Context, maxAge time.Duration, limit int) (int, error)
}

// BalanceChecker compares balances with the ledger.
type BalanceChecker interface {
	CheckAll(ctx context.Context, correct bool) ([]profile.BalanceCheck, error)
}

// OrderStatusSweep checks up to limit open orders per run.
func OrderStatusSweep(svc OrderSweeper, limit int) Func {
	return func(ctx context.Context) error {
		res, err := svc.Sweep(ctx, limit)
		if err != nil {
			return err
		}
		if res.Errors > 0 {
			log.Warn().Int("errors", res.Errors).Int("checked", res.Checked).Msg("Order sweep had provider errors")
		}
		return nil
	}
}

// StaleDepositSweep rejects pending deposits older than maxAge.
func StaleDepositSweep(svc DepositSweeper, maxAge time.Duration, limit int) Func {
	return func(ctx context.Context) error {
		n, err := svc.SweepStale(ctx, maxAge, limit)
		if err != nil {
			return err
		}
		if n > 0 {
			log.Info().Int("expired", n).Msg("Stale deposits expired")
		}
		return nil
	}
}

// BalanceDriftCheck reports, and optionally corrects, balance drift.
func BalanceDriftCheck(svc BalanceChecker, correct bool) Func {
	return func(ctx context.Context) error {
		drifted, err := svc.CheckAll(ctx, correct)
		if err != nil {
			return err
		}
		for _, d := range drifted {
			log.Warn().
				Str("user_id", d.UserID.String()).
				Str("stored", d.Stored.String()).
				Str("expected", d.Expected.String()).
				Bool("corrected", d.Corrected).
				Msg("Balance drift detected")
		}
		return nil
	}
}
