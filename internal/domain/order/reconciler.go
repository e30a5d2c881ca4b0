package order

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/boostsocial/boost-api/internal/pkg/smm"
)

// StatusFetcher queries an SMM panel for one upstream order.
type StatusFetcher interface {
	Status(ctx context.Context, p smm.Provider, orderID string) (*smm.OrderStatus, error)
}

// StatusStore is the write side the reconciler needs.
type StatusStore interface {
	UpdateStatus(ctx context.Context, id uuid.UUID, old, next smm.Status) (bool, error)
	UpdateComponents(ctx context.Context, id uuid.UUID, c Components) error
	TouchChecked(ctx context.Context, ids []uuid.UUID, at time.Time) error
}

// StatusListener hears about every status change the reconciler stored.
type StatusListener interface {
	OrderStatusChanged(ctx context.Context, o *Order, old, next smm.Status)
}

// Options tunes one CheckBatch run.
type Options struct {
	// Concurrency bounds simultaneous upstream calls. Zero means 5.
	Concurrency int
	// MinInterval skips orders checked more recently than this.
	MinInterval time.Duration
}

// Detail describes what happened to one order.
type Detail struct {
	ID       uuid.UUID  `json:"id"`
	Old      smm.Status `json:"old"`
	New      smm.Status `json:"new"`
	Provider string     `json:"provider"`
	Error    string     `json:"error,omitempty"`
}

// Result summarises a batch.
type Result struct {
	Checked int      `json:"checked"`
	Updated int      `json:"updated"`
	Errors  int      `json:"errors"`
	Details []Detail `json:"details"`

	timeouts int
}

// AllTimedOut reports whether every checked order failed on an upstream
// timeout.
func (r *Result) AllTimedOut() bool {
	return r.Checked > 0 && r.timeouts == r.Checked
}

// Reconciler pulls order statuses from the SMM panels and stores changes.
type Reconciler struct {
	fetcher  StatusFetcher
	store    StatusStore
	listener StatusListener
	now      func() time.Time
}

// NewReconciler creates reconciler. listener may be nil.
func NewReconciler(fetcher StatusFetcher, store StatusStore, listener StatusListener) *Reconciler {
	return &Reconciler{fetcher: fetcher, store: store, listener: listener, now: time.Now}
}

type checkOutcome struct {
	next       smm.Status
	components Components
	provider   string
	err        error
}

// CheckBatch checks every order with a bounded worker pool. A failure on one
// order is recorded in its detail and never aborts the batch. Status writes
// are conditional on the status read at the start, and every checked order
// gets its last_status_check bumped.
func (r *Reconciler) CheckBatch(ctx context.Context, orders []*Order, opts Options) (*Result, error) {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 5
	}
	now := r.now()
	res := &Result{Details: []Detail{}}

	var (
		mu      sync.Mutex
		checked []uuid.UUID
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)

	for _, o := range orders {
		if o == nil || o.Status.Terminal() || o.CheckedWithin(now, opts.MinInterval) {
			continue
		}
		targets := o.Targets()
		if len(targets) == 0 {
			continue
		}

		o := o
		g.Go(func() error {
			out := r.checkOne(gctx, o, targets)

			var changed bool
			if out.err == nil && out.next != smm.StatusUnknown && out.next != o.Status {
				ok, err := r.store.UpdateStatus(gctx, o.ID, o.Status, out.next)
				if err != nil {
					out.err = err
				} else {
					changed = ok
				}
			}
			if out.components != nil {
				if err := r.store.UpdateComponents(gctx, o.ID, out.components); err != nil {
					log.Warn().Err(err).Str("order_id", o.ID.String()).Msg("Failed to store component statuses")
				}
			}

			if changed && r.listener != nil {
				r.listener.OrderStatusChanged(gctx, o, o.Status, out.next)
			}

			mu.Lock()
			defer mu.Unlock()
			res.Checked++
			checked = append(checked, o.ID)
			switch {
			case out.err != nil:
				res.Errors++
				if errors.Is(out.err, smm.ErrUpstreamTimeout) {
					res.timeouts++
				}
				res.Details = append(res.Details, Detail{
					ID: o.ID, Old: o.Status, New: o.Status, Provider: out.provider, Error: out.err.Error(),
				})
			case changed:
				res.Updated++
				res.Details = append(res.Details, Detail{
					ID: o.ID, Old: o.Status, New: out.next, Provider: out.provider,
				})
			}

			return nil
		})
	}
	_ = g.Wait()

	if err := r.store.TouchChecked(ctx, checked, now); err != nil {
		return res, err
	}

	log.Info().
		Int("checked", res.Checked).
		Int("updated", res.Updated).
		Int("errors", res.Errors).
		Msg("Order status batch finished")
	return res, ctx.Err()
}

func (r *Reconciler) checkOne(ctx context.Context, o *Order, targets []Target) checkOutcome {
	if !o.IsCombo() {
		t := targets[0]
		st, err := r.fetcher.Status(ctx, t.Provider, t.OrderID)
		if err != nil {
			return checkOutcome{provider: string(t.Provider), err: err}
		}
		return checkOutcome{next: st.Status, provider: string(t.Provider)}
	}

	// A failed component keeps its last known status so the aggregate never
	// treats a missing answer as progress.
	comps := make(Components, len(o.Components))
	copy(comps, o.Components)
	statuses := make([]smm.Status, 0, len(comps))
	var firstErr error
	for i, c := range comps {
		if c.OrderID == "" {
			// never placed upstream
			statuses = append(statuses, c.Status)
			continue
		}
		st, err := r.fetcher.Status(ctx, c.Provider, c.OrderID)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			statuses = append(statuses, c.Status)
			continue
		}
		comps[i].Status = st.Status
		statuses = append(statuses, st.Status)
	}

	out := checkOutcome{provider: "combo", components: comps}
	if next, ok := smm.AggregateCombo(statuses); ok {
		out.next = next
	}
	if firstErr != nil && out.next == smm.StatusUnknown {
		out.err = firstErr
	}
	return out
}
