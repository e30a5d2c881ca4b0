package deposit

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type watch struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Watcher runs at most one poller per transaction in the background.
type Watcher struct {
	poller *Poller

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	active map[uuid.UUID]*watch
	closed bool
	wg     sync.WaitGroup
}

// NewWatcher creates watcher
func NewWatcher(poller *Poller) *Watcher {
	ctx, cancel := context.WithCancel(context.Background())
	return &Watcher{
		poller: poller,
		ctx:    ctx,
		cancel: cancel,
		active: make(map[uuid.UUID]*watch),
	}
}

// Watch starts polling target. It returns false when the transaction is
// already watched or the watcher is closed.
func (w *Watcher) Watch(target Target) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return false
	}
	if _, ok := w.active[target.TransactionID]; ok {
		return false
	}

	ctx, cancel := context.WithCancel(w.ctx)
	wt := &watch{cancel: cancel, done: make(chan struct{})}
	w.active[target.TransactionID] = wt
	w.wg.Add(1)

	go func() {
		defer w.wg.Done()
		defer close(wt.done)
		defer cancel()

		res := w.poller.Run(ctx, target)
		log.Debug().
			Str("transaction_id", target.TransactionID.String()).
			Str("outcome", string(res.Outcome)).
			Int("attempts", res.Attempts).
			Msg("Deposit watch finished")

		w.mu.Lock()
		if w.active[target.TransactionID] == wt {
			delete(w.active, target.TransactionID)
		}
		w.mu.Unlock()
	}()
	return true
}

// Watching reports whether a poller runs for id.
func (w *Watcher) Watching(id uuid.UUID) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.active[id]
	return ok
}

// Active returns the number of running pollers.
func (w *Watcher) Active() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.active)
}

// Stop cancels the poller for id and waits for it to exit.
func (w *Watcher) Stop(id uuid.UUID) {
	w.mu.Lock()
	wt, ok := w.active[id]
	w.mu.Unlock()
	if !ok {
		return
	}
	wt.cancel()
	<-wt.done
}

// Close cancels every poller and waits for all of them.
func (w *Watcher) Close() {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()

	w.cancel()
	w.wg.Wait()
}
