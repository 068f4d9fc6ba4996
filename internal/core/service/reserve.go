package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/niksmo/pos-terminal/internal/core/domain"
	"github.com/niksmo/pos-terminal/internal/core/port"
)

var _ port.StockReserver = (*Reserver)(nil)

const (
	DefaultDebounceWindow = 500 * time.Millisecond
	DefaultBusyRetry      = 100 * time.Millisecond
	DefaultDrainTimeout   = 10 * time.Second
)

type ReserveConfig struct {
	DebounceWindow time.Duration
	BusyRetry      time.Duration
	DrainTimeout   time.Duration
}

func (c *ReserveConfig) normalize() {
	if c.DebounceWindow <= 0 {
		c.DebounceWindow = DefaultDebounceWindow
	}
	if c.BusyRetry <= 0 {
		c.BusyRetry = DefaultBusyRetry
	}
	if c.DrainTimeout <= 0 {
		c.DrainTimeout = DefaultDrainTimeout
	}
}

// A FlushFailureHandler receives the delta that was reverted after a
// failed flush, so cart quantities can be rolled back symmetrically.
type FlushFailureHandler func(productID string, delta int)

type reservation struct {
	delta int
	timer *time.Timer
}

// A Reserver accumulates per-product stock deltas and reconciles them
// with the remote store after a sliding debounce window.
//
// Deltas are applied to the catalog cache optimistically at enqueue
// time and reverted by the inverse delta when a flush fails. Flush
// execution is serialized across all products: at most one remote
// stock write is in flight at any instant.
type Reserver struct {
	cfg   ReserveConfig
	ctx   context.Context
	cache *CatalogCache
	stock port.StockWriter
	audit port.AuditTrail
	view  port.Viewer
	actor string

	mu        sync.Mutex
	pending   map[string]*reservation
	busy      bool
	drained   chan struct{}
	onFailure FlushFailureHandler
}

func NewReserver(
	ctx context.Context,
	cfg ReserveConfig,
	cache *CatalogCache,
	stock port.StockWriter,
	audit port.AuditTrail,
	view port.Viewer,
	actor string,
) *Reserver {
	cfg.normalize()

	drained := make(chan struct{})
	close(drained) // empty queue is drained

	return &Reserver{
		cfg:     cfg,
		ctx:     ctx,
		cache:   cache,
		stock:   stock,
		audit:   audit,
		view:    view,
		actor:   actor,
		pending: make(map[string]*reservation),
		drained: drained,
	}
}

// OnFlushFailure registers the rollback handler. Must be called
// before the first enqueue.
func (r *Reserver) OnFlushFailure(fn FlushFailureHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onFailure = fn
}

// Enqueue adds delta to the product's accumulated value, applies it
// to the cached stock and extends the debounce window. Negative delta
// reserves stock, positive returns it.
func (r *Reserver) Enqueue(productID string, delta int) error {
	const op = "Reserver.Enqueue"

	if err := r.cache.ApplyStockDelta(productID, delta); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.pending[productID]
	if !ok {
		if len(r.pending) == 0 {
			r.drained = make(chan struct{})
		}
		e = &reservation{}
		e.timer = time.AfterFunc(r.cfg.DebounceWindow, func() {
			r.flush(productID)
		})
		r.pending[productID] = e
	} else {
		e.timer.Reset(r.cfg.DebounceWindow)
	}
	e.delta += delta

	return nil
}

// PendingDelta reports the accumulated, not yet confirmed delta.
func (r *Reserver) PendingDelta(productID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.pending[productID]; ok {
		return e.delta
	}
	return 0
}

// WaitUntilDrained blocks until no reservation is pending or in
// flight, bounded by the configured drain timeout.
func (r *Reserver) WaitUntilDrained(ctx context.Context) error {
	const op = "Reserver.WaitUntilDrained"

	r.mu.Lock()
	ch := r.drained
	r.mu.Unlock()

	timer := time.NewTimer(r.cfg.DrainTimeout)
	defer timer.Stop()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	case <-timer.C:
		return fmt.Errorf("%s: %w", op, domain.ErrDrainTimeout)
	}
}

// flush runs on the debounce timer goroutine. While any flush is
// executing the queue is globally busy: other timers reschedule
// themselves instead of interleaving remote writes.
func (r *Reserver) flush(productID string) {
	const op = "Reserver.flush"
	log := slog.With("op", op, "productID", productID)

	r.mu.Lock()
	e, ok := r.pending[productID]
	if !ok {
		r.mu.Unlock()
		return
	}
	if r.busy {
		e.timer.Reset(r.cfg.BusyRetry)
		r.mu.Unlock()
		return
	}
	r.busy = true
	delta := e.delta
	r.mu.Unlock()

	defer r.cleanup(productID, delta)

	if delta == 0 {
		// increments and decrements cancelled out, nothing to write
		return
	}

	p, err := r.cache.Find(productID)
	if err != nil {
		log.Warn("product vanished before flush", "err", err)
		return
	}

	// cached stock already carries the optimistic delta
	newStock := p.Stock
	if newStock < 0 {
		r.revert(productID, delta)
		r.view.Notify(
			fmt.Sprintf("not enough stock for %q", p.Name),
			port.SeverityError,
		)
		err := fmt.Errorf("%s: %w", op, domain.ErrNegativeStock)
		log.Warn("reverted delta", "err", err,
			"delta", delta, "stock", newStock)
		return
	}

	if err := r.stock.WriteStock(r.ctx, productID, newStock); err != nil {
		r.revert(productID, delta)
		r.view.Notify(
			fmt.Sprintf("failed to update stock for %q", p.Name),
			port.SeverityError,
		)
		log.Error("remote stock write failed", "err", err)
		return
	}

	r.appendAudit(productID, delta, newStock)
	r.view.RenderProductGrid(r.cache.Products())
	log.Debug("flushed", "delta", delta, "stock", newStock)
}

// revert undoes the optimistic cache mutation and reports the failed
// delta to the registered rollback handler.
func (r *Reserver) revert(productID string, delta int) {
	if err := r.cache.ApplyStockDelta(productID, -delta); err != nil {
		slog.Error("failed to revert stock delta",
			"op", "Reserver.revert", "productID", productID, "err", err)
	}

	r.mu.Lock()
	fn := r.onFailure
	r.mu.Unlock()
	if fn != nil {
		fn(productID, delta)
	}
}

// cleanup runs on success and failure alike: it releases the busy
// flag, removes the consumed delta and signals drain when the queue
// is empty. Deltas enqueued while the flush was in flight survive
// into the next accumulation cycle.
func (r *Reserver) cleanup(productID string, consumed int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.pending[productID]; ok {
		e.delta -= consumed
		if e.delta == 0 {
			e.timer.Stop()
			delete(r.pending, productID)
		}
	}
	r.busy = false
	if len(r.pending) == 0 {
		close(r.drained)
	}
}

func (r *Reserver) appendAudit(productID string, delta, stock int) {
	e := domain.AuditEntry{
		EventID:    uuid.NewString(),
		Kind:       domain.AuditStockFlush,
		ProductID:  productID,
		StockDelta: delta,
		Stock:      stock,
		Actor:      r.actor,
		OccurredAt: time.Now().UTC(),
	}
	if err := r.audit.Append(r.ctx, e); err != nil {
		slog.Error("failed to append audit entry",
			"op", "Reserver.appendAudit", "err", err)
	}
}
