package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/niksmo/pos-terminal/internal/core/domain"
	"github.com/niksmo/pos-terminal/internal/core/port"
	"github.com/shopspring/decimal"
)

var _ port.CartOperator = (*Cart)(nil)

type CartConfig struct {
	Currency          string
	SecondaryCurrency string
	ExchangeRate      decimal.Decimal
}

// A Cart is an ordered sequence of entries. Displayed quantities are
// a view: every stock effect goes through the reservation queue, and
// every mutation persists a snapshot to durable local storage.
type Cart struct {
	ctx      context.Context
	cfg      CartConfig
	cache    *CatalogCache
	reserver port.StockReserver
	snaps    port.CartSnapshots
	view     port.Viewer

	mu      sync.Mutex
	entries []domain.CartEntry
}

func NewCart(
	ctx context.Context,
	cfg CartConfig,
	cache *CatalogCache,
	reserver port.StockReserver,
	snaps port.CartSnapshots,
	view port.Viewer,
) *Cart {
	return &Cart{
		ctx:      ctx,
		cfg:      cfg,
		cache:    cache,
		reserver: reserver,
		snaps:    snaps,
		view:     view,
	}
}

// AddItem puts one unit of the product into the cart and reserves it.
func (c *Cart) AddItem(ctx context.Context, productID string) error {
	const op = "Cart.AddItem"

	c.mu.Lock()
	defer c.mu.Unlock()

	p, err := c.cache.Find(productID)
	if err != nil {
		c.view.Notify("product not found", port.SeverityWarn)
		return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	}

	if p.Stock <= 0 {
		c.view.Notify(
			fmt.Sprintf("%q is out of stock", p.Name), port.SeverityWarn,
		)
		return fmt.Errorf("%s: %w", op, domain.ErrInsufficientStock)
	}

	if i := c.indexOfLocked(productID); i >= 0 {
		c.entries[i].Quantity++
	} else {
		c.entries = append(c.entries, domain.CartEntry{
			ProductID: productID, Quantity: 1,
		})
	}

	c.persistLocked(ctx)
	if err := c.reserver.Enqueue(productID, -1); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	c.renderLocked()
	return nil
}

// RemoveItem drops the entry at index and returns its reserved stock.
func (c *Cart) RemoveItem(ctx context.Context, index int) error {
	const op = "Cart.RemoveItem"

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.removeLocked(ctx, index); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// SetQuantity validates the new quantity against stock still
// assignable to this entry and enqueues the signed difference.
func (c *Cart) SetQuantity(ctx context.Context, index, quantity int) error {
	const op = "Cart.SetQuantity"

	c.mu.Lock()
	defer c.mu.Unlock()

	if index < 0 || index >= len(c.entries) {
		return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	}

	if quantity < 1 {
		if err := c.removeLocked(ctx, index); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		return nil
	}

	e := &c.entries[index]
	p, err := c.cache.Find(e.ProductID)
	if err != nil {
		c.view.Notify("product not found", port.SeverityWarn)
		return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	}

	// stock already reserved by this entry is assignable back
	if quantity > p.Stock+e.Quantity {
		c.view.Notify(
			fmt.Sprintf("only %d of %q available", p.Stock+e.Quantity, p.Name),
			port.SeverityWarn,
		)
		return fmt.Errorf("%s: %w", op, domain.ErrInsufficientStock)
	}

	delta := e.Quantity - quantity
	e.Quantity = quantity

	c.persistLocked(ctx)
	if err := c.reserver.Enqueue(e.ProductID, delta); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	c.renderLocked()
	return nil
}

// Clear returns all reserved stock and empties the cart. A failed
// return enqueue (product vanished from the catalog) does not keep
// the rest of the cart hostage: the cart empties regardless and the
// errors are reported joined.
func (c *Cart) Clear(ctx context.Context) error {
	const op = "Cart.Clear"

	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	for _, e := range c.entries {
		if err := c.reserver.Enqueue(e.ProductID, e.Quantity); err != nil {
			errs = append(errs, err)
		}
	}
	c.entries = nil
	c.persistLocked(ctx)
	c.renderLocked()

	if len(errs) != 0 {
		return fmt.Errorf("%s: %w", op, errors.Join(errs...))
	}
	return nil
}

// Reset empties the cart and its persisted snapshot without touching
// reservations. Used after a committed sale: the stock was already
// adjusted by the reservation queue.
func (c *Cart) Reset(ctx context.Context) {
	const op = "Cart.Reset"

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = nil
	if err := c.snaps.Clear(ctx); err != nil {
		slog.Error("failed to clear cart snapshot", "op", op, "err", err)
	}
	c.renderLocked()
}

// Restore rebuilds the cart from the persisted snapshot, silently
// dropping entries whose product no longer exists in the catalog.
func (c *Cart) Restore(ctx context.Context) error {
	const op = "Cart.Restore"
	log := slog.With("op", op)

	c.mu.Lock()
	defer c.mu.Unlock()

	snap, err := c.snaps.Load(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	var kept []domain.CartEntry
	dropped := 0
	for _, s := range snap {
		if _, err := c.cache.Find(s.ProductID); err != nil {
			dropped++
			continue
		}
		kept = append(kept, domain.CartEntry{
			ProductID: s.ProductID, Quantity: s.Quantity,
		})
	}

	c.entries = kept
	if dropped > 0 {
		c.persistLocked(ctx)
		log.Info("dropped stale cart entries", "n", dropped)
	}
	c.renderLocked()
	return nil
}

// RollbackQuantity applies a reverted reservation delta back to the
// entry quantity after a failed flush, keeping the displayed quantity
// in sync with actually reserved stock.
func (c *Cart) RollbackQuantity(productID string, delta int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexOfLocked(productID)
	if i < 0 {
		return
	}

	c.entries[i].Quantity += delta
	if c.entries[i].Quantity < 1 {
		c.entries = append(c.entries[:i], c.entries[i+1:]...)
	}
	c.persistLocked(c.ctx)
	c.renderLocked()
}

func (c *Cart) Entries() []domain.CartEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	es := make([]domain.CartEntry, len(c.entries))
	copy(es, c.entries)
	return es
}

// Totals are recomputed on every call, never cached.
func (c *Cart) Totals() domain.CartTotals {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totalsLocked()
}

func (c *Cart) totalsLocked() domain.CartTotals {
	subtotal := decimal.Zero
	for _, e := range c.entries {
		p, err := c.cache.Find(e.ProductID)
		if err != nil {
			continue
		}
		subtotal = subtotal.Add(
			p.UnitPrice.Mul(decimal.NewFromInt(int64(e.Quantity))),
		)
	}
	return domain.CartTotals{
		Subtotal:          subtotal,
		SecondaryTotal:    subtotal.Mul(c.cfg.ExchangeRate),
		Currency:          c.cfg.Currency,
		SecondaryCurrency: c.cfg.SecondaryCurrency,
	}
}

func (c *Cart) removeLocked(ctx context.Context, index int) error {
	if index < 0 || index >= len(c.entries) {
		return domain.ErrNotFound
	}

	e := c.entries[index]
	c.entries = append(c.entries[:index], c.entries[index+1:]...)

	c.persistLocked(ctx)
	if err := c.reserver.Enqueue(e.ProductID, e.Quantity); err != nil {
		return err
	}
	c.renderLocked()
	return nil
}

func (c *Cart) indexOfLocked(productID string) int {
	for i, e := range c.entries {
		if e.ProductID == productID {
			return i
		}
	}
	return -1
}

func (c *Cart) persistLocked(ctx context.Context) {
	snap := make([]domain.SnapshotEntry, 0, len(c.entries))
	for _, e := range c.entries {
		snap = append(snap, domain.SnapshotEntry{
			ProductID: e.ProductID, Quantity: e.Quantity,
		})
	}
	if err := c.snaps.Save(ctx, snap); err != nil {
		slog.Error("failed to persist cart snapshot",
			"op", "Cart.persist", "err", err)
	}
}

func (c *Cart) renderLocked() {
	es := make([]domain.CartEntry, len(c.entries))
	copy(es, c.entries)
	c.view.RenderCartPanel(es, c.totalsLocked())
}
