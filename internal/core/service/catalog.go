package service

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	"github.com/niksmo/pos-terminal/internal/core/domain"
	"github.com/niksmo/pos-terminal/internal/core/port"
)

var _ port.CatalogReader = (*CatalogCache)(nil)
var _ port.CatalogReloader = (*CatalogCache)(nil)

// A CatalogCache holds the authoritative in-memory product list.
//
// Stock is mutated only by Load and by ApplyStockDelta, the latter
// called exclusively from the reservation queue.
type CatalogCache struct {
	lister  port.ProductsLister
	view    port.Viewer
	ownerID string

	loading atomic.Bool

	mu          sync.RWMutex
	products    []domain.Product
	index       map[string]int
	fingerprint uint64
	pendingFn   func(productID string) int
}

func NewCatalogCache(
	lister port.ProductsLister, view port.Viewer, ownerID string,
) *CatalogCache {
	return &CatalogCache{
		lister:  lister,
		view:    view,
		ownerID: ownerID,
		index:   make(map[string]int),
	}
}

// SetPendingResolver installs the reservation queue's pending-delta
// accessor. Load re-applies pending deltas onto freshly fetched
// stock, so a reload cannot wipe optimistic reservations.
func (c *CatalogCache) SetPendingResolver(fn func(productID string) int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pendingFn = fn
}

// Load fetches all products for the current actor and replaces the
// in-memory state. A load already in flight is not restarted, and an
// unchanged content fingerprint skips the replace and re-render.
func (c *CatalogCache) Load(ctx context.Context) error {
	const op = "CatalogCache.Load"
	log := slog.With("op", op)

	if !c.loading.CompareAndSwap(false, true) {
		log.Debug("load already in flight")
		return nil
	}
	defer c.loading.Store(false)

	ps, err := c.lister.ListProducts(ctx, c.ownerID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	fp := fingerprint(ps)

	c.mu.Lock()
	if fp == c.fingerprint {
		c.mu.Unlock()
		log.Debug("catalog unchanged", "fingerprint", fp)
		return nil
	}

	c.products = ps
	c.index = make(map[string]int, len(ps))
	for i, p := range ps {
		c.index[p.ProductID] = i
		if c.pendingFn != nil {
			c.products[i].Stock += c.pendingFn(p.ProductID)
		}
	}
	c.fingerprint = fp
	grid := c.copyProductsLocked()
	c.mu.Unlock()

	c.view.RenderProductGrid(grid)
	log.Info("catalog reloaded", "nProducts", len(ps))
	return nil
}

func (c *CatalogCache) Find(productID string) (domain.Product, error) {
	const op = "CatalogCache.Find"

	c.mu.RLock()
	defer c.mu.RUnlock()

	i, ok := c.index[productID]
	if !ok {
		return domain.Product{}, fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	}
	return c.products[i], nil
}

// ApplyStockDelta mutates the cached stock value in place.
func (c *CatalogCache) ApplyStockDelta(productID string, delta int) error {
	const op = "CatalogCache.ApplyStockDelta"

	c.mu.Lock()
	defer c.mu.Unlock()

	i, ok := c.index[productID]
	if !ok {
		return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	}
	c.products[i].Stock += delta
	return nil
}

func (c *CatalogCache) Products() []domain.Product {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.copyProductsLocked()
}

func (c *CatalogCache) Search(query string) []domain.Product {
	c.mu.RLock()
	defer c.mu.RUnlock()

	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return c.copyProductsLocked()
	}

	var vs []domain.Product
	for _, p := range c.products {
		if strings.Contains(strings.ToLower(p.Name), q) ||
			strings.Contains(strings.ToLower(p.SKU), q) {
			vs = append(vs, p)
		}
	}
	return vs
}

func (c *CatalogCache) ByCategory(category string) []domain.Product {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var vs []domain.Product
	for _, p := range c.products {
		if p.Category == category {
			vs = append(vs, p)
		}
	}
	return vs
}

func (c *CatalogCache) copyProductsLocked() []domain.Product {
	vs := make([]domain.Product, len(c.products))
	copy(vs, c.products)
	return vs
}

// fingerprint hashes id and last-modified pairs in a stable order,
// so an unchanged listing never triggers a re-render.
func fingerprint(ps []domain.Product) uint64 {
	keys := make([]string, 0, len(ps))
	mods := make(map[string]int64, len(ps))
	for _, p := range ps {
		keys = append(keys, p.ProductID)
		mods[p.ProductID] = p.UpdatedAt.UnixNano()
	}
	sort.Strings(keys)

	d := xxhash.New()
	var buf [8]byte
	for _, k := range keys {
		_, _ = d.WriteString(k)
		binary.BigEndian.PutUint64(buf[:], uint64(mods[k]))
		_, _ = d.Write(buf[:])
	}
	return d.Sum64()
}
