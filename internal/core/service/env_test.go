package service_test

import (
	"testing"
	"time"

	"github.com/niksmo/pos-terminal/internal/core/domain"
	"github.com/niksmo/pos-terminal/internal/core/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const (
	testWindow    = 20 * time.Millisecond
	testBusyRetry = 5 * time.Millisecond
	testDrainWait = 2 * time.Second

	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

type env struct {
	lister   *staticLister
	store    *fakeStore
	sales    *fakeSales
	view     *viewRecorder
	snaps    *memSnaps
	audit    *auditRecorder
	cache    *service.CatalogCache
	reserver *service.Reserver
	cart     *service.Cart
	checkout *service.Checkout
}

func newEnv(t *testing.T, ps []domain.Product) *env {
	t.Helper()
	return newEnvWithReserveConfig(t, ps, service.ReserveConfig{
		DebounceWindow: testWindow,
		BusyRetry:      testBusyRetry,
		DrainTimeout:   testDrainWait,
	})
}

func newEnvWithDrainTimeout(
	t *testing.T, ps []domain.Product, drainTimeout time.Duration,
) *env {
	t.Helper()
	return newEnvWithReserveConfig(t, ps, service.ReserveConfig{
		DebounceWindow: testWindow,
		BusyRetry:      testBusyRetry,
		DrainTimeout:   drainTimeout,
	})
}

func newEnvWithReserveConfig(
	t *testing.T, ps []domain.Product, rc service.ReserveConfig,
) *env {
	t.Helper()

	e := &env{
		lister: &staticLister{ps: ps},
		store:  &fakeStore{failFor: make(map[string]error)},
		sales:  &fakeSales{},
		view:   &viewRecorder{confirmAnswer: true},
		snaps:  &memSnaps{},
		audit:  &auditRecorder{},
	}

	e.cache = service.NewCatalogCache(e.lister, e.view, "cashier-1")
	require.NoError(t, e.cache.Load(t.Context()))

	e.reserver = service.NewReserver(
		t.Context(), rc,
		e.cache, e.store, e.audit, e.view, "cashier-1",
	)
	e.cache.SetPendingResolver(e.reserver.PendingDelta)

	e.cart = service.NewCart(
		t.Context(),
		service.CartConfig{
			Currency:          "USD",
			SecondaryCurrency: "NIO",
			ExchangeRate:      decimal.RequireFromString("36.5"),
		},
		e.cache, e.reserver, e.snaps, e.view,
	)
	e.reserver.OnFlushFailure(e.cart.RollbackQuantity)

	e.checkout = service.NewCheckout(
		service.CheckoutConfig{
			InvoicePrefix: "INV",
			BuyerID:       "cashier-1",
			ExchangeRate:  decimal.RequireFromString("36.5"),
			BusinessTZ:    time.UTC,
		},
		e.cart, e.cache, e.reserver, e.sales, e.audit, e.view,
	)

	return e
}

func testProducts() []domain.Product {
	now := time.Now().UTC()
	return []domain.Product{
		{
			ProductID: "p-coffee",
			Name:      "Coffee Beans 1kg",
			SKU:       "CF-001",
			Category:  "grocery",
			UnitPrice: decimal.RequireFromString("12.50"),
			Stock:     5,
			CreatedAt: now,
			UpdatedAt: now,
		},
		{
			ProductID: "p-mug",
			Name:      "Ceramic Mug",
			SKU:       "MG-014",
			Category:  "kitchen",
			UnitPrice: decimal.RequireFromString("4.75"),
			Stock:     8,
			CreatedAt: now,
			UpdatedAt: now,
		},
		{
			ProductID: "p-filter",
			Name:      "Paper Filters",
			Category:  "grocery",
			UnitPrice: decimal.RequireFromString("2.00"),
			Stock:     0,
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
}

func (e *env) cachedStock(t *testing.T, productID string) int {
	t.Helper()
	p, err := e.cache.Find(productID)
	require.NoError(t, err)
	return p.Stock
}
