package port

import (
	"context"

	"github.com/niksmo/pos-terminal/internal/core/domain"
)

// Outbound ports: the remote data store, split by concern.

type ProductsLister interface {
	ListProducts(ctx context.Context, ownerID string) ([]domain.Product, error)
}

type StockWriter interface {
	WriteStock(ctx context.Context, productID string, stock int) error
}

type SaleCreator interface {
	CreateSale(ctx context.Context, s domain.Sale) error
}

type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (domain.Session, error)
	OnAuthChange(fn func(domain.Session))
}

// CartSnapshots is the durable local storage for the cart.
type CartSnapshots interface {
	Save(ctx context.Context, es []domain.SnapshotEntry) error
	Load(ctx context.Context) ([]domain.SnapshotEntry, error)
	Clear(ctx context.Context) error
}

type Severity string

const (
	SeverityInfo  Severity = "info"
	SeverityWarn  Severity = "warn"
	SeverityError Severity = "error"
)

type Viewer interface {
	RenderProductGrid(ps []domain.Product)
	RenderCartPanel(es []domain.CartEntry, t domain.CartTotals)
	Notify(message string, severity Severity)
	Confirm(prompt string) bool
}

type AuditTrail interface {
	Append(ctx context.Context, e domain.AuditEntry) error
}

// Inbound ports: what the transport layer drives.

type CatalogReader interface {
	Products() []domain.Product
	Search(query string) []domain.Product
	ByCategory(category string) []domain.Product
	Find(productID string) (domain.Product, error)
}

type CatalogReloader interface {
	Load(ctx context.Context) error
}

type CartOperator interface {
	AddItem(ctx context.Context, productID string) error
	RemoveItem(ctx context.Context, index int) error
	SetQuantity(ctx context.Context, index, quantity int) error
	Clear(ctx context.Context) error
	Entries() []domain.CartEntry
	Totals() domain.CartTotals
}

type SaleCommitter interface {
	Commit(ctx context.Context, paymentMethod string) (domain.Sale, error)
}

// StockReserver is the cart-facing surface of the reservation queue.
type StockReserver interface {
	Enqueue(productID string, delta int) error
	PendingDelta(productID string) int
	WaitUntilDrained(ctx context.Context) error
}
