package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/niksmo/pos-terminal/internal/core/domain"
	"github.com/niksmo/pos-terminal/internal/core/port"
	"github.com/shopspring/decimal"
)

var _ port.SaleCommitter = (*Checkout)(nil)

type CommitState int32

const (
	StateIdle CommitState = iota
	StateValidating
	StateAwaitingDrain
	StateWriting
	StateCommitted
	StateFailed
)

func (s CommitState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateValidating:
		return "validating"
	case StateAwaitingDrain:
		return "awaiting_drain"
	case StateWriting:
		return "writing"
	case StateCommitted:
		return "committed"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

type CheckoutConfig struct {
	InvoicePrefix string
	BuyerID       string
	ExchangeRate  decimal.Decimal
	BusinessTZ    *time.Location
}

// A Checkout drains the cart into one immutable sale record.
//
// Stock needs no write here: the reservation queue already adjusted
// it incrementally during cart interactions. The drain barrier
// guarantees no sale commits while a reservation is in flight.
type Checkout struct {
	cfg      CheckoutConfig
	cart     *Cart
	cache    *CatalogCache
	reserver port.StockReserver
	sales    port.SaleCreator
	audit    port.AuditTrail
	view     port.Viewer

	mu    sync.Mutex
	state atomic.Int32
}

func NewCheckout(
	cfg CheckoutConfig,
	cart *Cart,
	cache *CatalogCache,
	reserver port.StockReserver,
	sales port.SaleCreator,
	audit port.AuditTrail,
	view port.Viewer,
) *Checkout {
	if cfg.BusinessTZ == nil {
		cfg.BusinessTZ = time.UTC
	}
	return &Checkout{
		cfg:      cfg,
		cart:     cart,
		cache:    cache,
		reserver: reserver,
		sales:    sales,
		audit:    audit,
		view:     view,
	}
}

func (co *Checkout) State() CommitState {
	return CommitState(co.state.Load())
}

func (co *Checkout) setState(s CommitState) {
	co.state.Store(int32(s))
}

// Commit runs the protocol: Validating, AwaitingDrain, Writing, then
// Committed or Failed. On failure the cart and its persisted snapshot
// are left intact so the user may retry.
func (co *Checkout) Commit(
	ctx context.Context, paymentMethod string,
) (domain.Sale, error) {
	const op = "Checkout.Commit"
	log := slog.With("op", op)

	co.mu.Lock()
	defer co.mu.Unlock()

	co.setState(StateValidating)
	entries := co.cart.Entries()
	if len(entries) == 0 {
		co.setState(StateFailed)
		co.view.Notify("cart is empty", port.SeverityWarn)
		return domain.Sale{}, fmt.Errorf("%s: %w", op, domain.ErrEmptyCart)
	}

	if err := co.validate(entries); err != nil {
		co.setState(StateFailed)
		return domain.Sale{}, fmt.Errorf("%s: %w", op, err)
	}

	co.setState(StateAwaitingDrain)
	if err := co.reserver.WaitUntilDrained(ctx); err != nil {
		co.setState(StateFailed)
		co.view.Notify("sale aborted: reservations did not settle",
			port.SeverityError)
		return domain.Sale{}, fmt.Errorf("%s: %w", op, err)
	}

	co.setState(StateWriting)

	// re-validate against the freshest cached values: the remote
	// stock may have changed under us while draining
	entries = co.cart.Entries()
	if err := co.validate(entries); err != nil {
		co.setState(StateFailed)
		return domain.Sale{}, fmt.Errorf("%s: %w", op, err)
	}

	sale, err := co.buildSale(entries, paymentMethod)
	if err != nil {
		co.setState(StateFailed)
		return domain.Sale{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := co.sales.CreateSale(ctx, sale); err != nil {
		co.setState(StateFailed)
		co.view.Notify("failed to record sale, cart preserved",
			port.SeverityError)
		log.Error("remote sale write failed", "err", err)
		return domain.Sale{}, fmt.Errorf(
			"%s: %w: %w", op, domain.ErrRemoteWrite, err,
		)
	}

	co.appendAudit(ctx, sale)

	co.cart.Reset(ctx)
	co.view.RenderProductGrid(co.cache.Products())
	co.view.Notify(
		fmt.Sprintf("sale %s committed", sale.InvoiceNumber),
		port.SeverityInfo,
	)
	co.setState(StateCommitted)

	log.Info("sale committed",
		"saleID", sale.SaleID, "invoice", sale.InvoiceNumber,
		"total", sale.Total.String(), "dayKey", sale.DayKey)
	return sale, nil
}

// validate checks that the cart's reservations are still coverable:
// cached stock carries the optimistic deltas, so a negative value
// means an external stock change undercut an entry.
func (co *Checkout) validate(entries []domain.CartEntry) error {
	for _, e := range entries {
		p, err := co.cache.Find(e.ProductID)
		if err != nil {
			co.view.Notify("product no longer exists", port.SeverityWarn)
			return domain.ErrNotFound
		}
		if p.Stock < 0 {
			co.view.Notify(
				fmt.Sprintf("not enough stock for %q", p.Name),
				port.SeverityWarn,
			)
			return domain.ErrInsufficientStock
		}
	}
	return nil
}

func (co *Checkout) buildSale(
	entries []domain.CartEntry, paymentMethod string,
) (domain.Sale, error) {
	now := time.Now()

	items := make([]domain.SaleItem, 0, len(entries))
	total := decimal.Zero
	for _, e := range entries {
		p, err := co.cache.Find(e.ProductID)
		if err != nil {
			return domain.Sale{}, err
		}
		subtotal := p.UnitPrice.Mul(decimal.NewFromInt(int64(e.Quantity)))
		items = append(items, domain.SaleItem{
			ProductID: p.ProductID,
			Name:      p.Name,
			Quantity:  e.Quantity,
			UnitPrice: p.UnitPrice,
			Subtotal:  subtotal,
		})
		total = total.Add(subtotal)
	}

	saleID := uuid.NewString()
	dayKey := now.In(co.cfg.BusinessTZ).Format("2006-01-02")

	return domain.Sale{
		SaleID:         saleID,
		InvoiceNumber:  invoiceNumber(co.cfg.InvoicePrefix, dayKey, saleID),
		BuyerID:        co.cfg.BuyerID,
		ExchangeRate:   co.cfg.ExchangeRate,
		Items:          items,
		Total:          total,
		SecondaryTotal: total.Mul(co.cfg.ExchangeRate),
		PaymentMethod:  paymentMethod,
		DayKey:         dayKey,
		CreatedAt:      now.UTC(),
	}, nil
}

func invoiceNumber(prefix, dayKey, saleID string) string {
	return fmt.Sprintf("%s-%s-%s", prefix, dayKey, saleID[:8])
}

func (co *Checkout) appendAudit(ctx context.Context, s domain.Sale) {
	e := domain.AuditEntry{
		EventID:    uuid.NewString(),
		Kind:       domain.AuditSaleCommit,
		SaleID:     s.SaleID,
		Actor:      s.BuyerID,
		OccurredAt: time.Now().UTC(),
	}
	if err := co.audit.Append(ctx, e); err != nil {
		slog.Error("failed to append audit entry",
			"op", "Checkout.appendAudit", "err", err)
	}
}
