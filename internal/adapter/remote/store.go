package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/niksmo/pos-terminal/internal/core/domain"
	"github.com/niksmo/pos-terminal/internal/core/port"
	"github.com/shopspring/decimal"
)

var _ port.ProductsLister = (*Client)(nil)
var _ port.StockWriter = (*Client)(nil)
var _ port.SaleCreator = (*Client)(nil)
var _ port.Authenticator = (*Client)(nil)

const (
	productsCollection = "products"
	salesCollection    = "sales"
)

type productRecord struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	SKU       string          `json:"sku"`
	Category  string          `json:"category"`
	Price     decimal.Decimal `json:"price"`
	Stock     int             `json:"stock"`
	Owner     string          `json:"owner"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func (c *Client) ListProducts(
	ctx context.Context, ownerID string,
) ([]domain.Product, error) {
	const op = "remote.Client.ListProducts"

	filter := fmt.Sprintf("owner='%s'", ownerID)
	raw, err := c.listAll(ctx, productsCollection, filter, "created_at")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	ps := make([]domain.Product, 0, len(raw))
	for _, item := range raw {
		var r productRecord
		if err := json.Unmarshal(item, &r); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		ps = append(ps, domain.Product{
			ProductID: r.ID,
			Name:      r.Name,
			SKU:       r.SKU,
			Category:  r.Category,
			UnitPrice: r.Price,
			Stock:     r.Stock,
			CreatedAt: r.CreatedAt,
			UpdatedAt: r.UpdatedAt,
		})
	}
	return ps, nil
}

func (c *Client) WriteStock(
	ctx context.Context, productID string, stock int,
) error {
	const op = "remote.Client.WriteStock"

	partial := map[string]int{"stock": stock}
	err := c.update(ctx, productsCollection, productID, partial)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

type saleItemRecord struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

type saleRecord struct {
	ID             string           `json:"id"`
	Invoice        string           `json:"invoice"`
	Buyer          string           `json:"buyer"`
	ExchangeRate   decimal.Decimal  `json:"exchange_rate"`
	Items          []saleItemRecord `json:"items"`
	Total          decimal.Decimal  `json:"total"`
	SecondaryTotal decimal.Decimal  `json:"secondary_total"`
	PaymentMethod  string           `json:"payment_method"`
	DayKey         string           `json:"day_key"`
	CreatedAt      time.Time        `json:"created_at"`
}

func (c *Client) CreateSale(ctx context.Context, s domain.Sale) error {
	const op = "remote.Client.CreateSale"

	items := make([]saleItemRecord, 0, len(s.Items))
	for _, it := range s.Items {
		items = append(items, saleItemRecord(it))
	}

	r := saleRecord{
		ID:             s.SaleID,
		Invoice:        s.InvoiceNumber,
		Buyer:          s.BuyerID,
		ExchangeRate:   s.ExchangeRate,
		Items:          items,
		Total:          s.Total,
		SecondaryTotal: s.SecondaryTotal,
		PaymentMethod:  s.PaymentMethod,
		DayKey:         s.DayKey,
		CreatedAt:      s.CreatedAt,
	}
	if err := c.create(ctx, salesCollection, r); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

type authRequest struct {
	Identity string `json:"identity"`
	Password string `json:"password"`
}

type authResponse struct {
	Token  string `json:"token"`
	Record struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"record"`
}

func (c *Client) Authenticate(
	ctx context.Context, email, password string,
) (domain.Session, error) {
	const op = "remote.Client.Authenticate"

	var resp authResponse
	err := c.do(ctx, "POST", "/api/auth/with-password",
		authRequest{Identity: email, Password: password}, &resp)
	if err != nil {
		return domain.Session{}, fmt.Errorf("%s: %w", op, err)
	}

	s := domain.Session{
		Token:    resp.Token,
		UserID:   resp.Record.ID,
		Email:    resp.Record.Email,
		IssuedAt: time.Now().UTC(),
	}

	c.mu.Lock()
	c.session = s
	fns := make([]func(domain.Session), len(c.authFns))
	copy(fns, c.authFns)
	c.mu.Unlock()

	for _, fn := range fns {
		fn(s)
	}
	return s, nil
}

func (c *Client) OnAuthChange(fn func(domain.Session)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.authFns = append(c.authFns, fn)
}

// Logout drops the session and notifies subscribers with the zero
// session, so local storage can be cleared.
func (c *Client) Logout() {
	c.mu.Lock()
	c.session = domain.Session{}
	fns := make([]func(domain.Session), len(c.authFns))
	copy(fns, c.authFns)
	c.mu.Unlock()

	for _, fn := range fns {
		fn(domain.Session{})
	}
}
