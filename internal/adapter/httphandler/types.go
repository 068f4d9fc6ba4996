package httphandler

import (
	"time"

	"github.com/niksmo/pos-terminal/internal/core/domain"
	"github.com/shopspring/decimal"
)

type (
	Product struct {
		ProductID string `json:"product_id"`
		Name      string `json:"name"`
		SKU       string `json:"sku"`
		Category  string `json:"category"`
		UnitPrice string `json:"unit_price"`
		Stock     int    `json:"stock"`
	}

	CartEntry struct {
		ProductID string `json:"product_id"`
		Name      string `json:"name"`
		UnitPrice string `json:"unit_price"`
		Quantity  int    `json:"quantity"`
		Subtotal  string `json:"subtotal"`
	}

	CartTotals struct {
		Subtotal          string `json:"subtotal"`
		SecondaryTotal    string `json:"secondary_total"`
		Currency          string `json:"currency"`
		SecondaryCurrency string `json:"secondary_currency"`
	}

	CartView struct {
		Entries []CartEntry `json:"entries"`
		Totals  CartTotals  `json:"totals"`
	}

	Sale struct {
		SaleID         string     `json:"sale_id"`
		InvoiceNumber  string     `json:"invoice_number"`
		Total          string     `json:"total"`
		SecondaryTotal string     `json:"secondary_total"`
		PaymentMethod  string     `json:"payment_method"`
		Items          []SaleItem `json:"items"`
		CreatedAt      time.Time  `json:"created_at"`
	}

	SaleItem struct {
		ProductID string `json:"product_id"`
		Name      string `json:"name"`
		Quantity  int    `json:"quantity"`
		UnitPrice string `json:"unit_price"`
		Subtotal  string `json:"subtotal"`
	}
)

type AddItemRequest struct {
	ProductID string `json:"product_id"`
}

type SetQuantityRequest struct {
	Quantity int `json:"quantity"`
}

type CheckoutRequest struct {
	PaymentMethod string `json:"payment_method"`
}

func toProduct(v domain.Product) Product {
	return Product{
		ProductID: v.ProductID,
		Name:      v.Name,
		SKU:       v.SKU,
		Category:  v.Category,
		UnitPrice: v.UnitPrice.String(),
		Stock:     v.Stock,
	}
}

func toProducts(vs []domain.Product) []Product {
	ps := make([]Product, 0, len(vs))
	for _, v := range vs {
		ps = append(ps, toProduct(v))
	}
	return ps
}

func toCartView(
	es []domain.CartEntry,
	t domain.CartTotals,
	find func(productID string) (domain.Product, error),
) CartView {
	v := CartView{
		Entries: make([]CartEntry, 0, len(es)),
		Totals: CartTotals{
			Subtotal:          t.Subtotal.String(),
			SecondaryTotal:    t.SecondaryTotal.String(),
			Currency:          t.Currency,
			SecondaryCurrency: t.SecondaryCurrency,
		},
	}
	for _, e := range es {
		entry := CartEntry{ProductID: e.ProductID, Quantity: e.Quantity}
		if p, err := find(e.ProductID); err == nil {
			entry.Name = p.Name
			entry.UnitPrice = p.UnitPrice.String()
			entry.Subtotal = p.UnitPrice.
				Mul(decimal.NewFromInt(int64(e.Quantity))).String()
		}
		v.Entries = append(v.Entries, entry)
	}
	return v
}

func toSale(v domain.Sale) Sale {
	s := Sale{
		SaleID:         v.SaleID,
		InvoiceNumber:  v.InvoiceNumber,
		Total:          v.Total.String(),
		SecondaryTotal: v.SecondaryTotal.String(),
		PaymentMethod:  v.PaymentMethod,
		CreatedAt:      v.CreatedAt,
	}
	for _, it := range v.Items {
		s.Items = append(s.Items, SaleItem{
			ProductID: it.ProductID,
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice.String(),
			Subtotal:  it.Subtotal.String(),
		})
	}
	return s
}
