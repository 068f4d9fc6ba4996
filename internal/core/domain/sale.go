package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// A Sale is immutable once created.
type Sale struct {
	SaleID         string
	InvoiceNumber  string
	BuyerID        string
	ExchangeRate   decimal.Decimal
	Items          []SaleItem
	Total          decimal.Decimal
	SecondaryTotal decimal.Decimal
	PaymentMethod  string
	DayKey         string
	CreatedAt      time.Time
}

type SaleItem struct {
	ProductID string
	Name      string
	Quantity  int
	UnitPrice decimal.Decimal
	Subtotal  decimal.Decimal
}
