package domain

import "github.com/shopspring/decimal"

// A CartEntry references a cached product by id.
// Display order is insertion order.
type CartEntry struct {
	ProductID string
	Quantity  int
}

type CartTotals struct {
	Subtotal          decimal.Decimal
	SecondaryTotal    decimal.Decimal
	Currency          string
	SecondaryCurrency string
}

// A SnapshotEntry is the persisted form of a cart entry,
// re-resolved against the catalog on restore.
type SnapshotEntry struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}
