package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ProductID string
	Name      string
	SKU       string
	Category  string
	UnitPrice decimal.Decimal
	Stock     int
	CreatedAt time.Time
	UpdatedAt time.Time
}
