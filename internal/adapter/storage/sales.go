package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/niksmo/pos-terminal/internal/core/domain"
	"github.com/niksmo/pos-terminal/internal/core/port"
)

var _ port.SaleCreator = (*SalesRepository)(nil)

type SalesRepository struct {
	sqldb sqldb
}

func NewSalesRepository(sqldb sqldb) SalesRepository {
	return SalesRepository{sqldb}
}

// CreateSale writes the sale and its line items in one transaction.
// Sales are immutable: there is no update path.
func (r SalesRepository) CreateSale(
	ctx context.Context, v domain.Sale,
) (createErr error) {
	const op = "SalesRepository.CreateSale"
	log := slog.With("op", op)

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	tx, err := r.sqldb.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: failed to begin tx: %w", op, err)
	}

	defer func() {
		if createErr == nil {
			if err := tx.Commit(); err != nil {
				createErr = fmt.Errorf("%s: failed to commit: %w", op, err)
			}
			return
		}

		if err := tx.Rollback(); err != nil {
			log.Error("failed to rollback tx", "err", err)
		}
	}()

	saleQuery := `
		INSERT INTO sales (
			sale_id, invoice, buyer_id, exchange_rate,
			total, secondary_total, payment_method, day_key, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);`

	_, err = tx.ExecContext(ctx, saleQuery,
		v.SaleID, v.InvoiceNumber, v.BuyerID, v.ExchangeRate.String(),
		v.Total.String(), v.SecondaryTotal.String(),
		v.PaymentMethod, v.DayKey, v.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("%s: failed to insert sale: %w", op, err)
	}

	itemQuery := `
		INSERT INTO sale_items (
			sale_id, product_id, name, quantity, unit_price, subtotal
		)
		VALUES ($1, $2, $3, $4, $5, $6);`

	for _, it := range v.Items {
		_, err := tx.ExecContext(ctx, itemQuery,
			v.SaleID, it.ProductID, it.Name, it.Quantity,
			it.UnitPrice.String(), it.Subtotal.String(),
		)
		if err != nil {
			return fmt.Errorf("%s: failed to insert sale item: %w", op, err)
		}
	}

	return nil
}
