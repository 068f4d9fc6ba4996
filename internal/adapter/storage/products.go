package storage

import (
	"context"
	"fmt"

	"github.com/niksmo/pos-terminal/internal/core/domain"
	"github.com/niksmo/pos-terminal/internal/core/port"
	"github.com/shopspring/decimal"
)

var _ port.ProductsLister = (*ProductsRepository)(nil)
var _ port.StockWriter = (*ProductsRepository)(nil)

type ProductsRepository struct {
	sqldb sqldb
}

func NewProductsRepository(sqldb sqldb) ProductsRepository {
	return ProductsRepository{sqldb}
}

func (r ProductsRepository) ListProducts(
	ctx context.Context, ownerID string,
) ([]domain.Product, error) {
	const op = "ProductsRepository.ListProducts"

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	query := `
		SELECT product_id, name, sku, category,
			unit_price, stock, created_at, updated_at
		FROM products
		WHERE owner_id = $1
		ORDER BY created_at ASC;`

	rows, err := r.sqldb.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var ps []domain.Product
	for rows.Next() {
		var v domain.Product
		var priceS string
		err := rows.Scan(
			&v.ProductID, &v.Name, &v.SKU, &v.Category,
			&priceS, &v.Stock, &v.CreatedAt, &v.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		v.UnitPrice, err = decimal.NewFromString(priceS)
		if err != nil {
			return nil, fmt.Errorf("%s: invalid unit price: %w", op, err)
		}
		ps = append(ps, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return ps, nil
}

func (r ProductsRepository) WriteStock(
	ctx context.Context, productID string, stock int,
) error {
	const op = "ProductsRepository.WriteStock"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	query := `
		UPDATE products SET stock = $2, updated_at = now()
		WHERE product_id = $1;`

	res, err := r.sqldb.ExecContext(ctx, query, productID, stock)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	}
	return nil
}
