package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/offer-engine/internal/domain/catalog"
)

const (
	getProductsByIDsSQL = `SELECT id, name, category_id, price FROM products WHERE id = ANY($1)`

	upsertProductSQL = `INSERT INTO products (id, name, category_id, price)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			category_id = EXCLUDED.category_id,
			price = EXCLUDED.price`
)

var _ catalog.Repository = (*ProductRepository)(nil)

// ProductRepository implements catalog.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// GetByIDs returns products matching any of the given IDs. Unknown IDs are
// skipped.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []string) ([]catalog.Product, error) {
	rows, err := r.pool.Query(ctx, getProductsByIDsSQL, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get products by ids")
	}
	products, err := pgx.CollectRows(rows, scanProduct)
	if err != nil {
		return nil, errors.Wrap(err, "scan products")
	}
	return products, nil
}

// Upsert inserts the product or replaces the stored row with the same ID.
func (r *ProductRepository) Upsert(ctx context.Context, p *catalog.Product) error {
	if _, err := r.pool.Exec(ctx, upsertProductSQL, p.ID, p.Name, p.CategoryID, p.Price); err != nil {
		return errors.Wrapf(err, "upsert product %q", p.ID)
	}
	return nil
}

func scanProduct(row pgx.CollectableRow) (catalog.Product, error) {
	var (
		p     catalog.Product
		price decimal.Decimal
	)
	err := row.Scan(&p.ID, &p.Name, &p.CategoryID, &price)
	p.Price = price
	return p, err
}
