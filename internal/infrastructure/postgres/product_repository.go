package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	domain "github.com/Zhima-Mochi/minishop-storefront/internal/domain/catalog"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const productColumns = `id, name, price::text, stock, category, description, image_url, created_at, updated_at`

type ProductRepository struct {
	db *pgxpool.Pool
}

var _ domain.Repository = (*ProductRepository)(nil)

func NewProductRepository(db *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{db: db}
}

func scanProduct(row pgx.Row) (*domain.Product, error) {
	var p domain.Product
	var price string
	if err := row.Scan(&p.ID, &p.Name, &price, &p.Stock, &p.Category, &p.Description, &p.ImageURL, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	d, err := decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("product %s: parse price %q: %w", p.ID, price, err)
	}
	p.Price = d
	return &p, nil
}

func (r *ProductRepository) Get(ctx context.Context, id string) (*domain.Product, error) {
	p, err := scanProduct(r.db.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("product repository: get %s: %w", id, err)
	}
	return p, nil
}

func (r *ProductRepository) List(ctx context.Context, f domain.ListFilter) ([]*domain.Product, error) {
	var conds []string
	var args []any
	if f.Category != "" {
		args = append(args, strings.ToLower(f.Category))
		conds = append(conds, fmt.Sprintf("lower(category) = $%d", len(args)))
	}
	if f.InStockOnly {
		conds = append(conds, "stock > 0")
	}
	q := `SELECT ` + productColumns + ` FROM products`
	if len(conds) > 0 {
		q += ` WHERE ` + strings.Join(conds, " AND ")
	}
	q += ` ORDER BY name, id`

	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("product repository: list: %w", err)
	}
	defer rows.Close()

	out := make([]*domain.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("product repository: scan: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("product repository: iterate: %w", err)
	}
	return out, nil
}

// AdjustStock is a single conditional UPDATE; the row lock makes check and write atomic.
func (r *ProductRepository) AdjustStock(ctx context.Context, id string, delta, expectedMinimum int) (int, error) {
	var stock int
	err := r.db.QueryRow(ctx, `
		UPDATE products
		SET stock = stock + $2, updated_at = now()
		WHERE id = $1 AND stock >= $3 AND stock + $2 >= 0
		RETURNING stock`,
		id, delta, expectedMinimum,
	).Scan(&stock)
	if err == nil {
		return stock, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("product repository: adjust stock %s: %w", id, err)
	}

	err = r.db.QueryRow(ctx, `SELECT stock FROM products WHERE id = $1`, id).Scan(&stock)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, domain.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("product repository: read stock %s: %w", id, err)
	}
	return stock, domain.ErrStockConflict
}

func (r *ProductRepository) Create(ctx context.Context, p *domain.Product) error {
	if err := p.Validate(); err != nil {
		return err
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO products (id, name, price, stock, category, description, image_url, created_at, updated_at)
		VALUES ($1, $2, $3::numeric, $4, $5, $6, $7, $8, $9)`,
		p.ID, p.Name, p.Price.String(), p.Stock, p.Category, p.Description, p.ImageURL, p.CreatedAt, p.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return domain.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("product repository: create %s: %w", p.ID, err)
	}
	return nil
}

func (r *ProductRepository) Update(ctx context.Context, p *domain.Product) error {
	if err := p.Validate(); err != nil {
		return err
	}
	tag, err := r.db.Exec(ctx, `
		UPDATE products
		SET name = $2, price = $3::numeric, category = $4, description = $5, image_url = $6, updated_at = now()
		WHERE id = $1`,
		p.ID, p.Name, p.Price.String(), p.Category, p.Description, p.ImageURL,
	)
	if err != nil {
		return fmt.Errorf("product repository: update %s: %w", p.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *ProductRepository) SetStock(ctx context.Context, id string, stock int) error {
	if stock < 0 {
		return domain.ErrInvalidQuantity
	}
	tag, err := r.db.Exec(ctx, `UPDATE products SET stock = $2, updated_at = now() WHERE id = $1`, id, stock)
	if err != nil {
		return fmt.Errorf("product repository: set stock %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("product repository: delete %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
