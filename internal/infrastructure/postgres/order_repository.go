package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	domain "github.com/Zhima-Mochi/minishop-storefront/internal/domain/order"
	"github.com/Zhima-Mochi/minishop-storefront/internal/domain/payment"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const orderColumns = `id, owner_uid, customer_email, coalesce(idempotency_key, ''), total_amount::text,
	shipping_address, status, payment_status, created_at, updated_at`

type OrderRepository struct {
	db *pgxpool.Pool
}

var _ domain.Repository = (*OrderRepository)(nil)

func NewOrderRepository(db *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{db: db}
}

// Insert writes the order and its lines in one transaction.
func (r *OrderRepository) Insert(ctx context.Context, o *domain.Order) (err error) {
	if o == nil || o.ID == "" {
		return fmt.Errorf("order repository: id is required")
	}
	address, err := json.Marshal(o.ShippingAddress)
	if err != nil {
		return fmt.Errorf("order repository: encode address: %w", err)
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("order repository: begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var key *string
	if o.IdempotencyKey != "" {
		key = &o.IdempotencyKey
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO orders (id, owner_uid, customer_email, idempotency_key, total_amount,
			shipping_address, status, payment_status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5::numeric, $6::jsonb, $7, $8, $9, $10)`,
		o.ID, o.OwnerUID, o.CustomerEmail, key, o.TotalAmount.String(),
		string(address), string(o.Status), string(o.PaymentStatus), o.CreatedAt, o.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return domain.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("order repository: insert %s: %w", o.ID, err)
	}

	batch := &pgx.Batch{}
	for i, l := range o.Lines {
		batch.Queue(`
			INSERT INTO order_lines (order_id, line_no, product_id, name, unit_price, quantity, subtotal)
			VALUES ($1, $2, $3, $4, $5::numeric, $6, $7::numeric)`,
			o.ID, i, l.ProductID, l.Name, l.UnitPrice.String(), l.Quantity, l.Subtotal.String(),
		)
	}
	if err = tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("order repository: insert lines for %s: %w", o.ID, err)
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("order repository: commit %s: %w", o.ID, err)
	}
	return nil
}

func (r *OrderRepository) Get(ctx context.Context, id string) (*domain.Order, error) {
	orders, err := r.query(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, domain.ErrNotFound
	}
	return orders[0], nil
}

func (r *OrderRepository) FindByIdempotency(ctx context.Context, ownerUID, key string) (*domain.Order, error) {
	if key == "" {
		return nil, domain.ErrNotFound
	}
	orders, err := r.query(ctx, `SELECT `+orderColumns+` FROM orders WHERE owner_uid = $1 AND idempotency_key = $2`, ownerUID, key)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, domain.ErrNotFound
	}
	return orders[0], nil
}

func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, expected, next domain.Status) (*domain.Order, error) {
	if err := domain.ValidateTransition(expected, next); err != nil {
		return nil, err
	}
	tag, err := r.db.Exec(ctx, `
		UPDATE orders SET status = $3, updated_at = now()
		WHERE id = $1 AND status = $2`,
		id, string(expected), string(next),
	)
	if err != nil {
		return nil, fmt.Errorf("order repository: update status %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return nil, r.casMiss(ctx, id)
	}
	return r.Get(ctx, id)
}

func (r *OrderRepository) UpdatePaymentStatus(ctx context.Context, id string, expected, next payment.Status) (*domain.Order, error) {
	if err := payment.ValidateTransition(expected, next); err != nil {
		return nil, err
	}
	tag, err := r.db.Exec(ctx, `
		UPDATE orders SET payment_status = $3, updated_at = now()
		WHERE id = $1 AND payment_status = $2`,
		id, string(expected), string(next),
	)
	if err != nil {
		return nil, fmt.Errorf("order repository: update payment status %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return nil, r.casMiss(ctx, id)
	}
	return r.Get(ctx, id)
}

// casMiss tells a missing order apart from a stale expected value.
func (r *OrderRepository) casMiss(ctx context.Context, id string) error {
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("order repository: check %s: %w", id, err)
	}
	if !exists {
		return domain.ErrNotFound
	}
	return domain.ErrConflict
}

func (r *OrderRepository) List(ctx context.Context, f domain.ListFilter) ([]*domain.Order, error) {
	var conds []string
	var args []any
	if f.OwnerUID != "" {
		args = append(args, f.OwnerUID)
		conds = append(conds, fmt.Sprintf("owner_uid = $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, string(f.Status))
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	q := `SELECT ` + orderColumns + ` FROM orders`
	if len(conds) > 0 {
		q += ` WHERE ` + strings.Join(conds, " AND ")
	}
	q += ` ORDER BY created_at DESC, id DESC`
	return r.query(ctx, q, args...)
}

// query loads orders and then their lines in a single follow-up query.
func (r *OrderRepository) query(ctx context.Context, q string, args ...any) ([]*domain.Order, error) {
	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("order repository: query: %w", err)
	}
	orders := make([]*domain.Order, 0)
	byID := make(map[string]*domain.Order)
	ids := make([]string, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("order repository: scan: %w", err)
		}
		orders = append(orders, o)
		byID[o.ID] = o
		ids = append(ids, o.ID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("order repository: iterate: %w", err)
	}
	if len(ids) == 0 {
		return orders, nil
	}

	lineRows, err := r.db.Query(ctx, `
		SELECT order_id, product_id, name, unit_price::text, quantity, subtotal::text
		FROM order_lines WHERE order_id = ANY($1)
		ORDER BY order_id, line_no`, ids)
	if err != nil {
		return nil, fmt.Errorf("order repository: query lines: %w", err)
	}
	defer lineRows.Close()
	for lineRows.Next() {
		var orderID, unitPrice, subtotal string
		var l domain.Line
		if err := lineRows.Scan(&orderID, &l.ProductID, &l.Name, &unitPrice, &l.Quantity, &subtotal); err != nil {
			return nil, fmt.Errorf("order repository: scan line: %w", err)
		}
		if l.UnitPrice, err = decimal.NewFromString(unitPrice); err != nil {
			return nil, fmt.Errorf("order repository: parse unit price: %w", err)
		}
		if l.Subtotal, err = decimal.NewFromString(subtotal); err != nil {
			return nil, fmt.Errorf("order repository: parse subtotal: %w", err)
		}
		if o, ok := byID[orderID]; ok {
			o.Lines = append(o.Lines, l)
		}
	}
	if err := lineRows.Err(); err != nil {
		return nil, fmt.Errorf("order repository: iterate lines: %w", err)
	}
	return orders, nil
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var o domain.Order
	var total, status, paymentStatus string
	var address []byte
	if err := row.Scan(&o.ID, &o.OwnerUID, &o.CustomerEmail, &o.IdempotencyKey, &total,
		&address, &status, &paymentStatus, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	d, err := decimal.NewFromString(total)
	if err != nil {
		return nil, fmt.Errorf("order %s: parse total: %w", o.ID, err)
	}
	o.TotalAmount = d
	o.Status = domain.Status(status)
	o.PaymentStatus = payment.Status(paymentStatus)
	if err := json.Unmarshal(address, &o.ShippingAddress); err != nil {
		return nil, fmt.Errorf("order %s: decode address: %w", o.ID, err)
	}
	return &o, nil
}
