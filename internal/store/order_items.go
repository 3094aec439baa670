package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/matthieukhl/backoffice/internal/apperr"
	"github.com/matthieukhl/backoffice/internal/models"
)

const orderItemSelect = `
	SELECT i.id, i.order_id, i.product_id, p.name, i.quantity, i.price
	FROM order_items i
	JOIN products p ON p.id = i.product_id`

// OrderItemFilter narrows ListOrderItems. OwnerEmail keeps only items of
// orders placed by the customer with that email.
type OrderItemFilter struct {
	OrderID    int64
	OwnerEmail string
}

func scanOrderItem(row scanner) (*models.OrderItem, error) {
	var it models.OrderItem
	if err := row.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductName, &it.Quantity, &it.Price); err != nil {
		return nil, err
	}
	return &it, nil
}

// CreateOrderItem inserts an item and sets its ID. Price must already hold
// the product price captured for this item.
func (s *Store) CreateOrderItem(ctx context.Context, it *models.OrderItem) error {
	res, err := s.q.ExecContext(ctx, `
		INSERT INTO order_items (order_id, product_id, quantity, price)
		VALUES (?, ?, ?, ?)
	`, it.OrderID, it.ProductID, it.Quantity, it.Price)
	if err != nil {
		return fmt.Errorf("failed to insert order item: %w", err)
	}

	it.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read order item id: %w", err)
	}
	return nil
}

// GetOrderItem loads an item by id
func (s *Store) GetOrderItem(ctx context.Context, id int64) (*models.OrderItem, error) {
	it, err := scanOrderItem(s.q.QueryRowContext(ctx, orderItemSelect+" WHERE i.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("order item", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load order item: %w", err)
	}
	return it, nil
}

// ListOrderItems returns items ordered by id
func (s *Store) ListOrderItems(ctx context.Context, f OrderItemFilter) ([]models.OrderItem, error) {
	var (
		conds []string
		args  []any
	)
	if f.OrderID != 0 {
		conds = append(conds, "i.order_id = ?")
		args = append(args, f.OrderID)
	}
	if f.OwnerEmail != "" {
		conds = append(conds, `i.order_id IN (
			SELECT o.id FROM orders o JOIN customers c ON c.id = o.customer_id WHERE c.email = ?)`)
		args = append(args, models.NormalizeEmail(f.OwnerEmail))
	}
	return s.listItems(ctx, strings.Join(conds, " AND "), args)
}

// DeleteOrderItem removes an item
func (s *Store) DeleteOrderItem(ctx context.Context, id int64) error {
	return s.deleteByID(ctx, "order_items", "order item", id)
}

func (s *Store) listItems(ctx context.Context, where string, args []any) ([]models.OrderItem, error) {
	query := orderItemSelect
	if where != "" {
		query += " WHERE " + where
	}
	query += " ORDER BY i.id"

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list order items: %w", err)
	}
	defer rows.Close()

	items := []models.OrderItem{}
	for rows.Next() {
		it, err := scanOrderItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *it)
	}
	return items, rows.Err()
}
