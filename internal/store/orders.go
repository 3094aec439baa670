package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/matthieukhl/backoffice/internal/apperr"
	"github.com/matthieukhl/backoffice/internal/models"
)

const orderSelect = `
	SELECT o.id, o.customer_id, c.name, c.email, o.order_date, o.status, o.updated_at
	FROM orders o
	JOIN customers c ON c.id = o.customer_id`

var orderOrdering = map[string]string{
	"order_date": "o.order_date",
	"status":     "o.status",
}

// OrderFilter narrows order queries. OwnerEmail restricts results to the
// orders of the customer with that email and is applied in the WHERE clause.
type OrderFilter struct {
	OwnerEmail string
	CustomerID int64
	Status     models.OrderStatus
	Ordering   string
}

func (f OrderFilter) conditions() ([]string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.OwnerEmail != "" {
		conds = append(conds, "c.email = ?")
		args = append(args, models.NormalizeEmail(f.OwnerEmail))
	}
	if f.CustomerID != 0 {
		conds = append(conds, "o.customer_id = ?")
		args = append(args, f.CustomerID)
	}
	if f.Status != "" {
		conds = append(conds, "o.status = ?")
		args = append(args, string(f.Status))
	}
	return conds, args
}

func scanOrder(row scanner) (*models.Order, error) {
	var o models.Order
	err := row.Scan(&o.ID, &o.CustomerID, &o.CustomerName, &o.CustomerEmail, &o.OrderDate, &o.Status, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	o.Items = []models.OrderItem{}
	return &o, nil
}

// CreateOrder inserts the order header and sets its ID. Items are inserted separately.
func (s *Store) CreateOrder(ctx context.Context, o *models.Order) error {
	res, err := s.q.ExecContext(ctx, `
		INSERT INTO orders (customer_id, order_date, status, updated_at)
		VALUES (?, ?, ?, ?)
	`, o.CustomerID, o.OrderDate, string(o.Status), o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	o.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read order id: %w", err)
	}
	return nil
}

// GetOrder loads an order with its items. Orders outside scope are reported as not found.
func (s *Store) GetOrder(ctx context.Context, id int64, scope OrderFilter) (*models.Order, error) {
	conds, args := scope.conditions()
	conds = append(conds, "o.id = ?")
	args = append(args, id)

	o, err := scanOrder(s.q.QueryRowContext(ctx, orderSelect+" WHERE "+strings.Join(conds, " AND "), args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("order", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load order: %w", err)
	}

	orders := []models.Order{*o}
	if err := s.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

// ListOrders returns the orders matching f, each with its items
func (s *Store) ListOrders(ctx context.Context, f OrderFilter) ([]models.Order, error) {
	query := orderSelect
	conds, args := f.conditions()
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += orderClause(f.Ordering, orderOrdering, "o.id")

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	orders := []models.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		orders = append(orders, *o)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	if err := s.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// UpdateOrderStatus stores a new status and bumps updated_at
func (s *Store) UpdateOrderStatus(ctx context.Context, id int64, status models.OrderStatus, now time.Time) error {
	_, err := s.q.ExecContext(ctx,
		"UPDATE orders SET status = ?, updated_at = ? WHERE id = ?",
		string(status), now, id)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	return nil
}

// TouchOrder bumps updated_at after the order's items changed
func (s *Store) TouchOrder(ctx context.Context, id int64, now time.Time) error {
	_, err := s.q.ExecContext(ctx, "UPDATE orders SET updated_at = ? WHERE id = ?", now, id)
	if err != nil {
		return fmt.Errorf("failed to touch order: %w", err)
	}
	return nil
}

// attachItems loads the items of all orders with one query, in insertion order
func (s *Store) attachItems(ctx context.Context, orders []models.Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]int64, len(orders))
	index := make(map[int64]int, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		index[o.ID] = i
	}

	items, err := s.listItems(ctx, "i.order_id IN "+inClause(len(ids)), int64Args(ids))
	if err != nil {
		return err
	}
	for _, item := range items {
		i := index[item.OrderID]
		orders[i].Items = append(orders[i].Items, item)
	}
	return nil
}
