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

const productColumns = "id, name, description, price, category, stock, created_at, updated_at"

var productOrdering = map[string]string{
	"price":      "price",
	"created_at": "created_at",
	"stock":      "stock",
}

// ProductFilter narrows ListProducts. Search matches name or description;
// Ordering accepts price, created_at or stock with an optional "-" prefix.
type ProductFilter struct {
	Category     models.Category
	Search       string
	Ordering     string
	LowStockOnly bool
}

func scanProduct(row scanner) (*models.Product, error) {
	var p models.Product
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Category, &p.Stock, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CreateProduct inserts p and sets its ID
func (s *Store) CreateProduct(ctx context.Context, p *models.Product) error {
	res, err := s.q.ExecContext(ctx, `
		INSERT INTO products (name, description, price, category, stock, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, p.Name, p.Description, p.Price, string(p.Category), p.Stock, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert product: %w", err)
	}

	p.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read product id: %w", err)
	}
	return nil
}

// GetProduct loads a product by id
func (s *Store) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	return s.getProduct(ctx, id, "")
}

// LockProduct loads a product and holds its row until the transaction ends.
// It must be called on a Store bound to a transaction.
func (s *Store) LockProduct(ctx context.Context, id int64) (*models.Product, error) {
	if !s.inTx {
		return nil, fmt.Errorf("failed to lock product %d: not in a transaction", id)
	}
	return s.getProduct(ctx, id, s.dialect.LockClause())
}

func (s *Store) getProduct(ctx context.Context, id int64, lock string) (*models.Product, error) {
	p, err := scanProduct(s.q.QueryRowContext(ctx,
		"SELECT "+productColumns+" FROM products WHERE id = ?"+lock, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("product", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load product: %w", err)
	}
	return p, nil
}

// ListProducts returns the products matching f
func (s *Store) ListProducts(ctx context.Context, f ProductFilter) ([]models.Product, error) {
	var (
		conds []string
		args  []any
	)
	if f.Category != "" {
		conds = append(conds, "category = ?")
		args = append(args, string(f.Category))
	}
	if f.Search != "" {
		conds = append(conds, "(name LIKE ? ESCAPE '!' OR description LIKE ? ESCAPE '!')")
		p := likePattern(f.Search)
		args = append(args, p, p)
	}
	if f.LowStockOnly {
		conds = append(conds, "stock < ?")
		args = append(args, models.LowStockThreshold)
	}

	query := "SELECT " + productColumns + " FROM products"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += orderClause(f.Ordering, productOrdering, "id")

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	products := []models.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

// UpdateProduct overwrites the catalogue fields of p
func (s *Store) UpdateProduct(ctx context.Context, p *models.Product) error {
	_, err := s.q.ExecContext(ctx, `
		UPDATE products
		SET name = ?, description = ?, price = ?, category = ?, stock = ?, updated_at = ?
		WHERE id = ?
	`, p.Name, p.Description, p.Price, string(p.Category), p.Stock, p.UpdatedAt, p.ID)
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	return nil
}

// DeleteProduct removes a product; its order items and reviews cascade
func (s *Store) DeleteProduct(ctx context.Context, id int64) error {
	return s.deleteByID(ctx, "products", "product", id)
}

// DecrementStock removes quantity units from a product only while enough
// stock remains. It returns false when the row was left untouched.
func (s *Store) DecrementStock(ctx context.Context, id int64, quantity int) (bool, error) {
	res, err := s.q.ExecContext(ctx,
		"UPDATE products SET stock = stock - ? WHERE id = ? AND stock >= ?",
		quantity, id, quantity)
	if err != nil {
		return false, fmt.Errorf("failed to decrement stock: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to decrement stock: %w", err)
	}
	return n == 1, nil
}

// RatingSummaries aggregates review ratings for the given products
func (s *Store) RatingSummaries(ctx context.Context, productIDs []int64) (map[int64]models.RatingSummary, error) {
	summaries := make(map[int64]models.RatingSummary, len(productIDs))
	if len(productIDs) == 0 {
		return summaries, nil
	}

	rows, err := s.q.QueryContext(ctx, `
		SELECT product_id, COUNT(*), SUM(rating)
		FROM reviews
		WHERE product_id IN `+inClause(len(productIDs))+`
		GROUP BY product_id`, int64Args(productIDs)...)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate ratings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id int64
			rs models.RatingSummary
		)
		if err := rows.Scan(&id, &rs.Count, &rs.Sum); err != nil {
			return nil, err
		}
		summaries[id] = rs
	}
	return summaries, rows.Err()
}
