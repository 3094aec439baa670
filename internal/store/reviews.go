package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/matthieukhl/backoffice/internal/apperr"
	"github.com/matthieukhl/backoffice/internal/database"
	"github.com/matthieukhl/backoffice/internal/models"
)

const reviewSelect = `
	SELECT r.id, r.product_id, r.customer_id, c.name, c.email, r.rating, r.comment, r.created_at
	FROM reviews r
	JOIN customers c ON c.id = r.customer_id`

// ReviewFilter narrows ListReviews; zero values are ignored
type ReviewFilter struct {
	ProductID  int64
	CustomerID int64
	Rating     int
}

func scanReview(row scanner) (*models.Review, error) {
	var r models.Review
	err := row.Scan(&r.ID, &r.ProductID, &r.CustomerID, &r.CustomerName, &r.CustomerEmail, &r.Rating, &r.Comment, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// DuplicateReview is the validation error for a second review of the same
// product by the same customer.
func DuplicateReview() error {
	return apperr.NewValidationError("non_field_errors", "The fields product, customer must make a unique set.")
}

// CreateReview inserts r and sets its ID
func (s *Store) CreateReview(ctx context.Context, r *models.Review) error {
	res, err := s.q.ExecContext(ctx, `
		INSERT INTO reviews (product_id, customer_id, rating, comment, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, r.ProductID, r.CustomerID, r.Rating, r.Comment, r.CreatedAt)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return DuplicateReview()
		}
		return fmt.Errorf("failed to insert review: %w", err)
	}

	r.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read review id: %w", err)
	}
	return nil
}

// ReviewExists reports whether customerID already reviewed productID
func (s *Store) ReviewExists(ctx context.Context, productID, customerID int64) (bool, error) {
	var count int
	err := s.q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM reviews WHERE product_id = ? AND customer_id = ?",
		productID, customerID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check review: %w", err)
	}
	return count > 0, nil
}

// GetReview loads a review by id
func (s *Store) GetReview(ctx context.Context, id int64) (*models.Review, error) {
	r, err := scanReview(s.q.QueryRowContext(ctx, reviewSelect+" WHERE r.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("review", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load review: %w", err)
	}
	return r, nil
}

// ListReviews returns reviews ordered by id
func (s *Store) ListReviews(ctx context.Context, f ReviewFilter) ([]models.Review, error) {
	var (
		conds []string
		args  []any
	)
	if f.ProductID != 0 {
		conds = append(conds, "r.product_id = ?")
		args = append(args, f.ProductID)
	}
	if f.CustomerID != 0 {
		conds = append(conds, "r.customer_id = ?")
		args = append(args, f.CustomerID)
	}
	if f.Rating != 0 {
		conds = append(conds, "r.rating = ?")
		args = append(args, f.Rating)
	}

	query := reviewSelect
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY r.id"

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	defer rows.Close()

	reviews := []models.Review{}
	for rows.Next() {
		r, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		reviews = append(reviews, *r)
	}
	return reviews, rows.Err()
}

// UpdateReview stores new rating and comment values
func (s *Store) UpdateReview(ctx context.Context, r *models.Review) error {
	_, err := s.q.ExecContext(ctx,
		"UPDATE reviews SET rating = ?, comment = ? WHERE id = ?",
		r.Rating, r.Comment, r.ID)
	if err != nil {
		return fmt.Errorf("failed to update review: %w", err)
	}
	return nil
}

// DeleteReview removes a review
func (s *Store) DeleteReview(ctx context.Context, id int64) error {
	return s.deleteByID(ctx, "reviews", "review", id)
}
