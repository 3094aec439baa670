package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/matthieukhl/backoffice/internal/apperr"
	"github.com/matthieukhl/backoffice/internal/database"
	"github.com/matthieukhl/backoffice/internal/models"
)

const customerColumns = "id, name, email, phone, address, created_at"

// CustomerFilter narrows ListCustomers. Search matches name or email.
type CustomerFilter struct {
	Search string
}

func scanCustomer(row scanner) (*models.Customer, error) {
	var c models.Customer
	if err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Address, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func duplicateEmail() error {
	return apperr.NewValidationError("email", "customer with this email already exists.")
}

// CreateCustomer inserts c and sets its ID
func (s *Store) CreateCustomer(ctx context.Context, c *models.Customer) error {
	c.Email = models.NormalizeEmail(c.Email)

	res, err := s.q.ExecContext(ctx, `
		INSERT INTO customers (name, email, phone, address, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, c.Name, c.Email, c.Phone, c.Address, c.CreatedAt)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return duplicateEmail()
		}
		return fmt.Errorf("failed to insert customer: %w", err)
	}

	c.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read customer id: %w", err)
	}
	return nil
}

// GetCustomer loads a customer by id
func (s *Store) GetCustomer(ctx context.Context, id int64) (*models.Customer, error) {
	c, err := scanCustomer(s.q.QueryRowContext(ctx,
		"SELECT "+customerColumns+" FROM customers WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("customer", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load customer: %w", err)
	}
	return c, nil
}

// GetCustomerByEmail loads the customer owning email
func (s *Store) GetCustomerByEmail(ctx context.Context, email string) (*models.Customer, error) {
	c, err := scanCustomer(s.q.QueryRowContext(ctx,
		"SELECT "+customerColumns+" FROM customers WHERE email = ?", models.NormalizeEmail(email)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("customer %q: %w", email, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load customer: %w", err)
	}
	return c, nil
}

// ListCustomers returns customers ordered by id
func (s *Store) ListCustomers(ctx context.Context, f CustomerFilter) ([]models.Customer, error) {
	query := "SELECT " + customerColumns + " FROM customers"
	var args []any
	if f.Search != "" {
		query += " WHERE name LIKE ? ESCAPE '!' OR email LIKE ? ESCAPE '!'"
		p := likePattern(f.Search)
		args = append(args, p, p)
	}
	query += " ORDER BY id"

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}
	defer rows.Close()

	customers := []models.Customer{}
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		customers = append(customers, *c)
	}
	return customers, rows.Err()
}

// UpdateCustomer overwrites the mutable fields of c. The email is the
// customer's identity and is never written here.
func (s *Store) UpdateCustomer(ctx context.Context, c *models.Customer) error {
	_, err := s.q.ExecContext(ctx, `
		UPDATE customers SET name = ?, phone = ?, address = ?
		WHERE id = ?
	`, c.Name, c.Phone, c.Address, c.ID)
	if err != nil {
		return fmt.Errorf("failed to update customer: %w", err)
	}
	return nil
}

// DeleteCustomer removes a customer; its orders and reviews cascade
func (s *Store) DeleteCustomer(ctx context.Context, id int64) error {
	return s.deleteByID(ctx, "customers", "customer", id)
}

func (s *Store) deleteByID(ctx context.Context, table, kind string, id int64) error {
	res, err := s.q.ExecContext(ctx, "DELETE FROM "+table+" WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", kind, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", kind, err)
	}
	if n == 0 {
		return apperr.NotFound(kind, id)
	}
	return nil
}
