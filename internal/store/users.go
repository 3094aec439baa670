package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/matthieukhl/backoffice/internal/apperr"
	"github.com/matthieukhl/backoffice/internal/database"
	"github.com/matthieukhl/backoffice/internal/models"
)

const userColumns = "u.id, u.username, u.email, u.password_hash, u.is_staff, u.created_at"

func scanUser(row scanner) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.IsStaff, &u.CreatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateUser inserts u and sets its ID
func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	res, err := s.q.ExecContext(ctx, `
		INSERT INTO users (username, email, password_hash, is_staff, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, u.Username, u.Email, u.PasswordHash, u.IsStaff, u.CreatedAt)
	if err != nil {
		if database.IsUniqueViolation(err) {
			if msg := err.Error(); strings.Contains(msg, "uk_users_email") || strings.Contains(msg, "users.email") {
				return duplicateUserEmail()
			}
			return apperr.NewValidationError("username", "Username already exists")
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}

	u.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read user id: %w", err)
	}
	return nil
}

func duplicateUserEmail() error {
	return apperr.NewValidationError("email", "A user with this email already exists.")
}

// EnsureUserEmailFree fails with a validation error when another user already
// registered email. An empty email is never taken.
func (s *Store) EnsureUserEmailFree(ctx context.Context, email string) error {
	if email == "" {
		return nil
	}
	var n int
	err := s.q.QueryRowContext(ctx, "SELECT COUNT(*) FROM users WHERE email = ?", email).Scan(&n)
	if err != nil {
		return fmt.Errorf("failed to check user email: %w", err)
	}
	if n > 0 {
		return duplicateUserEmail()
	}
	return nil
}

// GetUserByUsername loads a user by login name
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	u, err := scanUser(s.q.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users u WHERE u.username = ?", username))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %q: %w", username, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return u, nil
}

// GetUserByToken resolves an auth token to its user
func (s *Store) GetUserByToken(ctx context.Context, key string) (*models.User, error) {
	u, err := scanUser(s.q.QueryRowContext(ctx, `
		SELECT `+userColumns+`
		FROM auth_tokens t
		JOIN users u ON u.id = t.user_id
		WHERE t.token_key = ?`, key))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("token: %w", apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve token: %w", err)
	}
	return u, nil
}

// TokenForUser returns the token currently issued to a user
func (s *Store) TokenForUser(ctx context.Context, userID int64) (string, error) {
	var key string
	err := s.q.QueryRowContext(ctx, "SELECT token_key FROM auth_tokens WHERE user_id = ?", userID).Scan(&key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("token for user %d: %w", userID, apperr.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("failed to load token: %w", err)
	}
	return key, nil
}

// SaveToken issues key to a user. A user holds at most one token.
func (s *Store) SaveToken(ctx context.Context, userID int64, key string, now time.Time) error {
	_, err := s.q.ExecContext(ctx,
		"INSERT INTO auth_tokens (token_key, user_id, created_at) VALUES (?, ?, ?)",
		key, userID, now)
	if err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}

// DeleteTokensForUser revokes every token of a user and returns the revoked keys
func (s *Store) DeleteTokensForUser(ctx context.Context, userID int64) ([]string, error) {
	rows, err := s.q.QueryContext(ctx, "SELECT token_key FROM auth_tokens WHERE user_id = ?", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load tokens: %w", err)
	}
	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			rows.Close()
			return nil, err
		}
		keys = append(keys, key)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if _, err := s.q.ExecContext(ctx, "DELETE FROM auth_tokens WHERE user_id = ?", userID); err != nil {
		return nil, fmt.Errorf("failed to delete tokens: %w", err)
	}
	return keys, nil
}
