// Package auth issues and resolves API tokens. It is the identity provider
// the rest of the back office consumes through Provider and Identity.
package auth

import (
	"context"

	"github.com/matthieukhl/backoffice/internal/models"
)

// Role classifies a caller
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleStandard Role = "standard"
)

// Identity is the authenticated caller. A nil *Identity is an anonymous caller.
type Identity struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	IsAdmin  bool   `json:"is_admin"`
}

// Role returns the caller's role
func (i *Identity) Role() Role {
	if i != nil && i.IsAdmin {
		return RoleAdmin
	}
	return RoleStandard
}

// IdentityFromUser maps an account onto the identity handed to the access layer
func IdentityFromUser(u *models.User) *Identity {
	return &Identity{
		UserID:   u.ID,
		Username: u.Username,
		Email:    models.NormalizeEmail(u.Email),
		IsAdmin:  u.IsStaff,
	}
}

// Provider resolves a bearer token into an identity
type Provider interface {
	Authenticate(ctx context.Context, token string) (*Identity, error)
}

type ctxKey struct{}

// WithIdentity stores the caller identity in ctx
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the caller identity, or nil for anonymous callers
func FromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(ctxKey{}).(*Identity)
	return id
}
