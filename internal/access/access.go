// Package access decides who may read or write which records. Every check
// takes the caller identity explicitly; a nil identity is an anonymous caller.
package access

import (
	"fmt"
	"net/http"

	"github.com/matthieukhl/backoffice/internal/apperr"
	"github.com/matthieukhl/backoffice/internal/auth"
	"github.com/matthieukhl/backoffice/internal/models"
	"github.com/matthieukhl/backoffice/internal/store"
)

// Action is the kind of operation being authorized
type Action int

const (
	Read Action = iota
	Write
)

func (a Action) String() string {
	if a == Read {
		return "read"
	}
	return "write"
}

// ActionForMethod maps an HTTP method onto an Action. GET, HEAD and OPTIONS are reads.
func ActionForMethod(method string) Action {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return Read
	default:
		return Write
	}
}

// Owned is a record that belongs to the customer with the returned email
type Owned interface {
	OwnerEmail() string
}

var (
	_ Owned = (*models.Customer)(nil)
	_ Owned = (*models.Order)(nil)
	_ Owned = (*models.Review)(nil)
)

// RequireAuthenticated rejects anonymous callers
func RequireAuthenticated(id *auth.Identity) error {
	if id == nil {
		return apperr.ErrAuthenticationRequired
	}
	return nil
}

// RequireAdmin allows admins only
func RequireAdmin(id *auth.Identity) error {
	if err := RequireAuthenticated(id); err != nil {
		return err
	}
	if !id.IsAdmin {
		return fmt.Errorf("admin role required: %w", apperr.ErrPermissionDenied)
	}
	return nil
}

// ReadOpenWriteAdmin lets anyone read and only admins write
func ReadOpenWriteAdmin(id *auth.Identity, action Action) error {
	if action == Read {
		return nil
	}
	return RequireAdmin(id)
}

// OwnerOrAdmin lets anyone read obj and lets its owner or an admin write it
func OwnerOrAdmin(id *auth.Identity, action Action, obj Owned) error {
	if action == Read {
		return nil
	}
	if err := RequireAuthenticated(id); err != nil {
		return err
	}
	if id.IsAdmin || IsOwner(id, obj) {
		return nil
	}
	return fmt.Errorf("%s not allowed for %s: %w", action, id.Username, apperr.ErrPermissionDenied)
}

// IsOwner reports whether obj belongs to the caller. Emails compare case-insensitively
// and an empty email owns nothing.
func IsOwner(id *auth.Identity, obj Owned) bool {
	if id == nil || obj == nil {
		return false
	}
	email := models.NormalizeEmail(id.Email)
	return email != "" && email == models.NormalizeEmail(obj.OwnerEmail())
}

// OrderScope returns the filter restricting order reads to what the caller may
// see. Admins are unrestricted.
func OrderScope(id *auth.Identity) store.OrderFilter {
	if id != nil && id.IsAdmin {
		return store.OrderFilter{}
	}
	email := ""
	if id != nil {
		email = models.NormalizeEmail(id.Email)
	}
	if email == "" {
		// matches no customer row
		return store.OrderFilter{OwnerEmail: "\x00"}
	}
	return store.OrderFilter{OwnerEmail: email}
}

// CanViewCustomerOrders allows admins and the customer themself
func CanViewCustomerOrders(id *auth.Identity, customer *models.Customer) error {
	if err := RequireAuthenticated(id); err != nil {
		return err
	}
	if id.IsAdmin || IsOwner(id, customer) {
		return nil
	}
	return fmt.Errorf("orders of customer %d: %w", customer.ID, apperr.ErrPermissionDenied)
}
