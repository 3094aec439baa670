package access

import (
	"context"
	"errors"
	"time"

	"github.com/matthieukhl/backoffice/internal/apperr"
	"github.com/matthieukhl/backoffice/internal/auth"
	"github.com/matthieukhl/backoffice/internal/models"
	"github.com/matthieukhl/backoffice/internal/store"
)

// Linker binds identities to Customer records keyed by email
type Linker struct {
	store *store.Store
	now   func() time.Time
}

func NewLinker(st *store.Store) *Linker {
	return &Linker{store: st, now: func() time.Time { return time.Now().UTC() }}
}

// EnsureCustomer returns the Customer owned by the caller, creating it with the
// caller's username as name when none exists. Calling it twice yields the same record.
func (l *Linker) EnsureCustomer(ctx context.Context, id *auth.Identity) (*models.Customer, error) {
	if err := RequireAuthenticated(id); err != nil {
		return nil, err
	}
	email := models.NormalizeEmail(id.Email)
	if email == "" {
		return nil, apperr.NewValidationError("customer", "Your account has no email to link a customer to.")
	}

	c, err := l.store.GetCustomerByEmail(ctx, email)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}

	c = &models.Customer{Name: id.Username, Email: email, CreatedAt: l.now()}
	err = l.store.CreateCustomer(ctx, c)
	var ve *apperr.ValidationError
	if errors.As(err, &ve) {
		// created concurrently
		return l.store.GetCustomerByEmail(ctx, email)
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}
