package access

import (
	"context"
	"net/http"
	"testing"

	"github.com/matthieukhl/backoffice/internal/apperr"
	"github.com/matthieukhl/backoffice/internal/auth"
	"github.com/matthieukhl/backoffice/internal/models"
	"github.com/matthieukhl/backoffice/internal/store/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	admin = &auth.Identity{UserID: 1, Username: "root", Email: "root@shop.test", IsAdmin: true}
	ada   = &auth.Identity{UserID: 2, Username: "ada", Email: "Ada@Example.com"}
	bob   = &auth.Identity{UserID: 3, Username: "bob", Email: "bob@example.com"}
)

func TestActionForMethod(t *testing.T) {
	assert.Equal(t, Read, ActionForMethod(http.MethodGet))
	assert.Equal(t, Read, ActionForMethod(http.MethodHead))
	assert.Equal(t, Read, ActionForMethod(http.MethodOptions))
	assert.Equal(t, Write, ActionForMethod(http.MethodPost))
	assert.Equal(t, Write, ActionForMethod(http.MethodPatch))
	assert.Equal(t, Write, ActionForMethod(http.MethodDelete))
}

func TestReadOpenWriteAdmin(t *testing.T) {
	assert.NoError(t, ReadOpenWriteAdmin(nil, Read))
	assert.ErrorIs(t, ReadOpenWriteAdmin(nil, Write), apperr.ErrAuthenticationRequired)
	assert.ErrorIs(t, ReadOpenWriteAdmin(ada, Write), apperr.ErrPermissionDenied)
	assert.NoError(t, ReadOpenWriteAdmin(admin, Write))
}

func TestOwnerOrAdmin(t *testing.T) {
	review := &models.Review{CustomerEmail: "ada@example.com"}

	assert.NoError(t, OwnerOrAdmin(nil, Read, review))
	assert.NoError(t, OwnerOrAdmin(ada, Write, review))
	assert.NoError(t, OwnerOrAdmin(admin, Write, review))
	assert.ErrorIs(t, OwnerOrAdmin(bob, Write, review), apperr.ErrPermissionDenied)
	assert.ErrorIs(t, OwnerOrAdmin(nil, Write, review), apperr.ErrAuthenticationRequired)
}

func TestIsOwnerIgnoresEmptyEmails(t *testing.T) {
	noEmail := &auth.Identity{UserID: 4, Username: "ghost"}
	assert.False(t, IsOwner(noEmail, &models.Customer{}))
	assert.False(t, IsOwner(nil, &models.Customer{Email: "ada@example.com"}))
	assert.True(t, IsOwner(ada, &models.Customer{Email: "ADA@example.com"}))
}

func TestOrderScope(t *testing.T) {
	assert.Equal(t, "", OrderScope(admin).OwnerEmail)
	assert.Equal(t, "ada@example.com", OrderScope(ada).OwnerEmail)
	assert.NotEmpty(t, OrderScope(&auth.Identity{Username: "ghost"}).OwnerEmail)
}

func TestOrderScopeHidesOtherCustomersOrders(t *testing.T) {
	st := storetest.New(t)
	ctx := context.Background()
	adaC := storetest.Customer(t, st, "Ada", "ada@example.com")
	bobC := storetest.Customer(t, st, "Bob", "bob@example.com")
	for _, c := range []*models.Customer{adaC, bobC} {
		o := &models.Order{CustomerID: c.ID, Status: models.OrderStatusPending, OrderDate: storetest.Now, UpdatedAt: storetest.Now}
		require.NoError(t, st.CreateOrder(ctx, o))
	}

	orders, err := st.ListOrders(ctx, OrderScope(ada))
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, adaC.ID, orders[0].CustomerID)

	orders, err = st.ListOrders(ctx, OrderScope(&auth.Identity{Username: "ghost"}))
	require.NoError(t, err)
	assert.Empty(t, orders)

	orders, err = st.ListOrders(ctx, OrderScope(admin))
	require.NoError(t, err)
	assert.Len(t, orders, 2)
}

func TestCanViewCustomerOrders(t *testing.T) {
	c := &models.Customer{ID: 7, Email: "ada@example.com"}
	assert.ErrorIs(t, CanViewCustomerOrders(nil, c), apperr.ErrAuthenticationRequired)
	assert.NoError(t, CanViewCustomerOrders(ada, c))
	assert.NoError(t, CanViewCustomerOrders(admin, c))
	assert.ErrorIs(t, CanViewCustomerOrders(bob, c), apperr.ErrPermissionDenied)
}

func TestEnsureCustomerIsIdempotent(t *testing.T) {
	st := storetest.New(t)
	linker := NewLinker(st)
	ctx := context.Background()

	first, err := linker.EnsureCustomer(ctx, ada)
	require.NoError(t, err)
	assert.Equal(t, "ada", first.Name)
	assert.Equal(t, "ada@example.com", first.Email)

	second, err := linker.EnsureCustomer(ctx, ada)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestEnsureCustomerLinksExistingRecord(t *testing.T) {
	st := storetest.New(t)
	existing := storetest.Customer(t, st, "Bob Builder", "bob@example.com")

	c, err := NewLinker(st).EnsureCustomer(context.Background(), bob)
	require.NoError(t, err)
	assert.Equal(t, existing.ID, c.ID)
	assert.Equal(t, "Bob Builder", c.Name)
}

func TestEnsureCustomerRequiresEmail(t *testing.T) {
	linker := NewLinker(storetest.New(t))

	_, err := linker.EnsureCustomer(context.Background(), &auth.Identity{Username: "ghost"})
	var ve *apperr.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "customer")

	_, err = linker.EnsureCustomer(context.Background(), nil)
	assert.ErrorIs(t, err, apperr.ErrAuthenticationRequired)
}
