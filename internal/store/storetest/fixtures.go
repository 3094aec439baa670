// Package storetest seeds stores for tests in other packages
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/matthieukhl/backoffice/internal/database/dbtest"
	"github.com/matthieukhl/backoffice/internal/models"
	"github.com/matthieukhl/backoffice/internal/store"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// Now is the fixed clock used by fixtures
var Now = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

// New returns a store on a fresh migrated database
func New(t testing.TB) *store.Store {
	t.Helper()
	return store.New(dbtest.Open(t))
}

// Customer inserts a customer
func Customer(t testing.TB, st *store.Store, name, email string) *models.Customer {
	t.Helper()
	c := &models.Customer{Name: name, Email: email, CreatedAt: Now}
	require.NoError(t, st.CreateCustomer(context.Background(), c))
	return c
}

// Product inserts a product in the "other" category
func Product(t testing.TB, st *store.Store, name, price string, stock int) *models.Product {
	t.Helper()
	p := &models.Product{
		Name:      name,
		Price:     decimal.RequireFromString(price),
		Category:  models.CategoryOther,
		Stock:     stock,
		CreatedAt: Now,
		UpdatedAt: Now,
	}
	require.NoError(t, st.CreateProduct(context.Background(), p))
	return p
}

// Review inserts a review
func Review(t testing.TB, st *store.Store, productID, customerID int64, rating int) *models.Review {
	t.Helper()
	r := &models.Review{ProductID: productID, CustomerID: customerID, Rating: rating, CreatedAt: Now}
	require.NoError(t, st.CreateReview(context.Background(), r))
	return r
}

// Stock reads a product's current stock
func Stock(t testing.TB, st *store.Store, productID int64) int {
	t.Helper()
	p, err := st.GetProduct(context.Background(), productID)
	require.NoError(t, err)
	return p.Stock
}
