package cmd

import (
	"context"
	"testing"

	"github.com/matthieukhl/backoffice/internal/inventory"
	"github.com/matthieukhl/backoffice/internal/models"
	"github.com/matthieukhl/backoffice/internal/orders"
	"github.com/matthieukhl/backoffice/internal/store"
	"github.com/matthieukhl/backoffice/internal/store/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestPopulateSampleData(t *testing.T) {
	st := storetest.New(t)
	engine := orders.NewEngine(st, inventory.NewLedger(), zap.NewNop())
	ctx := context.Background()

	orderCount = 20
	require.NoError(t, populateSampleData(ctx, st, engine, storetest.Now))

	customers, err := st.ListCustomers(ctx, store.CustomerFilter{})
	require.NoError(t, err)
	assert.Len(t, customers, 10)

	products, err := st.ListProducts(ctx, store.ProductFilter{})
	require.NoError(t, err)
	require.Len(t, products, 15)
	for _, p := range products {
		assert.True(t, p.Category.Valid(), p.Name)
		assert.GreaterOrEqual(t, p.Stock, 0, p.Name)
	}

	placed, err := st.ListOrders(ctx, store.OrderFilter{})
	require.NoError(t, err)
	assert.NotEmpty(t, placed)
	for _, o := range placed {
		assert.Equal(t, models.OrderStatusPending, o.Status)
		assert.True(t, o.TotalAmount().IsPositive())
	}

	reviews, err := st.ListReviews(ctx, store.ReviewFilter{})
	require.NoError(t, err)
	assert.Len(t, reviews, 30)
	for _, r := range reviews {
		assert.True(t, models.ValidRating(r.Rating))
	}
}
