// Package inventory owns stock reads and decrements made while placing orders.
package inventory

import (
	"context"
	"fmt"

	"github.com/matthieukhl/backoffice/internal/apperr"
	"github.com/matthieukhl/backoffice/internal/models"
	"github.com/matthieukhl/backoffice/internal/store"
)

// Ledger reserves stock for order lines. Every call takes the caller's
// transaction-bound store so the read and the decrement share one transaction.
type Ledger struct{}

func NewLedger() *Ledger {
	return &Ledger{}
}

// Lock loads a product and holds its row for the rest of the transaction
func (l *Ledger) Lock(ctx context.Context, tx *store.Store, productID int64) (*models.Product, error) {
	if !tx.InTransaction() {
		return nil, fmt.Errorf("inventory: lock of product %d outside a transaction", productID)
	}
	return tx.LockProduct(ctx, productID)
}

// Reserve takes quantity units of product out of stock. When the product
// lacks stock it returns an *apperr.InsufficientStockError and changes nothing.
// On success product.Stock reflects the new value.
func (l *Ledger) Reserve(ctx context.Context, tx *store.Store, product *models.Product, quantity int) error {
	if !tx.InTransaction() {
		return fmt.Errorf("inventory: reserve of product %d outside a transaction", product.ID)
	}
	if quantity <= 0 {
		return apperr.NewValidationError("quantity", "Ensure this value is greater than or equal to 1.")
	}

	if product.Stock < quantity {
		return insufficient(product, quantity)
	}

	ok, err := tx.DecrementStock(ctx, product.ID, quantity)
	if err != nil {
		return err
	}
	if !ok {
		// stock moved since the product was read
		current, err := tx.GetProduct(ctx, product.ID)
		if err != nil {
			return err
		}
		return insufficient(current, quantity)
	}

	product.Stock -= quantity
	return nil
}

func insufficient(p *models.Product, requested int) error {
	return &apperr.InsufficientStockError{
		ProductID:   p.ID,
		ProductName: p.Name,
		Requested:   requested,
		Available:   p.Stock,
	}
}
