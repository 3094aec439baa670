// Package orders places orders and moves them through their statuses.
package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/matthieukhl/backoffice/internal/apperr"
	"github.com/matthieukhl/backoffice/internal/inventory"
	"github.com/matthieukhl/backoffice/internal/models"
	"github.com/matthieukhl/backoffice/internal/store"
	"go.uber.org/zap"
)

// LineItem is one requested product line of a new order
type LineItem struct {
	ProductID int64
	Quantity  int
}

// Engine creates orders atomically: stock is checked, prices are captured and
// inventory is decremented in a single transaction.
type Engine struct {
	store       *store.Store
	ledger      *inventory.Ledger
	logger      *zap.Logger
	transitions TransitionPolicy
	now         func() time.Time
}

type Option func(*Engine)

// WithTransitions replaces the default AnyTransition policy
func WithTransitions(p TransitionPolicy) Option {
	return func(e *Engine) { e.transitions = p }
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func NewEngine(st *store.Store, ledger *inventory.Ledger, logger *zap.Logger, opts ...Option) *Engine {
	e := &Engine{
		store:       st,
		ledger:      ledger,
		logger:      logger,
		transitions: AnyTransition{},
		now:         func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func validateLines(lines []LineItem) error {
	ve := &apperr.ValidationError{}
	if len(lines) == 0 {
		ve.Add("items", "Order must contain at least one item.")
	}
	for i, line := range lines {
		if line.Quantity < 1 {
			ve.Add(fmt.Sprintf("items[%d].quantity", i), "Ensure this value is greater than or equal to 1.")
		}
		if line.ProductID <= 0 {
			ve.Add(fmt.Sprintf("items[%d].product", i), "This field is required.")
		}
	}
	return ve.OrNil()
}

// CreateOrder places an order for customerID. Either every line is reserved
// and the order is stored with its items, or nothing changes.
func (e *Engine) CreateOrder(ctx context.Context, customerID int64, lines []LineItem) (*models.Order, error) {
	if err := validateLines(lines); err != nil {
		return nil, err
	}

	var order *models.Order
	err := e.store.InTx(ctx, func(tx *store.Store) error {
		if _, err := tx.GetCustomer(ctx, customerID); err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				return apperr.NewValidationError("customer", fmt.Sprintf("Invalid pk \"%d\" - object does not exist.", customerID))
			}
			return err
		}

		now := e.now()
		header := &models.Order{
			CustomerID: customerID,
			OrderDate:  now,
			Status:     models.OrderStatusPending,
			UpdatedAt:  now,
		}
		if err := tx.CreateOrder(ctx, header); err != nil {
			return err
		}

		for i, line := range lines {
			if err := e.reserveLine(ctx, tx, header.ID, line, fmt.Sprintf("items[%d].product", i)); err != nil {
				return err
			}
		}

		var err error
		order, err = tx.GetOrder(ctx, header.ID, store.OrderFilter{})
		return err
	})
	if err != nil {
		e.logger.Info("order rejected", zap.Int64("customer_id", customerID), zap.Error(err))
		return nil, err
	}

	e.logger.Info("order created",
		zap.Int64("order_id", order.ID),
		zap.Int64("customer_id", customerID),
		zap.Int("items", len(order.Items)),
		zap.String("total_amount", order.TotalAmount().StringFixed(2)))
	return order, nil
}

// AddItem appends one line to an existing order, capturing the price and
// reserving stock in its own transaction.
func (e *Engine) AddItem(ctx context.Context, orderID int64, line LineItem) (*models.OrderItem, error) {
	ve := &apperr.ValidationError{}
	if line.Quantity < 1 {
		ve.Add("quantity", "Ensure this value is greater than or equal to 1.")
	}
	if line.ProductID <= 0 {
		ve.Add("product", "This field is required.")
	}
	if err := ve.OrNil(); err != nil {
		return nil, err
	}

	var item *models.OrderItem
	err := e.store.InTx(ctx, func(tx *store.Store) error {
		if _, err := tx.GetOrder(ctx, orderID, store.OrderFilter{}); err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				return apperr.NewValidationError("order", fmt.Sprintf("Invalid pk \"%d\" - object does not exist.", orderID))
			}
			return err
		}

		product, err := e.lockProduct(ctx, tx, line.ProductID, "product")
		if err != nil {
			return err
		}
		item, err = e.snapshot(ctx, tx, orderID, product, line.Quantity)
		if err != nil {
			return err
		}
		return tx.TouchOrder(ctx, orderID, e.now())
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (e *Engine) reserveLine(ctx context.Context, tx *store.Store, orderID int64, line LineItem, field string) error {
	product, err := e.lockProduct(ctx, tx, line.ProductID, field)
	if err != nil {
		return err
	}
	_, err = e.snapshot(ctx, tx, orderID, product, line.Quantity)
	return err
}

func (e *Engine) lockProduct(ctx context.Context, tx *store.Store, productID int64, field string) (*models.Product, error) {
	product, err := e.ledger.Lock(ctx, tx, productID)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, apperr.NewValidationError(field, fmt.Sprintf("Invalid pk \"%d\" - object does not exist.", productID))
	}
	return product, err
}

// snapshot stores the item at the product's current price, then takes the stock
func (e *Engine) snapshot(ctx context.Context, tx *store.Store, orderID int64, product *models.Product, quantity int) (*models.OrderItem, error) {
	if quantity > product.Stock {
		return nil, &apperr.InsufficientStockError{
			ProductID:   product.ID,
			ProductName: product.Name,
			Requested:   quantity,
			Available:   product.Stock,
		}
	}

	item := &models.OrderItem{
		OrderID:     orderID,
		ProductID:   product.ID,
		ProductName: product.Name,
		Quantity:    quantity,
		Price:       product.Price,
	}
	if err := tx.CreateOrderItem(ctx, item); err != nil {
		return nil, err
	}
	if err := e.ledger.Reserve(ctx, tx, product, quantity); err != nil {
		return nil, err
	}
	return item, nil
}
