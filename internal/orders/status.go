package orders

import (
	"context"
	"fmt"

	"github.com/matthieukhl/backoffice/internal/access"
	"github.com/matthieukhl/backoffice/internal/apperr"
	"github.com/matthieukhl/backoffice/internal/auth"
	"github.com/matthieukhl/backoffice/internal/models"
	"github.com/matthieukhl/backoffice/internal/store"
	"go.uber.org/zap"
)

// TransitionPolicy decides whether an order may move between two statuses
type TransitionPolicy interface {
	Allowed(from, to models.OrderStatus) bool
}

// AnyTransition allows every move between known statuses
type AnyTransition struct{}

func (AnyTransition) Allowed(_, to models.OrderStatus) bool {
	return to.Valid()
}

// Transitions is an explicit graph: from-status to the statuses it may reach
type Transitions map[models.OrderStatus][]models.OrderStatus

func (t Transitions) Allowed(from, to models.OrderStatus) bool {
	for _, next := range t[from] {
		if next == to {
			return true
		}
	}
	return false
}

// UpdateStatus sets the status of an order. Only admins may do so.
func (e *Engine) UpdateStatus(ctx context.Context, id *auth.Identity, orderID int64, raw string) (models.OrderStatus, error) {
	if err := access.RequireAdmin(id); err != nil {
		return "", err
	}

	status, ok := models.ParseOrderStatus(raw)
	if !ok {
		return "", apperr.NewValidationError("status", "Invalid status")
	}

	err := e.store.InTx(ctx, func(tx *store.Store) error {
		order, err := tx.GetOrder(ctx, orderID, store.OrderFilter{})
		if err != nil {
			return err
		}
		if !e.transitions.Allowed(order.Status, status) {
			return apperr.NewValidationError("status",
				fmt.Sprintf("Cannot move order from %s to %s", order.Status, status))
		}
		return tx.UpdateOrderStatus(ctx, orderID, status, e.now())
	})
	if err != nil {
		return "", err
	}

	e.logger.Info("order status updated",
		zap.Int64("order_id", orderID),
		zap.String("status", string(status)),
		zap.String("by", id.Username))
	return status, nil
}
