package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/matthieukhl/backoffice/internal/access"
	"github.com/matthieukhl/backoffice/internal/apperr"
	"github.com/matthieukhl/backoffice/internal/models"
	"github.com/matthieukhl/backoffice/internal/orders"
	"github.com/matthieukhl/backoffice/internal/store"
)

type createOrderItemRequest struct {
	Order    int64 `json:"order" binding:"required"`
	Product  int64 `json:"product" binding:"required"`
	Quantity *int  `json:"quantity" binding:"omitempty,gte=1"`
}

func (s *Server) listOrderItems(c *gin.Context) {
	orderID, err := queryID(c, "order")
	if err != nil {
		s.writeError(c, err)
		return
	}
	filter := store.OrderItemFilter{
		OrderID:    orderID,
		OwnerEmail: access.OrderScope(identity(c)).OwnerEmail,
	}
	items, err := s.store.ListOrderItems(c.Request.Context(), filter)
	if err != nil {
		s.writeError(c, err)
		return
	}

	out := make([]orderItemResponse, 0, len(items))
	for i := range items {
		out = append(out, newOrderItemResponse(&items[i]))
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) getOrderItem(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		s.writeError(c, err)
		return
	}
	item, err := s.visibleOrderItem(c, id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newOrderItemResponse(item))
}

// visibleOrderItem loads an item whose order the caller may see
func (s *Server) visibleOrderItem(c *gin.Context, id int64) (*models.OrderItem, error) {
	ctx := c.Request.Context()
	item, err := s.store.GetOrderItem(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.GetOrder(ctx, item.OrderID, access.OrderScope(identity(c))); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.NotFound("order item", id)
		}
		return nil, err
	}
	return item, nil
}

func (s *Server) createOrderItem(c *gin.Context) {
	var req createOrderItemRequest
	if err := bindJSON(c, &req); err != nil {
		s.writeError(c, err)
		return
	}

	ctx := c.Request.Context()
	order, err := s.store.GetOrder(ctx, req.Order, access.OrderScope(identity(c)))
	if err != nil {
		s.writeError(c, asFieldError(err, "order", req.Order))
		return
	}
	if err := access.OwnerOrAdmin(identity(c), access.Write, order); err != nil {
		s.writeError(c, err)
		return
	}

	qty := 1
	if req.Quantity != nil {
		qty = *req.Quantity
	}
	item, err := s.orders.AddItem(ctx, order.ID, orders.LineItem{ProductID: req.Product, Quantity: qty})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newOrderItemResponse(item))
}

// deleteOrderItem removes the line without returning its units to stock
func (s *Server) deleteOrderItem(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		s.writeError(c, err)
		return
	}

	ctx := c.Request.Context()
	item, err := s.visibleOrderItem(c, id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	order, err := s.store.GetOrder(ctx, item.OrderID, store.OrderFilter{})
	if err != nil {
		s.writeError(c, err)
		return
	}
	if err := access.OwnerOrAdmin(identity(c), access.Write, order); err != nil {
		s.writeError(c, err)
		return
	}

	err = s.store.InTx(ctx, func(tx *store.Store) error {
		if err := tx.DeleteOrderItem(ctx, id); err != nil {
			return err
		}
		return tx.TouchOrder(ctx, item.OrderID, s.now())
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
