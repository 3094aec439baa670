package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/matthieukhl/backoffice/internal/access"
	"github.com/matthieukhl/backoffice/internal/apperr"
	"github.com/matthieukhl/backoffice/internal/models"
	"github.com/matthieukhl/backoffice/internal/orders"
)

type orderLineRequest struct {
	Product  int64 `json:"product" binding:"required"`
	Quantity *int  `json:"quantity" binding:"omitempty,gte=1"`
}

type createOrderRequest struct {
	Customer int64              `json:"customer" binding:"required"`
	Items    []orderLineRequest `json:"items" binding:"required,min=1,dive"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

func (s *Server) listOrders(c *gin.Context) {
	filter := access.OrderScope(identity(c))
	filter.Ordering = c.Query("ordering")

	customerID, err := queryID(c, "customer")
	if err != nil {
		s.writeError(c, err)
		return
	}
	filter.CustomerID = customerID

	if raw := c.Query("status"); raw != "" {
		status, ok := models.ParseOrderStatus(raw)
		if !ok {
			s.writeError(c, apperr.NewValidationError("status",
				"Select a valid choice. "+raw+" is not one of the available choices."))
			return
		}
		filter.Status = status
	}

	list, err := s.store.ListOrders(c.Request.Context(), filter)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newOrderResponses(list))
}

func (s *Server) getOrder(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		s.writeError(c, err)
		return
	}
	order, err := s.store.GetOrder(c.Request.Context(), id, access.OrderScope(identity(c)))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newOrderResponse(order))
}

func (s *Server) createOrder(c *gin.Context) {
	var req createOrderRequest
	if err := bindJSON(c, &req); err != nil {
		s.writeError(c, err)
		return
	}

	ctx := c.Request.Context()
	customer, err := s.store.GetCustomer(ctx, req.Customer)
	if err != nil {
		s.writeError(c, asFieldError(err, "customer", req.Customer))
		return
	}
	if err := access.OwnerOrAdmin(identity(c), access.Write, customer); err != nil {
		s.writeError(c, err)
		return
	}

	lines := make([]orders.LineItem, 0, len(req.Items))
	for _, item := range req.Items {
		qty := 1
		if item.Quantity != nil {
			qty = *item.Quantity
		}
		lines = append(lines, orders.LineItem{ProductID: item.Product, Quantity: qty})
	}

	order, err := s.orders.CreateOrder(ctx, customer.ID, lines)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newOrderResponse(order))
}

func (s *Server) updateOrderStatus(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		s.writeError(c, err)
		return
	}
	// admins only, decided before anything else is read
	if err := access.RequireAdmin(identity(c)); err != nil {
		s.writeError(c, err)
		return
	}

	var req updateStatusRequest
	if err := bindJSON(c, &req); err != nil {
		s.writeError(c, err)
		return
	}

	status, err := s.orders.UpdateStatus(c.Request.Context(), identity(c), id, req.Status)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated", "new_status": status})
}

// asFieldError reports a missing referenced record as a field error
func asFieldError(err error, field string, id int64) error {
	if errors.Is(err, apperr.ErrNotFound) {
		return apperr.NewValidationError(field, fmt.Sprintf("Invalid pk \"%d\" - object does not exist.", id))
	}
	return err
}
