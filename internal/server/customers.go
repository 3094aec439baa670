package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/matthieukhl/backoffice/internal/access"
	"github.com/matthieukhl/backoffice/internal/apperr"
	"github.com/matthieukhl/backoffice/internal/models"
	"github.com/matthieukhl/backoffice/internal/store"
)

// customerRequest serves create, full update and partial update. Required
// fields are checked by apply depending on the mode. An existing customer
// keeps its email.
type customerRequest struct {
	Name    *string `json:"name" binding:"omitempty,max=100"`
	Email   *string `json:"email" binding:"omitempty,email"`
	Phone   *string `json:"phone" binding:"omitempty,max=20"`
	Address *string `json:"address"`
}

func (r *customerRequest) apply(c *models.Customer, partial bool) error {
	ve := &apperr.ValidationError{}
	if !partial {
		if r.Name == nil || *r.Name == "" {
			ve.Add("name", "This field is required.")
		}
		if r.Email == nil || *r.Email == "" {
			ve.Add("email", "This field is required.")
		}
	}
	if r.Name != nil && *r.Name == "" {
		ve.Add("name", "This field may not be blank.")
	}
	if c.ID != 0 && r.Email != nil && models.NormalizeEmail(*r.Email) != c.Email {
		ve.Add("email", "Email cannot be changed.")
	}
	if err := ve.OrNil(); err != nil {
		return err
	}

	if r.Name != nil {
		c.Name = *r.Name
	}
	if r.Email != nil {
		c.Email = *r.Email
	}
	if r.Phone != nil {
		c.Phone = *r.Phone
	}
	if r.Address != nil {
		c.Address = *r.Address
	}
	return nil
}

func (s *Server) listCustomers(c *gin.Context) {
	customers, err := s.store.ListCustomers(c.Request.Context(), store.CustomerFilter{Search: c.Query("search")})
	if err != nil {
		s.writeError(c, err)
		return
	}

	out := make([]customerResponse, 0, len(customers))
	for i := range customers {
		out = append(out, newCustomerResponse(&customers[i]))
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) getCustomer(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		s.writeError(c, err)
		return
	}
	customer, err := s.store.GetCustomer(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newCustomerResponse(customer))
}

func (s *Server) createCustomer(c *gin.Context) {
	if err := access.ReadOpenWriteAdmin(identity(c), access.Write); err != nil {
		s.writeError(c, err)
		return
	}

	var req customerRequest
	if err := bindJSON(c, &req); err != nil {
		s.writeError(c, err)
		return
	}
	customer := &models.Customer{CreatedAt: s.now()}
	if err := req.apply(customer, false); err != nil {
		s.writeError(c, err)
		return
	}

	if err := s.store.CreateCustomer(c.Request.Context(), customer); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newCustomerResponse(customer))
}

func (s *Server) updateCustomer(c *gin.Context) {
	if err := access.ReadOpenWriteAdmin(identity(c), access.Write); err != nil {
		s.writeError(c, err)
		return
	}
	id, err := pathID(c)
	if err != nil {
		s.writeError(c, err)
		return
	}

	ctx := c.Request.Context()
	customer, err := s.store.GetCustomer(ctx, id)
	if err != nil {
		s.writeError(c, err)
		return
	}

	var req customerRequest
	if err := bindJSON(c, &req); err != nil {
		s.writeError(c, err)
		return
	}
	if err := req.apply(customer, c.Request.Method == http.MethodPatch); err != nil {
		s.writeError(c, err)
		return
	}

	if err := s.store.UpdateCustomer(ctx, customer); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newCustomerResponse(customer))
}

func (s *Server) deleteCustomer(c *gin.Context) {
	if err := access.ReadOpenWriteAdmin(identity(c), access.Write); err != nil {
		s.writeError(c, err)
		return
	}
	id, err := pathID(c)
	if err != nil {
		s.writeError(c, err)
		return
	}
	if err := s.store.DeleteCustomer(c.Request.Context(), id); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) customerOrders(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		s.writeError(c, err)
		return
	}

	ctx := c.Request.Context()
	customer, err := s.store.GetCustomer(ctx, id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	if err := access.CanViewCustomerOrders(identity(c), customer); err != nil {
		s.writeError(c, err)
		return
	}

	orders, err := s.store.ListOrders(ctx, store.OrderFilter{CustomerID: customer.ID})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newOrderResponses(orders))
}
