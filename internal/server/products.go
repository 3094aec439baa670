package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/matthieukhl/backoffice/internal/access"
	"github.com/matthieukhl/backoffice/internal/apperr"
	"github.com/matthieukhl/backoffice/internal/models"
	"github.com/matthieukhl/backoffice/internal/store"
	"github.com/shopspring/decimal"
)

// maxPrice bounds prices to DECIMAL(10,2)
var maxPrice = decimal.New(1, 8)

type productRequest struct {
	Name        *string          `json:"name" binding:"omitempty,max=200"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Category    *string          `json:"category" binding:"omitempty,oneof=electronics clothing home books other"`
	Stock       *int             `json:"stock" binding:"omitempty,gte=0"`
}

func (r *productRequest) apply(p *models.Product, partial bool) error {
	ve := &apperr.ValidationError{}
	if !partial {
		if r.Name == nil {
			ve.Add("name", "This field is required.")
		}
		if r.Price == nil {
			ve.Add("price", "This field is required.")
		}
		if r.Category == nil {
			ve.Add("category", "This field is required.")
		}
	}
	if r.Name != nil && *r.Name == "" {
		ve.Add("name", "This field may not be blank.")
	}
	if r.Price != nil {
		switch {
		case r.Price.IsNegative():
			ve.Add("price", "Ensure this value is greater than or equal to 0.")
		case r.Price.Exponent() < -2 && !r.Price.Equal(r.Price.Round(2)):
			ve.Add("price", "Ensure that there are no more than 2 decimal places.")
		case r.Price.GreaterThanOrEqual(maxPrice):
			ve.Add("price", "Ensure that there are no more than 8 digits before the decimal point.")
		}
	}
	if err := ve.OrNil(); err != nil {
		return err
	}

	if r.Name != nil {
		p.Name = *r.Name
	}
	if r.Description != nil {
		p.Description = *r.Description
	}
	if r.Price != nil {
		p.Price = r.Price.Round(2)
	}
	if r.Category != nil {
		p.Category = models.Category(*r.Category)
	}
	if r.Stock != nil {
		p.Stock = *r.Stock
	}
	return nil
}

func (s *Server) listProducts(c *gin.Context) {
	filter := store.ProductFilter{
		Search:   c.Query("search"),
		Ordering: c.Query("ordering"),
	}
	if raw := c.Query("category"); raw != "" {
		category := models.Category(raw)
		if !category.Valid() {
			s.writeError(c, apperr.NewValidationError("category",
				"Select a valid choice. "+raw+" is not one of the available choices."))
			return
		}
		filter.Category = category
	}
	s.renderProductList(c, filter)
}

func (s *Server) lowStockProducts(c *gin.Context) {
	s.renderProductList(c, store.ProductFilter{LowStockOnly: true})
}

func (s *Server) renderProductList(c *gin.Context, filter store.ProductFilter) {
	ctx := c.Request.Context()
	products, err := s.store.ListProducts(ctx, filter)
	if err != nil {
		s.writeError(c, err)
		return
	}

	ids := make([]int64, 0, len(products))
	for _, p := range products {
		ids = append(ids, p.ID)
	}
	ratings, err := s.store.RatingSummaries(ctx, ids)
	if err != nil {
		s.writeError(c, err)
		return
	}

	out := make([]productListItem, 0, len(products))
	for i := range products {
		out = append(out, newProductListItem(&products[i], ratings[products[i].ID]))
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) getProduct(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		s.writeError(c, err)
		return
	}
	s.renderProduct(c, http.StatusOK, id)
}

func (s *Server) renderProduct(c *gin.Context, status int, id int64) {
	ctx := c.Request.Context()
	product, err := s.store.GetProduct(ctx, id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	reviews, err := s.store.ListReviews(ctx, store.ReviewFilter{ProductID: id})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(status, newProductResponse(product, reviews))
}

func (s *Server) createProduct(c *gin.Context) {
	if err := access.ReadOpenWriteAdmin(identity(c), access.Write); err != nil {
		s.writeError(c, err)
		return
	}

	var req productRequest
	if err := bindJSON(c, &req); err != nil {
		s.writeError(c, err)
		return
	}
	now := s.now()
	product := &models.Product{CreatedAt: now, UpdatedAt: now}
	if err := req.apply(product, false); err != nil {
		s.writeError(c, err)
		return
	}

	if err := s.store.CreateProduct(c.Request.Context(), product); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newProductResponse(product, nil))
}

func (s *Server) updateProduct(c *gin.Context) {
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
	product, err := s.store.GetProduct(ctx, id)
	if err != nil {
		s.writeError(c, err)
		return
	}

	var req productRequest
	if err := bindJSON(c, &req); err != nil {
		s.writeError(c, err)
		return
	}
	if err := req.apply(product, c.Request.Method == http.MethodPatch); err != nil {
		s.writeError(c, err)
		return
	}
	product.UpdatedAt = s.now()

	if err := s.store.UpdateProduct(ctx, product); err != nil {
		s.writeError(c, err)
		return
	}
	s.renderProduct(c, http.StatusOK, id)
}

func (s *Server) deleteProduct(c *gin.Context) {
	if err := access.ReadOpenWriteAdmin(identity(c), access.Write); err != nil {
		s.writeError(c, err)
		return
	}
	id, err := pathID(c)
	if err != nil {
		s.writeError(c, err)
		return
	}
	if err := s.store.DeleteProduct(c.Request.Context(), id); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
