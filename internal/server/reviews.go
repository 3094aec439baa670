package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/matthieukhl/backoffice/internal/access"
	"github.com/matthieukhl/backoffice/internal/apperr"
	"github.com/matthieukhl/backoffice/internal/models"
	"github.com/matthieukhl/backoffice/internal/store"
)

type createReviewRequest struct {
	Product  int64  `json:"product" binding:"required"`
	Customer *int64 `json:"customer"`
	Rating   int    `json:"rating" binding:"required,min=1,max=5"`
	Comment  string `json:"comment"`
}

type updateReviewRequest struct {
	Rating  *int    `json:"rating" binding:"omitempty,min=1,max=5"`
	Comment *string `json:"comment"`
}

func (s *Server) listReviews(c *gin.Context) {
	var filter store.ReviewFilter
	var err error
	if filter.ProductID, err = queryID(c, "product"); err != nil {
		s.writeError(c, err)
		return
	}
	if filter.CustomerID, err = queryID(c, "customer"); err != nil {
		s.writeError(c, err)
		return
	}
	if raw := c.Query("rating"); raw != "" {
		rating, err := strconv.Atoi(raw)
		if err != nil || !models.ValidRating(rating) {
			s.writeError(c, apperr.NewValidationError("rating",
				"Select a valid choice. "+raw+" is not one of the available choices."))
			return
		}
		filter.Rating = rating
	}

	reviews, err := s.store.ListReviews(c.Request.Context(), filter)
	if err != nil {
		s.writeError(c, err)
		return
	}
	out := make([]reviewResponse, 0, len(reviews))
	for i := range reviews {
		out = append(out, newReviewResponse(&reviews[i]))
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) getReview(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		s.writeError(c, err)
		return
	}
	review, err := s.store.GetReview(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newReviewResponse(review))
}

// createReview binds the review to the caller's customer record unless a
// customer is named explicitly
func (s *Server) createReview(c *gin.Context) {
	var req createReviewRequest
	if err := bindJSON(c, &req); err != nil {
		s.writeError(c, err)
		return
	}

	ctx := c.Request.Context()
	caller := identity(c)

	if _, err := s.store.GetProduct(ctx, req.Product); err != nil {
		s.writeError(c, asFieldError(err, "product", req.Product))
		return
	}

	var customer *models.Customer
	if req.Customer == nil {
		linked, err := s.linker.EnsureCustomer(ctx, caller)
		if err != nil {
			s.writeError(c, err)
			return
		}
		customer = linked
	} else {
		named, err := s.store.GetCustomer(ctx, *req.Customer)
		if err != nil {
			s.writeError(c, asFieldError(err, "customer", *req.Customer))
			return
		}
		if err := access.OwnerOrAdmin(caller, access.Write, named); err != nil {
			s.writeError(c, err)
			return
		}
		customer = named
	}

	exists, err := s.store.ReviewExists(ctx, req.Product, customer.ID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	if exists {
		s.writeError(c, store.DuplicateReview())
		return
	}

	review := &models.Review{
		ProductID:  req.Product,
		CustomerID: customer.ID,
		Rating:     req.Rating,
		Comment:    req.Comment,
		CreatedAt:  s.now(),
	}
	if err := s.store.CreateReview(ctx, review); err != nil {
		s.writeError(c, err)
		return
	}
	review.CustomerName = customer.Name
	review.CustomerEmail = customer.Email
	c.JSON(http.StatusCreated, newReviewResponse(review))
}

func (s *Server) updateReview(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		s.writeError(c, err)
		return
	}

	ctx := c.Request.Context()
	review, err := s.store.GetReview(ctx, id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	if err := access.OwnerOrAdmin(identity(c), access.Write, review); err != nil {
		s.writeError(c, err)
		return
	}

	var req updateReviewRequest
	if err := bindJSON(c, &req); err != nil {
		s.writeError(c, err)
		return
	}
	if c.Request.Method == http.MethodPut && req.Rating == nil {
		s.writeError(c, apperr.NewValidationError("rating", "This field is required."))
		return
	}
	if req.Rating != nil {
		review.Rating = *req.Rating
	}
	if req.Comment != nil {
		review.Comment = *req.Comment
	}

	if err := s.store.UpdateReview(ctx, review); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newReviewResponse(review))
}

func (s *Server) deleteReview(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		s.writeError(c, err)
		return
	}

	ctx := c.Request.Context()
	review, err := s.store.GetReview(ctx, id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	if err := access.OwnerOrAdmin(identity(c), access.Write, review); err != nil {
		s.writeError(c, err)
		return
	}
	if err := s.store.DeleteReview(ctx, id); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
