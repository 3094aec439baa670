package server

import (
	"time"

	"github.com/matthieukhl/backoffice/internal/models"
	"github.com/shopspring/decimal"
)

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

type customerResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"created_at"`
}

func newCustomerResponse(c *models.Customer) customerResponse {
	return customerResponse{
		ID:        c.ID,
		Name:      c.Name,
		Email:     c.Email,
		Phone:     c.Phone,
		Address:   c.Address,
		CreatedAt: c.CreatedAt,
	}
}

type reviewResponse struct {
	ID           int64     `json:"id"`
	Product      int64     `json:"product"`
	Customer     int64     `json:"customer"`
	CustomerName string    `json:"customer_name"`
	Rating       int       `json:"rating"`
	Comment      string    `json:"comment"`
	CreatedAt    time.Time `json:"created_at"`
}

func newReviewResponse(r *models.Review) reviewResponse {
	return reviewResponse{
		ID:           r.ID,
		Product:      r.ProductID,
		Customer:     r.CustomerID,
		CustomerName: r.CustomerName,
		Rating:       r.Rating,
		Comment:      r.Comment,
		CreatedAt:    r.CreatedAt,
	}
}

// productListItem is the compact shape used by list endpoints
type productListItem struct {
	ID            int64    `json:"id"`
	Name          string   `json:"name"`
	Price         string   `json:"price"`
	Category      string   `json:"category"`
	Stock         int      `json:"stock"`
	AverageRating *float64 `json:"average_rating"`
	IsLowStock    bool     `json:"is_low_stock"`
}

func newProductListItem(p *models.Product, rs models.RatingSummary) productListItem {
	return productListItem{
		ID:            p.ID,
		Name:          p.Name,
		Price:         money(p.Price),
		Category:      string(p.Category),
		Stock:         p.Stock,
		AverageRating: rs.AverageFloat(),
		IsLowStock:    p.IsLowStock(),
	}
}

type productResponse struct {
	ID            int64            `json:"id"`
	Name          string           `json:"name"`
	Description   string           `json:"description"`
	Price         string           `json:"price"`
	Category      string           `json:"category"`
	Stock         int              `json:"stock"`
	AverageRating *float64         `json:"average_rating"`
	IsLowStock    bool             `json:"is_low_stock"`
	Reviews       []reviewResponse `json:"reviews"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

func newProductResponse(p *models.Product, reviews []models.Review) productResponse {
	ratings := make([]int, 0, len(reviews))
	out := make([]reviewResponse, 0, len(reviews))
	for i := range reviews {
		ratings = append(ratings, reviews[i].Rating)
		out = append(out, newReviewResponse(&reviews[i]))
	}
	return productResponse{
		ID:            p.ID,
		Name:          p.Name,
		Description:   p.Description,
		Price:         money(p.Price),
		Category:      string(p.Category),
		Stock:         p.Stock,
		AverageRating: models.SummarizeRatings(ratings).AverageFloat(),
		IsLowStock:    p.IsLowStock(),
		Reviews:       out,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

type orderItemResponse struct {
	ID          int64  `json:"id"`
	Order       int64  `json:"order"`
	Product     int64  `json:"product"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	Price       string `json:"price"`
	Subtotal    string `json:"subtotal"`
}

func newOrderItemResponse(it *models.OrderItem) orderItemResponse {
	return orderItemResponse{
		ID:          it.ID,
		Order:       it.OrderID,
		Product:     it.ProductID,
		ProductName: it.ProductName,
		Quantity:    it.Quantity,
		Price:       money(it.Price),
		Subtotal:    money(it.Subtotal()),
	}
}

type orderResponse struct {
	ID           int64               `json:"id"`
	Customer     int64               `json:"customer"`
	CustomerName string              `json:"customer_name"`
	OrderDate    time.Time           `json:"order_date"`
	Status       string              `json:"status"`
	TotalAmount  string              `json:"total_amount"`
	Items        []orderItemResponse `json:"items"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

func newOrderResponse(o *models.Order) orderResponse {
	items := make([]orderItemResponse, 0, len(o.Items))
	for i := range o.Items {
		items = append(items, newOrderItemResponse(&o.Items[i]))
	}
	return orderResponse{
		ID:           o.ID,
		Customer:     o.CustomerID,
		CustomerName: o.CustomerName,
		OrderDate:    o.OrderDate,
		Status:       string(o.Status),
		TotalAmount:  money(o.TotalAmount()),
		Items:        items,
		UpdatedAt:    o.UpdatedAt,
	}
}

func newOrderResponses(orders []models.Order) []orderResponse {
	out := make([]orderResponse, 0, len(orders))
	for i := range orders {
		out = append(out, newOrderResponse(&orders[i]))
	}
	return out
}
