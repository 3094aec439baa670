package models

import "time"

// Rating bounds
const (
	MinRating = 1
	MaxRating = 5
)

// ValidRating reports whether r lies within [MinRating, MaxRating]
func ValidRating(r int) bool {
	return r >= MinRating && r <= MaxRating
}

// Review is a customer's rating of a product. A customer reviews a product at most once.
type Review struct {
	ID            int64     `json:"id" db:"id"`
	ProductID     int64     `json:"product" db:"product_id"`
	CustomerID    int64     `json:"customer" db:"customer_id"`
	CustomerName  string    `json:"customer_name" db:"customer_name"`
	CustomerEmail string    `json:"-" db:"customer_email"`
	Rating        int       `json:"rating" db:"rating"`
	Comment       string    `json:"comment" db:"comment"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// OwnerEmail returns the email of the reviewing customer
func (r *Review) OwnerEmail() string {
	return r.CustomerEmail
}
