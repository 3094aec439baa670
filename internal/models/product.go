package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// LowStockThreshold is the stock level below which a product is flagged
const LowStockThreshold = 10

// Category classifies a product in the catalogue
type Category string

// Product categories
const (
	CategoryElectronics Category = "electronics"
	CategoryClothing    Category = "clothing"
	CategoryHome        Category = "home"
	CategoryBooks       Category = "books"
	CategoryOther       Category = "other"
)

// Categories lists every accepted category
var Categories = []Category{
	CategoryElectronics,
	CategoryClothing,
	CategoryHome,
	CategoryBooks,
	CategoryOther,
}

// Valid reports whether c is one of the known categories
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Product represents a catalogue entry
type Product struct {
	ID          int64           `json:"id" db:"id"`
	Name        string          `json:"name" db:"name"`
	Description string          `json:"description" db:"description"`
	Price       decimal.Decimal `json:"price" db:"price"`
	Category    Category        `json:"category" db:"category"`
	Stock       int             `json:"stock" db:"stock"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
}

// IsLowStock reports whether the product's stock is under LowStockThreshold
func (p *Product) IsLowStock() bool {
	return p.Stock < LowStockThreshold
}

// RatingSummary aggregates the review ratings of one product
type RatingSummary struct {
	Count int
	Sum   int
}

// SummarizeRatings builds a RatingSummary from individual ratings
func SummarizeRatings(ratings []int) RatingSummary {
	s := RatingSummary{Count: len(ratings)}
	for _, r := range ratings {
		s.Sum += r
	}
	return s
}

// Average returns the mean rating rounded half-to-even to one decimal place,
// computed on the exact decimal mean. The boolean is false when there are no
// ratings.
func (s RatingSummary) Average() (decimal.Decimal, bool) {
	if s.Count == 0 {
		return decimal.Zero, false
	}
	mean := decimal.NewFromInt(int64(s.Sum)).DivRound(decimal.NewFromInt(int64(s.Count)), 8)
	return mean.RoundBank(1), true
}

// AverageFloat is Average in the shape the API renders: nil without ratings
func (s RatingSummary) AverageFloat() *float64 {
	avg, ok := s.Average()
	if !ok {
		return nil
	}
	f := avg.InexactFloat64()
	return &f
}
