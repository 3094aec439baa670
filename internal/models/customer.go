package models

import (
	"strings"
	"time"
)

// Customer represents a shopper known to the back office
type Customer struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Email     string    `json:"email" db:"email"`
	Phone     string    `json:"phone" db:"phone"`
	Address   string    `json:"address" db:"address"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// OwnerEmail returns the identity the customer record belongs to
func (c *Customer) OwnerEmail() string {
	return c.Email
}

// NormalizeEmail lower-cases and trims an email so it can be used as an identity key
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
