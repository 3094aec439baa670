package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state of an order
type OrderStatus string

// Order statuses
const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// OrderStatuses lists every accepted status
var OrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

// Valid reports whether s is one of the known statuses
func (s OrderStatus) Valid() bool {
	for _, known := range OrderStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// ParseOrderStatus converts raw input into an OrderStatus
func ParseOrderStatus(raw string) (OrderStatus, bool) {
	s := OrderStatus(strings.TrimSpace(raw))
	return s, s.Valid()
}

// Order represents a customer order together with its line items
type Order struct {
	ID            int64       `json:"id" db:"id"`
	CustomerID    int64       `json:"customer" db:"customer_id"`
	CustomerName  string      `json:"customer_name" db:"customer_name"`
	CustomerEmail string      `json:"-" db:"customer_email"`
	OrderDate     time.Time   `json:"order_date" db:"order_date"`
	Status        OrderStatus `json:"status" db:"status"`
	UpdatedAt     time.Time   `json:"updated_at" db:"updated_at"`
	Items         []OrderItem `json:"items"`
}

// TotalAmount sums the subtotals of the order's current items
func (o *Order) TotalAmount() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.Subtotal())
	}
	return total
}

// OwnerEmail returns the email of the customer the order belongs to
func (o *Order) OwnerEmail() string {
	return o.CustomerEmail
}

// OrderItem represents one product line of an order. Price is the product
// price captured when the item was created.
type OrderItem struct {
	ID          int64           `json:"id" db:"id"`
	OrderID     int64           `json:"order" db:"order_id"`
	ProductID   int64           `json:"product" db:"product_id"`
	ProductName string          `json:"product_name" db:"product_name"`
	Quantity    int             `json:"quantity" db:"quantity"`
	Price       decimal.Decimal `json:"price" db:"price"`
}

// Subtotal is price times quantity
func (i OrderItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
