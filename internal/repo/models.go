package repo

import "time"

// Order is a row in the orders table. The notification core only reads
// orders and appends notes; status changes go through UpdateOrderStatus.
type Order struct {
	ID             int64
	Number         string
	Status         string
	BillingPhone   string
	BillingCountry string
	Total          string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// OrderNote is an append-only entry in an order's note trail.
type OrderNote struct {
	ID        int64
	OrderID   int64
	Note      string
	CreatedAt time.Time
}

// NewOrder carries data used to create an order.
type NewOrder struct {
	Number         string
	Status         string
	BillingPhone   string
	BillingCountry string
	Total          string
}
