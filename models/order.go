package models

import "time"

type CreateOrderInput struct {
	UserID       int64
	RestaurantID int64
	MerchantID   int64
	Subtotal     int64
	DeliveryFee  int64
	Payment      string // "online" or "cod"
}

// Order is a row from orders table, limited to the fields the settlement
// engine reads: parties, money and the placement timestamp.
type Order struct {
	ID           int64
	UserID       int64
	RestaurantID int64
	MerchantID   int64
	Subtotal     int64
	DeliveryFee  int64
	Status       string
	Payment      string
	PlacedAt     time.Time
	CancelledAt  *time.Time
	SettledAt    *time.Time
}
