package services

import (
	"context"
	"fmt"

	"food-market/db"
	"food-market/models"
)

const (
	OrderStatusNew       = "new"
	OrderStatusPreparing = "preparing"
	OrderStatusReady     = "ready"
	OrderStatusCompleted = "completed"
	OrderStatusCancelled = "cancelled"

	PaymentOnline = "online"
	PaymentCOD    = "cod"
)

func CreateOrder(ctx context.Context, input models.CreateOrderInput) (int64, error) {
	payment := input.Payment
	if payment == "" {
		payment = PaymentOnline
	}
	if payment != PaymentOnline && payment != PaymentCOD {
		return 0, fmt.Errorf("unknown payment type %q", payment)
	}
	var id int64
	err := db.Pool.QueryRow(ctx, `
		INSERT INTO orders (user_id, restaurant_id, merchant_id, subtotal, delivery_fee, status, payment)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		input.UserID, input.RestaurantID, input.MerchantID, input.Subtotal, input.DeliveryFee,
		OrderStatusNew, payment,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create order: %w", err)
	}
	return id, nil
}

func GetOrder(ctx context.Context, orderID int64) (*models.Order, error) {
	var o models.Order
	err := db.Pool.QueryRow(ctx, `
		SELECT id, user_id, restaurant_id, merchant_id, subtotal, delivery_fee,
		       status, payment, placed_at, cancelled_at, settled_at
		FROM orders WHERE id = $1`,
		orderID,
	).Scan(&o.ID, &o.UserID, &o.RestaurantID, &o.MerchantID, &o.Subtotal, &o.DeliveryFee,
		&o.Status, &o.Payment, &o.PlacedAt, &o.CancelledAt, &o.SettledAt)
	if err != nil {
		return nil, fmt.Errorf("get order %d: %w", orderID, err)
	}
	return &o, nil
}

// SettleCODOrder records the commission receivable for a completed COD order
// and stamps the order settled. Safe to call twice: the settled stamp is a
// keep-first update and the receivable insert is idempotent on order id.
// Returns nil for online orders and for zero commission.
func SettleCODOrder(ctx context.Context, orderID int64) (*models.CommissionReceivable, error) {
	o, err := GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.Payment != PaymentCOD {
		return nil, nil
	}

	_, err = db.Pool.Exec(ctx, `
		UPDATE orders SET settled_at = now() WHERE id = $1 AND settled_at IS NULL`,
		orderID,
	)
	if err != nil {
		return nil, fmt.Errorf("stamp settled: %w", err)
	}

	cfg, err := GetCommissionConfig(ctx, o.MerchantID)
	if err != nil {
		return nil, err
	}
	amount := CommissionAmountFor(cfg, o.Subtotal, o.DeliveryFee)
	if amount <= 0 {
		return nil, nil
	}
	return RecordReceivable(ctx, orderID, o.MerchantID, amount)
}
