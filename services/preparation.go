package services

import (
	"context"
	"fmt"

	"food-market/db"
	"food-market/models"
)

const (
	PrepOnTime  = "on_time"
	PrepDelayed = "delayed"
)

// ClassifyPreparation compares expected and actual preparation minutes.
// Finishing on or before the expected time is on-time with zero delay.
func ClassifyPreparation(expectedMinutes, actualMinutes int) (delayMinutes int, classification string) {
	if actualMinutes <= expectedMinutes {
		return 0, PrepOnTime
	}
	return actualMinutes - expectedMinutes, PrepDelayed
}

// RecordPreparationDelay writes the order's preparation record. The record is
// immutable: a second call for the same order keeps the first row and returns it.
func RecordPreparationDelay(ctx context.Context, orderID int64, expectedMinutes, actualMinutes int) (*models.PreparationDelay, error) {
	if expectedMinutes < 0 || actualMinutes < 0 {
		return nil, fmt.Errorf("preparation minutes must not be negative")
	}
	delay, classification := ClassifyPreparation(expectedMinutes, actualMinutes)
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO preparation_delays (order_id, expected_minutes, actual_minutes, delay_minutes, classification)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (order_id) DO NOTHING`,
		orderID, expectedMinutes, actualMinutes, delay, classification,
	)
	if err != nil {
		return nil, fmt.Errorf("record preparation delay: %w", err)
	}

	var p models.PreparationDelay
	err = db.Pool.QueryRow(ctx, `
		SELECT id, order_id, expected_minutes, actual_minutes, delay_minutes, classification, created_at
		FROM preparation_delays WHERE order_id = $1`,
		orderID,
	).Scan(&p.ID, &p.OrderID, &p.ExpectedMinutes, &p.ActualMinutes, &p.DelayMinutes, &p.Classification, &p.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("get preparation delay: %w", err)
	}
	return &p, nil
}
