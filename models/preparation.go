package models

import "time"

// PreparationDelay captures expected vs actual preparation time for one
// order. Written once, never updated.
type PreparationDelay struct {
	ID              int64
	OrderID         int64
	ExpectedMinutes int
	ActualMinutes   int
	DelayMinutes    int
	Classification  string // "on_time" or "delayed"
	CreatedAt       time.Time
}
