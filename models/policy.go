package models

import "time"

type CancellationPolicy struct {
	ID        int64
	Code      string
	Name      string
	CreatedAt time.Time
}

// PolicyRule is one threshold tier of a cancellation policy. The rule applies
// to cancellations whose elapsed time since placement is within Threshold.
type PolicyRule struct {
	ID            int64
	PolicyID      int64
	Threshold     time.Duration
	FixedCharge   int64
	PercentCharge float64 // 0..100, applied to the order subtotal
}

// PolicyOverride binds one restaurant to a policy replacing the platform
// default. At most one per restaurant; setting a new one supersedes the old.
type PolicyOverride struct {
	RestaurantID int64
	PolicyID     int64
	SetBy        int64
	UpdatedAt    time.Time
}
