package models

import "time"

// MerchantPayout is a settlement batch for one merchant. Immutable once
// completed.
type MerchantPayout struct {
	ID             int64
	Ref            string // opaque batch reference
	MerchantID     int64
	Total          int64
	Type           string // "online", "cod" or "adjustment"
	Status         string // "initiated" or "completed"
	OrderIDs       []int64
	SettlementNote *string
	SettledAt      *time.Time
	CreatedAt      time.Time
}
