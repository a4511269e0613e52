package models

import "time"

// CommissionConfig is a per-merchant override of the platform commission
// terms. At most one active row per merchant; absence means platform default.
type CommissionConfig struct {
	ID                    int64
	MerchantID            int64
	Type                  string // "percentage" or "fixed"
	Percent               float64
	FixedValue            int64
	PayoutCadenceDays     int
	IncludeDelivery       bool // delivery charges count toward the commission base
	MerchantAbsorbsExtras bool // merchant absorbs additional charges (else platform)
	Active                bool
	CreatedAt             time.Time
}

// CommissionReceivable is the commission owed by a merchant for one COD
// order. Created at order settlement; transitions pending->recovered exactly
// once and never reverts.
type CommissionReceivable struct {
	ID           int64
	OrderID      int64
	MerchantID   int64
	Amount       int64
	Status       string // "pending" or "recovered"
	RecoveredVia string // "payout_adjustment", "manual" or "none"
	PayoutID     *int64 // payout batch referencing this receivable, if any
	CreatedAt    time.Time
	RecoveredAt  *time.Time
}
