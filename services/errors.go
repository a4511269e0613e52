package services

import "errors"

var (
	// ErrNotConfigured: no override for the restaurant and no platform
	// default policy resolvable. Fatal to the calling operation.
	ErrNotConfigured = errors.New("no cancellation policy configured")

	// ErrNoApplicableRule: the resolved policy has no rules. Data integrity
	// violation; the operation aborts.
	ErrNoApplicableRule = errors.New("cancellation policy has no rules")

	// ErrAlreadyRecovered: the receivable already left the pending state.
	// Benign race outcome; callers treat it as success.
	ErrAlreadyRecovered = errors.New("receivable already recovered")

	// ErrClaimConflict: another payout build holds the merchant claim.
	// Caller retries after backoff.
	ErrClaimConflict = errors.New("payout build already in progress for this merchant")
)
