package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"food-market/db"
	"food-market/models"
)

// FeeBreakdown is the cancellation fee owed by the customer, split into its
// fixed and percentage parts.
type FeeBreakdown struct {
	FixedPart   int64
	PercentPart int64
	Total       int64
}

// SelectRule picks the tightest rule whose threshold has not yet been
// exceeded: the smallest threshold >= elapsed. Past the largest threshold the
// maximum tier applies (the longer the wait, the higher the penalty). Rules
// must be ascending by threshold, as PolicyRules returns them.
func SelectRule(rules []models.PolicyRule, elapsed time.Duration) (*models.PolicyRule, error) {
	if len(rules) == 0 {
		return nil, ErrNoApplicableRule
	}
	for i := range rules {
		if rules[i].Threshold >= elapsed {
			return &rules[i], nil
		}
	}
	return &rules[len(rules)-1], nil
}

// FeeParts applies the rule to the charge base. The percent part rounds to
// the nearest minor unit.
func FeeParts(rule *models.PolicyRule, base int64) FeeBreakdown {
	pct := int64(math.Round(float64(base) * rule.PercentCharge / 100))
	return FeeBreakdown{
		FixedPart:   rule.FixedCharge,
		PercentPart: pct,
		Total:       rule.FixedCharge + pct,
	}
}

// ComputeCancellationFee resolves the order's policy and returns the fee for
// cancelling at cancelledAt. The percent base is the order subtotal; delivery
// charges are included only when the merchant's commission config says they
// count.
func ComputeCancellationFee(ctx context.Context, orderID int64, cancelledAt time.Time) (*FeeBreakdown, error) {
	o, err := GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	policy, err := ResolvePolicy(ctx, o.RestaurantID)
	if err != nil {
		return nil, err
	}
	rules, err := PolicyRules(ctx, policy.ID)
	if err != nil {
		return nil, err
	}

	elapsed := cancelledAt.Sub(o.PlacedAt)
	if elapsed < 0 {
		elapsed = 0
	}
	rule, err := SelectRule(rules, elapsed)
	if err != nil {
		return nil, fmt.Errorf("policy %q (order %d): %w", policy.Code, orderID, err)
	}

	base := o.Subtotal
	cfg, err := GetCommissionConfig(ctx, o.MerchantID)
	if err != nil {
		return nil, err
	}
	if cfg.IncludeDelivery {
		base += o.DeliveryFee
	}

	fee := FeeParts(rule, base)
	return &fee, nil
}

// CancelOrder marks the order cancelled and returns the fee owed. Completed
// and already-cancelled orders cannot be cancelled.
func CancelOrder(ctx context.Context, orderID int64, cancelledAt time.Time) (*FeeBreakdown, error) {
	fee, err := ComputeCancellationFee(ctx, orderID, cancelledAt)
	if err != nil {
		return nil, err
	}
	res, err := db.Pool.Exec(ctx, `
		UPDATE orders SET status = $2, cancelled_at = $3
		WHERE id = $1 AND status NOT IN ($2, $4)`,
		orderID, OrderStatusCancelled, cancelledAt, OrderStatusCompleted,
	)
	if err != nil {
		return nil, fmt.Errorf("cancel order: %w", err)
	}
	if res.RowsAffected() == 0 {
		return nil, fmt.Errorf("order %d cannot be cancelled", orderID)
	}
	return fee, nil
}
