package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"food-market/db"
	"food-market/models"

	"github.com/jackc/pgx/v5"
)

// CreatePolicy inserts a cancellation policy (or renames an existing one with
// the same code) and returns its id.
func CreatePolicy(ctx context.Context, code, name string) (int64, error) {
	var id int64
	err := db.Pool.QueryRow(ctx, `
		INSERT INTO cancellation_policies (code, name)
		VALUES ($1, $2)
		ON CONFLICT (code) DO UPDATE SET name = EXCLUDED.name
		RETURNING id`,
		code, name,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create policy: %w", err)
	}
	return id, nil
}

// AddPolicyRule adds one threshold tier to a policy. Thresholds within a
// policy are unique; adding a duplicate threshold is an error.
func AddPolicyRule(ctx context.Context, policyID int64, threshold time.Duration, fixedCharge int64, percentCharge float64) error {
	if threshold < 0 {
		return fmt.Errorf("threshold must not be negative")
	}
	if fixedCharge < 0 {
		return fmt.Errorf("fixed charge must not be negative")
	}
	if percentCharge < 0 || percentCharge > 100 {
		return fmt.Errorf("percent charge must be between 0 and 100")
	}
	res, err := db.Pool.Exec(ctx, `
		INSERT INTO policy_rules (policy_id, threshold_seconds, fixed_charge, percent_charge)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (policy_id, threshold_seconds) DO NOTHING`,
		policyID, int64(threshold.Seconds()), fixedCharge, percentCharge,
	)
	if err != nil {
		return fmt.Errorf("add policy rule: %w", err)
	}
	if res.RowsAffected() == 0 {
		return fmt.Errorf("policy %d already has a rule at threshold %s", policyID, threshold)
	}
	return nil
}

// SetOverride binds the restaurant to the given policy, replacing any
// previous override. The policy must exist.
func SetOverride(ctx context.Context, restaurantID, policyID, setBy int64) error {
	var exists bool
	err := db.Pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM cancellation_policies WHERE id = $1)`, policyID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check policy: %w", err)
	}
	if !exists {
		return fmt.Errorf("policy %d not found", policyID)
	}
	_, err = db.Pool.Exec(ctx, `
		INSERT INTO policy_overrides (restaurant_id, policy_id, set_by, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (restaurant_id) DO UPDATE SET
			policy_id = EXCLUDED.policy_id,
			set_by = EXCLUDED.set_by,
			updated_at = now()`,
		restaurantID, policyID, setBy,
	)
	if err != nil {
		return fmt.Errorf("set override: %w", err)
	}
	return nil
}

// RemoveOverride drops the restaurant's override so the platform default
// applies again. Removing a missing override is a no-op.
func RemoveOverride(ctx context.Context, restaurantID int64) error {
	_, err := db.Pool.Exec(ctx, `DELETE FROM policy_overrides WHERE restaurant_id = $1`, restaurantID)
	return err
}

// ResolvePolicy returns the restaurant's override policy if one exists, else
// the platform default. ErrNotConfigured when neither resolves.
func ResolvePolicy(ctx context.Context, restaurantID int64) (*models.CancellationPolicy, error) {
	var p models.CancellationPolicy
	err := db.Pool.QueryRow(ctx, `
		SELECT p.id, p.code, p.name, p.created_at
		FROM policy_overrides o
		JOIN cancellation_policies p ON p.id = o.policy_id
		WHERE o.restaurant_id = $1`,
		restaurantID,
	).Scan(&p.ID, &p.Code, &p.Name, &p.CreatedAt)
	if err == nil {
		return &p, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("resolve override: %w", err)
	}

	if defaultPolicyCode == "" {
		return nil, ErrNotConfigured
	}
	err = db.Pool.QueryRow(ctx, `
		SELECT id, code, name, created_at FROM cancellation_policies WHERE code = $1`,
		defaultPolicyCode,
	).Scan(&p.ID, &p.Code, &p.Name, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotConfigured
	}
	if err != nil {
		return nil, fmt.Errorf("resolve default policy: %w", err)
	}
	return &p, nil
}

// PolicyRules returns the policy's rules ascending by threshold.
func PolicyRules(ctx context.Context, policyID int64) ([]models.PolicyRule, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, policy_id, threshold_seconds, fixed_charge, percent_charge
		FROM policy_rules
		WHERE policy_id = $1
		ORDER BY threshold_seconds ASC`,
		policyID,
	)
	if err != nil {
		return nil, fmt.Errorf("policy rules: %w", err)
	}
	defer rows.Close()
	var list []models.PolicyRule
	for rows.Next() {
		var r models.PolicyRule
		var thresholdSeconds int64
		if err := rows.Scan(&r.ID, &r.PolicyID, &thresholdSeconds, &r.FixedCharge, &r.PercentCharge); err != nil {
			return nil, err
		}
		r.Threshold = time.Duration(thresholdSeconds) * time.Second
		list = append(list, r)
	}
	return list, rows.Err()
}
