package services

import (
	"context"
	"errors"
	"fmt"
	"math"

	"food-market/db"
	"food-market/models"

	"github.com/jackc/pgx/v5"
)

const (
	CommissionTypePercentage = "percentage"
	CommissionTypeFixed      = "fixed"

	ReceivableStatusPending   = "pending"
	ReceivableStatusRecovered = "recovered"

	RecoveredViaPayout = "payout_adjustment"
	RecoveredViaManual = "manual"
	RecoveredViaNone   = "none"
)

// GetCommissionConfig returns the merchant's active commission config, or the
// platform default when the merchant has none.
func GetCommissionConfig(ctx context.Context, merchantID int64) (*models.CommissionConfig, error) {
	var c models.CommissionConfig
	err := db.Pool.QueryRow(ctx, `
		SELECT id, merchant_id, commission_type, percent, fixed_value,
		       payout_cadence_days, include_delivery, merchant_absorbs_extras, active, created_at
		FROM commission_configs
		WHERE merchant_id = $1 AND active`,
		merchantID,
	).Scan(&c.ID, &c.MerchantID, &c.Type, &c.Percent, &c.FixedValue,
		&c.PayoutCadenceDays, &c.IncludeDelivery, &c.MerchantAbsorbsExtras, &c.Active, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		def := platformCommission
		def.MerchantID = merchantID
		return &def, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get commission config: %w", err)
	}
	return &c, nil
}

// SetCommissionConfig replaces the merchant's active commission config. The
// previous config is deactivated, never deleted, so the one-active-per-merchant
// index holds.
func SetCommissionConfig(ctx context.Context, cfg models.CommissionConfig) (int64, error) {
	if cfg.Type != CommissionTypePercentage && cfg.Type != CommissionTypeFixed {
		return 0, fmt.Errorf("unknown commission type %q", cfg.Type)
	}
	if cfg.Percent < 0 || cfg.Percent > 100 {
		return 0, fmt.Errorf("percent must be between 0 and 100")
	}
	if cfg.PayoutCadenceDays <= 0 {
		cfg.PayoutCadenceDays = platformCommission.PayoutCadenceDays
	}

	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		UPDATE commission_configs SET active = false WHERE merchant_id = $1 AND active`,
		cfg.MerchantID,
	)
	if err != nil {
		return 0, fmt.Errorf("deactivate config: %w", err)
	}
	var id int64
	err = tx.QueryRow(ctx, `
		INSERT INTO commission_configs
			(merchant_id, commission_type, percent, fixed_value, payout_cadence_days,
			 include_delivery, merchant_absorbs_extras, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, true)
		RETURNING id`,
		cfg.MerchantID, cfg.Type, cfg.Percent, cfg.FixedValue, cfg.PayoutCadenceDays,
		cfg.IncludeDelivery, cfg.MerchantAbsorbsExtras,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert config: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return id, nil
}

// CommissionAmountFor computes the commission owed for an order under the
// given config. Percentage commissions round to the nearest minor unit.
func CommissionAmountFor(cfg *models.CommissionConfig, subtotal, deliveryFee int64) int64 {
	if cfg.Type == CommissionTypeFixed {
		return cfg.FixedValue
	}
	base := subtotal
	if cfg.IncludeDelivery {
		base += deliveryFee
	}
	return int64(math.Round(float64(base) * cfg.Percent / 100))
}

// RecordReceivable creates the pending commission receivable for an order.
// Idempotent on order id: a second call returns the existing record.
func RecordReceivable(ctx context.Context, orderID, merchantID, amount int64) (*models.CommissionReceivable, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("receivable amount must be positive")
	}
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO commission_receivables (order_id, merchant_id, amount, status, recovered_via)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (order_id) DO NOTHING`,
		orderID, merchantID, amount, ReceivableStatusPending, RecoveredViaNone,
	)
	if err != nil {
		return nil, fmt.Errorf("record receivable: %w", err)
	}
	return GetReceivableByOrder(ctx, orderID)
}

// GetReceivableByOrder returns the receivable for the order, if any.
func GetReceivableByOrder(ctx context.Context, orderID int64) (*models.CommissionReceivable, error) {
	var r models.CommissionReceivable
	err := db.Pool.QueryRow(ctx, `
		SELECT id, order_id, merchant_id, amount, status, recovered_via, payout_id, created_at, recovered_at
		FROM commission_receivables WHERE order_id = $1`,
		orderID,
	).Scan(&r.ID, &r.OrderID, &r.MerchantID, &r.Amount, &r.Status, &r.RecoveredVia, &r.PayoutID, &r.CreatedAt, &r.RecoveredAt)
	if err != nil {
		return nil, fmt.Errorf("get receivable for order %d: %w", orderID, err)
	}
	return &r, nil
}

// MarkRecovered transitions the receivable pending->recovered via the given
// method. The check-and-set is a single guarded UPDATE, so two recovery paths
// racing for the same receivable cannot both win; the loser gets
// ErrAlreadyRecovered and should treat it as success.
func MarkRecovered(ctx context.Context, receivableID int64, via string) error {
	if via != RecoveredViaPayout && via != RecoveredViaManual {
		return fmt.Errorf("unknown recovery method %q", via)
	}
	res, err := db.Pool.Exec(ctx, `
		UPDATE commission_receivables
		SET status = $2, recovered_via = $3, recovered_at = now()
		WHERE id = $1 AND status = $4`,
		receivableID, ReceivableStatusRecovered, via, ReceivableStatusPending,
	)
	if err != nil {
		return fmt.Errorf("mark recovered: %w", err)
	}
	if res.RowsAffected() > 0 {
		return nil
	}

	var status string
	err = db.Pool.QueryRow(ctx, `SELECT status FROM commission_receivables WHERE id = $1`, receivableID).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("receivable %d not found", receivableID)
	}
	if err != nil {
		return fmt.Errorf("check receivable: %w", err)
	}
	return ErrAlreadyRecovered
}

// OutstandingFor returns the merchant's outstanding receivables, oldest
// first: pending and not yet referenced by a payout batch. A receivable
// batched into an initiated payout is already spoken for, so it leaves the
// outstanding set at build time, not at confirmation.
func OutstandingFor(ctx context.Context, merchantID int64) ([]models.CommissionReceivable, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, order_id, merchant_id, amount, status, recovered_via, payout_id, created_at, recovered_at
		FROM commission_receivables
		WHERE merchant_id = $1 AND status = $2 AND payout_id IS NULL
		ORDER BY created_at ASC, id ASC`,
		merchantID, ReceivableStatusPending,
	)
	if err != nil {
		return nil, fmt.Errorf("outstanding receivables: %w", err)
	}
	defer rows.Close()
	var list []models.CommissionReceivable
	for rows.Next() {
		var r models.CommissionReceivable
		if err := rows.Scan(&r.ID, &r.OrderID, &r.MerchantID, &r.Amount, &r.Status, &r.RecoveredVia, &r.PayoutID, &r.CreatedAt, &r.RecoveredAt); err != nil {
			return nil, err
		}
		list = append(list, r)
	}
	return list, rows.Err()
}
