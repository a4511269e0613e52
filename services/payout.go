package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"food-market/db"
	"food-market/models"

	"github.com/google/uuid"
)

const (
	PayoutTypeOnline     = "online"
	PayoutTypeCOD        = "cod"
	PayoutTypeAdjustment = "adjustment"

	PayoutStatusInitiated = "initiated"
	PayoutStatusCompleted = "completed"
)

// SumReceivables totals the receivables and collects their order references.
func SumReceivables(rs []models.CommissionReceivable) (total int64, orderIDs []int64) {
	for _, r := range rs {
		total += r.Amount
		orderIDs = append(orderIDs, r.OrderID)
	}
	return total, orderIDs
}

// EligibleForBatch filters the receivables a payout build may include:
// pending, not already referenced by another payout batch, and created by
// asOf. An initiated-but-unconfirmed batch keeps its receivables out of the
// next build.
func EligibleForBatch(rs []models.CommissionReceivable, asOf time.Time) []models.CommissionReceivable {
	var eligible []models.CommissionReceivable
	for _, r := range rs {
		if r.Status != ReceivableStatusPending || r.PayoutID != nil {
			continue
		}
		if r.CreatedAt.After(asOf) {
			continue
		}
		eligible = append(eligible, r)
	}
	return eligible
}

// NextPayoutAt returns when the merchant's next payout build is due, per the
// payout cadence of its commission config.
func NextPayoutAt(cfg *models.CommissionConfig, last time.Time) time.Time {
	days := cfg.PayoutCadenceDays
	if days <= 0 {
		days = 7
	}
	return last.AddDate(0, 0, days)
}

// claimMerchant takes the exclusive payout-in-progress marker for the
// merchant. ErrClaimConflict when another build holds it. A claim left behind
// by a crashed build goes stale after 15 minutes and may be stolen, so one
// dead process cannot block the merchant's payouts forever.
func claimMerchant(ctx context.Context, merchantID int64) error {
	res, err := db.Pool.Exec(ctx, `
		INSERT INTO payout_claims (merchant_id) VALUES ($1)
		ON CONFLICT (merchant_id) DO UPDATE SET claimed_at = now()
		WHERE payout_claims.claimed_at < now() - interval '15 minutes'`,
		merchantID,
	)
	if err != nil {
		return fmt.Errorf("claim merchant: %w", err)
	}
	if res.RowsAffected() == 0 {
		return ErrClaimConflict
	}
	return nil
}

// releaseMerchant drops the claim. The delete must survive cancellation of
// the build's context, otherwise an aborted build leaves the merchant
// claimed until the stale-claim timeout.
func releaseMerchant(ctx context.Context, merchantID int64) {
	ctx = context.WithoutCancel(ctx)
	if _, err := db.Pool.Exec(ctx, `DELETE FROM payout_claims WHERE merchant_id = $1`, merchantID); err != nil {
		log.Printf("release payout claim for merchant %d: %v", merchantID, err)
	}
}

// BuildPayout batches the merchant's receivables outstanding as of asOf into
// one initiated payout. Returns (nil, nil) when nothing is outstanding; no
// empty batch is created. The merchant claim is held for the whole build so
// concurrent builds cannot double-count a receivable, and every batched
// receivable is stamped with the payout id in the same transaction that
// creates the batch — a second sequential build with no new receivables sums
// to zero even while the first batch awaits confirmation.
func BuildPayout(ctx context.Context, merchantID int64, asOf time.Time) (*models.MerchantPayout, error) {
	if err := claimMerchant(ctx, merchantID); err != nil {
		return nil, err
	}
	defer releaseMerchant(ctx, merchantID)

	outstanding, err := OutstandingFor(ctx, merchantID)
	if err != nil {
		return nil, err
	}
	eligible := EligibleForBatch(outstanding, asOf)
	total, orderIDs := SumReceivables(eligible)
	if total == 0 {
		return nil, nil
	}
	receivableIDs := make([]int64, len(eligible))
	for i, r := range eligible {
		receivableIDs[i] = r.ID
	}

	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	p := models.MerchantPayout{
		Ref:        uuid.NewString(),
		MerchantID: merchantID,
		Total:      total,
		Type:       PayoutTypeCOD,
		Status:     PayoutStatusInitiated,
		OrderIDs:   orderIDs,
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO merchant_payouts (ref, merchant_id, total, payout_type, status, order_ids)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`,
		p.Ref, p.MerchantID, p.Total, p.Type, p.Status, p.OrderIDs,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert payout: %w", err)
	}

	res, err := tx.Exec(ctx, `
		UPDATE commission_receivables SET payout_id = $1
		WHERE id = ANY($2) AND status = $3 AND payout_id IS NULL`,
		p.ID, receivableIDs, ReceivableStatusPending,
	)
	if err != nil {
		return nil, fmt.Errorf("batch receivables: %w", err)
	}
	if res.RowsAffected() != int64(len(receivableIDs)) {
		// The claim should make this impossible; abort rather than pay out
		// receivables someone else touched.
		return nil, fmt.Errorf("payout build for merchant %d: %d of %d receivables changed underfoot",
			merchantID, int64(len(receivableIDs))-res.RowsAffected(), len(receivableIDs))
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return &p, nil
}

// GetPayout returns one payout row.
func GetPayout(ctx context.Context, payoutID int64) (*models.MerchantPayout, error) {
	var p models.MerchantPayout
	err := db.Pool.QueryRow(ctx, `
		SELECT id, ref, merchant_id, total, payout_type, status, order_ids, settlement_note, settled_at, created_at
		FROM merchant_payouts WHERE id = $1`,
		payoutID,
	).Scan(&p.ID, &p.Ref, &p.MerchantID, &p.Total, &p.Type, &p.Status, &p.OrderIDs, &p.SettlementNote, &p.SettledAt, &p.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("get payout %d: %w", payoutID, err)
	}
	return &p, nil
}

// ConfirmPayout runs the recovery step after external confirmation: every
// referenced receivable transitions to recovered via payout-adjustment, then
// the payout goes initiated->completed. Receivables that already recovered
// (e.g. a manual recovery raced) count as resolved. On partial failure the
// payout stays initiated and the returned count tells the caller how many
// receivables are still unresolved; re-invoking retries only those — the
// batch is never re-summed or recreated.
func ConfirmPayout(ctx context.Context, payoutID int64, settledAt time.Time, note string) (unresolved int, err error) {
	p, err := GetPayout(ctx, payoutID)
	if err != nil {
		return 0, err
	}
	if p.Status == PayoutStatusCompleted {
		return 0, nil
	}

	for _, orderID := range p.OrderIDs {
		r, err := GetReceivableByOrder(ctx, orderID)
		if err != nil {
			unresolved++
			continue
		}
		if r.Status == ReceivableStatusRecovered {
			continue
		}
		if err := MarkRecovered(ctx, r.ID, RecoveredViaPayout); err != nil && !errors.Is(err, ErrAlreadyRecovered) {
			unresolved++
		}
	}
	if unresolved > 0 {
		return unresolved, nil
	}

	_, err = db.Pool.Exec(ctx, `
		UPDATE merchant_payouts
		SET status = $2, settled_at = $3, settlement_note = NULLIF($4, '')
		WHERE id = $1 AND status = $5`,
		payoutID, PayoutStatusCompleted, settledAt, note, PayoutStatusInitiated,
	)
	if err != nil {
		return 0, fmt.Errorf("complete payout: %w", err)
	}
	return 0, nil
}
