package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ad402/ad402/internal/market"
	"github.com/ad402/ad402/internal/models"
)

const paymentCols = `id, placement_id, publisher_id, transaction_hash, amount_micros,
	currency, network, platform_fee_micros, publisher_revenue_micros, status,
	verified_at, created_at`

func scanPayment(row rowScanner) (*models.Payment, error) {
	var p models.Payment
	var amountMicros, feeMicros, revenueMicros, createdAt int64
	var verifiedAt sql.NullInt64
	if err := row.Scan(&p.ID, &p.PlacementID, &p.PublisherID, &p.TransactionHash, &amountMicros,
		&p.Currency, &p.Network, &feeMicros, &revenueMicros, &p.Status,
		&verifiedAt, &createdAt); err != nil {
		return nil, err
	}
	p.Amount = fromMicros(amountMicros)
	p.PlatformFee = fromMicros(feeMicros)
	p.PublisherRevenue = fromMicros(revenueMicros)
	p.VerifiedAt = fromNullMillis(verifiedAt)
	p.CreatedAt = fromMillis(createdAt)
	return &p, nil
}

// RevenueTotals aggregates a publisher's confirmed earnings and
// withdrawal holds. The balance is never stored; it is always derived
// from these sums.
func (d *DB) RevenueTotals(ctx context.Context, publisherID string) (market.RevenueTotals, error) {
	return revenueTotals(ctx, d.conn, publisherID)
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func revenueTotals(ctx context.Context, q querier, publisherID string) (market.RevenueTotals, error) {
	var t market.RevenueTotals
	var earnings, amount, fees sql.NullInt64
	var paymentCount int64

	err := q.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(publisher_revenue_micros), 0),
		       COALESCE(SUM(amount_micros), 0),
		       COALESCE(SUM(platform_fee_micros), 0),
		       COUNT(*)
		FROM payments WHERE publisher_id = ? AND status = ?`,
		publisherID, models.PaymentConfirmed,
	).Scan(&earnings, &amount, &fees, &paymentCount)
	if err != nil {
		return t, fmt.Errorf("failed to sum payments: %w", err)
	}

	var withdrawn, held sql.NullInt64
	var completedCount, heldCount int64
	err = q.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(CASE WHEN status = ? THEN amount_micros ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN status IN (?, ?) THEN amount_micros ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN status IN (?, ?) THEN 1 ELSE 0 END), 0)
		FROM withdrawals WHERE publisher_id = ?`,
		models.WithdrawalCompleted,
		models.WithdrawalPending, models.WithdrawalProcessing,
		models.WithdrawalCompleted,
		models.WithdrawalPending, models.WithdrawalProcessing,
		publisherID,
	).Scan(&withdrawn, &held, &completedCount, &heldCount)
	if err != nil {
		return t, fmt.Errorf("failed to sum withdrawals: %w", err)
	}

	t.TotalEarnings = fromMicros(earnings.Int64)
	t.TotalAmount = fromMicros(amount.Int64)
	t.TotalPlatformFees = fromMicros(fees.Int64)
	t.TotalWithdrawn = fromMicros(withdrawn.Int64)
	t.PendingWithdrawals = fromMicros(held.Int64)
	t.PaymentCount = paymentCount
	t.WithdrawalCount = completedCount + heldCount
	t.CompletedCount = completedCount
	return t, nil
}

// ListPayments returns a publisher's payments, newest first, plus the
// total count. A zero limit returns all matches.
func (d *DB) ListPayments(ctx context.Context, publisherID string, limit, offset int) ([]models.Payment, int64, error) {
	var total int64
	if err := d.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM payments WHERE publisher_id = ?`, publisherID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count payments: %w", err)
	}

	query := `SELECT ` + paymentCols + ` FROM payments WHERE publisher_id = ? ORDER BY created_at DESC, id`
	args := []any{publisherID}
	if limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, limit, offset)
	}

	rows, err := d.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list payments: %w", err)
	}
	defer rows.Close()

	var payments []models.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan payment: %w", err)
		}
		payments = append(payments, *p)
	}
	return payments, total, rows.Err()
}
