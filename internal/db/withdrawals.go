package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ad402/ad402/internal/config"
	"github.com/ad402/ad402/internal/models"
)

const withdrawalCols = `id, publisher_id, wallet_address, amount_micros, currency,
	network, status, tx_hash, failure_reason, requested_at, processed_at`

func scanWithdrawal(row rowScanner) (*models.Withdrawal, error) {
	var w models.Withdrawal
	var amountMicros, requestedAt int64
	var processedAt sql.NullInt64
	if err := row.Scan(&w.ID, &w.PublisherID, &w.WalletAddress, &amountMicros, &w.Currency,
		&w.Network, &w.Status, &w.TxHash, &w.FailureReason, &requestedAt, &processedAt); err != nil {
		return nil, err
	}
	w.Amount = fromMicros(amountMicros)
	w.RequestedAt = fromMillis(requestedAt)
	w.ProcessedAt = fromNullMillis(processedAt)
	return &w, nil
}

// CreateWithdrawal re-derives the available balance and inserts the
// withdrawal inside one transaction. SQLite serializes writers, so two
// racing requests cannot both pass the balance check against the same
// earnings.
func (d *DB) CreateWithdrawal(ctx context.Context, w *models.Withdrawal) error {
	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin withdrawal transaction: %w", err)
	}
	defer tx.Rollback()

	totals, err := revenueTotals(ctx, tx, w.PublisherID)
	if err != nil {
		return err
	}

	available := totals.AvailableBalance()
	if w.Amount.GreaterThan(available) {
		return fmt.Errorf("%w: requested %s but only %s %s available",
			config.ErrInsufficientBalance,
			w.Amount.StringFixed(config.USDCDecimals),
			available.StringFixed(config.USDCDecimals),
			config.Currency)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO withdrawals (id, publisher_id, wallet_address, amount_micros, currency,
			network, status, tx_hash, failure_reason, requested_at, processed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		w.ID, w.PublisherID, w.WalletAddress, toMicros(w.Amount), w.Currency,
		w.Network, w.Status, w.TxHash, w.FailureReason, toMillis(w.RequestedAt), toNullMillis(w.ProcessedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert withdrawal: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit withdrawal: %w", err)
	}
	return nil
}

// ListWithdrawals returns a publisher's withdrawals, newest first, plus
// the total count. A zero limit returns all matches.
func (d *DB) ListWithdrawals(ctx context.Context, publisherID string, limit, offset int) ([]models.Withdrawal, int64, error) {
	var total int64
	if err := d.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM withdrawals WHERE publisher_id = ?`, publisherID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count withdrawals: %w", err)
	}

	query := `SELECT ` + withdrawalCols + ` FROM withdrawals WHERE publisher_id = ? ORDER BY requested_at DESC, id`
	args := []any{publisherID}
	if limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, limit, offset)
	}

	rows, err := d.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list withdrawals: %w", err)
	}
	defer rows.Close()

	var withdrawals []models.Withdrawal
	for rows.Next() {
		w, err := scanWithdrawal(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan withdrawal: %w", err)
		}
		withdrawals = append(withdrawals, *w)
	}
	return withdrawals, total, rows.Err()
}
