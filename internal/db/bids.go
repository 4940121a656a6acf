package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ad402/ad402/internal/market"
	"github.com/ad402/ad402/internal/models"
)

const bidCols = `id, publisher_id, slot_type, advertiser_wallet, bid_amount_micros,
	currency, network, duration_minutes, content_hash, ad_title, ad_description,
	click_url, transaction_hash, payment_verified, status, rejection_reason,
	approved_by, placement_id, slot_start, slot_end, created_at, approved_at,
	rejected_at, allocated_at`

// queueOrder ranks approved bids: highest amount first, earliest
// approval breaks ties, bid id breaks exact ties deterministically.
const queueOrder = `ORDER BY bid_amount_micros DESC, approved_at ASC, id ASC`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBid(row rowScanner) (*models.Bid, error) {
	var b models.Bid
	var amountMicros, createdAt int64
	var verified int
	var slotStart, slotEnd, approvedAt, rejectedAt, allocatedAt sql.NullInt64
	if err := row.Scan(&b.ID, &b.PublisherID, &b.SlotType, &b.AdvertiserWallet, &amountMicros,
		&b.Currency, &b.Network, &b.DurationMinutes, &b.ContentHash, &b.AdTitle, &b.AdDescription,
		&b.ClickURL, &b.TransactionHash, &verified, &b.Status, &b.RejectionReason,
		&b.ApprovedBy, &b.PlacementID, &slotStart, &slotEnd, &createdAt, &approvedAt,
		&rejectedAt, &allocatedAt); err != nil {
		return nil, err
	}
	b.BidAmount = fromMicros(amountMicros)
	b.PaymentVerified = verified != 0
	b.SlotStart = fromNullMillis(slotStart)
	b.SlotEnd = fromNullMillis(slotEnd)
	b.CreatedAt = fromMillis(createdAt)
	b.ApprovedAt = fromNullMillis(approvedAt)
	b.RejectedAt = fromNullMillis(rejectedAt)
	b.AllocatedAt = fromNullMillis(allocatedAt)
	return &b, nil
}

// InsertBid persists a new bid in pending_approval state.
func (d *DB) InsertBid(ctx context.Context, bid *models.Bid) error {
	_, err := d.conn.ExecContext(ctx, `
		INSERT INTO bids (id, publisher_id, slot_type, advertiser_wallet, bid_amount_micros,
			currency, network, duration_minutes, content_hash, ad_title, ad_description,
			click_url, transaction_hash, payment_verified, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		bid.ID, bid.PublisherID, bid.SlotType, bid.AdvertiserWallet, toMicros(bid.BidAmount),
		bid.Currency, bid.Network, bid.DurationMinutes, bid.ContentHash, bid.AdTitle, bid.AdDescription,
		bid.ClickURL, bid.TransactionHash, boolToInt(bid.PaymentVerified), bid.Status, toMillis(bid.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert bid: %w", err)
	}
	return nil
}

// GetBid looks up a bid by id.
func (d *DB) GetBid(ctx context.Context, id string) (*models.Bid, error) {
	row := d.conn.QueryRowContext(ctx,
		`SELECT `+bidCols+` FROM bids WHERE id = ?`, id)
	bid, err := scanBid(row)
	if err != nil {
		return nil, mapNotFound(err, "bid", id)
	}
	return bid, nil
}

// ApproveBid performs the pending_approval -> approved transition as a
// conditional update. A false return means the bid was no longer
// pending when the update ran.
func (d *DB) ApproveBid(ctx context.Context, bidID, approvedBy string, at time.Time) (bool, error) {
	res, err := d.conn.ExecContext(ctx, `
		UPDATE bids SET status = ?, approved_by = ?, approved_at = ?
		WHERE id = ? AND status = ?`,
		models.BidApproved, approvedBy, toMillis(at), bidID, models.BidPendingApproval,
	)
	if err != nil {
		return false, fmt.Errorf("failed to approve bid: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// RejectBid performs the pending_approval|approved -> rejected
// transition as a conditional update.
func (d *DB) RejectBid(ctx context.Context, bidID, reason string, at time.Time) (bool, error) {
	res, err := d.conn.ExecContext(ctx, `
		UPDATE bids SET status = ?, rejection_reason = ?, rejected_at = ?
		WHERE id = ? AND status IN (?, ?)`,
		models.BidRejected, reason, toMillis(at), bidID, models.BidPendingApproval, models.BidApproved,
	)
	if err != nil {
		return false, fmt.Errorf("failed to reject bid: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListApprovedBids returns ranked approved bids plus the total count for
// the filter. A zero limit returns all matches.
func (d *DB) ListApprovedBids(ctx context.Context, f market.QueueFilter) ([]models.Bid, int64, error) {
	where := `WHERE publisher_id = ? AND status = ?`
	args := []any{f.PublisherID, models.BidApproved}
	if f.SlotType != "" {
		where += ` AND slot_type = ?`
		args = append(args, f.SlotType)
	}

	var total int64
	if err := d.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM bids `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count approved bids: %w", err)
	}

	query := `SELECT ` + bidCols + ` FROM bids ` + where + ` ` + queueOrder
	if f.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, f.Limit, f.Offset)
	}

	rows, err := d.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list approved bids: %w", err)
	}
	defer rows.Close()

	var bids []models.Bid
	for rows.Next() {
		bid, err := scanBid(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan bid: %w", err)
		}
		bids = append(bids, *bid)
	}
	return bids, total, rows.Err()
}

// ListBidsByStatus returns a publisher's bids in one state, newest
// first, plus the total count. A zero limit returns all matches.
func (d *DB) ListBidsByStatus(ctx context.Context, publisherID string, status models.BidStatus, limit, offset int) ([]models.Bid, int64, error) {
	var total int64
	if err := d.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM bids WHERE publisher_id = ? AND status = ?`,
		publisherID, status).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count bids: %w", err)
	}

	query := `SELECT ` + bidCols + ` FROM bids WHERE publisher_id = ? AND status = ? ORDER BY created_at DESC, id`
	args := []any{publisherID, status}
	if limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, limit, offset)
	}

	rows, err := d.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list bids: %w", err)
	}
	defer rows.Close()

	var bids []models.Bid
	for rows.Next() {
		bid, err := scanBid(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan bid: %w", err)
		}
		bids = append(bids, *bid)
	}
	return bids, total, rows.Err()
}

// CountRankedAhead counts approved bids of the same publisher and slot
// type that precede the given bid in queue order.
func (d *DB) CountRankedAhead(ctx context.Context, bid *models.Bid) (int64, error) {
	if bid.ApprovedAt == nil {
		return 0, fmt.Errorf("bid %s has no approval time", bid.ID)
	}
	amount := toMicros(bid.BidAmount)
	approvedAt := toMillis(*bid.ApprovedAt)

	var n int64
	err := d.conn.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM bids
		WHERE publisher_id = ? AND slot_type = ? AND status = ?
		  AND (bid_amount_micros > ?
		   OR (bid_amount_micros = ? AND approved_at < ?)
		   OR (bid_amount_micros = ? AND approved_at = ? AND id < ?))`,
		bid.PublisherID, bid.SlotType, models.BidApproved,
		amount, amount, approvedAt, amount, approvedAt, bid.ID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count ranked bids: %w", err)
	}
	return n, nil
}
