package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ad402/ad402/internal/config"
	"github.com/ad402/ad402/internal/market"
	"github.com/ad402/ad402/internal/models"
)

const placementCols = `id, slot_id, publisher_id, advertiser_wallet, content_url,
	click_url, description, price_micros, currency, duration_minutes, starts_at,
	expires_at, status, moderation_status, views, clicks, created_at`

func scanPlacement(row rowScanner) (*models.Placement, error) {
	var p models.Placement
	var priceMicros, startsAt, expiresAt, createdAt int64
	if err := row.Scan(&p.ID, &p.SlotID, &p.PublisherID, &p.AdvertiserWallet, &p.ContentURL,
		&p.ClickURL, &p.Description, &priceMicros, &p.Currency, &p.DurationMinutes, &startsAt,
		&expiresAt, &p.Status, &p.ModerationStatus, &p.Views, &p.Clicks, &createdAt); err != nil {
		return nil, err
	}
	p.Price = fromMicros(priceMicros)
	p.StartsAt = fromMillis(startsAt)
	p.ExpiresAt = fromMillis(expiresAt)
	p.CreatedAt = fromMillis(createdAt)
	return &p, nil
}

// ActivePlacement returns the unexpired active placement for a slot, if
// any.
func (d *DB) ActivePlacement(ctx context.Context, slotID string, now time.Time) (*models.Placement, error) {
	row := d.conn.QueryRowContext(ctx,
		`SELECT `+placementCols+` FROM placements
		 WHERE slot_id = ? AND status = ? AND expires_at > ?
		 ORDER BY expires_at DESC LIMIT 1`,
		slotID, models.PlacementActive, toMillis(now))
	p, err := scanPlacement(row)
	if err != nil {
		return nil, mapNotFound(err, "active placement for slot", slotID)
	}
	return p, nil
}

// GetPlacement looks up a placement by id.
func (d *DB) GetPlacement(ctx context.Context, id string) (*models.Placement, error) {
	row := d.conn.QueryRowContext(ctx,
		`SELECT `+placementCols+` FROM placements WHERE id = ?`, id)
	p, err := scanPlacement(row)
	if err != nil {
		return nil, mapNotFound(err, "placement", id)
	}
	return p, nil
}

// AllocateTopBid runs the whole slot assignment in one transaction: it
// re-checks slot occupancy, picks the top-ranked approved bid, flips the
// bid to allocated with a conditional update, and writes the placement,
// payment, and stats rows. A bid that lost its approved status between
// selection and update aborts the transaction with ErrConflict, as does
// a write that loses the SQLite lock race to a concurrent allocation.
func (d *DB) AllocateTopBid(ctx context.Context, req market.AllocationRequest) (*models.AllocationResult, error) {
	result, err := d.allocateTopBid(ctx, req)
	if err != nil && isBusy(err) {
		return nil, fmt.Errorf("%w: allocation lost a write race: %v", config.ErrConflict, err)
	}
	return result, err
}

func (d *DB) allocateTopBid(ctx context.Context, req market.AllocationRequest) (*models.AllocationResult, error) {
	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin allocation transaction: %w", err)
	}
	defer tx.Rollback()

	start := req.SlotStart.UTC()

	// Occupied slots are not an error worth surfacing differently from
	// an empty queue: either way there is nothing to assign right now.
	var occupied int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM placements WHERE slot_id = ? AND status = ? AND expires_at > ?`,
		req.Slot.ID, models.PlacementActive, toMillis(start)).Scan(&occupied)
	if err != nil {
		return nil, fmt.Errorf("failed to check slot occupancy: %w", err)
	}
	if occupied > 0 {
		return nil, fmt.Errorf("%w: slot %s is occupied", config.ErrEmptyQueue, req.Slot.SlotIdentifier)
	}

	row := tx.QueryRowContext(ctx,
		`SELECT `+bidCols+` FROM bids
		 WHERE publisher_id = ? AND slot_type = ? AND status = ? `+queueOrder+` LIMIT 1`,
		req.Publisher.ID, req.Slot.SlotIdentifier, models.BidApproved)
	bid, err := scanBid(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: slot type %s", config.ErrEmptyQueue, req.Slot.SlotIdentifier)
		}
		return nil, fmt.Errorf("failed to select top bid: %w", err)
	}

	expires := start.Add(time.Duration(bid.DurationMinutes) * time.Minute)
	placementID := uuid.NewString()
	now := time.Now().UTC()

	res, err := tx.ExecContext(ctx, `
		UPDATE bids SET status = ?, placement_id = ?, slot_start = ?, slot_end = ?, allocated_at = ?
		WHERE id = ? AND status = ?`,
		models.BidAllocated, placementID, toMillis(start), toMillis(expires), toMillis(now),
		bid.ID, models.BidApproved,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate bid: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, fmt.Errorf("%w: bid %s changed state during allocation", config.ErrConflict, bid.ID)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO placements (id, slot_id, publisher_id, advertiser_wallet, content_url,
			click_url, description, price_micros, currency, duration_minutes, starts_at,
			expires_at, status, moderation_status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		placementID, req.Slot.ID, req.Publisher.ID, bid.AdvertiserWallet, bid.ContentHash,
		bid.ClickURL, bid.AdDescription, toMicros(bid.BidAmount), bid.Currency, bid.DurationMinutes,
		toMillis(start), toMillis(expires), models.PlacementActive, "approved", toMillis(now),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert placement: %w", err)
	}

	// Fee split: the platform fee is rounded to USDC precision and the
	// publisher gets the exact remainder, so fee + revenue == amount.
	fee := bid.BidAmount.Mul(req.FeePercentage).Div(decimal.NewFromInt(100)).Round(config.USDCDecimals)
	revenue := bid.BidAmount.Sub(fee)

	paymentStatus := models.PaymentPending
	var verifiedAt sql.NullInt64
	if bid.PaymentVerified {
		paymentStatus = models.PaymentConfirmed
		verifiedAt = sql.NullInt64{Int64: toMillis(now), Valid: true}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO payments (id, placement_id, publisher_id, transaction_hash, amount_micros,
			currency, network, platform_fee_micros, publisher_revenue_micros, status, verified_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), placementID, req.Publisher.ID, bid.TransactionHash, toMicros(bid.BidAmount),
		bid.Currency, bid.Network, toMicros(fee), toMicros(revenue), paymentStatus, verifiedAt, toMillis(now),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert payment: %w", err)
	}

	if paymentStatus == models.PaymentConfirmed {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO publisher_stats (publisher_id, total_revenue_micros, total_ads_run, updated_at)
			VALUES (?, ?, 1, ?)
			ON CONFLICT(publisher_id) DO UPDATE SET
				total_revenue_micros = total_revenue_micros + excluded.total_revenue_micros,
				total_ads_run = total_ads_run + 1,
				updated_at = excluded.updated_at`,
			req.Publisher.ID, toMicros(revenue), toMillis(now),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to update publisher stats: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit allocation: %w", err)
	}

	return &models.AllocationResult{
		BidID:            bid.ID,
		PlacementID:      placementID,
		Advertiser:       models.MaskWallet(bid.AdvertiserWallet),
		SlotType:         bid.SlotType,
		BidAmount:        bid.BidAmount,
		PlatformFee:      fee,
		PublisherRevenue: revenue,
		StartsAt:         start,
		ExpiresAt:        expires,
		DurationMinutes:  bid.DurationMinutes,
	}, nil
}

// ExpirePlacements flips overdue active placements to expired and
// completes their bids. Returns the number of placements expired.
func (d *DB) ExpirePlacements(ctx context.Context, now time.Time) (int64, error) {
	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin expiry transaction: %w", err)
	}
	defer tx.Rollback()

	cutoff := toMillis(now)

	res, err := tx.ExecContext(ctx, `
		UPDATE bids SET status = ?
		WHERE status = ? AND placement_id IN (
			SELECT id FROM placements WHERE status = ? AND expires_at <= ?
		)`,
		models.BidCompleted, models.BidAllocated, models.PlacementActive, cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to complete bids: %w", err)
	}
	if _, err := res.RowsAffected(); err != nil {
		return 0, err
	}

	res, err = tx.ExecContext(ctx, `
		UPDATE placements SET status = ? WHERE status = ? AND expires_at <= ?`,
		models.PlacementExpired, models.PlacementActive, cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to expire placements: %w", err)
	}
	expired, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit expiry: %w", err)
	}
	return expired, nil
}
