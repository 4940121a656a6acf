package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ad402/ad402/internal/models"
)

// approvalRate derives the share of decided bids that were approved,
// as a percentage. Bids still pending do not count either way.
func approvalRate(ctx context.Context, q querier, publisherID string) (decimal.Decimal, error) {
	var decided, approved int64
	err := q.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN status != ? THEN 1 ELSE 0 END), 0)
		FROM bids WHERE publisher_id = ? AND status != ?`,
		models.BidRejected, publisherID, models.BidPendingApproval,
	).Scan(&decided, &approved)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to derive approval rate: %w", err)
	}
	if decided == 0 {
		return decimal.Zero, nil
	}
	return decimal.NewFromInt(approved).
		Div(decimal.NewFromInt(decided)).
		Mul(decimal.NewFromInt(100)).
		Round(6), nil
}

// RecomputeApprovalRate refreshes the derived approval rate counter.
func (d *DB) RecomputeApprovalRate(ctx context.Context, publisherID string) error {
	rate, err := approvalRate(ctx, d.conn, publisherID)
	if err != nil {
		return err
	}

	_, err = d.conn.ExecContext(ctx, `
		INSERT INTO publisher_stats (publisher_id, approval_rate_micros, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(publisher_id) DO UPDATE SET
			approval_rate_micros = excluded.approval_rate_micros,
			updated_at = excluded.updated_at`,
		publisherID, toMicros(rate), toMillis(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("failed to store approval rate: %w", err)
	}
	return nil
}

// RebuildPublisherStats rederives the whole counter row from payment
// and bid history. Stats are a cache, never the source of truth.
func (d *DB) RebuildPublisherStats(ctx context.Context, publisherID string) (*models.PublisherStats, error) {
	var revenueMicros sql.NullInt64
	var adsRun int64
	err := d.conn.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(publisher_revenue_micros), 0), COUNT(*)
		FROM payments WHERE publisher_id = ? AND status = ?`,
		publisherID, models.PaymentConfirmed,
	).Scan(&revenueMicros, &adsRun)
	if err != nil {
		return nil, fmt.Errorf("failed to sum payment history: %w", err)
	}

	rate, err := approvalRate(ctx, d.conn, publisherID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	_, err = d.conn.ExecContext(ctx, `
		INSERT INTO publisher_stats (publisher_id, total_revenue_micros, total_ads_run, approval_rate_micros, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(publisher_id) DO UPDATE SET
			total_revenue_micros = excluded.total_revenue_micros,
			total_ads_run = excluded.total_ads_run,
			approval_rate_micros = excluded.approval_rate_micros,
			updated_at = excluded.updated_at`,
		publisherID, revenueMicros.Int64, adsRun, toMicros(rate), toMillis(now),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to rebuild publisher stats: %w", err)
	}

	return &models.PublisherStats{
		PublisherID:  publisherID,
		TotalRevenue: fromMicros(revenueMicros.Int64),
		TotalAdsRun:  adsRun,
		ApprovalRate: rate,
		UpdatedAt:    now,
	}, nil
}

// GetPublisherStats returns the counter row, or a zero row when the
// publisher has no stats yet.
func (d *DB) GetPublisherStats(ctx context.Context, publisherID string) (*models.PublisherStats, error) {
	var s models.PublisherStats
	var revenueMicros, rateMicros, updatedAt int64
	err := d.conn.QueryRowContext(ctx, `
		SELECT publisher_id, total_revenue_micros, total_ads_run, approval_rate_micros, updated_at
		FROM publisher_stats WHERE publisher_id = ?`, publisherID,
	).Scan(&s.PublisherID, &revenueMicros, &s.TotalAdsRun, &rateMicros, &updatedAt)
	if err == sql.ErrNoRows {
		return &models.PublisherStats{
			PublisherID:  publisherID,
			TotalRevenue: decimal.Zero,
			ApprovalRate: decimal.Zero,
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load publisher stats: %w", err)
	}
	s.TotalRevenue = fromMicros(revenueMicros)
	s.ApprovalRate = fromMicros(rateMicros)
	s.UpdatedAt = fromMillis(updatedAt)
	return &s, nil
}
