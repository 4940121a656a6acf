package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ad402/ad402/internal/models"
)

const slotCols = `id, publisher_id, slot_identifier, size, width, height,
	base_price_micros, category, website_url, active, created_at`

func scanSlot(row rowScanner) (*models.AdSlot, error) {
	var s models.AdSlot
	var priceMicros, createdAt int64
	var active int
	if err := row.Scan(&s.ID, &s.PublisherID, &s.SlotIdentifier, &s.Size, &s.Width, &s.Height,
		&priceMicros, &s.Category, &s.WebsiteURL, &active, &createdAt); err != nil {
		return nil, err
	}
	s.BasePrice = fromMicros(priceMicros)
	s.Active = active != 0
	s.CreatedAt = fromMillis(createdAt)
	return &s, nil
}

// InsertSlot persists a new ad slot. The (publisher, identifier) pair is
// unique; a duplicate surfaces as a constraint error from the driver.
func (d *DB) InsertSlot(ctx context.Context, slot *models.AdSlot) error {
	_, err := d.conn.ExecContext(ctx, `
		INSERT INTO ad_slots (id, publisher_id, slot_identifier, size, width, height,
			base_price_micros, category, website_url, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		slot.ID, slot.PublisherID, slot.SlotIdentifier, slot.Size, slot.Width, slot.Height,
		toMicros(slot.BasePrice), slot.Category, slot.WebsiteURL, boolToInt(slot.Active), toMillis(slot.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert ad slot: %w", err)
	}
	return nil
}

// GetSlot looks up a slot by id.
func (d *DB) GetSlot(ctx context.Context, id string) (*models.AdSlot, error) {
	row := d.conn.QueryRowContext(ctx,
		`SELECT `+slotCols+` FROM ad_slots WHERE id = ?`, id)
	slot, err := scanSlot(row)
	if err != nil {
		return nil, mapNotFound(err, "ad slot", id)
	}
	return slot, nil
}

// GetActiveSlot looks up an active slot by publisher and identifier.
func (d *DB) GetActiveSlot(ctx context.Context, publisherID, slotIdentifier string) (*models.AdSlot, error) {
	row := d.conn.QueryRowContext(ctx,
		`SELECT `+slotCols+` FROM ad_slots WHERE publisher_id = ? AND slot_identifier = ? AND active = 1`,
		publisherID, slotIdentifier)
	slot, err := scanSlot(row)
	if err != nil {
		return nil, mapNotFound(err, "active ad slot", slotIdentifier)
	}
	return slot, nil
}

// ListSlots returns a publisher's slots, newest first.
func (d *DB) ListSlots(ctx context.Context, publisherID string, activeOnly bool) ([]models.AdSlot, error) {
	query := `SELECT ` + slotCols + ` FROM ad_slots WHERE publisher_id = ?`
	if activeOnly {
		query += ` AND active = 1`
	}
	query += ` ORDER BY created_at DESC, id`

	rows, err := d.conn.QueryContext(ctx, query, publisherID)
	if err != nil {
		return nil, fmt.Errorf("failed to list ad slots: %w", err)
	}
	defer rows.Close()

	var slots []models.AdSlot
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ad slot: %w", err)
		}
		slots = append(slots, *slot)
	}
	return slots, rows.Err()
}

// SetSlotActive toggles a slot's active flag.
func (d *DB) SetSlotActive(ctx context.Context, slotID string, active bool) error {
	res, err := d.conn.ExecContext(ctx,
		`UPDATE ad_slots SET active = ? WHERE id = ?`, boolToInt(active), slotID)
	if err != nil {
		return fmt.Errorf("failed to update ad slot: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return mapNotFound(sql.ErrNoRows, "ad slot", slotID)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
