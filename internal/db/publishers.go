package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ad402/ad402/internal/models"
)

const publisherCols = "id, wallet_address, name, website_domain, created_at"

func scanPublisher(row *sql.Row) (*models.Publisher, error) {
	var p models.Publisher
	var createdAt int64
	if err := row.Scan(&p.ID, &p.WalletAddress, &p.Name, &p.WebsiteDomain, &createdAt); err != nil {
		return nil, err
	}
	p.CreatedAt = fromMillis(createdAt)
	return &p, nil
}

// EnsurePublisher returns the publisher for a wallet, creating it on
// first reference. The wallet is expected pre-normalized to lowercase.
func (d *DB) EnsurePublisher(ctx context.Context, wallet string) (*models.Publisher, error) {
	pub, err := d.GetPublisherByWallet(ctx, wallet)
	if err == nil {
		return pub, nil
	}
	if !isNotFound(err) {
		return nil, err
	}

	// INSERT OR IGNORE tolerates a concurrent creation for the same
	// wallet; the follow-up select returns whichever row won.
	_, err = d.conn.ExecContext(ctx,
		`INSERT OR IGNORE INTO publishers (id, wallet_address, created_at) VALUES (?, ?, ?)`,
		uuid.NewString(), wallet, toMillis(time.Now()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create publisher: %w", err)
	}

	return d.GetPublisherByWallet(ctx, wallet)
}

// GetPublisherByWallet looks up a publisher by lowercase wallet address.
func (d *DB) GetPublisherByWallet(ctx context.Context, wallet string) (*models.Publisher, error) {
	row := d.conn.QueryRowContext(ctx,
		`SELECT `+publisherCols+` FROM publishers WHERE wallet_address = ?`, wallet)
	pub, err := scanPublisher(row)
	if err != nil {
		return nil, mapNotFound(err, "publisher", wallet)
	}
	return pub, nil
}

// GetPublisherByID looks up a publisher by id.
func (d *DB) GetPublisherByID(ctx context.Context, id string) (*models.Publisher, error) {
	row := d.conn.QueryRowContext(ctx,
		`SELECT `+publisherCols+` FROM publishers WHERE id = ?`, id)
	pub, err := scanPublisher(row)
	if err != nil {
		return nil, mapNotFound(err, "publisher", id)
	}
	return pub, nil
}
