package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/ad402/ad402/internal/config"
)

// Monetary values are stored as integer micro-USDC so that SQL ordering
// and summation stay exact. Timestamps are stored as unix milliseconds.

func toMicros(d decimal.Decimal) int64 {
	return d.Shift(6).IntPart()
}

func fromMicros(m int64) decimal.Decimal {
	return decimal.New(m, -6)
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(m int64) time.Time {
	return time.UnixMilli(m).UTC()
}

func toNullMillis(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: toMillis(*t), Valid: true}
}

func fromNullMillis(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := fromMillis(n.Int64)
	return &t
}

func isNotFound(err error) bool {
	return errors.Is(err, config.ErrNotFound)
}

// isBusy reports whether err is a SQLITE_BUSY or SQLITE_LOCKED failure,
// including extended codes like SQLITE_BUSY_SNAPSHOT from a lost WAL
// write race.
func isBusy(err error) bool {
	var serr *sqlite.Error
	if !errors.As(err, &serr) {
		return false
	}
	switch serr.Code() & 0xff {
	case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
		return true
	}
	return false
}

// mapNotFound translates sql.ErrNoRows into the application sentinel,
// tagging the entity so the API layer can build a useful message.
func mapNotFound(err error, entity, id string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s %s", config.ErrNotFound, entity, id)
	}
	return err
}
