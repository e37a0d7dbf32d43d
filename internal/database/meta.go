package database

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// GetMeta retrieves a value from the key/value meta table.
// Returns ErrNotFound if the key doesn't exist.
func (d *Database) GetMeta(ctx context.Context, key string) (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var value string
	err := d.db.QueryRowContext(ctx, "SELECT value FROM meta WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

// SetMeta sets a key/value pair in the meta table.
func (d *Database) SetMeta(ctx context.Context, key, value string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := d.db.ExecContext(ctx, `
		INSERT INTO meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

// GetLastScanTime returns when the last scan completed.
// Returns zero time if no scan has run.
func (d *Database) GetLastScanTime(ctx context.Context) (time.Time, error) {
	value, err := d.GetMeta(ctx, "last_scan_completed")
	if errors.Is(err, ErrNotFound) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	if value == "" {
		return time.Time{}, nil
	}

	timestamp, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, err
	}
	return timestamp, nil
}

// SetLastScanTime stores when the last scan completed.
func (d *Database) SetLastScanTime(ctx context.Context, t time.Time) error {
	return d.SetMeta(ctx, "last_scan_completed", t.Format(time.RFC3339))
}
