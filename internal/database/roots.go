package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// AddScanRoot registers a new watch directory. The path must be
// absolute and unique.
func (d *Database) AddScanRoot(ctx context.Context, path string, recursive bool) (*ScanRoot, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("add_scan_root", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var result sql.Result
	result, err = d.db.ExecContext(ctx,
		"INSERT INTO scan_roots (path, recursive) VALUES (?, ?)",
		path, boolToInt(recursive),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to add scan root: %w", err)
	}

	id, _ := result.LastInsertId()
	return &ScanRoot{
		ID:        id,
		Path:      path,
		Recursive: recursive,
		CreatedAt: time.Now(),
	}, nil
}

// GetScanRoot retrieves a scan root by id.
func (d *Database) GetScanRoot(ctx context.Context, id int64) (*ScanRoot, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("get_scan_root", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var root ScanRoot
	var recursive int
	var createdAt int64

	err = d.db.QueryRowContext(ctx,
		"SELECT id, path, recursive, created_at FROM scan_roots WHERE id = ?", id,
	).Scan(&root.ID, &root.Path, &recursive, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		err = ErrNotFound
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	root.Recursive = recursive != 0
	root.CreatedAt = time.Unix(createdAt, 0)
	return &root, nil
}

// ListScanRoots returns all configured scan roots ordered by path.
func (d *Database) ListScanRoots(ctx context.Context) ([]ScanRoot, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("list_scan_roots", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx,
		"SELECT id, path, recursive, created_at FROM scan_roots ORDER BY path")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roots []ScanRoot
	for rows.Next() {
		var root ScanRoot
		var recursive int
		var createdAt int64
		if err = rows.Scan(&root.ID, &root.Path, &recursive, &createdAt); err != nil {
			return nil, err
		}
		root.Recursive = recursive != 0
		root.CreatedAt = time.Unix(createdAt, 0)
		roots = append(roots, root)
	}
	err = rows.Err()
	return roots, err
}

// RemoveScanRoot deletes a scan root. Image rows (and their metadata
// and analysis rows) cascade via foreign keys; this is the only path
// that hard-deletes inventory rows.
func (d *Database) RemoveScanRoot(ctx context.Context, id int64) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("remove_scan_root", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var result sql.Result
	result, err = d.db.ExecContext(ctx, "DELETE FROM scan_roots WHERE id = ?", id)
	if err != nil {
		return err
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		err = ErrNotFound
		return err
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
