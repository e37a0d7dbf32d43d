package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const imageColumns = "id, root_id, rel_path, name, ext, COALESCE(hash, ''), size, created_time, mod_time, status, deleted_at"

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanImage(row rowScanner) (*Image, error) {
	var img Image
	var created, modified int64
	var deletedAt sql.NullInt64

	err := row.Scan(&img.ID, &img.RootID, &img.RelPath, &img.Name, &img.Ext,
		&img.Hash, &img.Size, &created, &modified, &img.Status, &deletedAt)
	if err != nil {
		return nil, err
	}

	img.Created = time.Unix(created, 0)
	img.Modified = time.Unix(modified, 0)
	if deletedAt.Valid {
		t := time.Unix(deletedAt.Int64, 0)
		img.DeletedAt = &t
	}
	return &img, nil
}

// InsertImage adds a newly discovered file to the inventory within a
// batch transaction. The row starts active with no hash.
func (d *Database) InsertImage(tx *sql.Tx, img *Image) error {
	result, err := tx.ExecContext(context.Background(), `
		INSERT INTO images (root_id, rel_path, name, ext, size, created_time, mod_time, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		img.RootID, img.RelPath, img.Name, img.Ext, img.Size,
		img.Created.Unix(), img.Modified.Unix(), StatusActive,
	)
	if err != nil {
		return fmt.Errorf("failed to insert image %s: %w", img.RelPath, err)
	}

	img.ID, _ = result.LastInsertId()
	img.Status = StatusActive
	return nil
}

// MarkSeen records that discovery found the file on disk. When the size
// or mtime changed the stored hash is cleared, since the content may
// have been rewritten. A missing row transitions back to active: this
// is the undelete path for files that return between rescans.
func (d *Database) MarkSeen(tx *sql.Tx, id int64, size int64, modified time.Time, contentChanged bool) error {
	query := `
		UPDATE images SET
			size = ?,
			mod_time = ?,
			status = ?,
			deleted_at = NULL,
			updated_at = strftime('%s', 'now')
		WHERE id = ?`
	if contentChanged {
		query = `
		UPDATE images SET
			size = ?,
			mod_time = ?,
			status = ?,
			deleted_at = NULL,
			hash = NULL,
			updated_at = strftime('%s', 'now')
		WHERE id = ?`
	}

	_, err := tx.ExecContext(context.Background(), query,
		size, modified.Unix(), StatusActive, id)
	return err
}

// MarkMissing transitions an inventory row to the missing state and
// stamps the deletion time. Rows already missing keep their original
// deleted_at.
func (d *Database) MarkMissing(tx *sql.Tx, id int64, when time.Time) error {
	_, err := tx.ExecContext(context.Background(), `
		UPDATE images SET
			status = ?,
			deleted_at = COALESCE(deleted_at, ?),
			updated_at = strftime('%s', 'now')
		WHERE id = ? AND status != ?`,
		StatusMissing, when.Unix(), id, StatusMissing)
	return err
}

// SoftDelete marks a row missing outside a batch transaction. Used by
// duplicate cleanup after it removes the file from disk.
func (d *Database) SoftDelete(ctx context.Context, id int64, when time.Time) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("soft_delete_image", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err = d.db.ExecContext(ctx, `
		UPDATE images SET
			status = ?,
			deleted_at = COALESCE(deleted_at, ?),
			updated_at = strftime('%s', 'now')
		WHERE id = ?`,
		StatusMissing, when.Unix(), id)
	return err
}

// SetImageHash stores the content digest computed by the hashing phase.
func (d *Database) SetImageHash(ctx context.Context, id int64, hash string) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("set_image_hash", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err = d.db.ExecContext(ctx,
		"UPDATE images SET hash = ?, updated_at = strftime('%s', 'now') WHERE id = ?",
		hash, id)
	return err
}

// GetImage retrieves a single image by id.
func (d *Database) GetImage(ctx context.Context, id int64) (*Image, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("get_image", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	row := d.db.QueryRowContext(ctx,
		"SELECT "+imageColumns+" FROM images WHERE id = ?", id)

	img, scanErr := scanImage(row)
	if errors.Is(scanErr, sql.ErrNoRows) {
		err = ErrNotFound
		return nil, err
	}
	err = scanErr
	return img, err
}

// GetImageByPath retrieves an image by its (root, relative path) identity.
func (d *Database) GetImageByPath(ctx context.Context, rootID int64, relPath string) (*Image, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("get_image_by_path", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	row := d.db.QueryRowContext(ctx,
		"SELECT "+imageColumns+" FROM images WHERE root_id = ? AND rel_path = ?",
		rootID, relPath)

	img, scanErr := scanImage(row)
	if errors.Is(scanErr, sql.ErrNoRows) {
		err = ErrNotFound
		return nil, err
	}
	err = scanErr
	return img, err
}

// ImagesByRoot returns every inventory row for a root, keyed by relative
// path. Discovery reconciles the walk result against this map.
func (d *Database) ImagesByRoot(ctx context.Context, rootID int64) (map[string]*Image, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("images_by_root", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	// No per-query timeout: a large root can legitimately take a while.
	rows, err := d.db.QueryContext(ctx,
		"SELECT "+imageColumns+" FROM images WHERE root_id = ?", rootID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string]*Image)
	for rows.Next() {
		img, scanErr := scanImage(rows)
		if scanErr != nil {
			err = scanErr
			return nil, err
		}
		result[img.RelPath] = img
	}
	err = rows.Err()
	return result, err
}

func (d *Database) queryImages(ctx context.Context, operation, query string, args ...interface{}) ([]Image, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery(operation, start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var images []Image
	for rows.Next() {
		img, scanErr := scanImage(rows)
		if scanErr != nil {
			err = scanErr
			return nil, err
		}
		images = append(images, *img)
	}
	err = rows.Err()
	return images, err
}

// ImagesMissingMetadata returns active images with no metadata row.
// The metadata phase computes its total from this set, which is what
// makes repeated scans incremental.
func (d *Database) ImagesMissingMetadata(ctx context.Context) ([]Image, error) {
	return d.queryImages(ctx, "images_missing_metadata", `
		SELECT `+imageColumns+` FROM images
		WHERE status = ? AND id NOT IN (SELECT image_id FROM image_metadata)
		ORDER BY id`, StatusActive)
}

// ImagesMissingHash returns active images whose content digest has not
// been computed, or was cleared by a detected content change.
func (d *Database) ImagesMissingHash(ctx context.Context) ([]Image, error) {
	return d.queryImages(ctx, "images_missing_hash", `
		SELECT `+imageColumns+` FROM images
		WHERE status = ? AND (hash IS NULL OR hash = '')
		ORDER BY id`, StatusActive)
}

// ImagesMissingAnalysis returns active images with no classification row.
func (d *Database) ImagesMissingAnalysis(ctx context.Context) ([]Image, error) {
	return d.queryImages(ctx, "images_missing_analysis", `
		SELECT `+imageColumns+` FROM images
		WHERE status = ? AND id NOT IN (SELECT image_id FROM image_analysis)
		ORDER BY id`, StatusActive)
}

// DuplicateCandidates returns all active, hashed images whose hash is
// shared by at least two active rows, ordered by hash then created time
// then id. The dedup engine groups adjacent rows.
func (d *Database) DuplicateCandidates(ctx context.Context) ([]Image, error) {
	return d.queryImages(ctx, "duplicate_candidates", `
		SELECT `+imageColumns+` FROM images
		WHERE status = ? AND hash IS NOT NULL AND hash != ''
		  AND hash IN (
			SELECT hash FROM images
			WHERE status = ? AND hash IS NOT NULL AND hash != ''
			GROUP BY hash HAVING COUNT(*) > 1
		  )
		ORDER BY hash, created_time, id`, StatusActive, StatusActive)
}

// ImagesByHash returns active images sharing one content hash, ordered
// by created time then id.
func (d *Database) ImagesByHash(ctx context.Context, hash string) ([]Image, error) {
	return d.queryImages(ctx, "images_by_hash", `
		SELECT `+imageColumns+` FROM images
		WHERE status = ? AND hash = ?
		ORDER BY created_time, id`, StatusActive, hash)
}

// CalculateStats computes aggregate inventory counts.
func (d *Database) CalculateStats(ctx context.Context) (*LibraryStats, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("calculate_stats", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var stats LibraryStats
	err = d.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM scan_roots),
			(SELECT COUNT(*) FROM images WHERE status = ?),
			(SELECT COUNT(*) FROM images WHERE status = ?),
			(SELECT COUNT(*) FROM images WHERE status = ? AND hash IS NOT NULL AND hash != ''),
			(SELECT COALESCE(SUM(size), 0) FROM images WHERE status = ?)`,
		StatusActive, StatusMissing, StatusActive, StatusActive,
	).Scan(&stats.TotalRoots, &stats.ActiveImages, &stats.MissingImages,
		&stats.HashedImages, &stats.TotalBytes)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}
