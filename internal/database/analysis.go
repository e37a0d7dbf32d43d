package database

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// UpsertImageAnalysis stores (or replaces) a classification result.
func (d *Database) UpsertImageAnalysis(ctx context.Context, analysis *ImageAnalysis) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("upsert_image_analysis", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err = d.db.ExecContext(ctx, `
		INSERT INTO image_analysis (image_id, category, confidence, reasoning, model, analyzed_at)
		VALUES (?, ?, ?, ?, ?, strftime('%s', 'now'))
		ON CONFLICT(image_id) DO UPDATE SET
			category = excluded.category,
			confidence = excluded.confidence,
			reasoning = excluded.reasoning,
			model = excluded.model,
			analyzed_at = strftime('%s', 'now')`,
		analysis.ImageID, analysis.Category, analysis.Confidence,
		nullIfEmpty(analysis.Reasoning), nullIfEmpty(analysis.Model))
	return err
}

// GetImageAnalysis retrieves the classification row for an image.
func (d *Database) GetImageAnalysis(ctx context.Context, imageID int64) (*ImageAnalysis, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("get_image_analysis", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var analysis ImageAnalysis
	var reasoning, model sql.NullString
	var analyzedAt int64

	err = d.db.QueryRowContext(ctx, `
		SELECT image_id, category, confidence, reasoning, model, analyzed_at
		FROM image_analysis WHERE image_id = ?`, imageID,
	).Scan(&analysis.ImageID, &analysis.Category, &analysis.Confidence,
		&reasoning, &model, &analyzedAt)
	if errors.Is(err, sql.ErrNoRows) {
		err = ErrNotFound
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	analysis.Reasoning = reasoning.String
	analysis.Model = model.String
	analysis.AnalyzedAt = time.Unix(analyzedAt, 0)
	return &analysis, nil
}

// ImagesAnalyzedByModel returns active images whose current analysis
// row was produced by the named model. Used to find heuristic results
// worth refining when a stronger classifier becomes available.
func (d *Database) ImagesAnalyzedByModel(ctx context.Context, model string) ([]Image, error) {
	return d.queryImages(ctx, "images_analyzed_by_model", `
		SELECT `+imageColumns+` FROM images
		WHERE status = ? AND id IN (SELECT image_id FROM image_analysis WHERE model = ?)
		ORDER BY id`, StatusActive, model)
}

// CategoryCounts returns the number of analyzed images per category.
func (d *Database) CategoryCounts(ctx context.Context) (map[string]int, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("category_counts", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx,
		"SELECT category, COUNT(*) FROM image_analysis GROUP BY category")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var category string
		var count int
		if err = rows.Scan(&category, &count); err != nil {
			return nil, err
		}
		counts[category] = count
	}
	err = rows.Err()
	return counts, err
}
