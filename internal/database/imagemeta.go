package database

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// UpsertImageMetadata stores (or replaces) the extracted attributes for
// an image. Only the metadata phase writes here.
func (d *Database) UpsertImageMetadata(ctx context.Context, meta *ImageMetadata) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("upsert_image_metadata", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err = d.db.ExecContext(ctx, `
		INSERT INTO image_metadata
			(image_id, width, height, date_taken, latitude, longitude,
			 camera_make, camera_model, iso, exposure, f_number,
			 focal_length, orientation, color_space, extracted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, strftime('%s', 'now'))
		ON CONFLICT(image_id) DO UPDATE SET
			width = excluded.width,
			height = excluded.height,
			date_taken = excluded.date_taken,
			latitude = excluded.latitude,
			longitude = excluded.longitude,
			camera_make = excluded.camera_make,
			camera_model = excluded.camera_model,
			iso = excluded.iso,
			exposure = excluded.exposure,
			f_number = excluded.f_number,
			focal_length = excluded.focal_length,
			orientation = excluded.orientation,
			color_space = excluded.color_space,
			extracted_at = strftime('%s', 'now')`,
		meta.ImageID, meta.Width, meta.Height, meta.DateTaken.Unix(),
		meta.Latitude, meta.Longitude,
		nullIfEmpty(meta.CameraMake), nullIfEmpty(meta.CameraModel),
		nullIfZero(meta.ISO), nullIfEmpty(meta.Exposure),
		nullIfZeroF(meta.FNumber), nullIfZeroF(meta.FocalLength),
		nullIfZero(meta.Orientation), nullIfEmpty(meta.ColorSpace))
	return err
}

// GetImageMetadata retrieves the metadata row for an image.
func (d *Database) GetImageMetadata(ctx context.Context, imageID int64) (*ImageMetadata, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("get_image_metadata", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var meta ImageMetadata
	var dateTaken, extractedAt int64
	var cameraMake, cameraModel, exposure, colorSpace sql.NullString
	var iso, orientation sql.NullInt64
	var fNumber, focalLength sql.NullFloat64

	err = d.db.QueryRowContext(ctx, `
		SELECT image_id, width, height, date_taken, latitude, longitude,
		       camera_make, camera_model, iso, exposure, f_number,
		       focal_length, orientation, color_space, extracted_at
		FROM image_metadata WHERE image_id = ?`, imageID,
	).Scan(&meta.ImageID, &meta.Width, &meta.Height, &dateTaken,
		&meta.Latitude, &meta.Longitude, &cameraMake, &cameraModel,
		&iso, &exposure, &fNumber, &focalLength, &orientation,
		&colorSpace, &extractedAt)
	if errors.Is(err, sql.ErrNoRows) {
		err = ErrNotFound
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	meta.DateTaken = time.Unix(dateTaken, 0)
	meta.ExtractedAt = time.Unix(extractedAt, 0)
	meta.CameraMake = cameraMake.String
	meta.CameraModel = cameraModel.String
	meta.Exposure = exposure.String
	meta.ColorSpace = colorSpace.String
	meta.ISO = int(iso.Int64)
	meta.Orientation = int(orientation.Int64)
	meta.FNumber = fNumber.Float64
	meta.FocalLength = focalLength.Float64

	return &meta, nil
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullIfZero(i int) interface{} {
	if i == 0 {
		return nil
	}
	return i
}

func nullIfZeroF(f float64) interface{} {
	if f == 0 {
		return nil
	}
	return f
}
