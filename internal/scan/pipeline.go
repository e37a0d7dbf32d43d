package scan

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"photovault/internal/classify"
	"photovault/internal/database"
	"photovault/internal/exifmeta"
	"photovault/internal/hasher"
	"photovault/internal/logging"
)

// extractOne pulls attributes for a single image and persists them. A
// source that vanished since discovery simply yields no metadata; an
// extension with no registered extractor is skipped the same way.
func (o *Orchestrator) extractOne(ctx context.Context, img *database.Image) error {
	extractor, ok := o.registry.Lookup(img.Ext)
	if !ok {
		logging.Debug("No extractor for %s, skipping %s", img.Ext, img.RelPath)
		return nil
	}

	path, err := o.absPath(ctx, img)
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			logging.Debug("Source gone before metadata extraction: %s", img.RelPath)
			return nil
		}
		return fmt.Errorf("stat: %w", err)
	}

	attrs, err := extractor.Extract(path)
	if err != nil {
		return fmt.Errorf("extracting attributes: %w", err)
	}

	meta := &database.ImageMetadata{
		ImageID:     img.ID,
		Width:       attrs.Width,
		Height:      attrs.Height,
		DateTaken:   exifmeta.NormalizeDateTaken(attrs.DateTaken, img.Created, time.Now().UTC()),
		Latitude:    attrs.Latitude,
		Longitude:   attrs.Longitude,
		CameraMake:  attrs.CameraMake,
		CameraModel: attrs.CameraModel,
		ISO:         attrs.ISO,
		Exposure:    attrs.Exposure,
		FNumber:     attrs.FNumber,
		FocalLength: attrs.FocalLength,
		Orientation: attrs.Orientation,
		ColorSpace:  attrs.ColorSpace,
	}
	return o.db.UpsertImageMetadata(ctx, meta)
}

// classifyOne runs one classifier over an image and persists the
// resulting analysis. Metadata may legitimately be absent.
func (o *Orchestrator) classifyOne(ctx context.Context, img *database.Image, c classify.Classifier) error {
	meta, err := o.db.GetImageMetadata(ctx, img.ID)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		return fmt.Errorf("loading metadata: %w", err)
	}

	analysis, err := c.Classify(ctx, img, meta)
	if err != nil {
		return err
	}
	return o.db.UpsertImageAnalysis(ctx, analysis)
}

// hashOne computes and stores the content hash. A vanished source is
// skipped; the row keeps its empty hash and a later scan retries.
func (o *Orchestrator) hashOne(ctx context.Context, img *database.Image) error {
	path, err := o.absPath(ctx, img)
	if err != nil {
		return err
	}

	sum, err := hasher.HashFile(path)
	if err != nil {
		if errors.Is(err, hasher.ErrNotFound) {
			logging.Debug("Source gone before hashing: %s", img.RelPath)
			return nil
		}
		return err
	}
	return o.db.SetImageHash(ctx, img.ID, sum)
}
