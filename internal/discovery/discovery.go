package discovery

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"photovault/internal/database"
	"photovault/internal/logging"
	"photovault/internal/mediatypes"
	"photovault/internal/metrics"
)

// ErrRootUnavailable means the scan root directory could not be read at
// all. Nothing was reconciled; the inventory for the root is untouched.
var ErrRootUnavailable = errors.New("scan root unavailable")

// Delta summarizes one reconciliation pass over a single root.
type Delta struct {
	Added     int `json:"added"`
	Modified  int `json:"modified"`
	Removed   int `json:"removed"`
	Restored  int `json:"restored"`
	Unchanged int `json:"unchanged"`
	Skipped   int `json:"skipped"`
}

// Total is the number of files the walk actually saw on disk.
func (d *Delta) Total() int {
	return d.Added + d.Modified + d.Restored + d.Unchanged
}

// Scanner reconciles directories against the inventory database.
type Scanner struct {
	db *database.Database
}

func New(db *database.Database) *Scanner {
	return &Scanner{db: db}
}

// foundFile is one on-disk photo observed during the walk.
type foundFile struct {
	relPath  string
	name     string
	size     int64
	modified time.Time
	created  time.Time
}

// ScanRoot walks one root and applies the resulting delta in a single
// transaction. The context is checked between directory entries so a
// cancelled scan stops promptly without leaving a partial transaction.
func (s *Scanner) ScanRoot(ctx context.Context, root *database.ScanRoot) (*Delta, error) {
	start := time.Now()
	defer func() {
		metrics.DiscoveryWalkDuration.Observe(time.Since(start).Seconds())
	}()

	if _, err := os.Stat(root.Path); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrRootUnavailable, root.Path, err)
	}

	delta := &Delta{}
	found, err := s.walk(ctx, root, delta)
	if err != nil {
		return nil, err
	}

	known, err := s.db.ImagesByRoot(ctx, root.ID)
	if err != nil {
		return nil, fmt.Errorf("loading inventory for root %d: %w", root.ID, err)
	}

	if err := s.apply(ctx, root, known, found, delta); err != nil {
		return nil, err
	}

	metrics.DiscoveryDeltas.WithLabelValues("added").Add(float64(delta.Added))
	metrics.DiscoveryDeltas.WithLabelValues("modified").Add(float64(delta.Modified))
	metrics.DiscoveryDeltas.WithLabelValues("removed").Add(float64(delta.Removed))
	metrics.DiscoveryDeltas.WithLabelValues("restored").Add(float64(delta.Restored))

	logging.Info("Discovery for %s: %d added, %d modified, %d removed, %d restored, %d unchanged, %d skipped",
		root.Path, delta.Added, delta.Modified, delta.Removed, delta.Restored, delta.Unchanged, delta.Skipped)
	return delta, nil
}

func (s *Scanner) walk(ctx context.Context, root *database.ScanRoot, delta *Delta) ([]foundFile, error) {
	var found []foundFile

	walkErr := filepath.WalkDir(root.Path, func(path string, d fs.DirEntry, err error) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			if path == root.Path {
				return fmt.Errorf("%w: %s: %v", ErrRootUnavailable, root.Path, err)
			}
			logging.Warn("Skipping unreadable path %s: %v", path, err)
			delta.Skipped++
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		name := d.Name()
		if d.IsDir() {
			if path == root.Path {
				return nil
			}
			if strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			if !root.Recursive {
				return filepath.SkipDir
			}
			return nil
		}

		if strings.HasPrefix(name, ".") || !mediatypes.IsPhoto(name) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			logging.Warn("Skipping %s: %v", path, err)
			delta.Skipped++
			return nil
		}

		rel, err := filepath.Rel(root.Path, path)
		if err != nil {
			logging.Warn("Skipping %s: %v", path, err)
			delta.Skipped++
			return nil
		}

		found = append(found, foundFile{
			relPath:  filepath.ToSlash(rel),
			name:     name,
			size:     info.Size(),
			modified: info.ModTime().UTC(),
			created:  fileCreated(info),
		})
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}
	return found, nil
}

// apply writes the delta inside one transaction so a crash mid-scan
// never leaves a half reconciled root.
func (s *Scanner) apply(ctx context.Context, root *database.ScanRoot, known map[string]*database.Image, found []foundFile, delta *Delta) error {
	tx, err := s.db.BeginBatch()
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	seen := make(map[string]bool, len(found))

	err = func() error {
		for _, f := range found {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			seen[f.relPath] = true

			img, ok := known[f.relPath]
			if !ok {
				newImg := &database.Image{
					RootID:   root.ID,
					RelPath:  f.relPath,
					Name:     f.name,
					Ext:      mediatypes.Ext(f.name),
					Size:     f.size,
					Created:  f.created,
					Modified: f.modified,
					Status:   database.StatusActive,
				}
				if err := s.db.InsertImage(tx, newImg); err != nil {
					return fmt.Errorf("inserting %s: %w", f.relPath, err)
				}
				delta.Added++
				metrics.ScanFilesProcessed.WithLabelValues("discovery", "success").Inc()
				continue
			}

			// Stored mtimes round-trip through Unix seconds, so the
			// comparison must not see sub-second drift as a change.
			changed := f.size != img.Size || f.modified.Unix() != img.Modified.Unix()
			if err := s.db.MarkSeen(tx, img.ID, f.size, f.modified, changed); err != nil {
				return fmt.Errorf("refreshing %s: %w", f.relPath, err)
			}
			switch {
			case img.Missing():
				delta.Restored++
			case changed:
				delta.Modified++
			default:
				delta.Unchanged++
			}
			metrics.ScanFilesProcessed.WithLabelValues("discovery", "success").Inc()
		}

		for relPath, img := range known {
			if seen[relPath] || img.Missing() {
				continue
			}
			if err := s.db.MarkMissing(tx, img.ID, now); err != nil {
				return fmt.Errorf("marking %s missing: %w", relPath, err)
			}
			delta.Removed++
		}
		return nil
	}()

	return s.db.EndBatch(tx, err)
}

// Filesystems do not expose a portable creation time, so the oldest
// timestamp we can rely on is the modification time. Rows keep whatever
// created value they were first inserted with, which means a file's
// created time is effectively its mtime at first discovery.
func fileCreated(info fs.FileInfo) time.Time {
	return info.ModTime().UTC()
}
