package thumbs

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"photovault/internal/database"
	"photovault/internal/logging"
	"photovault/internal/metrics"

	_ "image/gif"
	_ "image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultMaxDimension is used when a request does not say otherwise.
	DefaultMaxDimension = 200

	// MaxDimensionLimit caps per-request sizes so one caller cannot fill
	// the cache with near-full-size renditions.
	MaxDimensionLimit = 1024

	jpegQuality = 80
)

// Formats the pure-Go decoders cannot handle. These go through libvips
// when it is up and fall back to the placeholder otherwise.
var vipsOnlyExts = map[string]bool{
	".heic": true,
	".heif": true,
	".avif": true,
	".cr2":  true,
	".nef":  true,
	".arw":  true,
	".dng":  true,
}

// Service synthesizes thumbnails on demand and serves repeats from the
// in-memory cache.
type Service struct {
	db    *database.Database
	cache *lruCache
	group singleflight.Group

	rootsMu sync.RWMutex
	roots   map[int64]string

	placeholderOnce sync.Once
	placeholderJPG  []byte
}

// NewService builds a thumbnail service bounded by maxBytes of encoded
// thumbnail data and maxEntries cached variants.
func NewService(db *database.Database, maxBytes int64, maxEntries int) *Service {
	return &Service{
		db:    db,
		cache: newLRUCache(maxBytes, maxEntries),
		roots: make(map[int64]string),
	}
}

// Get returns JPEG thumbnail bytes for the image, no larger than maxDim
// on either side. It never fails on decode problems; corrupt or
// unsupported sources yield the placeholder. The error return covers
// inventory problems only, such as a missing root.
func (s *Service) Get(ctx context.Context, img *database.Image, maxDim int) ([]byte, error) {
	if maxDim <= 0 {
		maxDim = DefaultMaxDimension
	}
	if maxDim > MaxDimensionLimit {
		maxDim = MaxDimensionLimit
	}

	path, err := s.absPath(ctx, img)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		logging.Debug("Thumbnail source %s not readable: %v", path, err)
		metrics.ThumbnailGenerationsTotal.WithLabelValues("none", "missing").Inc()
		return s.placeholder(), nil
	}

	key := cacheKey{imageID: img.ID, maxDim: maxDim}
	if jpg, ok := s.cache.get(key, info.Size(), info.ModTime()); ok {
		metrics.ThumbnailCacheHits.Inc()
		return jpg, nil
	}
	metrics.ThumbnailCacheMisses.Inc()

	flightKey := fmt.Sprintf("%d/%d", img.ID, maxDim)
	v, err, _ := s.group.Do(flightKey, func() (interface{}, error) {
		// A concurrent caller may have populated the cache while we
		// waited on the flight lock.
		if jpg, ok := s.cache.get(key, info.Size(), info.ModTime()); ok {
			return jpg, nil
		}
		jpg := s.synthesize(path, img.Ext, maxDim)
		s.cache.put(key, jpg, info.Size(), info.ModTime())
		return jpg, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// Invalidate drops all cached variants of one image.
func (s *Service) Invalidate(imageID int64) int {
	return s.cache.invalidate(imageID)
}

// CacheStats reports the current cache footprint.
func (s *Service) CacheStats() (entries int, bytes int64) {
	return s.cache.len(), s.cache.size()
}

// synthesize decodes, shrinks, and encodes. Decode failures degrade to
// the placeholder rather than propagating.
func (s *Service) synthesize(path, ext string, maxDim int) []byte {
	start := time.Now()
	defer func() {
		metrics.ThumbnailGenerationDuration.Observe(time.Since(start).Seconds())
	}()

	src, decoder := s.decode(path, ext, maxDim)
	if src == nil {
		metrics.ThumbnailGenerationsTotal.WithLabelValues(decoder, "error").Inc()
		return s.placeholder()
	}

	thumb := imaging.Fit(src, maxDim, maxDim, imaging.Lanczos)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: jpegQuality}); err != nil {
		logging.Warn("Encoding thumbnail for %s: %v", path, err)
		metrics.ThumbnailGenerationsTotal.WithLabelValues(decoder, "error").Inc()
		return s.placeholder()
	}

	metrics.ThumbnailGenerationsTotal.WithLabelValues(decoder, "success").Inc()
	return buf.Bytes()
}

func (s *Service) decode(path, ext string, maxDim int) (image.Image, string) {
	ext = strings.ToLower(ext)

	if vipsOnlyExts[ext] {
		img, verr := decodeWithVips(path, maxDim)
		if verr == nil {
			return img, "vips"
		}
		logging.Debug("vips decode failed for %s: %v", path, verr)
		// Fall through to the generic decoders; the content sometimes
		// turns out to be a format they can read.
	}

	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err == nil {
		return img, "imaging"
	}
	logging.Debug("imaging.Open failed for %s: %v", path, err)

	// Content sometimes disagrees with the extension; give the
	// registered stdlib decoders a chance before giving up.
	f, ferr := os.Open(path)
	if ferr != nil {
		return nil, "imaging"
	}
	defer f.Close()
	if img, _, derr := image.Decode(f); derr == nil {
		return img, "stdlib"
	}

	if vipsReady() && !vipsOnlyExts[ext] {
		if img, verr := decodeWithVips(path, maxDim); verr == nil {
			return img, "vips"
		}
	}
	return nil, "imaging"
}

// placeholder is a flat gray square encoded once per service.
func (s *Service) placeholder() []byte {
	s.placeholderOnce.Do(func() {
		img := imaging.New(DefaultMaxDimension, DefaultMaxDimension, color.NRGBA{R: 0x66, G: 0x66, B: 0x66, A: 0xff})
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
			logging.Error("Encoding placeholder: %v", err)
			return
		}
		s.placeholderJPG = buf.Bytes()
	})
	return s.placeholderJPG
}

func (s *Service) absPath(ctx context.Context, img *database.Image) (string, error) {
	s.rootsMu.RLock()
	rootPath, ok := s.roots[img.RootID]
	s.rootsMu.RUnlock()

	if !ok {
		root, err := s.db.GetScanRoot(ctx, img.RootID)
		if err != nil {
			return "", fmt.Errorf("resolving root %d: %w", img.RootID, err)
		}
		rootPath = root.Path
		s.rootsMu.Lock()
		s.roots[img.RootID] = rootPath
		s.rootsMu.Unlock()
	}
	return filepath.Join(rootPath, filepath.FromSlash(img.RelPath)), nil
}
