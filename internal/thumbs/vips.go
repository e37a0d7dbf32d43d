//go:build cgo && !novips

package thumbs

import (
	"bytes"
	"fmt"
	"image"
	"path/filepath"
	"sync"

	"photovault/internal/logging"

	"github.com/davidbyttow/govips/v2/vips"
	"github.com/disintegration/imaging"
)

var (
	vipsMu        sync.Mutex
	vipsStarted   bool
	vipsAvailable bool
)

// InitVips starts libvips once. HEIC and friends have no pure-Go
// decoder, so without vips those formats fall back to the placeholder.
// Call ShutdownVips on the way out.
func InitVips() {
	vipsMu.Lock()
	defer vipsMu.Unlock()

	if vipsStarted {
		return
	}

	minLevel := vips.LogLevelWarning
	if logging.IsDebugEnabled() {
		minLevel = vips.LogLevelInfo
	}
	vips.LoggingSettings(func(domain string, level vips.LogLevel, msg string) {
		switch {
		case level <= vips.LogLevelError:
			logging.Error("[%s] %s", domain, msg)
		case level == vips.LogLevelWarning:
			logging.Warn("[%s] %s", domain, msg)
		default:
			logging.Debug("[%s] %s", domain, msg)
		}
	}, minLevel)

	// Conservative memory settings; thumbnail work is bursty and the
	// process shares its budget with the scan pipeline.
	vips.Startup(&vips.Config{
		ConcurrencyLevel: 1,
		MaxCacheMem:      50 * 1024 * 1024,
		MaxCacheSize:     100,
	})

	vipsStarted = true
	vipsAvailable = true
	logging.Info("libvips initialized (version: %s)", vips.Version)
}

func ShutdownVips() {
	vipsMu.Lock()
	defer vipsMu.Unlock()

	if vipsStarted {
		vips.Shutdown()
		vipsStarted = false
		vipsAvailable = false
	}
}

func vipsReady() bool {
	vipsMu.Lock()
	defer vipsMu.Unlock()
	return vipsAvailable
}

// decodeWithVips loads an image through libvips with decode-time
// shrinking, which avoids materializing full-size HEIC or RAW frames.
func decodeWithVips(path string, maxDim int) (image.Image, error) {
	if !vipsReady() {
		return nil, fmt.Errorf("libvips not available")
	}

	ref, err := vips.LoadImageFromFile(path, vips.NewImportParams())
	if err != nil {
		return nil, fmt.Errorf("vips load: %w", err)
	}
	defer ref.Close()

	logging.Debug("vips loaded %s: %dx%d", filepath.Base(path), ref.Width(), ref.Height())

	if err := ref.Thumbnail(maxDim, maxDim, vips.InterestingNone); err != nil {
		return nil, fmt.Errorf("vips thumbnail: %w", err)
	}

	jpg, _, err := ref.ExportJpeg(&vips.JpegExportParams{Quality: 95, OptimizeCoding: true})
	if err != nil {
		return nil, fmt.Errorf("vips export: %w", err)
	}

	img, err := imaging.Decode(bytes.NewReader(jpg), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decoding vips output: %w", err)
	}
	return img, nil
}
