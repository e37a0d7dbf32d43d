//go:build !cgo || novips

package thumbs

import (
	"fmt"
	"image"

	"photovault/internal/logging"
)

// govips needs cgo; without it these entry points report libvips as
// unavailable and callers take the documented placeholder fallback.

func InitVips() {
	logging.Info("libvips unavailable (built without cgo); vips-only formats fall back to the placeholder")
}

func ShutdownVips() {}

func vipsReady() bool { return false }

func decodeWithVips(path string, maxDim int) (image.Image, error) {
	return nil, fmt.Errorf("libvips not available")
}
