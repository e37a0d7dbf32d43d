package exifmeta

import (
	"fmt"
	"image"
	"os"

	"github.com/rwcarlsen/goexif/exif"

	"photovault/internal/logging"

	// Raster format decoders for the dimension probe
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ExifExtractor reads EXIF attributes plus pixel dimensions from
// JPEG/TIFF files.
type ExifExtractor struct{}

// Extract returns whatever attributes the file yields. A file with no
// EXIF block still gets its dimensions; a file that cannot be opened at
// all yields empty Attributes and no error.
func (e *ExifExtractor) Extract(path string) (*Attributes, error) {
	attrs := &Attributes{}

	probeDimensions(path, attrs)

	f, err := os.Open(path)
	if err != nil {
		logging.Debug("exif: cannot open %s: %v", path, err)
		return attrs, nil
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if err != nil {
		// No EXIF block is common (stripped images, edited exports)
		logging.Debug("exif: no usable EXIF in %s: %v", path, err)
		return attrs, nil
	}

	if tm, err := x.DateTime(); err == nil {
		attrs.DateTaken = &tm
	}

	if lat, long, err := x.LatLong(); err == nil {
		attrs.Latitude = &lat
		attrs.Longitude = &long
	}

	attrs.CameraMake = stringField(x, exif.Make)
	attrs.CameraModel = stringField(x, exif.Model)
	attrs.ISO = intField(x, exif.ISOSpeedRatings)
	attrs.Orientation = intField(x, exif.Orientation)
	attrs.FNumber = ratField(x, exif.FNumber)
	attrs.FocalLength = ratField(x, exif.FocalLength)
	attrs.Exposure = exposureField(x)

	if cs := intField(x, exif.ColorSpace); cs == 1 {
		attrs.ColorSpace = "sRGB"
	}

	// EXIF dimensions override the probe when present (the probe reads
	// the encoded frame, which can disagree after rotation)
	if w := intField(x, exif.PixelXDimension); w > 0 {
		attrs.Width = w
	}
	if h := intField(x, exif.PixelYDimension); h > 0 {
		attrs.Height = h
	}

	return attrs, nil
}

// DimensionExtractor probes pixel dimensions only, for formats without
// EXIF support. Undecodable content yields empty Attributes.
type DimensionExtractor struct{}

// Extract returns the image's dimensions, or empty Attributes when the
// format cannot be decoded.
func (e *DimensionExtractor) Extract(path string) (*Attributes, error) {
	attrs := &Attributes{}
	probeDimensions(path, attrs)
	return attrs, nil
}

// probeDimensions fills Width/Height via image.DecodeConfig without
// decoding pixel data. Failures are logged and ignored.
func probeDimensions(path string, attrs *Attributes) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()

	config, format, err := image.DecodeConfig(f)
	if err != nil {
		logging.Debug("dimension probe failed for %s: %v", path, err)
		return
	}

	logging.Debug("dimension probe: %s is %s %dx%d", path, format, config.Width, config.Height)
	attrs.Width = config.Width
	attrs.Height = config.Height
}

func stringField(x *exif.Exif, name exif.FieldName) string {
	tag, err := x.Get(name)
	if err != nil {
		return ""
	}
	s, err := tag.StringVal()
	if err != nil {
		return ""
	}
	return s
}

func intField(x *exif.Exif, name exif.FieldName) int {
	tag, err := x.Get(name)
	if err != nil {
		return 0
	}
	v, err := tag.Int(0)
	if err != nil {
		return 0
	}
	return v
}

func ratField(x *exif.Exif, name exif.FieldName) float64 {
	tag, err := x.Get(name)
	if err != nil {
		return 0
	}
	num, den, err := tag.Rat2(0)
	if err != nil || den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

func exposureField(x *exif.Exif) string {
	tag, err := x.Get(exif.ExposureTime)
	if err != nil {
		return ""
	}
	num, den, err := tag.Rat2(0)
	if err != nil || den == 0 {
		return ""
	}
	if num == 1 {
		return fmt.Sprintf("1/%d", den)
	}
	return fmt.Sprintf("%d/%d", num, den)
}
