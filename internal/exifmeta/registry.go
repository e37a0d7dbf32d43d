package exifmeta

import (
	"strings"
	"time"
)

// Attributes is the structured result of metadata extraction. DateTaken
// is nil when the source format carries no usable capture date; the
// scan phase substitutes the file's creation time via
// NormalizeDateTaken before persisting.
type Attributes struct {
	Width       int
	Height      int
	DateTaken   *time.Time
	Latitude    *float64
	Longitude   *float64
	CameraMake  string
	CameraModel string
	ISO         int
	Exposure    string
	FNumber     float64
	FocalLength float64
	Orientation int
	ColorSpace  string
}

// Extractor produces Attributes for a file path. A missing or
// undecodable file is not an error: extractors degrade to whatever
// attributes they can recover, down to an empty Attributes value.
type Extractor interface {
	Extract(path string) (*Attributes, error)
}

// Registry maps file extensions to extractors. Lookup misses mean the
// format is skipped, never failed.
type Registry struct {
	extractors map[string]Extractor
}

// NewRegistry returns a registry with the default format bindings:
// EXIF-capable formats get the full extractor, other raster formats get
// the dimension probe.
func NewRegistry() *Registry {
	r := &Registry{extractors: make(map[string]Extractor)}

	exifExt := &ExifExtractor{}
	for _, ext := range []string{".jpg", ".jpeg", ".tiff", ".tif"} {
		r.Register(ext, exifExt)
	}

	dims := &DimensionExtractor{}
	for _, ext := range []string{".png", ".gif", ".bmp", ".webp", ".heic", ".heif", ".avif"} {
		r.Register(ext, dims)
	}

	return r
}

// Register binds an extension (with leading dot, any case) to an
// extractor, replacing any previous binding.
func (r *Registry) Register(ext string, e Extractor) {
	r.extractors[strings.ToLower(ext)] = e
}

// Lookup returns the extractor for an extension, or (nil, false) when
// the format has no registered extractor and must be skipped.
func (r *Registry) Lookup(ext string) (Extractor, bool) {
	e, ok := r.extractors[strings.ToLower(ext)]
	return e, ok
}
