package database

import "time"

// FileStatus is the lifecycle state of an inventory row.
type FileStatus string

const (
	// StatusActive means the file was present on disk at the last scan.
	StatusActive FileStatus = "active"
	// StatusMissing means the file has disappeared from disk. The row is
	// kept so a later rescan can detect the file's return and so hash
	// history survives for duplicate detection.
	StatusMissing FileStatus = "missing"
)

// ScanRoot is a configured directory to ingest.
type ScanRoot struct {
	ID        int64     `json:"id"`
	Path      string    `json:"path"`
	Recursive bool      `json:"recursive"`
	CreatedAt time.Time `json:"createdAt"`
}

// Image is the inventory record for one physical file under a ScanRoot.
// (RelPath, RootID) is unique. Hash is empty until the hashing phase has
// processed the file, and is cleared again whenever size or mtime change.
type Image struct {
	ID        int64      `json:"id"`
	RootID    int64      `json:"rootId"`
	RelPath   string     `json:"relPath"`
	Name      string     `json:"name"`
	Ext       string     `json:"ext"`
	Hash      string     `json:"hash,omitempty"`
	Size      int64      `json:"size"`
	Created   time.Time  `json:"created"`
	Modified  time.Time  `json:"modified"`
	Status    FileStatus `json:"status"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
}

// Missing reports whether the file is gone from disk.
func (img *Image) Missing() bool {
	return img.Status == StatusMissing
}

// ImageMetadata holds extracted attributes for one Image. At most one
// row per image; absent until the metadata phase has run. DateTaken is
// never zero once the row exists: extraction substitutes the file's
// creation time when the format carries no usable capture date.
type ImageMetadata struct {
	ImageID     int64     `json:"imageId"`
	Width       int       `json:"width"`
	Height      int       `json:"height"`
	DateTaken   time.Time `json:"dateTaken"`
	Latitude    *float64  `json:"latitude,omitempty"`
	Longitude   *float64  `json:"longitude,omitempty"`
	CameraMake  string    `json:"cameraMake,omitempty"`
	CameraModel string    `json:"cameraModel,omitempty"`
	ISO         int       `json:"iso,omitempty"`
	Exposure    string    `json:"exposure,omitempty"`
	FNumber     float64   `json:"fNumber,omitempty"`
	FocalLength float64   `json:"focalLength,omitempty"`
	Orientation int       `json:"orientation,omitempty"`
	ColorSpace  string    `json:"colorSpace,omitempty"`
	ExtractedAt time.Time `json:"extractedAt"`
}

// Category labels produced by classification.
const (
	CategoryPhoto      = "photo"
	CategoryScreenshot = "screenshot"
	CategoryUnknown    = "unknown"
)

// ImageAnalysis is the classification result for one Image. At most one
// row per image.
type ImageAnalysis struct {
	ImageID    int64     `json:"imageId"`
	Category   string    `json:"category"`
	Confidence float64   `json:"confidence"`
	Reasoning  string    `json:"reasoning,omitempty"`
	Model      string    `json:"model,omitempty"`
	AnalyzedAt time.Time `json:"analyzedAt"`
}

// LibraryStats are aggregate inventory counts.
type LibraryStats struct {
	TotalRoots    int   `json:"totalRoots"`
	ActiveImages  int   `json:"activeImages"`
	MissingImages int   `json:"missingImages"`
	HashedImages  int   `json:"hashedImages"`
	TotalBytes    int64 `json:"totalBytes"`
}
