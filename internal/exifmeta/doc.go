// Package exifmeta extracts structured attributes from image files.
//
// Dispatch is by file extension through a Registry: extensions with no
// registered extractor resolve to a skip, not an error. The EXIF-backed
// extractor reads capture date, GPS position, and camera attributes;
// formats without EXIF get a dimension probe only.
//
// Capture-date normalization (NormalizeDateTaken) is deliberately not
// part of extraction. The scan phase applies it before persisting, so
// an extractor never has to know the file's creation time.
package exifmeta
