package exifmeta

import "time"

// MinYear is the earliest capture year considered plausible. Anything
// older is treated as a corrupt or default-epoch EXIF timestamp.
const MinYear = 1980

// NormalizeDateTaken returns a capture date that is never zero, never in
// the future, and never before MinYear. An extracted date outside those
// bounds (or a missing one) is replaced by the file's creation time.
func NormalizeDateTaken(extracted *time.Time, fileCreated, now time.Time) time.Time {
	if extracted == nil || extracted.IsZero() {
		return fileCreated
	}
	if extracted.After(now) {
		return fileCreated
	}
	if extracted.Year() < MinYear {
		return fileCreated
	}
	return *extracted
}
