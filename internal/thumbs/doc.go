// Package thumbs synthesizes and caches reduced-size previews.
//
// Thumbnails live in an in-memory cache bounded by a byte budget and an
// entry count, evicting least recently used entries first. Cached
// entries remember the source file's size and mtime and are discarded
// when the file changes. Concurrent requests for the same thumbnail are
// collapsed so each one is synthesized at most once. A synthesis
// failure yields a placeholder image rather than an error so galleries
// render fully even when individual files are corrupt.
package thumbs
