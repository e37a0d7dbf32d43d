// Package dedup finds groups of images with identical content hashes
// and can remove the redundant copies.
//
// Within a group the survivor is the copy with the earliest created
// time, ties broken by lowest id. Deleting a group removes every other
// copy from disk and soft deletes its inventory row; the survivor is
// never touched. Files whose hash has not been computed yet are
// invisible to duplicate detection.
package dedup
