package dedup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"photovault/internal/database"
	"photovault/internal/logging"
	"photovault/internal/metrics"
)

// Group is one set of content-identical images. Images holds every copy
// including the survivor; Survivor is always one of Images.
type Group struct {
	Hash        string           `json:"hash"`
	Images      []database.Image `json:"images"`
	Survivor    database.Image   `json:"survivor"`
	WastedBytes int64            `json:"wastedBytes"`
}

// Result reports the outcome of a delete operation. Errors holds one
// message per file that could not be removed; those rows stay active.
type Result struct {
	GroupsProcessed int      `json:"groupsProcessed"`
	FilesDeleted    int      `json:"filesDeleted"`
	BytesFreed      int64    `json:"bytesFreed"`
	Errors          []string `json:"errors,omitempty"`
}

// Deduper resolves duplicate groups against the inventory and the
// filesystem. One instance is shared by concurrent HTTP requests.
type Deduper struct {
	db *database.Database

	// roots caches id to path lookups across operations.
	rootsMu sync.RWMutex
	roots   map[int64]string
}

func New(db *database.Database) *Deduper {
	return &Deduper{db: db, roots: make(map[int64]string)}
}

// GroupDuplicates returns every hash shared by two or more active
// images, each group ordered survivor first.
func (dd *Deduper) GroupDuplicates(ctx context.Context) ([]Group, error) {
	candidates, err := dd.db.DuplicateCandidates(ctx)
	if err != nil {
		return nil, err
	}

	var groups []Group
	var cur *Group
	for _, img := range candidates {
		if cur == nil || img.Hash != cur.Hash {
			if cur != nil {
				groups = append(groups, *cur)
			}
			cur = &Group{Hash: img.Hash}
		}
		cur.Images = append(cur.Images, img)
	}
	if cur != nil {
		groups = append(groups, *cur)
	}

	var wasted int64
	for i := range groups {
		g := &groups[i]
		// Rows arrive ordered by created time then id, so the first
		// entry is the survivor.
		g.Survivor = g.Images[0]
		for _, img := range g.Images {
			g.WastedBytes += img.Size
		}
		g.WastedBytes -= g.Survivor.Size
		wasted += g.WastedBytes
	}

	metrics.DedupGroupsFound.Set(float64(len(groups)))
	metrics.DedupWastedBytes.Set(float64(wasted))
	return groups, nil
}

// DeleteGroup removes every non-survivor copy for one hash. A missing
// survivor file is only a warning: the redundant copies are still
// genuine duplicates of each other. Each failed removal is recorded and
// skipped; the remaining copies are still processed.
func (dd *Deduper) DeleteGroup(ctx context.Context, hash string) (*Result, error) {
	images, err := dd.db.ImagesByHash(ctx, hash)
	if err != nil {
		return nil, err
	}
	if len(images) < 2 {
		return nil, fmt.Errorf("hash %s is not a duplicate group", hash)
	}

	res := &Result{GroupsProcessed: 1}
	dd.deleteCopies(ctx, images, res)
	return res, nil
}

// DeleteAllRecommended deletes the redundant copies of every current
// duplicate group. Groups are handled independently; a failure in one
// group never blocks the others.
func (dd *Deduper) DeleteAllRecommended(ctx context.Context) (*Result, error) {
	groups, err := dd.GroupDuplicates(ctx)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	for i := range groups {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		res.GroupsProcessed++
		dd.deleteCopies(ctx, groups[i].Images, res)
	}
	logging.Info("Duplicate cleanup: %d groups, %d files deleted, %d bytes freed, %d errors",
		res.GroupsProcessed, res.FilesDeleted, res.BytesFreed, len(res.Errors))
	return res, nil
}

// deleteCopies removes every image after the first. The slice must be
// ordered survivor first, as DuplicateCandidates and ImagesByHash
// guarantee.
func (dd *Deduper) deleteCopies(ctx context.Context, images []database.Image, res *Result) {
	survivor := images[0]
	if _, err := os.Stat(dd.absPath(ctx, &survivor)); err != nil {
		logging.Warn("Survivor %s for hash %s is not on disk: %v", survivor.RelPath, survivor.Hash, err)
	}

	now := time.Now().UTC()
	for _, img := range images[1:] {
		path := dd.absPath(ctx, &img)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			res.Errors = append(res.Errors, fmt.Sprintf("%s: %v", path, err))
			metrics.DedupDeleteErrors.Inc()
			continue
		}
		if err := dd.db.SoftDelete(ctx, img.ID, now); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("%s: %v", path, err))
			metrics.DedupDeleteErrors.Inc()
			continue
		}
		res.FilesDeleted++
		res.BytesFreed += img.Size
		metrics.DedupFilesDeleted.Inc()
		metrics.DedupBytesFreed.Add(float64(img.Size))
	}
}

func (dd *Deduper) absPath(ctx context.Context, img *database.Image) string {
	dd.rootsMu.RLock()
	rootPath, ok := dd.roots[img.RootID]
	dd.rootsMu.RUnlock()

	if !ok {
		root, err := dd.db.GetScanRoot(ctx, img.RootID)
		if err != nil {
			// Fall back to the relative path; the remove will fail and
			// be reported per file.
			logging.Error("Resolving root %d: %v", img.RootID, err)
			return img.RelPath
		}
		rootPath = root.Path
		dd.rootsMu.Lock()
		dd.roots[img.RootID] = rootPath
		dd.rootsMu.Unlock()
	}
	return filepath.Join(rootPath, filepath.FromSlash(img.RelPath))
}
