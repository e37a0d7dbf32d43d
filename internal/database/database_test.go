package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func testDB(t *testing.T) *Database {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "photovault.db")
	db, err := New(context.Background(), dbPath)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("failed to close test database: %v", err)
		}
	})
	return db
}

func insertTestImage(t *testing.T, db *Database, rootID int64, relPath string, size int64, created time.Time) *Image {
	t.Helper()

	img := &Image{
		RootID:   rootID,
		RelPath:  relPath,
		Name:     filepath.Base(relPath),
		Ext:      filepath.Ext(relPath),
		Size:     size,
		Created:  created,
		Modified: created,
	}

	tx, err := db.BeginBatch()
	if err != nil {
		t.Fatalf("BeginBatch: %v", err)
	}
	if err := db.InsertImage(tx, img); err != nil {
		t.Fatalf("InsertImage: %v", err)
	}
	if err := db.EndBatch(tx, nil); err != nil {
		t.Fatalf("EndBatch: %v", err)
	}
	return img
}

func TestSchemaVersion(t *testing.T) {
	db := testDB(t)

	value, err := db.GetMeta(context.Background(), "schema_version")
	if err != nil {
		t.Fatalf("GetMeta(schema_version): %v", err)
	}
	if value != "1" {
		t.Errorf("schema_version = %q, want \"1\"", value)
	}
}

func TestScanRootLifecycle(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	root, err := db.AddScanRoot(ctx, "/photos", true)
	if err != nil {
		t.Fatalf("AddScanRoot: %v", err)
	}
	if root.ID == 0 {
		t.Error("expected non-zero root ID")
	}

	// Duplicate path must fail (unique constraint)
	if _, err := db.AddScanRoot(ctx, "/photos", true); err == nil {
		t.Error("expected error adding duplicate scan root")
	}

	got, err := db.GetScanRoot(ctx, root.ID)
	if err != nil {
		t.Fatalf("GetScanRoot: %v", err)
	}
	if got.Path != "/photos" || !got.Recursive {
		t.Errorf("GetScanRoot = %+v, want path=/photos recursive=true", got)
	}

	roots, err := db.ListScanRoots(ctx)
	if err != nil {
		t.Fatalf("ListScanRoots: %v", err)
	}
	if len(roots) != 1 {
		t.Fatalf("ListScanRoots returned %d roots, want 1", len(roots))
	}

	if err := db.RemoveScanRoot(ctx, root.ID); err != nil {
		t.Fatalf("RemoveScanRoot: %v", err)
	}
	if _, err := db.GetScanRoot(ctx, root.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetScanRoot after remove: err = %v, want ErrNotFound", err)
	}
	if err := db.RemoveScanRoot(ctx, root.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("RemoveScanRoot twice: err = %v, want ErrNotFound", err)
	}
}

func TestRemoveScanRootCascades(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	root, err := db.AddScanRoot(ctx, "/photos", true)
	if err != nil {
		t.Fatalf("AddScanRoot: %v", err)
	}
	img := insertTestImage(t, db, root.ID, "a.jpg", 100, time.Now())

	meta := &ImageMetadata{ImageID: img.ID, Width: 10, Height: 10, DateTaken: time.Now()}
	if err := db.UpsertImageMetadata(ctx, meta); err != nil {
		t.Fatalf("UpsertImageMetadata: %v", err)
	}

	if err := db.RemoveScanRoot(ctx, root.ID); err != nil {
		t.Fatalf("RemoveScanRoot: %v", err)
	}

	if _, err := db.GetImage(ctx, img.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("image survived root removal: err = %v, want ErrNotFound", err)
	}
	if _, err := db.GetImageMetadata(ctx, img.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("metadata survived root removal: err = %v, want ErrNotFound", err)
	}
}

func TestImageLifecycle(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	root, err := db.AddScanRoot(ctx, "/photos", true)
	if err != nil {
		t.Fatalf("AddScanRoot: %v", err)
	}

	created := time.Now().Add(-24 * time.Hour).Truncate(time.Second)
	img := insertTestImage(t, db, root.ID, "trip/a.jpg", 2048, created)

	got, err := db.GetImageByPath(ctx, root.ID, "trip/a.jpg")
	if err != nil {
		t.Fatalf("GetImageByPath: %v", err)
	}
	if got.Status != StatusActive {
		t.Errorf("new image status = %q, want active", got.Status)
	}
	if got.Hash != "" {
		t.Errorf("new image hash = %q, want empty", got.Hash)
	}

	// Hash it
	if err := db.SetImageHash(ctx, img.ID, "abc123"); err != nil {
		t.Fatalf("SetImageHash: %v", err)
	}

	// Unchanged re-scan keeps the hash
	tx, _ := db.BeginBatch()
	if err := db.MarkSeen(tx, img.ID, 2048, created, false); err != nil {
		t.Fatalf("MarkSeen: %v", err)
	}
	if err := db.EndBatch(tx, nil); err != nil {
		t.Fatalf("EndBatch: %v", err)
	}

	got, _ = db.GetImage(ctx, img.ID)
	if got.Hash != "abc123" {
		t.Errorf("hash after unchanged MarkSeen = %q, want abc123", got.Hash)
	}

	// Content change clears the hash
	tx, _ = db.BeginBatch()
	if err := db.MarkSeen(tx, img.ID, 4096, created.Add(time.Hour), true); err != nil {
		t.Fatalf("MarkSeen changed: %v", err)
	}
	if err := db.EndBatch(tx, nil); err != nil {
		t.Fatalf("EndBatch: %v", err)
	}

	got, _ = db.GetImage(ctx, img.ID)
	if got.Hash != "" {
		t.Errorf("hash after content change = %q, want empty", got.Hash)
	}
	if got.Size != 4096 {
		t.Errorf("size after content change = %d, want 4096", got.Size)
	}
}

func TestMarkMissingAndRestore(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	root, _ := db.AddScanRoot(ctx, "/photos", true)
	img := insertTestImage(t, db, root.ID, "a.jpg", 100, time.Now())

	when := time.Now().Truncate(time.Second)
	tx, _ := db.BeginBatch()
	if err := db.MarkMissing(tx, img.ID, when); err != nil {
		t.Fatalf("MarkMissing: %v", err)
	}
	if err := db.EndBatch(tx, nil); err != nil {
		t.Fatalf("EndBatch: %v", err)
	}

	got, _ := db.GetImage(ctx, img.ID)
	if got.Status != StatusMissing {
		t.Errorf("status = %q, want missing", got.Status)
	}
	if got.DeletedAt == nil || !got.DeletedAt.Equal(when) {
		t.Errorf("deletedAt = %v, want %v", got.DeletedAt, when)
	}

	// Marking missing again must not move the deletion stamp
	tx, _ = db.BeginBatch()
	if err := db.MarkMissing(tx, img.ID, when.Add(time.Hour)); err != nil {
		t.Fatalf("MarkMissing again: %v", err)
	}
	if err := db.EndBatch(tx, nil); err != nil {
		t.Fatalf("EndBatch: %v", err)
	}
	got, _ = db.GetImage(ctx, img.ID)
	if !got.DeletedAt.Equal(when) {
		t.Errorf("deletedAt moved to %v, want %v", got.DeletedAt, when)
	}

	// The file comes back: MarkSeen restores it
	tx, _ = db.BeginBatch()
	if err := db.MarkSeen(tx, img.ID, 100, time.Now(), false); err != nil {
		t.Fatalf("MarkSeen restore: %v", err)
	}
	if err := db.EndBatch(tx, nil); err != nil {
		t.Fatalf("EndBatch: %v", err)
	}

	got, _ = db.GetImage(ctx, img.ID)
	if got.Status != StatusActive {
		t.Errorf("restored status = %q, want active", got.Status)
	}
	if got.DeletedAt != nil {
		t.Errorf("restored deletedAt = %v, want nil", got.DeletedAt)
	}
}

func TestIncrementalQueries(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	root, _ := db.AddScanRoot(ctx, "/photos", true)
	a := insertTestImage(t, db, root.ID, "a.jpg", 100, time.Now())
	b := insertTestImage(t, db, root.ID, "b.jpg", 200, time.Now())

	missing, err := db.ImagesMissingHash(ctx)
	if err != nil {
		t.Fatalf("ImagesMissingHash: %v", err)
	}
	if len(missing) != 2 {
		t.Fatalf("ImagesMissingHash = %d rows, want 2", len(missing))
	}

	if err := db.SetImageHash(ctx, a.ID, "h1"); err != nil {
		t.Fatalf("SetImageHash: %v", err)
	}

	missing, _ = db.ImagesMissingHash(ctx)
	if len(missing) != 1 || missing[0].ID != b.ID {
		t.Errorf("ImagesMissingHash after hashing a = %+v, want only b", missing)
	}

	// Metadata: both lack it, then one gets a row
	lacking, err := db.ImagesMissingMetadata(ctx)
	if err != nil {
		t.Fatalf("ImagesMissingMetadata: %v", err)
	}
	if len(lacking) != 2 {
		t.Fatalf("ImagesMissingMetadata = %d rows, want 2", len(lacking))
	}

	meta := &ImageMetadata{ImageID: a.ID, Width: 1, Height: 1, DateTaken: time.Now()}
	if err := db.UpsertImageMetadata(ctx, meta); err != nil {
		t.Fatalf("UpsertImageMetadata: %v", err)
	}

	lacking, _ = db.ImagesMissingMetadata(ctx)
	if len(lacking) != 1 || lacking[0].ID != b.ID {
		t.Errorf("ImagesMissingMetadata after extract = %+v, want only b", lacking)
	}

	// Missing rows are excluded from phase queries
	tx, _ := db.BeginBatch()
	if err := db.MarkMissing(tx, b.ID, time.Now()); err != nil {
		t.Fatalf("MarkMissing: %v", err)
	}
	if err := db.EndBatch(tx, nil); err != nil {
		t.Fatalf("EndBatch: %v", err)
	}

	if lacking, _ = db.ImagesMissingMetadata(ctx); len(lacking) != 0 {
		t.Errorf("ImagesMissingMetadata includes missing rows: %+v", lacking)
	}
	if missing, _ = db.ImagesMissingHash(ctx); len(missing) != 0 {
		t.Errorf("ImagesMissingHash includes missing rows: %+v", missing)
	}
}

func TestDuplicateCandidates(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	root, _ := db.AddScanRoot(ctx, "/photos", true)

	older := time.Now().Add(-48 * time.Hour).Truncate(time.Second)
	newer := time.Now().Add(-1 * time.Hour).Truncate(time.Second)

	a := insertTestImage(t, db, root.ID, "a.jpg", 2048, older)
	b := insertTestImage(t, db, root.ID, "copy/b.jpg", 2048, newer)
	c := insertTestImage(t, db, root.ID, "unique.jpg", 512, older)

	for id, hash := range map[int64]string{a.ID: "same", b.ID: "same", c.ID: "other"} {
		if err := db.SetImageHash(ctx, id, hash); err != nil {
			t.Fatalf("SetImageHash(%d): %v", id, err)
		}
	}

	candidates, err := db.DuplicateCandidates(ctx)
	if err != nil {
		t.Fatalf("DuplicateCandidates: %v", err)
	}
	if len(candidates) != 2 {
		t.Fatalf("DuplicateCandidates = %d rows, want 2", len(candidates))
	}
	// Ordered by created_time within the hash: oldest first
	if candidates[0].ID != a.ID {
		t.Errorf("first candidate = %d, want oldest (%d)", candidates[0].ID, a.ID)
	}

	byHash, err := db.ImagesByHash(ctx, "same")
	if err != nil {
		t.Fatalf("ImagesByHash: %v", err)
	}
	if len(byHash) != 2 {
		t.Errorf("ImagesByHash = %d rows, want 2", len(byHash))
	}

	// Soft-deleting one member dissolves the group
	if err := db.SoftDelete(ctx, b.ID, time.Now()); err != nil {
		t.Fatalf("SoftDelete: %v", err)
	}
	candidates, _ = db.DuplicateCandidates(ctx)
	if len(candidates) != 0 {
		t.Errorf("DuplicateCandidates after soft delete = %d rows, want 0", len(candidates))
	}
}

func TestImageAnalysisRoundTrip(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	root, _ := db.AddScanRoot(ctx, "/photos", true)
	img := insertTestImage(t, db, root.ID, "shot.png", 100, time.Now())

	analysis := &ImageAnalysis{
		ImageID:    img.ID,
		Category:   CategoryScreenshot,
		Confidence: 0.9,
		Reasoning:  "filename contains screenshot marker",
		Model:      "heuristic-v1",
	}
	if err := db.UpsertImageAnalysis(ctx, analysis); err != nil {
		t.Fatalf("UpsertImageAnalysis: %v", err)
	}

	got, err := db.GetImageAnalysis(ctx, img.ID)
	if err != nil {
		t.Fatalf("GetImageAnalysis: %v", err)
	}
	if got.Category != CategoryScreenshot || got.Confidence != 0.9 {
		t.Errorf("analysis = %+v", got)
	}

	counts, err := db.CategoryCounts(ctx)
	if err != nil {
		t.Fatalf("CategoryCounts: %v", err)
	}
	if counts[CategoryScreenshot] != 1 {
		t.Errorf("CategoryCounts = %v, want screenshot:1", counts)
	}

	pending, err := db.ImagesMissingAnalysis(ctx)
	if err != nil {
		t.Fatalf("ImagesMissingAnalysis: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("ImagesMissingAnalysis = %d rows, want 0", len(pending))
	}
}

func TestCalculateStats(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	root, _ := db.AddScanRoot(ctx, "/photos", true)
	a := insertTestImage(t, db, root.ID, "a.jpg", 100, time.Now())
	b := insertTestImage(t, db, root.ID, "b.jpg", 200, time.Now())

	if err := db.SetImageHash(ctx, a.ID, "h"); err != nil {
		t.Fatalf("SetImageHash: %v", err)
	}
	if err := db.SoftDelete(ctx, b.ID, time.Now()); err != nil {
		t.Fatalf("SoftDelete: %v", err)
	}

	stats, err := db.CalculateStats(ctx)
	if err != nil {
		t.Fatalf("CalculateStats: %v", err)
	}
	if stats.TotalRoots != 1 || stats.ActiveImages != 1 || stats.MissingImages != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.HashedImages != 1 {
		t.Errorf("HashedImages = %d, want 1", stats.HashedImages)
	}
	if stats.TotalBytes != 100 {
		t.Errorf("TotalBytes = %d, want 100", stats.TotalBytes)
	}
}

func TestAuthRoundTrip(t *testing.T) {
	db := testDB(t)

	if db.HasUsers() {
		t.Fatal("fresh database reports users")
	}

	if err := db.CreateUser("hunter2"); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if !db.HasUsers() {
		t.Error("HasUsers() = false after CreateUser")
	}

	user, err := db.ValidatePassword("hunter2")
	if err != nil {
		t.Fatalf("ValidatePassword: %v", err)
	}
	if _, err := db.ValidatePassword("wrong"); err == nil {
		t.Error("expected error for wrong password")
	}

	session, err := db.CreateSession(user.ID)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	if _, err := db.ValidateSession(session.Token); err != nil {
		t.Errorf("ValidateSession: %v", err)
	}
	if _, err := db.ValidateSession("deadbeef"); err == nil {
		t.Error("expected error for bogus token")
	}

	if err := db.DeleteSession(session.Token); err != nil {
		t.Fatalf("DeleteSession: %v", err)
	}
	if _, err := db.ValidateSession(session.Token); err == nil {
		t.Error("session valid after deletion")
	}
}

func TestMetaRoundTrip(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	if _, err := db.GetMeta(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetMeta(missing) err = %v, want ErrNotFound", err)
	}

	when, err := db.GetLastScanTime(ctx)
	if err != nil || !when.IsZero() {
		t.Errorf("GetLastScanTime fresh = %v, %v; want zero, nil", when, err)
	}

	now := time.Now().Truncate(time.Second)
	if err := db.SetLastScanTime(ctx, now); err != nil {
		t.Fatalf("SetLastScanTime: %v", err)
	}

	when, err = db.GetLastScanTime(ctx)
	if err != nil {
		t.Fatalf("GetLastScanTime: %v", err)
	}
	if !when.Equal(now) {
		t.Errorf("GetLastScanTime = %v, want %v", when, now)
	}
}
