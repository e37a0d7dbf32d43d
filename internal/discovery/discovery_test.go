package discovery

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"photovault/internal/database"
)

func testSetup(t *testing.T, recursive bool) (*database.Database, *database.ScanRoot, string, *Scanner) {
	t.Helper()
	ctx := context.Background()

	db, err := database.New(ctx, filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	dir := t.TempDir()
	root, err := db.AddScanRoot(ctx, dir, recursive)
	if err != nil {
		t.Fatalf("adding root: %v", err)
	}
	return db, root, dir, New(db)
}

func writeFile(t *testing.T, path string, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestScanRootInitial(t *testing.T) {
	db, root, dir, s := testSetup(t, true)
	ctx := context.Background()

	writeFile(t, filepath.Join(dir, "a.jpg"), "aaa")
	writeFile(t, filepath.Join(dir, "sub", "b.png"), "bbbb")
	writeFile(t, filepath.Join(dir, "notes.txt"), "not a photo")
	writeFile(t, filepath.Join(dir, ".hidden.jpg"), "dotfile")

	delta, err := s.ScanRoot(ctx, root)
	if err != nil {
		t.Fatalf("ScanRoot: %v", err)
	}
	if delta.Added != 2 {
		t.Errorf("Added = %d, want 2", delta.Added)
	}

	known, err := db.ImagesByRoot(ctx, root.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(known) != 2 {
		t.Fatalf("inventory rows = %d, want 2", len(known))
	}
	img, ok := known["sub/b.png"]
	if !ok {
		t.Fatal("sub/b.png not inventoried")
	}
	if img.Size != 4 || img.Ext != ".png" || img.Status != database.StatusActive {
		t.Errorf("unexpected row: %+v", img)
	}
}

func TestScanRootIdempotent(t *testing.T) {
	_, root, dir, s := testSetup(t, true)
	ctx := context.Background()

	writeFile(t, filepath.Join(dir, "a.jpg"), "aaa")
	writeFile(t, filepath.Join(dir, "b.jpg"), "bbb")

	if _, err := s.ScanRoot(ctx, root); err != nil {
		t.Fatal(err)
	}
	delta, err := s.ScanRoot(ctx, root)
	if err != nil {
		t.Fatal(err)
	}
	if delta.Added != 0 || delta.Modified != 0 || delta.Removed != 0 {
		t.Errorf("second scan not a no-op: %+v", delta)
	}
	if delta.Unchanged != 2 {
		t.Errorf("Unchanged = %d, want 2", delta.Unchanged)
	}
}

func TestScanRootSubSecondMtimeIsNotAChange(t *testing.T) {
	db, root, dir, s := testSetup(t, true)
	ctx := context.Background()

	// The store keeps mtimes at second precision, so a fractional
	// component on disk must not flag the file as modified on rescan.
	path := filepath.Join(dir, "a.jpg")
	writeFile(t, path, "aaa")
	frac := time.Now().Truncate(time.Second).Add(123456789 * time.Nanosecond)
	if err := os.Chtimes(path, frac, frac); err != nil {
		t.Fatal(err)
	}

	if _, err := s.ScanRoot(ctx, root); err != nil {
		t.Fatal(err)
	}
	img, err := db.GetImageByPath(ctx, root.ID, "a.jpg")
	if err != nil {
		t.Fatal(err)
	}
	if err := db.SetImageHash(ctx, img.ID, "deadbeef"); err != nil {
		t.Fatal(err)
	}

	delta, err := s.ScanRoot(ctx, root)
	if err != nil {
		t.Fatal(err)
	}
	if delta.Modified != 0 || delta.Unchanged != 1 {
		t.Errorf("rescan delta = %+v, want 1 unchanged", delta)
	}

	img, err = db.GetImage(ctx, img.ID)
	if err != nil {
		t.Fatal(err)
	}
	if img.Hash != "deadbeef" {
		t.Errorf("hash = %q, want retained after no-op rescan", img.Hash)
	}
}

func TestScanRootModifiedClearsHash(t *testing.T) {
	db, root, dir, s := testSetup(t, true)
	ctx := context.Background()

	path := filepath.Join(dir, "a.jpg")
	writeFile(t, path, "original")
	if _, err := s.ScanRoot(ctx, root); err != nil {
		t.Fatal(err)
	}

	img, err := db.GetImageByPath(ctx, root.ID, "a.jpg")
	if err != nil {
		t.Fatal(err)
	}
	if err := db.SetImageHash(ctx, img.ID, "deadbeef"); err != nil {
		t.Fatal(err)
	}

	writeFile(t, path, "rewritten with different length")
	future := time.Now().Add(2 * time.Second)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatal(err)
	}

	delta, err := s.ScanRoot(ctx, root)
	if err != nil {
		t.Fatal(err)
	}
	if delta.Modified != 1 {
		t.Errorf("Modified = %d, want 1", delta.Modified)
	}

	img, err = db.GetImage(ctx, img.ID)
	if err != nil {
		t.Fatal(err)
	}
	if img.Hash != "" {
		t.Errorf("hash survived a content change: %q", img.Hash)
	}
}

func TestScanRootRemoveAndRestore(t *testing.T) {
	db, root, dir, s := testSetup(t, true)
	ctx := context.Background()

	path := filepath.Join(dir, "a.jpg")
	writeFile(t, path, "photo bytes")
	if _, err := s.ScanRoot(ctx, root); err != nil {
		t.Fatal(err)
	}

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	delta, err := s.ScanRoot(ctx, root)
	if err != nil {
		t.Fatal(err)
	}
	if delta.Removed != 1 {
		t.Errorf("Removed = %d, want 1", delta.Removed)
	}

	img, err := db.GetImageByPath(ctx, root.ID, "a.jpg")
	if err != nil {
		t.Fatal(err)
	}
	if !img.Missing() || img.DeletedAt == nil {
		t.Fatalf("row not marked missing: %+v", img)
	}

	// A second scan with the file still gone must not churn the row.
	delta, err = s.ScanRoot(ctx, root)
	if err != nil {
		t.Fatal(err)
	}
	if delta.Removed != 0 {
		t.Errorf("Removed on repeat scan = %d, want 0", delta.Removed)
	}

	writeFile(t, path, "photo bytes")
	delta, err = s.ScanRoot(ctx, root)
	if err != nil {
		t.Fatal(err)
	}
	if delta.Restored != 1 {
		t.Errorf("Restored = %d, want 1", delta.Restored)
	}
	img, err = db.GetImageByPath(ctx, root.ID, "a.jpg")
	if err != nil {
		t.Fatal(err)
	}
	if img.Missing() || img.DeletedAt != nil {
		t.Fatalf("row not restored: %+v", img)
	}
}

func TestScanRootNonRecursive(t *testing.T) {
	_, root, dir, s := testSetup(t, false)
	ctx := context.Background()

	writeFile(t, filepath.Join(dir, "top.jpg"), "top")
	writeFile(t, filepath.Join(dir, "sub", "nested.jpg"), "nested")

	delta, err := s.ScanRoot(ctx, root)
	if err != nil {
		t.Fatal(err)
	}
	if delta.Added != 1 {
		t.Errorf("Added = %d, want 1 (subdirectory should be skipped)", delta.Added)
	}
}

func TestScanRootUnavailable(t *testing.T) {
	db, _, _, s := testSetup(t, true)
	ctx := context.Background()

	root, err := db.AddScanRoot(ctx, filepath.Join(t.TempDir(), "does-not-exist"), true)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.ScanRoot(ctx, root); !errors.Is(err, ErrRootUnavailable) {
		t.Errorf("err = %v, want ErrRootUnavailable", err)
	}
}

func TestScanRootCancelled(t *testing.T) {
	_, root, dir, s := testSetup(t, true)

	writeFile(t, filepath.Join(dir, "a.jpg"), "aaa")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.ScanRoot(ctx, root); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
