package scan

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"photovault/internal/classify"
	"photovault/internal/database"
	"photovault/internal/exifmeta"
	"photovault/internal/hasher"
)

func testOrchestrator(t *testing.T, opts ...Option) (*Orchestrator, *database.Database, string) {
	t.Helper()
	ctx := context.Background()

	db, err := database.New(ctx, filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	dir := t.TempDir()
	if _, err := db.AddScanRoot(ctx, dir, true); err != nil {
		t.Fatal(err)
	}

	opts = append([]Option{WithWorkers(2)}, opts...)
	return NewOrchestrator(db, opts...), db, dir
}

func seedFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for i, name := range names {
		content := fmt.Sprintf("photo-bytes-%d-%s", i, name)
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func runToCompletion(t *testing.T, o *Orchestrator) *Session {
	t.Helper()
	sess, err := o.Start(context.Background())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	select {
	case <-sess.Done():
	case <-time.After(30 * time.Second):
		t.Fatal("scan did not finish")
	}
	return sess
}

// blockingExtractor parks on release so a test can hold a scan inside
// the metadata phase.
type blockingExtractor struct {
	entered chan struct{}
	release chan struct{}
}

func (b *blockingExtractor) Extract(path string) (*exifmeta.Attributes, error) {
	select {
	case b.entered <- struct{}{}:
	default:
	}
	<-b.release
	return &exifmeta.Attributes{}, nil
}

type fakeExternal struct {
	category string
	err      error
}

func (f *fakeExternal) Name() string { return "fake-external" }

func (f *fakeExternal) Classify(_ context.Context, img *database.Image, _ *database.ImageMetadata) (*database.ImageAnalysis, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &database.ImageAnalysis{
		ImageID:    img.ID,
		Category:   f.category,
		Confidence: 0.99,
		Model:      f.Name(),
		AnalyzedAt: time.Now().UTC(),
	}, nil
}

func TestFullScanRun(t *testing.T) {
	o, db, dir := testOrchestrator(t)
	seedFiles(t, dir, "a.jpg", "b.jpg", "c.png")
	ctx := context.Background()

	runToCompletion(t, o)

	p := o.Progress()
	if p.Running {
		t.Error("still marked running after completion")
	}
	if p.CurrentPhase != PhaseCompleted {
		t.Errorf("phase = %s, want completed", p.CurrentPhase)
	}
	if len(p.Phases) != len(phaseOrder) {
		t.Errorf("phases reported = %d, want %d", len(p.Phases), len(phaseOrder))
	}

	missingMeta, err := db.ImagesMissingMetadata(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(missingMeta) != 0 {
		t.Errorf("%d images still lack metadata", len(missingMeta))
	}
	missingHash, err := db.ImagesMissingHash(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(missingHash) != 0 {
		t.Errorf("%d images still lack a hash", len(missingHash))
	}
	missingAnalysis, err := db.ImagesMissingAnalysis(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(missingAnalysis) != 0 {
		t.Errorf("%d images still lack analysis", len(missingAnalysis))
	}

	if _, err := db.GetLastScanTime(ctx); err != nil {
		t.Errorf("last scan time not recorded: %v", err)
	}
}

func TestIncrementalRescan(t *testing.T) {
	o, _, dir := testOrchestrator(t)
	seedFiles(t, dir, "a.jpg", "b.jpg")
	runToCompletion(t, o)

	seedFiles(t, dir, "new.jpg")
	runToCompletion(t, o)

	p := o.Progress()
	for _, ph := range p.Phases {
		switch ph.Phase {
		case PhaseMetadata, PhaseClassification, PhaseHashing:
			if ph.Total != 1 {
				t.Errorf("%s total = %d, want 1 (only the new file)", ph.Phase, ph.Total)
			}
		}
	}
}

func TestStartIsSingleFlight(t *testing.T) {
	o, _, dir := testOrchestrator(t, WithWorkers(1))
	seedFiles(t, dir, "a.jpg")

	blocker := &blockingExtractor{
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	o.Registry().Register(".jpg", blocker)

	sess, err := o.Start(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	select {
	case <-blocker.entered:
	case <-time.After(10 * time.Second):
		t.Fatal("scan never reached the metadata phase")
	}

	if _, err := o.Start(context.Background()); !errors.Is(err, ErrScanInProgress) {
		t.Errorf("second Start: err = %v, want ErrScanInProgress", err)
	}

	close(blocker.release)
	select {
	case <-sess.Done():
	case <-time.After(30 * time.Second):
		t.Fatal("scan did not finish after release")
	}

	// With the previous run finished a new one is accepted again.
	sess2, err := o.Start(context.Background())
	if err != nil {
		t.Fatalf("Start after completion: %v", err)
	}
	<-sess2.Done()
	if sess2.ID == sess.ID {
		t.Error("session ids should be distinct per run")
	}
}

func TestCancelLeavesPhaseVisible(t *testing.T) {
	o, db, dir := testOrchestrator(t, WithWorkers(1))
	seedFiles(t, dir, "a.jpg", "b.jpg")

	blocker := &blockingExtractor{
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	o.Registry().Register(".jpg", blocker)

	sess, err := o.Start(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	<-blocker.entered

	if !o.Cancel() {
		t.Fatal("Cancel reported no active scan")
	}
	close(blocker.release)
	select {
	case <-sess.Done():
	case <-time.After(30 * time.Second):
		t.Fatal("scan did not stop after cancel")
	}

	p := o.Progress()
	if p.Running {
		t.Error("still marked running after cancel")
	}
	if p.CurrentPhase != PhaseMetadata {
		t.Errorf("phase after cancel = %s, want metadata", p.CurrentPhase)
	}

	// Committed discovery work survives the cancellation.
	roots, err := db.ListScanRoots(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	known, err := db.ImagesByRoot(context.Background(), roots[0].ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(known) != 2 {
		t.Errorf("inventory rows = %d, want 2", len(known))
	}
}

func TestResumeAfterCancelOnlyHashesRemainder(t *testing.T) {
	o, db, dir := testOrchestrator(t)
	seedFiles(t, dir, "a.jpg", "b.jpg", "c.jpg")
	runToCompletion(t, o)
	ctx := context.Background()

	// Simulate a run that was cancelled mid-hashing by clearing one hash.
	roots, err := db.ListScanRoots(ctx)
	if err != nil {
		t.Fatal(err)
	}
	img, err := db.GetImageByPath(ctx, roots[0].ID, "b.jpg")
	if err != nil {
		t.Fatal(err)
	}
	if err := db.SetImageHash(ctx, img.ID, ""); err != nil {
		t.Fatal(err)
	}

	runToCompletion(t, o)
	p := o.Progress()
	for _, ph := range p.Phases {
		if ph.Phase == PhaseHashing && ph.Total != 1 {
			t.Errorf("hashing total = %d, want 1", ph.Total)
		}
	}

	img, err = db.GetImage(ctx, img.ID)
	if err != nil {
		t.Fatal(err)
	}
	want, err := hasher.HashFile(filepath.Join(dir, "b.jpg"))
	if err != nil {
		t.Fatal(err)
	}
	if img.Hash != want {
		t.Errorf("hash = %q, want %q", img.Hash, want)
	}
}

func TestScanFailsWhenNoRootReachable(t *testing.T) {
	ctx := context.Background()
	db, err := database.New(ctx, filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	if _, err := db.AddScanRoot(ctx, filepath.Join(t.TempDir(), "vanished"), true); err != nil {
		t.Fatal(err)
	}

	o := NewOrchestrator(db, WithWorkers(1))
	runToCompletion(t, o)

	p := o.Progress()
	if p.CurrentPhase != PhaseFailed {
		t.Errorf("phase = %s, want failed", p.CurrentPhase)
	}
	if p.Error == "" {
		t.Error("expected a run error message")
	}
}

func TestExternalClassifierRefinesHeuristic(t *testing.T) {
	o, db, dir := testOrchestrator(t, WithExternalClassifier(&fakeExternal{category: database.CategoryScreenshot}))
	seedFiles(t, dir, "a.jpg")
	runToCompletion(t, o)
	ctx := context.Background()

	roots, err := db.ListScanRoots(ctx)
	if err != nil {
		t.Fatal(err)
	}
	img, err := db.GetImageByPath(ctx, roots[0].ID, "a.jpg")
	if err != nil {
		t.Fatal(err)
	}
	analysis, err := db.GetImageAnalysis(ctx, img.ID)
	if err != nil {
		t.Fatal(err)
	}
	if analysis.Model != "fake-external" {
		t.Errorf("model = %q, want fake-external", analysis.Model)
	}
	if analysis.Category != database.CategoryScreenshot {
		t.Errorf("category = %q", analysis.Category)
	}
}

func TestExternalClassifierUnavailableKeepsHeuristic(t *testing.T) {
	o, db, dir := testOrchestrator(t, WithExternalClassifier(&fakeExternal{err: ErrCapabilityUnavailable}))
	seedFiles(t, dir, "a.jpg")
	runToCompletion(t, o)
	ctx := context.Background()

	p := o.Progress()
	if p.CurrentPhase != PhaseCompleted {
		t.Fatalf("phase = %s, want completed", p.CurrentPhase)
	}

	roots, err := db.ListScanRoots(ctx)
	if err != nil {
		t.Fatal(err)
	}
	img, err := db.GetImageByPath(ctx, roots[0].ID, "a.jpg")
	if err != nil {
		t.Fatal(err)
	}
	analysis, err := db.GetImageAnalysis(ctx, img.ID)
	if err != nil {
		t.Fatal(err)
	}
	if analysis.Model != (&classify.Heuristic{}).Name() {
		t.Errorf("model = %q, want the heuristic result kept", analysis.Model)
	}
}

func TestSubscribeDeliversCompletion(t *testing.T) {
	o, _, dir := testOrchestrator(t)
	seedFiles(t, dir, "a.jpg")

	ch, unsub := o.Subscribe()
	defer unsub()

	runToCompletion(t, o)

	deadline := time.After(5 * time.Second)
	for {
		select {
		case p := <-ch:
			if p.CurrentPhase == PhaseCompleted && !p.Running {
				return
			}
		case <-deadline:
			t.Fatal("no completion snapshot delivered")
		}
	}
}

func TestPhaseErrorRingIsBounded(t *testing.T) {
	tr := newPhaseTracker(PhaseHashing, 100)
	for i := 0; i < 100; i++ {
		tr.failure(fmt.Sprintf("error %d", i))
	}
	snap := tr.snapshot()
	if len(snap.RecentErrors) != maxPhaseErrors {
		t.Fatalf("ring holds %d, want %d", len(snap.RecentErrors), maxPhaseErrors)
	}
	if snap.RecentErrors[0] != "error 68" {
		t.Errorf("oldest retained = %q, want error 68", snap.RecentErrors[0])
	}
	if snap.RecentErrors[maxPhaseErrors-1] != "error 99" {
		t.Errorf("newest retained = %q, want error 99", snap.RecentErrors[maxPhaseErrors-1])
	}
	if snap.Failed != 100 || snap.Processed != 100 {
		t.Errorf("counts: %+v", snap)
	}
}
