package classify

import (
	"context"
	"testing"

	"photovault/internal/database"
)

func classifyOne(t *testing.T, name string, meta *database.ImageMetadata) *database.ImageAnalysis {
	t.Helper()
	h := &Heuristic{}
	out, err := h.Classify(context.Background(), &database.Image{ID: 1, Name: name}, meta)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	return out
}

func TestScreenshotFilenameWithDate(t *testing.T) {
	out := classifyOne(t, "Screenshot_2024-01-27_114530.png", nil)
	if out.Category != database.CategoryScreenshot {
		t.Errorf("category = %q, want screenshot", out.Category)
	}
	if out.Confidence < 0.95 {
		t.Errorf("confidence = %v, want >= 0.95", out.Confidence)
	}
}

func TestScreenshotDesktopResolutionNoCamera(t *testing.T) {
	meta := &database.ImageMetadata{Width: 1920, Height: 1080}
	out := classifyOne(t, "weird-name.png", meta)
	// 0.80 resolution and 0.50 metadata agree but filename contributes
	// nothing, so this stays below the threshold on its own.
	if out.Category != database.CategoryPhoto {
		t.Errorf("category = %q, want photo", out.Category)
	}
	if out.Confidence <= 0.3 {
		t.Errorf("confidence = %v, want a meaningful score", out.Confidence)
	}
}

func TestScreenshotFilenameAndResolution(t *testing.T) {
	meta := &database.ImageMetadata{Width: 2560, Height: 1440}
	out := classifyOne(t, "capture.png", meta)
	if out.Category != database.CategoryScreenshot {
		t.Errorf("category = %q, want screenshot (confidence %v)", out.Category, out.Confidence)
	}
}

func TestMobileResolutionEitherOrientation(t *testing.T) {
	portrait := classifyOne(t, "img.png", &database.ImageMetadata{Width: 390, Height: 844})
	landscape := classifyOne(t, "img.png", &database.ImageMetadata{Width: 844, Height: 390})
	if portrait.Confidence != landscape.Confidence {
		t.Errorf("orientation changed confidence: %v vs %v", portrait.Confidence, landscape.Confidence)
	}
}

func TestCameraPhotoStaysPhoto(t *testing.T) {
	meta := &database.ImageMetadata{
		Width: 6000, Height: 4000,
		CameraMake:  "Canon",
		CameraModel: "EOS R5",
	}
	out := classifyOne(t, "IMG_4821.jpg", meta)
	if out.Category != database.CategoryPhoto {
		t.Errorf("category = %q, want photo", out.Category)
	}
	if out.Confidence > ScreenshotThreshold {
		t.Errorf("confidence = %v, want <= threshold", out.Confidence)
	}
}

func TestAnalysisRowFields(t *testing.T) {
	out := classifyOne(t, "snap.jpg", nil)
	if out.ImageID != 1 {
		t.Errorf("ImageID = %d, want 1", out.ImageID)
	}
	if out.Model != (&Heuristic{}).Name() {
		t.Errorf("Model = %q", out.Model)
	}
	if out.Reasoning == "" {
		t.Error("Reasoning is empty")
	}
	if out.AnalyzedAt.IsZero() {
		t.Error("AnalyzedAt is zero")
	}
}
