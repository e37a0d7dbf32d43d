package exifmeta

import (
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTestJPEG(t *testing.T, path string, width, height int) {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{uint8(x % 256), uint8(y % 256), 128, 255})
		}
	}

	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	if err := jpeg.Encode(f, img, &jpeg.Options{Quality: 80}); err != nil {
		t.Fatal(err)
	}
}

func TestRegistryLookup(t *testing.T) {
	r := NewRegistry()

	tests := []struct {
		ext    string
		wantOK bool
	}{
		{".jpg", true},
		{".JPG", true},
		{".jpeg", true},
		{".png", true},
		{".heic", true},
		{".webp", true},
		{".txt", false},
		{".mp4", false},
	}

	for _, tt := range tests {
		if _, ok := r.Lookup(tt.ext); ok != tt.wantOK {
			t.Errorf("Lookup(%q) ok = %v, want %v", tt.ext, ok, tt.wantOK)
		}
	}
}

func TestRegistryRegisterOverride(t *testing.T) {
	r := NewRegistry()
	custom := &DimensionExtractor{}
	r.Register(".JPG", custom)

	e, ok := r.Lookup(".jpg")
	if !ok {
		t.Fatal("Lookup(.jpg) missed after Register")
	}
	if e != custom {
		t.Error("Register did not replace the existing binding")
	}
}

func TestExifExtractorPlainJPEG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain.jpg")
	writeTestJPEG(t, path, 32, 24)

	attrs, err := (&ExifExtractor{}).Extract(path)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if attrs.Width != 32 || attrs.Height != 24 {
		t.Errorf("dimensions = %dx%d, want 32x24", attrs.Width, attrs.Height)
	}
	// Encoder-generated JPEG carries no EXIF
	if attrs.DateTaken != nil {
		t.Errorf("DateTaken = %v, want nil for EXIF-less file", attrs.DateTaken)
	}
}

func TestExifExtractorMissingFile(t *testing.T) {
	attrs, err := (&ExifExtractor{}).Extract(filepath.Join(t.TempDir(), "gone.jpg"))
	if err != nil {
		t.Fatalf("Extract on missing file should not error, got %v", err)
	}
	if attrs.Width != 0 || attrs.DateTaken != nil {
		t.Errorf("expected empty attributes, got %+v", attrs)
	}
}

func TestDimensionExtractorPNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.png")

	img := image.NewRGBA(image.Rect(0, 0, 10, 20))
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	f.Close()

	attrs, err := (&DimensionExtractor{}).Extract(path)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if attrs.Width != 10 || attrs.Height != 20 {
		t.Errorf("dimensions = %dx%d, want 10x20", attrs.Width, attrs.Height)
	}
}

func TestDimensionExtractorGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "junk.heic")
	if err := os.WriteFile(path, []byte("not an image"), 0o644); err != nil {
		t.Fatal(err)
	}

	attrs, err := (&DimensionExtractor{}).Extract(path)
	if err != nil {
		t.Fatalf("Extract on garbage should not error, got %v", err)
	}
	if attrs.Width != 0 || attrs.Height != 0 {
		t.Errorf("expected zero dimensions, got %dx%d", attrs.Width, attrs.Height)
	}
}

func TestNormalizeDateTaken(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	created := time.Date(2023, 3, 15, 8, 30, 0, 0, time.UTC)

	valid := time.Date(2022, 7, 4, 16, 0, 0, 0, time.UTC)
	future := now.Add(48 * time.Hour)
	ancient := time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)
	boundary := time.Date(MinYear, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		extracted *time.Time
		want      time.Time
	}{
		{"nil date falls back to creation time", nil, created},
		{"zero date falls back to creation time", &time.Time{}, created},
		{"valid date is kept", &valid, valid},
		{"future date falls back to creation time", &future, created},
		{"pre-1980 date falls back to creation time", &ancient, created},
		{"exactly MinYear is kept", &boundary, boundary},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeDateTaken(tt.extracted, created, now)
			if !got.Equal(tt.want) {
				t.Errorf("NormalizeDateTaken = %v, want %v", got, tt.want)
			}
		})
	}
}
