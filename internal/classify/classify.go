package classify

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"photovault/internal/database"
)

// Classifier decides which category an image belongs to. Implementations
// must not mutate the inputs; meta is nil when metadata extraction has
// not produced a row for the image.
type Classifier interface {
	Classify(ctx context.Context, img *database.Image, meta *database.ImageMetadata) (*database.ImageAnalysis, error)
	Name() string
}

// ScreenshotThreshold is the combined confidence above which an image
// is categorized as a screenshot.
const ScreenshotThreshold = 0.75

var filenamePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)screenshot`),
	regexp.MustCompile(`(?i)screen\s*shot`),
	regexp.MustCompile(`(?i)capture`),
	regexp.MustCompile(`(?i)snip`),
	regexp.MustCompile(`(?i)clipboardimage`),
	regexp.MustCompile(`(?i)shot`),
	regexp.MustCompile(`(?i)grab`),
	regexp.MustCompile(`(?i)print\s*screen`),
	regexp.MustCompile(`(?i)prtsc`),
	regexp.MustCompile(`(?i)screenclip`),
}

// Capture tools that embed a date in the filename are the strongest
// signal we have without opening the file.
var datePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)screenshot.*\d{4}[-_]\d{1,2}[-_]\d{1,2}`),
	regexp.MustCompile(`(?i)screen\s*shot.*\d{4}[-_]\d{1,2}[-_]\d{1,2}`),
	regexp.MustCompile(`(?i)capture.*\d{4}[-_]\d{1,2}[-_]\d{1,2}`),
	regexp.MustCompile(`(?i)\d{4}[-_]\d{1,2}[-_]\d{1,2}.*screenshot`),
}

type resolution struct {
	w, h int
}

// Exact desktop display sizes. A pixel-for-pixel match is a strong
// screenshot indicator since cameras do not produce these dimensions.
var desktopResolutions = map[resolution]string{
	{1920, 1080}: "Full HD",
	{1366, 768}:  "HD Ready",
	{1536, 864}:  "HD+",
	{2560, 1440}: "QHD",
	{3840, 2160}: "4K UHD",
	{1440, 900}:  "WXGA+",
	{1680, 1050}: "WSXGA+",
	{1280, 720}:  "HD",
	{1280, 800}:  "WXGA",
	{1024, 768}:  "XGA",
	{1600, 900}:  "HD+",
	{2048, 1152}: "QWXGA",
	{2880, 1620}: "3K",
	{5120, 2880}: "5K",
}

// Phone and tablet logical sizes in portrait orientation. Matched in
// both orientations since rotation at capture time is common.
var mobileResolutions = map[resolution]string{
	{390, 844}:   "iPhone 12/13/14",
	{393, 852}:   "iPhone 14 Pro",
	{430, 932}:   "iPhone 14 Pro Max",
	{414, 896}:   "iPhone 11/XR",
	{375, 812}:   "iPhone X/11 Pro",
	{375, 667}:   "iPhone 6/7/8",
	{360, 800}:   "Android Common",
	{412, 915}:   "Pixel 7",
	{411, 891}:   "Galaxy S21",
	{384, 854}:   "Galaxy S22",
	{768, 1024}:  "iPad",
	{834, 1194}:  "iPad Air",
	{1024, 1366}: "iPad Pro 12.9",
}

// Heuristic is the built-in screenshot classifier. The zero value is
// ready to use.
type Heuristic struct{}

func (h *Heuristic) Name() string { return "screenshot-heuristic-v1" }

// Classify scores the image and returns an analysis row that has not
// been persisted. It never returns an error for ordinary inputs; the
// error return exists for the interface.
func (h *Heuristic) Classify(_ context.Context, img *database.Image, meta *database.ImageMetadata) (*database.ImageAnalysis, error) {
	fn, fnReason := filenameScore(img.Name)
	res, resReason := resolutionScore(meta)
	md, mdReason := metadataScore(meta)

	confidence := combine(fn, res, md)

	category := database.CategoryPhoto
	if confidence > ScreenshotThreshold {
		category = database.CategoryScreenshot
	}

	return &database.ImageAnalysis{
		ImageID:    img.ID,
		Category:   category,
		Confidence: confidence,
		Reasoning:  fmt.Sprintf("filename=%s resolution=%s metadata=%s", fnReason, resReason, mdReason),
		Model:      h.Name(),
		AnalyzedAt: time.Now().UTC(),
	}, nil
}

func filenameScore(name string) (float64, string) {
	base := strings.ToLower(filepath.Base(name))

	for _, p := range datePatterns {
		if p.MatchString(base) {
			return 0.95, "date_pattern"
		}
	}

	matches := 0
	for _, p := range filenamePatterns {
		if p.MatchString(base) {
			matches++
		}
	}
	switch {
	case matches >= 2:
		return 0.90, "multiple_patterns"
	case matches == 1:
		return 0.85, "single_pattern"
	}
	return 0.0, "no_match"
}

func resolutionScore(meta *database.ImageMetadata) (float64, string) {
	if meta == nil || meta.Width <= 0 || meta.Height <= 0 {
		return 0.0, "no_dimensions"
	}
	w, h := meta.Width, meta.Height

	if name, ok := desktopResolutions[resolution{w, h}]; ok {
		return 0.80, "desktop_"+slug(name)
	}
	if name, ok := mobileResolutions[resolution{w, h}]; ok {
		return 0.75, "mobile_"+slug(name)
	}
	if name, ok := mobileResolutions[resolution{h, w}]; ok {
		return 0.75, "mobile_"+slug(name)
	}

	ratio := float64(w) / float64(h)
	switch {
	case math.Abs(ratio-16.0/9.0) < 0.01:
		return 0.60, "16_9_aspect"
	case math.Abs(ratio-16.0/10.0) < 0.01:
		return 0.55, "16_10_aspect"
	case math.Abs(ratio-4.0/3.0) < 0.01:
		return 0.45, "4_3_aspect"
	case ratio > 3.0 || ratio < 0.3:
		return 0.10, "unusual_aspect"
	}
	return 0.30, "plain_dimensions"
}

func metadataScore(meta *database.ImageMetadata) (float64, string) {
	if meta == nil {
		// Screenshots rarely carry camera metadata at all.
		return 0.60, "no_metadata"
	}
	if meta.CameraMake == "" && meta.CameraModel == "" {
		return 0.50, "no_camera_info"
	}
	return 0.20, "has_camera_info"
}

// combine mirrors the weighting used during scoring: a strong filename
// hit dominates, otherwise the three signals are averaged with fixed
// weights and nudged upward when at least two of them agree.
func combine(fn, res, md float64) float64 {
	if fn > 0.8 {
		return math.Min(1.0, fn+res*0.1+md*0.1)
	}

	score := fn*0.5 + res*0.3 + md*0.2

	agree := 0
	for _, s := range []float64{fn, res, md} {
		if s > 0.5 {
			agree++
		}
	}
	if agree >= 2 {
		score += 0.1
	}
	return math.Min(1.0, score)
}

func slug(s string) string {
	s = strings.ToLower(s)
	s = strings.NewReplacer(" ", "_", "/", "_", ".", "_").Replace(s)
	return s
}
