package mediatypes

import "testing"

func TestIsPhoto(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"/photos/a.jpg", true},
		{"/photos/a.JPG", true},
		{"/photos/b.jpeg", true},
		{"/photos/c.HEIC", true},
		{"/photos/d.png", true},
		{"/photos/raw.dng", true},
		{"/photos/movie.mp4", false},
		{"/photos/notes.txt", false},
		{"/photos/noext", false},
	}

	for _, tt := range tests {
		if got := IsPhoto(tt.path); got != tt.want {
			t.Errorf("IsPhoto(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestGetMimeType(t *testing.T) {
	tests := []struct {
		ext  string
		want string
	}{
		{".jpg", "image/jpeg"},
		{".JPG", "image/jpeg"},
		{".png", "image/png"},
		{".heic", "image/heic"},
		{".xyz", "application/octet-stream"},
	}

	for _, tt := range tests {
		if got := GetMimeType(tt.ext); got != tt.want {
			t.Errorf("GetMimeType(%q) = %q, want %q", tt.ext, got, tt.want)
		}
	}
}

func TestExt(t *testing.T) {
	if got := Ext("/a/b/Photo.JPeG"); got != ".jpeg" {
		t.Errorf("Ext() = %q, want .jpeg", got)
	}
}
