package main

import (
	"context"
	"path/filepath"
	"testing"

	"photovault/internal/database"
)

func setupTestDB(t *testing.T) *database.Database {
	t.Helper()

	db, err := database.New(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestPrintUsage(t *testing.T) {
	defer func() {
		if r := recover(); r != nil {
			t.Errorf("printUsage panicked: %v", r)
		}
	}()
	printUsage()
}

func TestSanitizeCommand(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"reset", "reset"},
		{"my-command_2", "my-command_2"},
		{"rm -rf /", "rm__rf__"},
		{"line\nbreak", "line_break"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := sanitizeCommand(tt.in); got != tt.want {
			t.Errorf("sanitizeCommand(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestResetPasswordWithoutUser(t *testing.T) {
	db := setupTestDB(t)

	// No user configured yet, so reset must refuse before prompting.
	if resetPassword(db) {
		t.Error("resetPassword succeeded with no user configured")
	}
}

func TestShowStatus(t *testing.T) {
	db := setupTestDB(t)

	// Exercise both branches; output goes to stdout.
	showStatus(db)
	if err := db.CreateUser("correct horse"); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	showStatus(db)
}
