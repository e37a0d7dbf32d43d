package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"golang.org/x/term"

	"photovault/internal/database"
)

const defaultDatabaseDir = "/database"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nInterrupted.")
		cancel()
	}()

	db, err := openDatabase(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if err := db.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
		}
	}()

	switch cmd := os.Args[1]; cmd {
	case "reset":
		if !resetPassword(db) {
			os.Exit(1)
		}
	case "status":
		showStatus(db)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", sanitizeCommand(cmd))
		printUsage()
		os.Exit(1)
	}
}

func openDatabase(ctx context.Context) (*database.Database, error) {
	dir := os.Getenv("DATABASE_DIR")
	if dir == "" {
		dir = defaultDatabaseDir
	}

	db, err := database.New(ctx, filepath.Join(dir, "photovault.db"))
	if err != nil {
		return nil, fmt.Errorf("opening database in %s: %w (is DATABASE_DIR set correctly?)", dir, err)
	}
	return db, nil
}

// sanitizeCommand keeps [a-zA-Z0-9_-] and replaces everything else with
// '_' so arbitrary argv bytes never reach the terminal.
func sanitizeCommand(cmd string) string {
	var b strings.Builder
	b.Grow(len(cmd))
	for _, r := range cmd {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

func printUsage() {
	fmt.Println("PhotoVault Password Management")
	fmt.Println("")
	fmt.Println("Usage: resetpw <command>")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  reset   - Reset the password")
	fmt.Println("  status  - Check if password is configured")
	fmt.Println("")
	fmt.Println("Environment:")
	fmt.Printf("  DATABASE_DIR - Path to database directory (default: %s)\n", defaultDatabaseDir)
}

// promptPassword reads a password from the terminal without echo.
func promptPassword(label string) ([]byte, error) {
	fmt.Printf("%s: ", label)
	password, err := term.ReadPassword(syscall.Stdin)
	fmt.Println()
	return password, err
}

func resetPassword(db *database.Database) bool {
	if !db.HasUsers() {
		fmt.Fprintln(os.Stderr, "Error: No password configured yet. Use the web interface to set up.")
		return false
	}

	password, err := promptPassword("New Password")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading password: %v\n", err)
		return false
	}
	confirm, err := promptPassword("Confirm Password")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading password: %v\n", err)
		return false
	}

	if !bytes.Equal(password, confirm) {
		fmt.Fprintln(os.Stderr, "Error: Passwords do not match")
		return false
	}
	if len(password) < 6 {
		fmt.Fprintln(os.Stderr, "Error: Password must be at least 6 characters")
		return false
	}

	if err := db.UpdatePassword(string(password)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to update password: %v\n", err)
		return false
	}

	fmt.Println("Password updated successfully.")
	fmt.Println("All existing sessions have been invalidated.")
	return true
}

func showStatus(db *database.Database) {
	if db.HasUsers() {
		fmt.Println("Status: Password is configured")
	} else {
		fmt.Println("Status: No password configured (setup required)")
	}
}
