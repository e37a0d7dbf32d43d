package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite3 driver

	"photovault/internal/logging"
	"photovault/internal/metrics"
)

// Default timeout for single-row database operations.
const defaultTimeout = 5 * time.Second

// SchemaVersion is written to the meta table on initialization. The
// out-of-process migration tool compares against it.
const SchemaVersion = 1

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// Database is the persistence gateway over the SQLite inventory.
type Database struct {
	db      *sql.DB
	dbPath  string
	mu      sync.RWMutex
	txStart time.Time
}

// New opens (creating if necessary) the inventory database at dbPath.
// The parent directory must already exist and be writable; use
// startup.LoadConfig to validate directories before calling this.
func New(ctx context.Context, dbPath string) (*Database, error) {
	logging.Info("Database path: %s", dbPath)

	// WAL keeps scan-phase batch writes from blocking reads;
	// busy_timeout prevents "database is locked" errors; foreign keys
	// must be on for ScanRoot deletion to cascade.
	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=10000&_busy_timeout=5000&_foreign_keys=on", dbPath)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close database after ping failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(time.Hour)

	d := &Database{
		db:     db,
		dbPath: dbPath,
	}

	if err := d.initialize(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close database after initialization failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}

	logging.Info("Database initialized successfully at %s", dbPath)
	return d, nil
}

func (d *Database) initialize(ctx context.Context) error {
	schema := `
	-- Configured ingest directories
	CREATE TABLE IF NOT EXISTS scan_roots (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		path TEXT NOT NULL UNIQUE,
		recursive INTEGER NOT NULL DEFAULT 1,
		created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
	);

	-- Inventory: one row per physical file under a scan root.
	-- Rows are never purged individually; a removed file goes to
	-- status='missing' so hash history survives across rescans.
	CREATE TABLE IF NOT EXISTS images (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		root_id INTEGER NOT NULL,
		rel_path TEXT NOT NULL,
		name TEXT NOT NULL,
		ext TEXT NOT NULL,
		hash TEXT,
		size INTEGER NOT NULL DEFAULT 0,
		created_time INTEGER NOT NULL,
		mod_time INTEGER NOT NULL,
		status TEXT NOT NULL DEFAULT 'active',
		deleted_at INTEGER,
		updated_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now')),
		FOREIGN KEY (root_id) REFERENCES scan_roots(id) ON DELETE CASCADE,
		UNIQUE(root_id, rel_path)
	);

	CREATE INDEX IF NOT EXISTS idx_images_root ON images(root_id);
	CREATE INDEX IF NOT EXISTS idx_images_hash ON images(hash);
	CREATE INDEX IF NOT EXISTS idx_images_status ON images(status);

	-- Extracted attributes, shared identity with images
	CREATE TABLE IF NOT EXISTS image_metadata (
		image_id INTEGER PRIMARY KEY,
		width INTEGER NOT NULL DEFAULT 0,
		height INTEGER NOT NULL DEFAULT 0,
		date_taken INTEGER NOT NULL,
		latitude REAL,
		longitude REAL,
		camera_make TEXT,
		camera_model TEXT,
		iso INTEGER,
		exposure TEXT,
		f_number REAL,
		focal_length REAL,
		orientation INTEGER,
		color_space TEXT,
		extracted_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now')),
		FOREIGN KEY (image_id) REFERENCES images(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_metadata_date_taken ON image_metadata(date_taken);

	-- Classification results, shared identity with images
	CREATE TABLE IF NOT EXISTS image_analysis (
		image_id INTEGER PRIMARY KEY,
		category TEXT NOT NULL,
		confidence REAL NOT NULL DEFAULT 0,
		reasoning TEXT,
		model TEXT,
		analyzed_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now')),
		FOREIGN KEY (image_id) REFERENCES images(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_analysis_category ON image_analysis(category);

	-- Users table (single user, password only)
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		password_hash TEXT NOT NULL,
		created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now')),
		updated_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
	);

	-- Sessions table
	CREATE TABLE IF NOT EXISTS sessions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		token TEXT NOT NULL UNIQUE,
		expires_at INTEGER NOT NULL,
		created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now')),
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_token ON sessions(token);
	CREATE INDEX IF NOT EXISTS idx_sessions_expires ON sessions(expires_at);

	-- Key/value store (schema version, scan bookkeeping)
	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT
	);
	`

	if _, err := d.db.ExecContext(ctx, schema); err != nil {
		return err
	}

	return d.writeSchemaVersion(ctx)
}

// writeSchemaVersion records the schema version for the external
// migration tool. An existing newer version is an error: this binary
// must not write a database it does not understand.
func (d *Database) writeSchemaVersion(ctx context.Context) error {
	current, err := d.GetMeta(ctx, "schema_version")
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}

	if current != "" {
		version, convErr := strconv.Atoi(current)
		if convErr != nil {
			return fmt.Errorf("unreadable schema_version %q: %w", current, convErr)
		}
		if version > SchemaVersion {
			return fmt.Errorf("database schema version %d is newer than supported version %d", version, SchemaVersion)
		}
		if version == SchemaVersion {
			return nil
		}
	}

	return d.SetMeta(ctx, "schema_version", strconv.Itoa(SchemaVersion))
}

// Close closes the database connection.
func (d *Database) Close() error {
	return d.db.Close()
}

// BeginBatch starts a transaction for batch operations.
// The caller is responsible for calling EndBatch when done.
func (d *Database) BeginBatch() (*sql.Tx, error) {
	d.mu.Lock()
	txStart := time.Now()

	// Background context: the transaction's lifetime is managed by
	// EndBatch, not a timeout.
	tx, err := d.db.BeginTx(context.Background(), nil)
	d.mu.Unlock()

	if err != nil {
		return nil, err
	}

	d.txStart = txStart
	return tx, nil
}

// EndBatch commits the transaction, or rolls it back if err is non-nil.
func (d *Database) EndBatch(tx *sql.Tx, err error) error {
	duration := time.Since(d.txStart).Seconds()

	if err != nil {
		metrics.DBTransactionDuration.WithLabelValues("rollback").Observe(duration)
		rbErr := tx.Rollback()
		if rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback also failed: %w", rbErr))
		}
		return err
	}

	metrics.DBTransactionDuration.WithLabelValues("commit").Observe(duration)
	return tx.Commit()
}

// recordQuery records database query metrics.
func recordQuery(operation string, start time.Time, err error) {
	duration := time.Since(start).Seconds()
	status := "success"
	if err != nil && !errors.Is(err, ErrNotFound) {
		status = "error"
	}
	metrics.DBQueryTotal.WithLabelValues(operation, status).Inc()
	metrics.DBQueryDuration.WithLabelValues(operation).Observe(duration)
}

// UpdateDBMetrics refreshes database connection gauges.
func (d *Database) UpdateDBMetrics() {
	stats := d.db.Stats()
	metrics.DBConnectionsOpen.Set(float64(stats.OpenConnections))
}

// GetStats implements metrics.StatsProvider for the background collector.
func (d *Database) GetStats() metrics.Stats {
	libStats, err := d.CalculateStats(context.Background())
	if err != nil {
		logging.Warn("failed to calculate library stats: %v", err)
		return metrics.Stats{}
	}
	return metrics.Stats{
		ActiveImages:  libStats.ActiveImages,
		MissingImages: libStats.MissingImages,
		TotalBytes:    libStats.TotalBytes,
		TotalRoots:    libStats.TotalRoots,
	}
}

// Vacuum optimizes the database.
func (d *Database) Vacuum() error {
	start := time.Now()
	var err error
	defer func() { recordQuery("vacuum", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	_, err = d.db.ExecContext(ctx, "VACUUM")
	return err
}
