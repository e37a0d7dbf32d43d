package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"photovault/internal/database"
	"photovault/internal/logging"
	"photovault/internal/metrics"
	"photovault/internal/scan"
)

// DefaultPollInterval balances detection latency against stat traffic.
const DefaultPollInterval = 2 * time.Minute

// ScanStarter begins a pipeline run. Satisfied by scan.Orchestrator.
type ScanStarter interface {
	Start(ctx context.Context) (*scan.Session, error)
}

// rootState is the fingerprint of one root at the last reconcile.
type rootState struct {
	rootModTime   time.Time
	topLevelCount int
	subdirMod     map[string]time.Time
}

// Monitor polls every configured root and starts a scan when any of
// them looks different.
type Monitor struct {
	db       *database.Database
	starter  ScanStarter
	interval time.Duration

	mu    sync.Mutex
	state map[int64]*rootState

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

func NewMonitor(db *database.Database, starter ScanStarter, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Monitor{
		db:       db,
		starter:  starter,
		interval: interval,
		state:    make(map[int64]*rootState),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the polling loop. The first poll only primes the
// fingerprints, so a freshly started monitor does not immediately
// trigger a scan.
func (m *Monitor) Start() {
	go m.loop()
}

// Stop halts polling and waits for the loop to exit. Safe to call more
// than once.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() { close(m.stop) })
	<-m.done
}

func (m *Monitor) loop() {
	defer close(m.done)

	m.primeAll()
	logging.Info("Change detection polling every %v", m.interval)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if m.Poll() {
				m.rescan()
			}
		case <-m.stop:
			logging.Info("Change detection polling stopped")
			return
		}
	}
}

// Poll fingerprints every root and reports whether any changed. Roots
// that cannot be statted are skipped this round rather than treated as
// changes; discovery owns missing-root semantics.
func (m *Monitor) Poll() bool {
	start := time.Now()
	defer func() {
		metrics.WatcherPollDuration.Observe(time.Since(start).Seconds())
		metrics.WatcherPollsTotal.Inc()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	roots, err := m.db.ListScanRoots(ctx)
	if err != nil {
		logging.Error("Listing roots for change poll: %v", err)
		return false
	}

	changed := false
	for i := range roots {
		if m.rootChanged(&roots[i]) {
			changed = true
		}
	}
	if changed {
		metrics.WatcherChangesDetected.Inc()
	}
	return changed
}

func (m *Monitor) rootChanged(root *database.ScanRoot) bool {
	cur, err := fingerprint(root.Path)
	if err != nil {
		logging.Debug("Fingerprinting %s: %v", root.Path, err)
		return false
	}

	m.mu.Lock()
	prev, known := m.state[root.ID]
	m.mu.Unlock()

	if !known {
		// First sighting of this root; prime and report a change so new
		// roots get scanned without waiting for further edits.
		m.setState(root.ID, cur)
		return true
	}

	if cur.rootModTime.After(prev.rootModTime) {
		logging.Debug("Root %s modified: %v > %v", root.Path, cur.rootModTime, prev.rootModTime)
		return true
	}
	if cur.topLevelCount != prev.topLevelCount {
		logging.Debug("Root %s top-level count: %d -> %d", root.Path, prev.topLevelCount, cur.topLevelCount)
		return true
	}
	for name, mod := range cur.subdirMod {
		last, exists := prev.subdirMod[name]
		if !exists {
			logging.Debug("Root %s: new subdirectory %s", root.Path, name)
			return true
		}
		if mod.After(last) {
			logging.Debug("Root %s: subdirectory %s modified", root.Path, name)
			return true
		}
	}
	return false
}

// rescan runs one scan to completion and refreshes the fingerprints so
// the changes the scan just ingested do not retrigger it.
func (m *Monitor) rescan() {
	logging.Info("File changes detected, triggering rescan")
	sess, err := m.starter.Start(context.Background())
	if err != nil {
		if errors.Is(err, scan.ErrScanInProgress) {
			logging.Debug("Rescan skipped, a scan is already running")
			return
		}
		logging.Error("Starting rescan: %v", err)
		return
	}

	select {
	case <-sess.Done():
	case <-m.stop:
		return
	}
	m.primeAll()
}

func (m *Monitor) primeAll() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	roots, err := m.db.ListScanRoots(ctx)
	if err != nil {
		logging.Warn("Priming change detection: %v", err)
		return
	}
	for i := range roots {
		if st, err := fingerprint(roots[i].Path); err == nil {
			m.setState(roots[i].ID, st)
		}
	}
}

func (m *Monitor) setState(rootID int64, st *rootState) {
	m.mu.Lock()
	m.state[rootID] = st
	m.mu.Unlock()
}

func fingerprint(dir string) (*rootState, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	st := &rootState{
		rootModTime: info.ModTime(),
		subdirMod:   make(map[string]time.Time),
	}
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		st.topLevelCount++
		if entry.IsDir() {
			if sub, err := os.Stat(filepath.Join(dir, entry.Name())); err == nil {
				st.subdirMod[entry.Name()] = sub.ModTime()
			}
		}
	}
	return st, nil
}
