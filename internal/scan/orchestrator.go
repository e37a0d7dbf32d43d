package scan

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"photovault/internal/classify"
	"photovault/internal/database"
	"photovault/internal/discovery"
	"photovault/internal/exifmeta"
	"photovault/internal/logging"
	"photovault/internal/metrics"
	"photovault/internal/workers"
)

var (
	// ErrScanInProgress is returned by Start while a run is active.
	ErrScanInProgress = errors.New("a scan is already running")

	// ErrCapabilityUnavailable signals that an external classifier is
	// down. The analysis phase degrades to keeping heuristic results.
	ErrCapabilityUnavailable = errors.New("capability unavailable")
)

// notifyInterval throttles subscriber updates between forced events.
const notifyInterval = 200 * time.Millisecond

// Session is the handle for one scan run. Cancel stops the run between
// files; Done is closed when the run goroutine exits.
type Session struct {
	ID     int64
	cancel context.CancelFunc
	done   chan struct{}
}

func (s *Session) Cancel()               { s.cancel() }
func (s *Session) Done() <-chan struct{} { return s.done }

// Progress is a point-in-time view of the pipeline. Phases holds the
// phases that have started this run, in execution order.
type Progress struct {
	SessionID    int64           `json:"sessionId"`
	Running      bool            `json:"running"`
	CurrentPhase Phase           `json:"currentPhase"`
	Phases       []PhaseProgress `json:"phases,omitempty"`
	StartedAt    time.Time       `json:"startedAt,omitempty"`
	FinishedAt   *time.Time      `json:"finishedAt,omitempty"`
	Error        string          `json:"error,omitempty"`
}

// Orchestrator runs scans one at a time and reports their progress.
type Orchestrator struct {
	db        *database.Database
	scanner   *discovery.Scanner
	registry  *exifmeta.Registry
	heuristic classify.Classifier
	external  classify.Classifier
	workerN   int

	mu         sync.Mutex
	running    bool
	session    *Session
	nextID     int64
	current    Phase
	trackers   map[Phase]*phaseTracker
	startedAt  time.Time
	finishedAt *time.Time
	runErr     string

	rootsMu sync.RWMutex
	roots   map[int64]string

	subsMu     sync.Mutex
	subs       map[chan Progress]struct{}
	lastNotify time.Time
}

// Option tweaks orchestrator construction.
type Option func(*Orchestrator)

// WithExternalClassifier installs a second-pass classifier for the
// analysis phase. Without one the phase is an immediate no-op.
func WithExternalClassifier(c classify.Classifier) Option {
	return func(o *Orchestrator) { o.external = c }
}

// WithWorkers overrides the per-phase worker pool size.
func WithWorkers(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.workerN = n
		}
	}
}

func NewOrchestrator(db *database.Database, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		db:        db,
		scanner:   discovery.New(db),
		registry:  exifmeta.NewRegistry(),
		heuristic: &classify.Heuristic{},
		workerN:   workers.ForIO(),
		current:   PhaseNone,
		trackers:  make(map[Phase]*phaseTracker),
		roots:     make(map[int64]string),
		subs:      make(map[chan Progress]struct{}),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Registry exposes the extractor registry so callers can install
// extractors for additional formats before starting a scan.
func (o *Orchestrator) Registry() *exifmeta.Registry {
	return o.registry
}

// Start begins a scan run if none is active. The returned session stays
// valid after the run finishes; cancelling a finished session is a
// no-op.
func (o *Orchestrator) Start(ctx context.Context) (*Session, error) {
	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return nil, ErrScanInProgress
	}

	runCtx, cancel := context.WithCancel(ctx)
	o.nextID++
	sess := &Session{ID: o.nextID, cancel: cancel, done: make(chan struct{})}

	o.running = true
	o.session = sess
	o.current = PhaseNone
	o.trackers = make(map[Phase]*phaseTracker)
	o.startedAt = time.Now().UTC()
	o.finishedAt = nil
	o.runErr = ""
	o.mu.Unlock()

	metrics.ScanRunsTotal.Inc()
	metrics.ScanRunning.Set(1)
	logging.Info("Scan %d starting", sess.ID)

	go o.run(runCtx, sess)
	return sess, nil
}

// Cancel stops the active run, if any. It does not wait for the run
// goroutine to wind down.
func (o *Orchestrator) Cancel() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.running || o.session == nil {
		return false
	}
	o.session.Cancel()
	return true
}

// Progress returns the current snapshot.
func (o *Orchestrator) Progress() Progress {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshotLocked()
}

func (o *Orchestrator) snapshotLocked() Progress {
	p := Progress{
		Running:      o.running,
		CurrentPhase: o.current,
		StartedAt:    o.startedAt,
		FinishedAt:   o.finishedAt,
		Error:        o.runErr,
	}
	if o.session != nil {
		p.SessionID = o.session.ID
	}
	for _, phase := range phaseOrder {
		if t, ok := o.trackers[phase]; ok {
			p.Phases = append(p.Phases, t.snapshot())
		}
	}
	return p
}

// Subscribe registers a progress channel. Updates are throttled; phase
// transitions and run completion are always delivered. Slow consumers
// miss intermediate snapshots rather than blocking the scan. The
// returned function unsubscribes and closes the channel.
func (o *Orchestrator) Subscribe() (<-chan Progress, func()) {
	ch := make(chan Progress, 8)

	o.subsMu.Lock()
	o.subs[ch] = struct{}{}
	o.subsMu.Unlock()

	var once sync.Once
	unsub := func() {
		once.Do(func() {
			o.subsMu.Lock()
			delete(o.subs, ch)
			o.subsMu.Unlock()
			close(ch)
		})
	}
	return ch, unsub
}

func (o *Orchestrator) notify(force bool) {
	// Sends stay under subsMu so an unsubscribe cannot close a channel
	// mid-send. Every send is non-blocking.
	o.subsMu.Lock()
	defer o.subsMu.Unlock()

	if !force && time.Since(o.lastNotify) < notifyInterval {
		return
	}
	if len(o.subs) == 0 {
		o.lastNotify = time.Now()
		return
	}
	o.lastNotify = time.Now()

	snap := o.Progress()
	for ch := range o.subs {
		select {
		case ch <- snap:
		default:
			// Full buffer: shed the oldest snapshot so the newest one
			// still lands.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}

func (o *Orchestrator) run(ctx context.Context, sess *Session) {
	defer close(sess.done)
	defer metrics.ScanRunning.Set(0)

	var fatal error
	for _, phase := range phaseOrder {
		if ctx.Err() != nil {
			break
		}
		o.setPhase(phase)

		start := time.Now()
		err := o.runPhase(ctx, phase)
		metrics.ScanPhaseDuration.WithLabelValues(string(phase)).Observe(time.Since(start).Seconds())

		if t := o.tracker(phase); t != nil {
			t.finish()
		}
		o.notify(true)

		if err != nil && !errors.Is(err, context.Canceled) {
			fatal = err
			break
		}
		if ctx.Err() != nil {
			break
		}
	}

	o.mu.Lock()
	o.running = false
	now := time.Now().UTC()
	o.finishedAt = &now
	switch {
	case fatal != nil:
		o.current = PhaseFailed
		o.runErr = fatal.Error()
		logging.Error("Scan %d failed: %v", sess.ID, fatal)
	case ctx.Err() != nil:
		// Cancelled: the current phase is left as-is so a consumer can
		// see where the run stopped. A new scan resumes the remainder.
		logging.Info("Scan %d cancelled during %s", sess.ID, o.current)
	default:
		o.current = PhaseCompleted
		metrics.ScanLastRunTimestamp.Set(float64(now.Unix()))
		logging.Info("Scan %d completed in %s", sess.ID, now.Sub(o.startedAt).Round(time.Millisecond))
	}
	o.mu.Unlock()

	if fatal == nil && ctx.Err() == nil {
		if err := o.db.SetLastScanTime(context.Background(), now); err != nil {
			logging.Warn("Recording scan completion time: %v", err)
		}
	}
	o.notify(true)
}

func (o *Orchestrator) setPhase(phase Phase) {
	o.mu.Lock()
	o.current = phase
	o.mu.Unlock()
	o.notify(true)
}

func (o *Orchestrator) tracker(phase Phase) *phaseTracker {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.trackers[phase]
}

func (o *Orchestrator) setTracker(phase Phase, t *phaseTracker) {
	o.mu.Lock()
	o.trackers[phase] = t
	o.mu.Unlock()
}

func (o *Orchestrator) runPhase(ctx context.Context, phase Phase) error {
	switch phase {
	case PhaseDiscovery:
		return o.runDiscovery(ctx)
	case PhaseMetadata:
		return o.runMetadata(ctx)
	case PhaseClassification:
		return o.runClassification(ctx)
	case PhaseHashing:
		return o.runHashing(ctx)
	case PhaseAnalysis:
		return o.runAnalysis(ctx)
	}
	return fmt.Errorf("unknown phase %s", phase)
}

// runDiscovery reconciles every configured root. An unreachable root is
// fatal for that root only; the scan fails outright when no root at all
// could be walked.
func (o *Orchestrator) runDiscovery(ctx context.Context) error {
	roots, err := o.db.ListScanRoots(ctx)
	if err != nil {
		return fmt.Errorf("listing scan roots: %w", err)
	}

	t := newPhaseTracker(PhaseDiscovery, len(roots))
	o.setTracker(PhaseDiscovery, t)

	ok := 0
	for i := range roots {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if _, err := o.scanner.ScanRoot(ctx, &roots[i]); err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			t.failure(fmt.Sprintf("root %s: %v", roots[i].Path, err))
			metrics.ScanErrorsTotal.WithLabelValues(string(PhaseDiscovery)).Inc()
			logging.Error("Discovery failed for root %s: %v", roots[i].Path, err)
			continue
		}
		t.success()
		ok++
		o.notify(false)
	}

	if len(roots) > 0 && ok == 0 {
		return fmt.Errorf("discovery failed for all %d roots", len(roots))
	}
	return nil
}

func (o *Orchestrator) runMetadata(ctx context.Context) error {
	items, err := o.db.ImagesMissingMetadata(ctx)
	if err != nil {
		return fmt.Errorf("listing images without metadata: %w", err)
	}
	return o.runFiles(ctx, PhaseMetadata, items, o.extractOne)
}

func (o *Orchestrator) runClassification(ctx context.Context) error {
	items, err := o.db.ImagesMissingAnalysis(ctx)
	if err != nil {
		return fmt.Errorf("listing unanalyzed images: %w", err)
	}
	return o.runFiles(ctx, PhaseClassification, items, func(ctx context.Context, img *database.Image) error {
		return o.classifyOne(ctx, img, o.heuristic)
	})
}

func (o *Orchestrator) runHashing(ctx context.Context) error {
	items, err := o.db.ImagesMissingHash(ctx)
	if err != nil {
		return fmt.Errorf("listing unhashed images: %w", err)
	}
	return o.runFiles(ctx, PhaseHashing, items, o.hashOne)
}

// runAnalysis refines heuristic classifications through the external
// capability. Nothing to do when none is configured.
func (o *Orchestrator) runAnalysis(ctx context.Context) error {
	if o.external == nil {
		o.setTracker(PhaseAnalysis, newPhaseTracker(PhaseAnalysis, 0))
		return nil
	}
	items, err := o.db.ImagesAnalyzedByModel(ctx, o.heuristic.Name())
	if err != nil {
		return fmt.Errorf("listing heuristic analyses: %w", err)
	}

	var unavailable atomic.Bool
	return o.runFiles(ctx, PhaseAnalysis, items, func(ctx context.Context, img *database.Image) error {
		if unavailable.Load() {
			return nil
		}
		err := o.classifyOne(ctx, img, o.external)
		if errors.Is(err, ErrCapabilityUnavailable) {
			if unavailable.CompareAndSwap(false, true) {
				logging.Warn("External classifier unavailable, keeping heuristic results")
			}
			return nil
		}
		return err
	})
}

// runFiles drives one file-granular phase across the worker pool. fn
// errors are per-file: counted and buffered, never fatal. Cancellation
// is observed between files.
func (o *Orchestrator) runFiles(ctx context.Context, phase Phase, items []database.Image, fn func(context.Context, *database.Image) error) error {
	t := newPhaseTracker(phase, len(items))
	o.setTracker(phase, t)

	if len(items) == 0 {
		return nil
	}
	logging.Info("Phase %s: %d files across %d workers", phase, len(items), o.workerN)

	jobs := make(chan *database.Image)
	var wg sync.WaitGroup
	for w := 0; w < o.workerN; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for img := range jobs {
				if ctx.Err() != nil {
					continue
				}
				if err := fn(ctx, img); err != nil {
					t.failure(fmt.Sprintf("%s: %v", img.RelPath, err))
					metrics.ScanFilesProcessed.WithLabelValues(string(phase), "error").Inc()
					metrics.ScanErrorsTotal.WithLabelValues(string(phase)).Inc()
				} else {
					t.success()
					metrics.ScanFilesProcessed.WithLabelValues(string(phase), "success").Inc()
				}
				o.notify(false)
			}
		}()
	}

	for i := range items {
		if ctx.Err() != nil {
			break
		}
		jobs <- &items[i]
	}
	close(jobs)
	wg.Wait()
	return ctx.Err()
}

func (o *Orchestrator) absPath(ctx context.Context, img *database.Image) (string, error) {
	o.rootsMu.RLock()
	rootPath, ok := o.roots[img.RootID]
	o.rootsMu.RUnlock()

	if !ok {
		root, err := o.db.GetScanRoot(ctx, img.RootID)
		if err != nil {
			return "", fmt.Errorf("resolving root %d: %w", img.RootID, err)
		}
		rootPath = root.Path
		o.rootsMu.Lock()
		o.roots[img.RootID] = rootPath
		o.rootsMu.Unlock()
	}
	return filepath.Join(rootPath, filepath.FromSlash(img.RelPath)), nil
}
