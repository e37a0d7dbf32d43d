package scan

import (
	"sync"
	"time"
)

// Phase is one stage of the ingestion state machine.
type Phase string

const (
	PhaseNone           Phase = "none"
	PhaseDiscovery      Phase = "discovery"
	PhaseMetadata       Phase = "metadata"
	PhaseClassification Phase = "classification"
	PhaseHashing        Phase = "hashing"
	PhaseAnalysis       Phase = "analysis"
	PhaseCompleted      Phase = "completed"
	PhaseFailed         Phase = "failed"
)

// phaseOrder is the execution sequence of the work phases.
var phaseOrder = []Phase{
	PhaseDiscovery,
	PhaseMetadata,
	PhaseClassification,
	PhaseHashing,
	PhaseAnalysis,
}

// maxPhaseErrors bounds the per-phase error buffer so a scan over a
// badly corrupted library cannot grow memory without limit.
const maxPhaseErrors = 32

// PhaseProgress is the live state of one phase. Total is fixed at phase
// start; Processed grows to meet it. RecentErrors holds at most
// maxPhaseErrors of the newest messages, oldest first.
type PhaseProgress struct {
	Phase        Phase      `json:"phase"`
	Total        int        `json:"total"`
	Processed    int        `json:"processed"`
	Succeeded    int        `json:"succeeded"`
	Failed       int        `json:"failed"`
	RecentErrors []string   `json:"recentErrors,omitempty"`
	StartedAt    time.Time  `json:"startedAt"`
	EndedAt      *time.Time `json:"endedAt,omitempty"`
}

// phaseTracker accumulates progress under a lock and hands out copies.
type phaseTracker struct {
	mu   sync.Mutex
	prog PhaseProgress

	// ring of recent error messages
	errs  []string
	start int
}

func newPhaseTracker(phase Phase, total int) *phaseTracker {
	return &phaseTracker{
		prog: PhaseProgress{
			Phase:     phase,
			Total:     total,
			StartedAt: time.Now().UTC(),
		},
	}
}

func (t *phaseTracker) success() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.prog.Processed++
	t.prog.Succeeded++
}

func (t *phaseTracker) failure(msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.prog.Processed++
	t.prog.Failed++
	if len(t.errs) < maxPhaseErrors {
		t.errs = append(t.errs, msg)
		return
	}
	t.errs[t.start] = msg
	t.start = (t.start + 1) % maxPhaseErrors
}

func (t *phaseTracker) finish() {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := time.Now().UTC()
	t.prog.EndedAt = &now
}

// snapshot returns a copy safe to hand outside the package.
func (t *phaseTracker) snapshot() PhaseProgress {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := t.prog
	if n := len(t.errs); n > 0 {
		out.RecentErrors = make([]string, 0, n)
		for i := 0; i < n; i++ {
			out.RecentErrors = append(out.RecentErrors, t.errs[(t.start+i)%n])
		}
	}
	return out
}
