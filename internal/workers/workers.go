package workers

import (
	"os"
	"runtime"
	"strconv"
)

// maxWorkers bounds every pool regardless of CPU count so a large host
// does not hammer a slow network mount with hundreds of readers.
const maxWorkers = 32

// profile scales worker counts by task character relative to the
// available CPUs (GOMAXPROCS tracks container limits).
type profile float64

const (
	cpuBound profile = 1.0
	ioBound  profile = 2.0
	mixed    profile = 1.5
)

func (p profile) count() int {
	if override := os.Getenv("SCAN_WORKERS"); override != "" {
		if n, err := strconv.Atoi(override); err == nil && n > 0 {
			return clamp(n)
		}
	}
	return clamp(int(float64(runtime.GOMAXPROCS(0)) * float64(p)))
}

func clamp(n int) int {
	if n < 1 {
		return 1
	}
	if n > maxWorkers {
		return maxWorkers
	}
	return n
}

// ForCPU sizes a pool for compute-heavy work, one worker per CPU.
func ForCPU() int { return cpuBound.count() }

// ForIO sizes a pool for read-heavy work, two workers per CPU.
func ForIO() int { return ioBound.count() }

// ForMixed sizes a pool for work that alternates between reading and
// computing.
func ForMixed() int { return mixed.count() }
