package metrics

import (
	"testing"
	"time"
)

type fakeStatsProvider struct {
	stats Stats
	calls int
}

func (f *fakeStatsProvider) GetStats() Stats {
	f.calls++
	return f.stats
}

func TestCollectorCollect(t *testing.T) {
	provider := &fakeStatsProvider{
		stats: Stats{
			ActiveImages:  10,
			MissingImages: 2,
			TotalBytes:    1024,
			TotalRoots:    1,
		},
	}

	c := NewCollector(provider, time.Hour)
	c.collect()

	if provider.calls != 1 {
		t.Errorf("expected 1 provider call, got %d", provider.calls)
	}
}

func TestCollectorNilProvider(t *testing.T) {
	c := NewCollector(nil, time.Hour)
	// Must not panic.
	c.collect()
}

func TestCollectorStartStop(t *testing.T) {
	provider := &fakeStatsProvider{}
	c := NewCollector(provider, 10*time.Millisecond)
	c.Start()
	time.Sleep(25 * time.Millisecond)
	c.Stop()

	if provider.calls < 1 {
		t.Error("expected at least one collection")
	}
}
