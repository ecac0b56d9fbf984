package metrics

import (
	"testing"
	"time"
)

func TestTimingMetricRecord(t *testing.T) {
	m := newTimingMetric("test")
	m.Record(2 * time.Millisecond)
	m.Record(4 * time.Millisecond)

	if m.Count() != 2 {
		t.Fatalf("expected count 2, got %d", m.Count())
	}
	if m.MinNs() != int64(2*time.Millisecond) {
		t.Errorf("expected min 2ms, got %dns", m.MinNs())
	}
	if m.MaxNs() != int64(4*time.Millisecond) {
		t.Errorf("expected max 4ms, got %dns", m.MaxNs())
	}
	if m.AvgNs() != int64(3*time.Millisecond) {
		t.Errorf("expected avg 3ms, got %dns", m.AvgNs())
	}

	stats := m.Stats()
	if stats.Name != "test" || stats.Count != 2 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestTimerRecordsOnce(t *testing.T) {
	m := newTimingMetric("timer")
	stop := Timer(m)
	stop()

	if m.Count() != 1 {
		t.Errorf("expected one measurement, got %d", m.Count())
	}
}

func TestTimerWithCallbackReportsDuration(t *testing.T) {
	m := newTimingMetric("callback")
	calls := 0
	var got time.Duration
	stop := TimerWithCallback(m, func(d time.Duration) {
		calls++
		got = d
	})
	time.Sleep(time.Millisecond)
	stop()

	if calls != 1 {
		t.Fatalf("expected callback once, got %d", calls)
	}
	if got < time.Millisecond {
		t.Errorf("callback duration %v shorter than the timed work", got)
	}
	if m.Count() != 1 || m.TotalNs() != int64(got) {
		t.Errorf("metric should record the reported duration, count=%d total=%d", m.Count(), m.TotalNs())
	}

	TimerWithCallback(m, nil)()
	if m.Count() != 2 {
		t.Errorf("nil callback should still record, got count %d", m.Count())
	}
}

func TestDisabledMetricsAreNoops(t *testing.T) {
	SetEnabled(false)
	defer SetEnabled(true)

	m := newTimingMetric("off")
	m.Record(time.Second)
	Timer(m)()
	fired := false
	TimerWithCallback(m, func(time.Duration) { fired = true })()

	c := newCacheMetric("off")
	c.Hit()
	c.Miss()

	if m.Count() != 0 || c.Hits() != 0 || c.Misses() != 0 || fired {
		t.Errorf("expected no recordings while disabled")
	}
}

func TestCacheMetricHitRate(t *testing.T) {
	c := newCacheMetric("cache")
	if c.HitRate() != 0 {
		t.Fatalf("expected 0 hit rate for empty metric")
	}
	c.Hit()
	c.Hit()
	c.Hit()
	c.Miss()
	if got := c.HitRate(); got != 0.75 {
		t.Errorf("expected hit rate 0.75, got %v", got)
	}
	c.Reset()
	if c.Hits() != 0 || c.Misses() != 0 {
		t.Error("expected reset counters")
	}
}

func TestAllTimingStatsSkipsEmpty(t *testing.T) {
	ResetAll()
	MapBuild.Record(time.Millisecond)
	defer ResetAll()

	stats := AllTimingStats()
	if len(stats) != 1 || stats[0].Name != "map_build" {
		t.Errorf("expected only map_build stats, got %+v", stats)
	}
}
