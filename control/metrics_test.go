package control

import "testing"

func TestCounters(t *testing.T) {
	mr := NewMetricsRegistry()

	mr.Add("dispatched", 1)
	mr.Add("dispatched", 2)
	if got := mr.Counter("dispatched"); got != 3 {
		t.Errorf("expected 3, got %d", got)
	}
	if got := mr.Counter("missing"); got != 0 {
		t.Errorf("absent counter should read 0, got %d", got)
	}
}

func TestSnapshotIsolation(t *testing.T) {
	mr := NewMetricsRegistry()
	mr.Set("mode", "poll")

	snap := mr.GetSnapshot()
	snap["mode"] = "mutated"

	if got := mr.GetSnapshot()["mode"]; got != "poll" {
		t.Errorf("snapshot mutation leaked into registry: %v", got)
	}
}

func TestLastUpdated(t *testing.T) {
	mr := NewMetricsRegistry()
	if !mr.LastUpdated().IsZero() {
		t.Error("fresh registry should have zero update time")
	}
	mr.Add("x", 1)
	if mr.LastUpdated().IsZero() {
		t.Error("update time not recorded")
	}
}
