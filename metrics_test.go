package eventpipe

import "testing"

func TestMetricsRecordEvent(t *testing.T) {
	m := NewMetrics()
	defer m.Close()

	m.RecordEvent("memory", 8)
	m.RecordEvent("computation", 0)
	m.RecordEvent("sync", 0)
	m.RecordEvent("context", 0)

	snap := m.Snapshot()
	if snap.MemoryEvents != 1 {
		t.Errorf("MemoryEvents = %d, want 1", snap.MemoryEvents)
	}
	if snap.ComputationEvents != 1 {
		t.Errorf("ComputationEvents = %d, want 1", snap.ComputationEvents)
	}
	if snap.PoolBytesUsed != 8 {
		t.Errorf("PoolBytesUsed = %d, want 8", snap.PoolBytesUsed)
	}
	if snap.TotalOps != 4 {
		t.Errorf("TotalOps = %d, want 4", snap.TotalOps)
	}
}

func TestMetricsRecordRotation(t *testing.T) {
	m := NewMetrics()
	defer m.Close()

	m.RecordRotation(0, false)
	m.RecordRotation(5_000_000, true) // 5ms stall

	snap := m.Snapshot()
	if snap.Rotations != 2 {
		t.Errorf("Rotations = %d, want 2", snap.Rotations)
	}
	if snap.BlockedRotations != 1 {
		t.Errorf("BlockedRotations = %d, want 1", snap.BlockedRotations)
	}
	if snap.AvgStallNs != 5_000_000 {
		t.Errorf("AvgStallNs = %d, want 5000000", snap.AvgStallNs)
	}
}

func TestMetricsObserverDelegates(t *testing.T) {
	m := NewMetrics()
	defer m.Close()

	o := NewMetricsObserver(m)
	o.ObserveEvent("memory", 4)
	o.ObserveRotation(1_000, true)
	o.ObserveShutdown()

	snap := m.Snapshot()
	if snap.MemoryEvents != 1 {
		t.Errorf("expected ObserveEvent to delegate to RecordEvent")
	}
	if snap.BlockedRotations != 1 {
		t.Errorf("expected ObserveRotation to delegate to RecordRotation")
	}
}

func TestNoOpObserverDoesNothing(t *testing.T) {
	var o NoOpObserver
	o.ObserveEvent("memory", 4)
	o.ObserveRotation(1, true)
	o.ObserveShutdown()
}
