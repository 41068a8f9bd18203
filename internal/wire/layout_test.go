package wire

import "testing"

func tractableLayout() Layout {
	return Layout{NumBuffers: 4, MaxEvents: 2, PoolBytes: 8}
}

func TestLayoutValidate(t *testing.T) {
	if err := tractableLayout().Validate(); err != nil {
		t.Fatalf("expected tractable layout to validate, got %v", err)
	}
	if err := (Layout{NumBuffers: 0, MaxEvents: 2}).Validate(); err == nil {
		t.Error("expected error for NumBuffers=0")
	}
	if err := (Layout{NumBuffers: 1, MaxEvents: 0}).Validate(); err == nil {
		t.Error("expected error for MaxEvents=0")
	}
}

func TestLayoutStrideAndRegionSize(t *testing.T) {
	l := tractableLayout()
	// header(8) + 2*24 (events) + 8 (pool) = 64
	if got, want := l.Stride(), 64; got != want {
		t.Errorf("Stride() = %d, want %d", got, want)
	}
	if got, want := l.RegionSize(), 64*4; got != want {
		t.Errorf("RegionSize() = %d, want %d", got, want)
	}
}

func TestLayoutBufferOffsetsDoNotOverlap(t *testing.T) {
	l := tractableLayout()
	seen := map[int]bool{}
	for i := 0; i < l.NumBuffers; i++ {
		off := l.BufferOffset(i)
		if seen[off] {
			t.Fatalf("duplicate buffer offset %d for buffer %d", off, i)
		}
		seen[off] = true
	}
}

func TestEventRoundTrip(t *testing.T) {
	l := tractableLayout()
	region := make([]byte, l.RegionSize())

	rec := NewMemoryEvent(MemoryWrite, 0xdeadbeef, 64)
	l.PutEvent(region, 2, 1, rec)

	got := l.GetEvent(region, 2, 1)
	if got != rec {
		t.Errorf("GetEvent() = %+v, want %+v", got, rec)
	}

	// A different slot in the same buffer must not alias the one we wrote.
	other := l.GetEvent(region, 2, 0)
	if other.Addr != 0 {
		t.Errorf("expected untouched slot to read as zero value, got %+v", other)
	}
}

func TestEventsUsedCounterRoundTrip(t *testing.T) {
	l := tractableLayout()
	region := make([]byte, l.RegionSize())

	for i := 0; i < l.NumBuffers; i++ {
		l.StoreEventsUsed(region, i, uint32(i+1))
	}
	for i := 0; i < l.NumBuffers; i++ {
		if got := l.LoadEventsUsed(region, i); got != uint32(i+1) {
			t.Errorf("buffer %d EventsUsed = %d, want %d", i, got, i+1)
		}
	}
}

func TestPoolSliceRespectsPoolUsed(t *testing.T) {
	l := tractableLayout()
	region := make([]byte, l.RegionSize())

	slice := l.PoolSlice(region, 0, 3)
	if len(slice) != l.PoolBytes-3 {
		t.Errorf("PoolSlice length = %d, want %d", len(slice), l.PoolBytes-3)
	}
}

func TestResetBufferZeroesCounters(t *testing.T) {
	l := tractableLayout()
	region := make([]byte, l.RegionSize())

	l.StoreEventsUsed(region, 1, 2)
	l.StorePoolUsed(region, 1, 5)
	l.ResetBuffer(region, 1)

	if l.LoadEventsUsed(region, 1) != 0 || l.LoadPoolUsed(region, 1) != 0 {
		t.Error("expected ResetBuffer to zero both counters")
	}
}
