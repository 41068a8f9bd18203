package eventpipe

import "sync"

// MockObserver is a thread-safe Observer implementation that records every
// call for assertions in tests of code built on top of eventpipe.
type MockObserver struct {
	mu         sync.Mutex
	events     []MockEventCall
	rotations  []MockRotationCall
	shutdowns  int
}

// MockEventCall records one ObserveEvent invocation.
type MockEventCall struct {
	Kind      string
	PoolBytes uint32
}

// MockRotationCall records one ObserveRotation invocation.
type MockRotationCall struct {
	StallNs uint64
	Blocked bool
}

// NewMockObserver creates an empty MockObserver.
func NewMockObserver() *MockObserver {
	return &MockObserver{}
}

func (m *MockObserver) ObserveEvent(kind string, poolBytes uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, MockEventCall{Kind: kind, PoolBytes: poolBytes})
}

func (m *MockObserver) ObserveRotation(stallNs uint64, blocked bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rotations = append(m.rotations, MockRotationCall{StallNs: stallNs, Blocked: blocked})
}

func (m *MockObserver) ObserveShutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shutdowns++
}

// Events returns a copy of every recorded ObserveEvent call.
func (m *MockObserver) Events() []MockEventCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockEventCall, len(m.events))
	copy(out, m.events)
	return out
}

// Rotations returns a copy of every recorded ObserveRotation call.
func (m *MockObserver) Rotations() []MockRotationCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockRotationCall, len(m.rotations))
	copy(out, m.rotations)
	return out
}

// Shutdowns returns how many times ObserveShutdown was called.
func (m *MockObserver) Shutdowns() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.shutdowns
}

// RecordingAbort is an AbortFunc-compatible helper that records the first
// fatal call instead of terminating the process, for tests that need to
// exercise the transport's contract-violation and fatal-I/O paths without
// killing the test binary.
type RecordingAbort struct {
	mu   sync.Mutex
	Op   string
	Err  error
	hits int
}

// Func returns the func(op string, err error) value to pass as Config.Abort.
func (r *RecordingAbort) Func() func(op string, err error) {
	return func(op string, err error) {
		r.mu.Lock()
		defer r.mu.Unlock()
		if r.hits == 0 {
			r.Op, r.Err = op, err
		}
		r.hits++
	}
}

// Called reports whether the abort function has been invoked at least once.
func (r *RecordingAbort) Called() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hits > 0
}

// Compile-time interface checks.
var (
	_ Observer = (*MockObserver)(nil)
	_ Observer = NoOpObserver{}
)
