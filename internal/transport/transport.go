// Package transport implements the event transport's hot path: the
// buffer bank (C2), the two-FIFO handshake protocol (C3), the per-event
// slot allocator (C4), and the startup/shutdown lifecycle (C5).
//
// A Transport is an owned value: there is no package-level mutable state,
// and a single Transport must only ever be driven from one goroutine at a
// time, matching the protocol's single-producer, no-locking design.
package transport

import (
	"fmt"
	"os"
	"time"

	"github.com/dbitrace/eventpipe/internal/interfaces"
	"github.com/dbitrace/eventpipe/internal/wire"
)

// Config parameterizes a Transport's construction. All fields are
// required except Logger, Observer, and Abort. Logger and Observer default
// to no-ops; Abort defaults to printing the error to stderr and exiting
// with status 1.
type Config struct {
	Layout    wire.Layout
	Region    []byte
	FullFIFO  *os.File
	EmptyFIFO *os.File
	Logger    interfaces.Logger
	Observer  interfaces.Observer
	Abort     interfaces.AbortFunc
}

type noOpLogger struct{}

func (noOpLogger) Debugf(string, ...interface{}) {}
func (noOpLogger) Infof(string, ...interface{})  {}
func (noOpLogger) Warnf(string, ...interface{})  {}
func (noOpLogger) Errorf(string, ...interface{}) {}

type noOpObserver struct{}

func (noOpObserver) ObserveEvent(string, uint32)    {}
func (noOpObserver) ObserveRotation(uint64, bool)   {}
func (noOpObserver) ObserveShutdown()               {}

func defaultAbort(op string, err error) {
	fmt.Fprintf(os.Stderr, "eventpipe: fatal error in %s: %v\n", op, err)
	os.Exit(1)
}

// Transport is the producer's owned cursor over the shared buffer bank.
// Its zero value is not usable; construct one with Open.
type Transport struct {
	layout    wire.Layout
	region    []byte
	fullFIFO  *os.File
	emptyFIFO *os.File
	logger    interfaces.Logger
	observer  interfaces.Observer
	abort     interfaces.AbortFunc

	currIdx  int    // index of the buffer currently being filled
	currSlot int    // next event slot to allocate within currIdx
	poolUsed uint32 // bytes already reserved from currIdx's pool
	isFull   []bool // per-buffer: true if rotated out and awaiting release
	initialized bool
}

// Open performs the ordered startup sequence (spec §4.5): validate
// configuration, zero the producer-local cursor, reset buffer 0 to a
// clean state, and mark the transport initialized. The caller is
// responsible for having already completed rendezvous (internal/rendezvous.Dial)
// and passing its region/FIFOs in through Config.
func Open(cfg Config) (*Transport, error) {
	if err := cfg.Layout.Validate(); err != nil {
		return nil, fmt.Errorf("transport: invalid layout: %w", err)
	}
	if len(cfg.Region) < cfg.Layout.RegionSize() {
		return nil, fmt.Errorf("transport: region too small: have %d bytes, need %d", len(cfg.Region), cfg.Layout.RegionSize())
	}
	if cfg.FullFIFO == nil || cfg.EmptyFIFO == nil {
		return nil, fmt.Errorf("transport: both FullFIFO and EmptyFIFO are required")
	}

	logger := interfaces.Logger(noOpLogger{})
	if cfg.Logger != nil {
		logger = cfg.Logger
	}
	observer := interfaces.Observer(noOpObserver{})
	if cfg.Observer != nil {
		observer = cfg.Observer
	}
	abort := cfg.Abort
	if abort == nil {
		abort = defaultAbort
	}

	t := &Transport{
		layout:    cfg.Layout,
		region:    cfg.Region,
		fullFIFO:  cfg.FullFIFO,
		emptyFIFO: cfg.EmptyFIFO,
		logger:    logger,
		observer:  observer,
		abort:     abort,
		isFull:    make([]bool, cfg.Layout.NumBuffers),
	}

	t.resetToBuffer(0)
	t.initialized = true
	logger.Infof("transport initialized: %d buffers x %d events x %d pool bytes", cfg.Layout.NumBuffers, cfg.Layout.MaxEvents, cfg.Layout.PoolBytes)
	return t, nil
}

// resetToBuffer points the producer-local cursor at buffer idx and clears
// its header counters, preparing it to receive new events (spec §4.2).
func (t *Transport) resetToBuffer(idx int) {
	t.layout.ResetBuffer(t.region, idx)
	t.currIdx = idx
	t.currSlot = 0
	t.poolUsed = 0
}

// AcquireEventSlot returns the (buffer index, slot) position of the next
// free event slot, rotating the buffer bank first if the current buffer is full. The
// caller must write a complete EventRecord into the returned (idx, slot)
// pair before the next Acquire call; eventpipe does not defer that write,
// avoiding two rotations racing on the same abandoned slot.
func (t *Transport) AcquireEventSlot() (idx, slot int) {
	t.requireInitialized("AcquireEventSlot")
	if t.currSlot >= t.layout.MaxEvents {
		t.rotateBuffer()
	}
	idx, slot = t.currIdx, t.currSlot
	t.currSlot++
	t.layout.StoreEventsUsed(t.region, idx, uint32(t.currSlot))
	return idx, slot
}

// AcquireEventAndPool behaves like AcquireEventSlot but additionally
// reserves `size` bytes from the current buffer's pool arena for a
// variable-length payload (e.g. a symbol or function name). If the current
// buffer cannot satisfy either the event slot or the pool reservation, it
// rotates first. A payload larger than the pool itself can never be
// satisfied and is a contract violation, routed to Abort rather than
// returned as an error, matching the transport's no-local-recovery model.
//
// The returned poolOffset is the payload's offset within the buffer's pool
// arena; the caller must record it in the event (wire.NewMemoryEventWithPool,
// wire.NewContextFunctionEvent) so the consumer can locate the exact bytes
// instead of guessing from the buffer's cumulative pool usage.
func (t *Transport) AcquireEventAndPool(size uint32) (idx, slot int, pool []byte, poolOffset uint32) {
	t.requireInitialized("AcquireEventAndPool")
	if int(size) > t.layout.PoolBytes {
		t.abort("AcquireEventAndPool", fmt.Errorf("payload size %d exceeds pool capacity %d", size, t.layout.PoolBytes))
		return 0, 0, nil, 0
	}

	if t.currSlot >= t.layout.MaxEvents || t.poolUsed+size > uint32(t.layout.PoolBytes) {
		t.rotateBuffer()
	}

	idx, slot = t.currIdx, t.currSlot
	t.currSlot++
	t.layout.StoreEventsUsed(t.region, idx, uint32(t.currSlot))

	poolOffset = t.poolUsed
	t.poolUsed += size
	t.layout.StorePoolUsed(t.region, idx, t.poolUsed)
	full := t.layout.PoolSlice(t.region, idx, 0)
	pool = full[poolOffset : poolOffset+size]

	return idx, slot, pool, poolOffset
}

// rotateBuffer implements the allocator's backpressure algorithm (spec
// §4.4): mark the current buffer full and hand it to the consumer over
// fullfifo, advance to the next buffer, and — if that buffer hasn't been
// released by the consumer yet — block on emptyfifo until it has.
func (t *Transport) rotateBuffer() {
	if err := writeIndex(t.fullFIFO, uint32(t.currIdx)); err != nil {
		t.abort("rotateBuffer", err)
		return
	}
	t.isFull[t.currIdx] = true

	next := (t.currIdx + 1) % t.layout.NumBuffers
	if t.isFull[next] {
		start := time.Now()
		released, err := readIndex(t.emptyFIFO)
		stall := time.Since(start)
		if err != nil {
			t.abort("rotateBuffer", err)
			return
		}
		if released != uint32(next) {
			t.abort("rotateBuffer", fmt.Errorf("handshake ordering violation: consumer released buffer %d, expected %d", released, next))
			return
		}
		t.isFull[next] = false
		t.observer.ObserveRotation(uint64(stall.Nanoseconds()), true)
	} else {
		t.observer.ObserveRotation(0, false)
	}

	t.resetToBuffer(next)
}

// Close performs the ordered shutdown sequence (spec §4.5): emit the
// final buffer's index followed by the FINISHED sentinel on fullfifo,
// then block until the consumer has drained emptyfifo to EOF, confirming
// it has released every buffer and closed its end.
func (t *Transport) Close() error {
	if !t.initialized {
		return fmt.Errorf("transport: Close called before Open completed or after a prior Close")
	}

	if err := writeIndex(t.fullFIFO, uint32(t.currIdx)); err != nil {
		return fmt.Errorf("transport: shutdown: write final index: %w", err)
	}
	if err := writeIndex(t.fullFIFO, finished); err != nil {
		return fmt.Errorf("transport: shutdown: write FINISHED: %w", err)
	}

	if err := drainToEOF(t.emptyFIFO); err != nil {
		return fmt.Errorf("transport: shutdown: drain emptyfifo: %w", err)
	}

	t.observer.ObserveShutdown()
	t.logger.Infof("transport shut down cleanly")
	t.initialized = false
	return nil
}

func (t *Transport) requireInitialized(op string) {
	if !t.initialized {
		t.abort(op, fmt.Errorf("transport used before Open completed or after Close"))
	}
}

// CurrentBuffer returns the buffer index the cursor currently points at,
// for diagnostics and tests.
func (t *Transport) CurrentBuffer() int { return t.currIdx }

// Layout returns the geometry this transport was opened with.
func (t *Transport) Layout() wire.Layout { return t.layout }
