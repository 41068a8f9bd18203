// Package eventpipe is the producer-side half of a shared-memory event
// transport for streaming memory, computation, synchronization, and
// context-change events from an instrumentation host to a separate
// consumer process.
package eventpipe

import (
	"fmt"
	"time"

	"github.com/dbitrace/eventpipe/internal/constants"
	"github.com/dbitrace/eventpipe/internal/interfaces"
	"github.com/dbitrace/eventpipe/internal/logging"
	"github.com/dbitrace/eventpipe/internal/rendezvous"
	"github.com/dbitrace/eventpipe/internal/transport"
	"github.com/dbitrace/eventpipe/internal/wire"
)

// Config parameterizes a Producer.
type Config struct {
	// IPCDir is the directory holding the shared memory file and both
	// named pipes. Required.
	IPCDir string

	NumBuffers int
	MaxEvents  int
	PoolBytes  int

	RendezvousTimeout time.Duration
	PollInterval      time.Duration

	Logger   Logger
	Observer Observer
	Abort    func(op string, err error)
}

// Logger is the public logging interface a caller may supply. *logging.Logger
// (internal/logging) and any compatible adapter satisfy it.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// Observer is the public metrics-collection interface. *MetricsObserver and
// NoOpObserver satisfy it.
type Observer interface {
	ObserveEvent(kind string, poolBytes uint32)
	ObserveRotation(stallNs uint64, blocked bool)
	ObserveShutdown()
}

// DefaultConfig returns a Config with the transport's default buffer-bank
// geometry and timing, requiring only IPCDir to be filled in.
func DefaultConfig(ipcDir string) Config {
	return Config{
		IPCDir:            ipcDir,
		NumBuffers:        constants.DefaultNumBuffers,
		MaxEvents:         constants.DefaultMaxEvents,
		PoolBytes:         constants.DefaultPoolBytes,
		RendezvousTimeout: constants.DefaultRendezvousTimeout,
		PollInterval:      constants.RendezvousPollInterval,
	}
}

func (c Config) layout() wire.Layout {
	return wire.Layout{NumBuffers: c.NumBuffers, MaxEvents: c.MaxEvents, PoolBytes: c.PoolBytes}
}

func (c Config) validate() error {
	if c.IPCDir == "" {
		return NewError("Open", ErrClassConfiguration, "ipc_dir is required")
	}
	if err := c.layout().Validate(); err != nil {
		return NewError("Open", ErrClassConfiguration, err.Error())
	}
	return nil
}

// Producer is the public entry point for the event transport's lifecycle
// (spec C5): it owns the rendezvous endpoints, the hot-path Transport,
// and the metrics the caller asked to collect.
type Producer struct {
	cfg       Config
	endpoints *rendezvous.Endpoints
	transport *transport.Transport
	metrics   *Metrics
	logger    Logger
	observer  Observer
}

// Open performs rendezvous with a waiting consumer and brings the
// transport's hot path online. RendezvousTimeout bounds the wait for the
// shared memory file to appear; the named-pipe opens that follow block,
// without a timeout, until the consumer has opened its ends.
func Open(cfg Config) (*Producer, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	layout := cfg.layout()
	endpoints, err := rendezvous.Dial(rendezvous.DialConfig{
		IPCDir:       cfg.IPCDir,
		RegionSize:   layout.RegionSize(),
		PollInterval: cfg.PollInterval,
		Timeout:      cfg.RendezvousTimeout,
	})
	if err != nil {
		return nil, WrapError("Open", ErrClassRendezvous, err)
	}

	var metrics *Metrics
	var observer Observer = NoOpObserver{}
	if cfg.Observer != nil {
		observer = cfg.Observer
	} else {
		metrics = NewMetrics()
		observer = NewMetricsObserver(metrics)
	}

	var abort interfaces.AbortFunc
	if cfg.Abort != nil {
		abort = interfaces.AbortFunc(cfg.Abort)
	}

	tr, err := transport.Open(transport.Config{
		Layout:    layout,
		Region:    endpoints.Region,
		FullFIFO:  endpoints.FullFIFO,
		EmptyFIFO: endpoints.EmptyFIFO,
		Logger:    loggerAdapter{logger},
		Observer:  observerAdapter{observer},
		Abort:     abort,
	})
	if err != nil {
		_ = endpoints.Close()
		return nil, WrapError("Open", ErrClassTransport, err)
	}

	return &Producer{cfg: cfg, endpoints: endpoints, transport: tr, metrics: metrics, logger: logger, observer: observer}, nil
}

// EmitMemory records a memory access event.
func (p *Producer) EmitMemory(kind uint8, addr uint64, size uint32) {
	idx, slot := p.transport.AcquireEventSlot()
	p.transport.Layout().PutEvent(p.endpoints.Region, idx, slot, wire.NewMemoryEvent(kind, addr, size))
	p.observer.ObserveEvent("memory", 0)
}

// EmitComputation records a computation (instruction-class) event.
func (p *Producer) EmitComputation(class uint8, arity uint8) {
	idx, slot := p.transport.AcquireEventSlot()
	p.transport.Layout().PutEvent(p.endpoints.Region, idx, slot, wire.NewComputationEvent(class, arity))
	p.observer.ObserveEvent("computation", 0)
}

// EmitSync records a synchronization event.
func (p *Producer) EmitSync(kind uint8, data uint64) {
	idx, slot := p.transport.AcquireEventSlot()
	p.transport.Layout().PutEvent(p.endpoints.Region, idx, slot, wire.NewSyncEvent(kind, data))
	p.observer.ObserveEvent("sync", 0)
}

// EmitContext records an instruction-boundary context event. kind must be
// wire.ContextInstruction; function-boundary events carry a name and go
// through EmitContextFunction instead.
func (p *Producer) EmitContext(kind uint8, id uint64) {
	idx, slot := p.transport.AcquireEventSlot()
	p.transport.Layout().PutEvent(p.endpoints.Region, idx, slot, wire.NewContextEvent(kind, id))
	p.observer.ObserveEvent("context", 0)
}

// EmitContextFunction records a function-entry or function-leave context
// event, storing the function's name in the buffer's byte pool per the
// data model (kind's id is the pool offset locating the name).
func (p *Producer) EmitContextFunction(kind uint8, name []byte) {
	idx, slot, pool, poolOffset := p.transport.AcquireEventAndPool(uint32(len(name)))
	copy(pool, name)
	rec := wire.NewContextFunctionEvent(kind, poolOffset, uint32(len(name)))
	p.transport.Layout().PutEvent(p.endpoints.Region, idx, slot, rec)
	p.observer.ObserveEvent("context", uint32(len(name)))
}

// EmitMemoryWithPayload records a memory event together with a
// variable-length payload (e.g. a resolved symbol name) stored in the
// buffer's byte pool.
func (p *Producer) EmitMemoryWithPayload(kind uint8, addr uint64, payload []byte) {
	idx, slot, pool, poolOffset := p.transport.AcquireEventAndPool(uint32(len(payload)))
	copy(pool, payload)
	rec := wire.NewMemoryEventWithPool(kind, addr, poolOffset, uint32(len(payload)))
	p.transport.Layout().PutEvent(p.endpoints.Region, idx, slot, rec)
	p.observer.ObserveEvent("memory", uint32(len(payload)))
}

// Metrics returns the producer's metrics collector, or nil if the caller
// supplied a custom Observer at Open time.
func (p *Producer) Metrics() *Metrics { return p.metrics }

// Close performs the ordered shutdown sequence and releases the
// rendezvous endpoints.
func (p *Producer) Close() error {
	if err := p.transport.Close(); err != nil {
		return WrapError("Close", ErrClassTransport, err)
	}
	if p.metrics != nil {
		p.metrics.Close()
	}
	if err := p.endpoints.Close(); err != nil {
		return fmt.Errorf("eventpipe: Close: %w", err)
	}
	return nil
}

type loggerAdapter struct{ l Logger }

func (a loggerAdapter) Debugf(format string, args ...interface{}) { a.l.Debugf(format, args...) }
func (a loggerAdapter) Infof(format string, args ...interface{})  { a.l.Infof(format, args...) }
func (a loggerAdapter) Warnf(format string, args ...interface{})  { a.l.Warnf(format, args...) }
func (a loggerAdapter) Errorf(format string, args ...interface{}) { a.l.Errorf(format, args...) }

type observerAdapter struct{ o Observer }

func (a observerAdapter) ObserveEvent(kind string, poolBytes uint32)  { a.o.ObserveEvent(kind, poolBytes) }
func (a observerAdapter) ObserveRotation(stallNs uint64, blocked bool) { a.o.ObserveRotation(stallNs, blocked) }
func (a observerAdapter) ObserveShutdown()                             { a.o.ObserveShutdown() }
