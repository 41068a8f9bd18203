// Package eventgen provides a synthetic event source used by the
// eventpipe-emit demo command and by tests that want traffic without a
// real instrumentation frontend attached. It is explicitly outside the
// transport's own scope (spec §4.4 "Gating"): whether and how events are
// generated is a caller concern, not the allocator's.
package eventgen

import (
	"math/rand"

	"github.com/dbitrace/eventpipe/internal/wire"
)

// Generator produces a deterministic, seeded stream of synthetic events
// spanning all four wire tags, useful for exercising a transport's
// rotation and backpressure behavior without a real instrumented program.
type Generator struct {
	// Enabled gates whether Next produces events at all; false is a
	// cheap, branch-only no-op path, matching the kind of
	// EVENT_GENERATION_ENABLED check a real instrumentation frontend
	// would guard its hot path with.
	Enabled bool

	rng *rand.Rand
}

// NewGenerator creates a Generator seeded for reproducible test traffic.
func NewGenerator(seed int64) *Generator {
	return &Generator{Enabled: true, rng: rand.New(rand.NewSource(seed))}
}

// Next returns the next synthetic event, or ok=false if generation is
// disabled.
func (g *Generator) Next() (rec wire.EventRecord, payload []byte, ok bool) {
	if !g.Enabled {
		return wire.EventRecord{}, nil, false
	}

	switch g.rng.Intn(4) {
	case 0:
		addr := uint64(g.rng.Int63n(1 << 32))
		size := uint32(1 << uint(g.rng.Intn(4)))
		kind := uint8(g.rng.Intn(2))
		return wire.NewMemoryEvent(kind, addr, size), nil, true
	case 1:
		class := uint8(g.rng.Intn(8))
		arity := uint8(g.rng.Intn(4))
		return wire.NewComputationEvent(class, arity), nil, true
	case 2:
		kind := uint8(g.rng.Intn(4))
		data := uint64(g.rng.Int63())
		return wire.NewSyncEvent(kind, data), nil, true
	default:
		switch g.rng.Intn(3) {
		case 0:
			id := uint64(g.rng.Int63())
			return wire.NewContextEvent(wire.ContextInstruction, id), nil, true
		case 1:
			name := g.NextSymbolPayload()
			return wire.EventRecord{Tag: wire.TagContext, Kind: wire.ContextFunctionEntry}, name, true
		default:
			name := g.NextSymbolPayload()
			return wire.EventRecord{Tag: wire.TagContext, Kind: wire.ContextFunctionLeave}, name, true
		}
	}
}

// NextSymbolPayload returns a short synthetic symbol name, for exercising
// the byte-pool path via Producer.EmitMemoryWithPayload and
// Producer.EmitContextFunction.
func (g *Generator) NextSymbolPayload() []byte {
	symbols := []string{"memcpy", "malloc", "free", "strlen", "memset"}
	return []byte(symbols[g.rng.Intn(len(symbols))])
}
