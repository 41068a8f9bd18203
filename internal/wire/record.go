// Package wire defines the fixed, C-ABI-compatible on-the-wire layout
// shared between the producer and any consumer of the event transport:
// the EventRecord tagged union, the EventBuffer header, and the byte-pool
// arena attached to each buffer.
package wire

import "unsafe"

// Tag identifies which variant of the EventRecord union is populated.
type Tag uint8

const (
	TagMemory Tag = iota
	TagComputation
	TagSync
	TagContext
)

func (t Tag) String() string {
	switch t {
	case TagMemory:
		return "memory"
	case TagComputation:
		return "computation"
	case TagSync:
		return "sync"
	case TagContext:
		return "context"
	default:
		return "unknown"
	}
}

// Memory-event kinds.
const (
	MemoryRead uint8 = iota
	MemoryWrite
)

// Synchronization-event kinds.
const (
	SyncLock uint8 = iota
	SyncUnlock
	SyncSignal
	SyncWait
)

// Context-event kinds: instruction boundaries carry no payload; the two
// function-boundary kinds carry a name string located in the buffer's byte
// pool.
const (
	ContextInstruction uint8 = iota
	ContextFunctionEntry
	ContextFunctionLeave
)

// EventRecord is the fixed tagged union carried in every buffer slot. All
// four variants share this single layout so the allocator never needs to
// branch on size: Memory uses Kind/Addr/Size (and, for a pool-bearing
// access, Op/PoolOffset), Computation uses Kind (as instruction
// class)/Arity/Op, Synchronization uses Kind/Addr (as the generic data
// word), Context uses Kind/Addr (as the instruction-boundary id, or, for
// the two function-boundary kinds, the pool offset of the function name)
// and Size (the name's length in that case).
//
// PoolOffset is only meaningful when the record's slot was produced by
// AcquireEventAndPool: it then locates the payload's first byte within
// the owning buffer's pool arena, and Size is the payload's length. Every
// pool-bearing variant (Memory with a payload, Context function-boundary
// events) records both, so the consumer can slice its own range out of the
// pool instead of relying on the buffer's cumulative pool_used counter,
// which would hand every pool-bearing event in a buffer the same bytes.
//
// Op doubles as a per-tag discriminator bit: for Computation it is reserved
// for a future per-instruction opcode classifier (spec.md §9); for Memory
// it distinguishes a plain access (Op == 0, Size is the access width) from
// one with a pool payload (Op == memoryHasPool, Size is the payload
// length) — Context doesn't need this since its own Kind already tells the
// two cases apart.
type EventRecord struct {
	Tag        Tag
	Kind       uint8
	Arity      uint8
	Op         uint8
	Size       uint32
	PoolOffset uint32
	Addr       uint64
}

// Compile-time size assertion: EventRecord must stay this size so buffer
// strides computed from it match the real struct layout.
var _ [24]byte = [unsafe.Sizeof(EventRecord{})]byte{}

// memoryHasPool flags a Memory record's Op field when its Size/PoolOffset
// describe a pool payload rather than a plain access width.
const memoryHasPool uint8 = 1

// HasPoolPayload reports whether this record carries bytes in the buffer's
// pool arena, located at [PoolOffset, PoolOffset+Size).
func (r EventRecord) HasPoolPayload() bool {
	switch r.Tag {
	case TagMemory:
		return r.Op == memoryHasPool
	case TagContext:
		return r.Kind == ContextFunctionEntry || r.Kind == ContextFunctionLeave
	default:
		return false
	}
}

// NewMemoryEvent builds a Memory-tagged record with no pool payload.
func NewMemoryEvent(kind uint8, addr uint64, size uint32) EventRecord {
	return EventRecord{Tag: TagMemory, Kind: kind, Size: size, Addr: addr}
}

// NewMemoryEventWithPool builds a Memory-tagged record whose variable-length
// payload (e.g. a resolved symbol name) lives at [poolOffset, poolOffset+size)
// in the owning buffer's pool arena.
func NewMemoryEventWithPool(kind uint8, addr uint64, poolOffset, size uint32) EventRecord {
	return EventRecord{Tag: TagMemory, Kind: kind, Op: memoryHasPool, Addr: addr, Size: size, PoolOffset: poolOffset}
}

// NewComputationEvent builds a Computation-tagged record.
func NewComputationEvent(class uint8, arity uint8) EventRecord {
	return EventRecord{Tag: TagComputation, Kind: class, Arity: arity}
}

// NewSyncEvent builds a Synchronization-tagged record.
func NewSyncEvent(kind uint8, data uint64) EventRecord {
	return EventRecord{Tag: TagSync, Kind: kind, Addr: data}
}

// NewContextEvent builds a Context-tagged record for the instruction-
// boundary kind, whose id is an opaque machine word rather than a pool
// reference.
func NewContextEvent(kind uint8, id uint64) EventRecord {
	return EventRecord{Tag: TagContext, Kind: kind, Addr: id}
}

// NewContextFunctionEvent builds a Context-tagged record for the
// function-entry/function-leave kinds: the function name of length
// nameLen lives at poolOffset in the owning buffer's pool, and per the
// data model that offset doubles as the event's id.
func NewContextFunctionEvent(kind uint8, poolOffset, nameLen uint32) EventRecord {
	return EventRecord{
		Tag:        TagContext,
		Kind:       kind,
		Addr:       uint64(poolOffset),
		Size:       nameLen,
		PoolOffset: poolOffset,
	}
}
