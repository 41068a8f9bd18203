package wire

import (
	"fmt"
	"sync/atomic"
	"unsafe"
)

// Layout describes the fixed geometry of one session's shared region: the
// number of buffers in the bank, the number of event slots per buffer, and
// the size of each buffer's variable-length byte pool. A Layout is fixed
// for the lifetime of the region it describes; eventpipe has no dynamic
// resizing.
type Layout struct {
	NumBuffers int
	MaxEvents  int
	PoolBytes  int
}

const (
	recordSize = int(unsafe.Sizeof(EventRecord{}))
	headerSize = 8 // EventsUsed uint32 + PoolUsed uint32
)

// Validate rejects a geometry that could not back a usable region.
func (l Layout) Validate() error {
	if l.NumBuffers <= 0 {
		return fmt.Errorf("wire: NumBuffers must be positive, got %d", l.NumBuffers)
	}
	if l.MaxEvents <= 0 {
		return fmt.Errorf("wire: MaxEvents must be positive, got %d", l.MaxEvents)
	}
	if l.PoolBytes < 0 {
		return fmt.Errorf("wire: PoolBytes must not be negative, got %d", l.PoolBytes)
	}
	return nil
}

// EventsOffset is the byte offset of a buffer's event array relative to
// the start of the buffer, i.e. just past the EventsUsed/PoolUsed header.
func (l Layout) EventsOffset() int { return headerSize }

// PoolOffset is the byte offset of a buffer's pool arena relative to the
// start of the buffer.
func (l Layout) PoolOffset() int {
	return l.EventsOffset() + l.MaxEvents*recordSize
}

// Stride is the total size in bytes of one EventBuffer: header, event
// array, and pool arena.
func (l Layout) Stride() int {
	return l.PoolOffset() + l.PoolBytes
}

// RegionSize is the total size in bytes of the shared region backing all
// NumBuffers buffers.
func (l Layout) RegionSize() int {
	return l.Stride() * l.NumBuffers
}

// BufferOffset returns the byte offset of buffer idx within the region.
func (l Layout) BufferOffset(idx int) int {
	return idx * l.Stride()
}

// bufferBase returns the unsafe.Pointer to the start of buffer idx within
// region. Callers must ensure region is at least RegionSize() bytes and
// idx is in range; both are invariants maintained by internal/transport.
func (l Layout) bufferBase(region []byte, idx int) unsafe.Pointer {
	return unsafe.Pointer(&region[l.BufferOffset(idx)])
}

// eventsUsedPtr returns the atomic-accessible pointer to buffer idx's
// EventsUsed counter.
func (l Layout) eventsUsedPtr(region []byte, idx int) *uint32 {
	return (*uint32)(l.bufferBase(region, idx))
}

// poolUsedPtr returns the atomic-accessible pointer to buffer idx's
// PoolUsed counter.
func (l Layout) poolUsedPtr(region []byte, idx int) *uint32 {
	base := l.bufferBase(region, idx)
	return (*uint32)(unsafe.Add(base, 4))
}

// LoadEventsUsed atomically reads buffer idx's EventsUsed counter.
func (l Layout) LoadEventsUsed(region []byte, idx int) uint32 {
	return atomic.LoadUint32(l.eventsUsedPtr(region, idx))
}

// StoreEventsUsed atomically writes buffer idx's EventsUsed counter.
func (l Layout) StoreEventsUsed(region []byte, idx int, v uint32) {
	atomic.StoreUint32(l.eventsUsedPtr(region, idx), v)
}

// LoadPoolUsed atomically reads buffer idx's PoolUsed counter.
func (l Layout) LoadPoolUsed(region []byte, idx int) uint32 {
	return atomic.LoadUint32(l.poolUsedPtr(region, idx))
}

// StorePoolUsed atomically writes buffer idx's PoolUsed counter.
func (l Layout) StorePoolUsed(region []byte, idx int, v uint32) {
	atomic.StoreUint32(l.poolUsedPtr(region, idx), v)
}

// eventSlotOffset returns the region byte offset of event slot `slot`
// within buffer `idx`. PutEvent/GetEvent overlay an EventRecord at that
// offset; there is no bounds check beyond a slice panic, matching the hot
// path's no-syscall, no-allocation contract.
func (l Layout) eventSlotOffset(idx, slot int) int {
	return l.BufferOffset(idx) + l.EventsOffset() + slot*recordSize
}

// PutEvent writes rec into event slot `slot` of buffer `idx`.
func (l Layout) PutEvent(region []byte, idx, slot int, rec EventRecord) {
	off := l.eventSlotOffset(idx, slot)
	p := (*EventRecord)(unsafe.Pointer(&region[off]))
	*p = rec
}

// GetEvent reads event slot `slot` of buffer `idx`.
func (l Layout) GetEvent(region []byte, idx, slot int) EventRecord {
	off := l.eventSlotOffset(idx, slot)
	p := (*EventRecord)(unsafe.Pointer(&region[off]))
	return *p
}

// PoolSlice returns the writable pool arena for buffer idx, already offset
// to the first unused byte per poolUsed.
func (l Layout) PoolSlice(region []byte, idx int, poolUsed uint32) []byte {
	start := l.BufferOffset(idx) + l.PoolOffset() + int(poolUsed)
	end := l.BufferOffset(idx) + l.PoolOffset() + l.PoolBytes
	return region[start:end]
}

// ResetBuffer zeroes a buffer's header counters, preparing it for reuse.
// Event and pool contents are left untouched; any slot beyond EventsUsed
// (now 0) is considered garbage until overwritten, per the spec's
// allocate-before-read discipline.
func (l Layout) ResetBuffer(region []byte, idx int) {
	l.StoreEventsUsed(region, idx, 0)
	l.StorePoolUsed(region, idx, 0)
}
