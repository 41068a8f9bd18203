// Package constants holds default tunables for the event transport.
package constants

import "time"

// Default buffer bank geometry.
//
// These defaults are sized for a long-running instrumentation session;
// callers with tighter memory budgets should override them in Config.
const (
	// DefaultNumBuffers is the number of buffers in the shared buffer bank.
	DefaultNumBuffers = 4

	// DefaultMaxEvents is the number of event record slots per buffer.
	DefaultMaxEvents = 8192

	// DefaultPoolBytes is the size in bytes of the variable-length byte
	// pool attached to each buffer, used for payloads such as symbol
	// names that don't fit in a fixed-size EventRecord.
	DefaultPoolBytes = 1 << 20

	// RecordSize is the fixed, C-ABI-compatible size of one EventRecord.
	RecordSize = 24

	// HeaderSize is the size of a buffer's EventsUsed/PoolUsed header.
	HeaderSize = 8
)

// Rendezvous timing.
//
// The producer polls for the shared memory region to appear before the
// consumer has had a chance to create it. These constants mirror the real
// startup latency of a cooperating consumer process: a few hundred
// milliseconds, not a tight spin.
const (
	// RendezvousPollInterval is how often the producer checks for the
	// shared memory file during startup.
	RendezvousPollInterval = 500 * time.Millisecond

	// DefaultRendezvousTimeout bounds how long the producer will wait for
	// a consumer to appear before treating startup as failed.
	DefaultRendezvousTimeout = 30 * time.Second
)

// Filesystem endpoint names, relative to a session's ipc_dir.
const (
	ShmFileName      = "shmem"
	FullFIFOName     = "fullfifo"
	EmptyFIFOName    = "emptyfifo"
)

// FinishedSentinel marks end-of-stream on the full FIFO. It is not a valid
// buffer index (indices are always < NumBuffers, which in practice never
// approaches 2^32-1).
const FinishedSentinel uint32 = 0xFFFFFFFF
