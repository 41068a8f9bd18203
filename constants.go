package eventpipe

import "github.com/dbitrace/eventpipe/internal/constants"

// Re-exported defaults for the public API.
const (
	DefaultNumBuffers = constants.DefaultNumBuffers
	DefaultMaxEvents  = constants.DefaultMaxEvents
	DefaultPoolBytes  = constants.DefaultPoolBytes
	RecordSize        = constants.RecordSize
)

// Wire event kinds, re-exported so callers don't need to import
// internal/wire directly.
const (
	MemoryRead  = 0
	MemoryWrite = 1
)
