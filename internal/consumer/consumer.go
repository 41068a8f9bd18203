// Package consumer implements the reference consumer side of the event
// transport's wire contract: reading buffer-full notifications off
// fullfifo, decoding the events and pool bytes found there, and releasing
// each buffer back to the producer over emptyfifo. It exists to make the
// transport's round-trip and end-to-end properties testable within this
// repository and to back the eventpipe-drain command; it is not itself
// part of the transport's spec surface.
package consumer

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/dbitrace/eventpipe/internal/wire"
)

// Event is a decoded, consumer-friendly view of one EventRecord plus any
// pool bytes it referenced.
type Event struct {
	Buffer  int
	Slot    int
	Record  wire.EventRecord
	Payload []byte
}

// Drain reads the producer's fullfifo stream until it sees FINISHED,
// decoding every event in every buffer it's handed and invoking onEvent
// for each. After each buffer is fully decoded, Drain releases it back to
// the producer over emptyfifo before reading the next fullfifo index,
// honoring the handshake's "never read a buffer the producer might still
// be writing" invariant. On FINISHED, Drain closes its end of emptyfifo
// (the producer's Close is waiting on that closure) and returns.
func Drain(layout wire.Layout, region []byte, fullFIFO, emptyFIFO *os.File, onEvent func(Event)) error {
	for {
		idx, err := readFullIndex(fullFIFO)
		if err != nil {
			return fmt.Errorf("consumer: read fullfifo: %w", err)
		}
		if idx == finishedSentinel {
			break
		}

		if err := decodeBuffer(layout, region, int(idx), onEvent); err != nil {
			return fmt.Errorf("consumer: decode buffer %d: %w", idx, err)
		}

		if err := writeEmptyIndex(emptyFIFO, idx); err != nil {
			return fmt.Errorf("consumer: release buffer %d: %w", idx, err)
		}
	}

	if err := emptyFIFO.Close(); err != nil {
		return fmt.Errorf("consumer: close emptyfifo: %w", err)
	}
	return nil
}

func decodeBuffer(layout wire.Layout, region []byte, idx int, onEvent func(Event)) error {
	if idx < 0 || idx >= layout.NumBuffers {
		return fmt.Errorf("buffer index %d out of range [0,%d)", idx, layout.NumBuffers)
	}
	used := layout.LoadEventsUsed(region, idx)
	for slot := 0; slot < int(used); slot++ {
		rec := layout.GetEvent(region, idx, slot)
		var payload []byte
		if rec.HasPoolPayload() {
			// Each pool-bearing record carries its own offset and length,
			// so events sharing a buffer's pool each get their own exact
			// byte range rather than the buffer's cumulative contents.
			full := layout.PoolSlice(region, idx, 0)
			start, end := int(rec.PoolOffset), int(rec.PoolOffset+rec.Size)
			if end <= len(full) {
				payload = full[start:end]
			}
		}
		onEvent(Event{Buffer: idx, Slot: slot, Record: rec, Payload: payload})
	}
	return nil
}

const finishedSentinel uint32 = 0xFFFFFFFF

func readFullIndex(r *os.File) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.NativeEndian.Uint32(buf[:]), nil
}

func writeEmptyIndex(w *os.File, idx uint32) error {
	var buf [4]byte
	binary.NativeEndian.PutUint32(buf[:], idx)
	_, err := w.Write(buf[:])
	return err
}
