package transport

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/dbitrace/eventpipe/internal/constants"
)

// writeIndex writes a single u32 buffer index (or the FINISHED sentinel)
// to fullfifo in native byte order. Both ends of the pipe are always the
// same machine, so there's no cross-machine byte-order concern to guard
// against, unlike the historical wire format this protocol descends from.
func writeIndex(w *os.File, idx uint32) error {
	var buf [4]byte
	binary.NativeEndian.PutUint32(buf[:], idx)
	_, err := w.Write(buf[:])
	if err != nil {
		return fmt.Errorf("transport: write fullfifo: %w", err)
	}
	return nil
}

// readIndex performs a single blocking read of one u32 buffer index from
// emptyfifo. It loops only to assemble a full 4-byte message across short
// reads (a named pipe may deliver a write in more than one read() call);
// it does not retry on EOF or spin polling for data, which the original
// transport's startup dialect did.
func readIndex(r *os.File) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, fmt.Errorf("transport: read emptyfifo: %w", err)
	}
	return binary.NativeEndian.Uint32(buf[:]), nil
}

// drainToEOF reads and discards from r until EOF, used during shutdown to
// wait for the consumer to close its end of emptyfifo after processing
// the final buffer.
func drainToEOF(r *os.File) error {
	var buf [4]byte
	for {
		_, err := r.Read(buf[:])
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("transport: drain emptyfifo: %w", err)
		}
	}
}

const finished = constants.FinishedSentinel
