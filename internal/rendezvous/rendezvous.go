// Package rendezvous implements the startup handshake (C1) of the event
// transport: locating the shared memory region a consumer has prepared,
// mapping it, and performing the blocking FIFO opens that provide the
// final producer/consumer rendezvous.
package rendezvous

import (
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"github.com/dbitrace/eventpipe/internal/constants"
)

// Endpoints is the set of open handles a producer or consumer holds after
// a successful rendezvous.
type Endpoints struct {
	Region    []byte
	FullFIFO  *os.File
	EmptyFIFO *os.File
}

// Close unmaps the region and closes both FIFOs. Safe to call on a
// partially-populated Endpoints (e.g. if Dial failed partway through).
func (e *Endpoints) Close() error {
	var firstErr error
	if e.Region != nil {
		if err := unix.Munmap(e.Region); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("rendezvous: munmap: %w", err)
		}
		e.Region = nil
	}
	if e.FullFIFO != nil {
		if err := e.FullFIFO.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("rendezvous: close fullfifo: %w", err)
		}
		e.FullFIFO = nil
	}
	if e.EmptyFIFO != nil {
		if err := e.EmptyFIFO.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("rendezvous: close emptyfifo: %w", err)
		}
		e.EmptyFIFO = nil
	}
	return firstErr
}

// DialConfig parameterizes the producer side of the rendezvous.
type DialConfig struct {
	IPCDir       string
	RegionSize   int
	PollInterval time.Duration
	Timeout      time.Duration
}

// Dial implements the producer side of the rendezvous (spec §4.1): poll
// for the consumer-created shared memory file to appear, map it, then
// perform the two blocking FIFO opens that provide the final handshake.
// Both opens block until the consumer has the complementary end open;
// this is the producer's confirmation that a consumer is ready to drain
// the transport, not merely that the files exist.
func Dial(cfg DialConfig) (*Endpoints, error) {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = constants.RendezvousPollInterval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = constants.DefaultRendezvousTimeout
	}

	shmPath := cfg.IPCDir + "/" + constants.ShmFileName
	fullPath := cfg.IPCDir + "/" + constants.FullFIFOName
	emptyPath := cfg.IPCDir + "/" + constants.EmptyFIFOName

	fd, err := pollOpenShm(shmPath, cfg.PollInterval, cfg.Timeout)
	if err != nil {
		return nil, err
	}
	defer unix.Close(fd)

	region, err := unix.Mmap(fd, 0, cfg.RegionSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("rendezvous: mmap %s: %w", shmPath, err)
	}

	// Each open blocks until the consumer has the complementary end open,
	// which is the final rendezvous signal. Because each open blocks, both
	// sides must open the two FIFOs in the same order or neither returns;
	// emptyfifo is opened first here, and Listen opens it first as well.
	emptyFIFO, err := os.OpenFile(emptyPath, os.O_RDONLY, 0)
	if err != nil {
		_ = unix.Munmap(region)
		return nil, fmt.Errorf("rendezvous: open %s: %w", emptyPath, err)
	}

	fullFIFO, err := os.OpenFile(fullPath, os.O_WRONLY, 0)
	if err != nil {
		_ = unix.Munmap(region)
		_ = emptyFIFO.Close()
		return nil, fmt.Errorf("rendezvous: open %s: %w", fullPath, err)
	}

	return &Endpoints{Region: region, FullFIFO: fullFIFO, EmptyFIFO: emptyFIFO}, nil
}

// pollOpenShm waits for the shared memory file to exist and opens it
// read-write. It sleeps for real between attempts (a bounded, low-rate
// poll) rather than busy-waiting, since startup latency is measured in
// the consumer's own setup time, not microseconds.
func pollOpenShm(path string, interval, timeout time.Duration) (int, error) {
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		fd, err := unix.Open(path, unix.O_RDWR, 0)
		if err == nil {
			return fd, nil
		}
		lastErr = err
		if err != unix.ENOENT {
			return -1, fmt.Errorf("rendezvous: open %s: %w", path, err)
		}
		time.Sleep(interval)
	}
	return -1, fmt.Errorf("rendezvous: timed out waiting for %s: %w", path, lastErr)
}

// ListenConfig parameterizes the consumer side of the rendezvous.
type ListenConfig struct {
	IPCDir     string
	RegionSize int
}

// Listen implements the consumer side of the rendezvous: it creates the
// shared memory file and both named pipes, then performs the
// complementary blocking opens. Listen is not part of the transport's own
// spec surface — it exists so the reference consumer (and this package's
// tests) can exercise the real handshake end to end instead of mocking
// the kernel.
func Listen(cfg ListenConfig) (*Endpoints, error) {
	shmPath := cfg.IPCDir + "/" + constants.ShmFileName
	fullPath := cfg.IPCDir + "/" + constants.FullFIFOName
	emptyPath := cfg.IPCDir + "/" + constants.EmptyFIFOName

	if err := createFifoIfAbsent(fullPath); err != nil {
		return nil, err
	}
	if err := createFifoIfAbsent(emptyPath); err != nil {
		return nil, err
	}

	fd, err := unix.Open(shmPath, unix.O_RDWR|unix.O_CREAT|unix.O_TRUNC, 0600)
	if err != nil {
		return nil, fmt.Errorf("rendezvous: create %s: %w", shmPath, err)
	}
	defer unix.Close(fd)

	if err := unix.Ftruncate(fd, int64(cfg.RegionSize)); err != nil {
		return nil, fmt.Errorf("rendezvous: truncate %s: %w", shmPath, err)
	}

	region, err := unix.Mmap(fd, 0, cfg.RegionSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("rendezvous: mmap %s: %w", shmPath, err)
	}

	// Complementary to Dial's open order: emptyfifo (write) first, then
	// fullfifo (read).
	emptyFIFO, err := os.OpenFile(emptyPath, os.O_WRONLY, 0)
	if err != nil {
		_ = unix.Munmap(region)
		return nil, fmt.Errorf("rendezvous: open %s: %w", emptyPath, err)
	}

	fullFIFO, err := os.OpenFile(fullPath, os.O_RDONLY, 0)
	if err != nil {
		_ = unix.Munmap(region)
		_ = emptyFIFO.Close()
		return nil, fmt.Errorf("rendezvous: open %s: %w", fullPath, err)
	}

	return &Endpoints{Region: region, FullFIFO: fullFIFO, EmptyFIFO: emptyFIFO}, nil
}

func createFifoIfAbsent(path string) error {
	err := unix.Mkfifo(path, 0600)
	if err != nil && err != unix.EEXIST {
		return fmt.Errorf("rendezvous: mkfifo %s: %w", path, err)
	}
	return nil
}
