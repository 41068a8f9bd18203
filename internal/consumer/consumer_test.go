package consumer

import (
	"sync"
	"testing"
	"time"

	"github.com/dbitrace/eventpipe/internal/rendezvous"
	"github.com/dbitrace/eventpipe/internal/transport"
	"github.com/dbitrace/eventpipe/internal/wire"
)

// TestEndToEndProducerConsumer exercises the full rendezvous -> hot path
// -> shutdown lifecycle with a real producer Transport and a real
// reference consumer, both talking over genuine named pipes and a shared
// mmap region, using the small 4-buffer, 2-event, 8-pool-byte geometry.
// It covers plain memory events across several rotations and the
// termination frame; pool payloads, backpressure, and ordering violations
// are covered by the transport and producer tests.
func TestEndToEndProducerConsumer(t *testing.T) {
	dir := t.TempDir()
	layout := wire.Layout{NumBuffers: 4, MaxEvents: 2, PoolBytes: 8}

	var wg sync.WaitGroup
	wg.Add(1)

	var consumerEP *rendezvous.Endpoints
	var consumerErr error
	go func() {
		defer wg.Done()
		consumerEP, consumerErr = rendezvous.Listen(rendezvous.ListenConfig{
			IPCDir:     dir,
			RegionSize: layout.RegionSize(),
		})
	}()

	time.Sleep(10 * time.Millisecond)
	producerEP, err := rendezvous.Dial(rendezvous.DialConfig{
		IPCDir:       dir,
		RegionSize:   layout.RegionSize(),
		PollInterval: 5 * time.Millisecond,
		Timeout:      2 * time.Second,
	})
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	wg.Wait()
	if consumerErr != nil {
		t.Fatalf("Listen failed: %v", consumerErr)
	}

	tr, err := transport.Open(transport.Config{
		Layout:    layout,
		Region:    producerEP.Region,
		FullFIFO:  producerEP.FullFIFO,
		EmptyFIFO: producerEP.EmptyFIFO,
	})
	if err != nil {
		t.Fatalf("transport.Open failed: %v", err)
	}

	var received []Event
	var recvMu sync.Mutex
	drainDone := make(chan error, 1)
	go func() {
		drainDone <- Drain(layout, consumerEP.Region, consumerEP.FullFIFO, consumerEP.EmptyFIFO, func(e Event) {
			recvMu.Lock()
			received = append(received, e)
			recvMu.Unlock()
		})
	}()

	// Emit enough events to force at least two rotations through the
	// 4-buffer, 2-event-per-buffer bank.
	for i := 0; i < 10; i++ {
		idx, slot := tr.AcquireEventSlot()
		rec := wire.NewMemoryEvent(wire.MemoryRead, uint64(0x1000+i), 8)
		layout.PutEvent(producerEP.Region, idx, slot, rec)
	}

	if err := tr.Close(); err != nil {
		t.Fatalf("transport.Close failed: %v", err)
	}

	select {
	case err := <-drainDone:
		if err != nil {
			t.Fatalf("Drain failed: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Drain did not complete after producer shutdown")
	}

	recvMu.Lock()
	defer recvMu.Unlock()
	if len(received) != 10 {
		t.Fatalf("expected 10 decoded events, got %d", len(received))
	}
	for i, e := range received {
		if e.Record.Tag != wire.TagMemory {
			t.Errorf("event %d: expected TagMemory, got %v", i, e.Record.Tag)
		}
	}
}
