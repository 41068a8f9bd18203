package eventpipe

import (
	"sync"
	"testing"
	"time"

	"github.com/dbitrace/eventpipe/internal/consumer"
	"github.com/dbitrace/eventpipe/internal/rendezvous"
	"github.com/dbitrace/eventpipe/internal/wire"
)

func TestOpenRejectsMissingIPCDir(t *testing.T) {
	_, err := Open(Config{})
	if !IsClass(err, ErrClassConfiguration) {
		t.Fatalf("expected a configuration error, got %v", err)
	}
}

func TestProducerEndToEndWithReferenceConsumer(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig(dir)
	cfg.NumBuffers = 4
	cfg.MaxEvents = 2
	cfg.PoolBytes = 8
	cfg.PollInterval = 5 * time.Millisecond
	cfg.RendezvousTimeout = 2 * time.Second

	layout := cfg.layout()

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

	p, err := Open(cfg)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	wg.Wait()
	if consumerErr != nil {
		t.Fatalf("Listen failed: %v", consumerErr)
	}

	var count int
	var events []consumer.Event
	drainDone := make(chan error, 1)
	go func() {
		drainDone <- consumer.Drain(layout, consumerEP.Region, consumerEP.FullFIFO, consumerEP.EmptyFIFO, func(e consumer.Event) {
			count++
			events = append(events, e)
		})
	}()

	p.EmitMemory(wire.MemoryRead, 0x1000, 8)
	p.EmitComputation(1, 2)
	p.EmitSync(wire.SyncLock, 42)
	p.EmitContext(wire.ContextInstruction, 7)
	p.EmitMemoryWithPayload(wire.MemoryWrite, 0x2000, []byte("abcd"))
	p.EmitContextFunction(wire.ContextFunctionEntry, []byte("alpha"))

	if err := p.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	select {
	case err := <-drainDone:
		if err != nil {
			t.Fatalf("Drain failed: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Drain did not complete")
	}

	if count != 6 {
		t.Fatalf("expected 6 decoded events, got %d", count)
	}

	snap := p.Metrics().Snapshot()
	if snap.TotalOps != 6 {
		t.Errorf("expected metrics to record 6 ops, got %d", snap.TotalOps)
	}

	var sawMemoryPayload, sawFunctionName bool
	for _, e := range events {
		switch {
		case e.Record.Tag == wire.TagMemory && e.Record.HasPoolPayload():
			if string(e.Payload) != "abcd" {
				t.Errorf("memory payload = %q, want %q", e.Payload, "abcd")
			}
			sawMemoryPayload = true
		case e.Record.Tag == wire.TagContext && e.Record.Kind == wire.ContextFunctionEntry:
			if string(e.Payload) != "alpha" {
				t.Errorf("function name payload = %q, want %q", e.Payload, "alpha")
			}
			sawFunctionName = true
		}
	}
	if !sawMemoryPayload {
		t.Error("expected a decoded memory event with a pool payload")
	}
	if !sawFunctionName {
		t.Error("expected a decoded context function-entry event")
	}
}
