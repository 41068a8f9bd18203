package rendezvous

import (
	"testing"
	"time"
)

func TestDialTimesOutWithoutConsumer(t *testing.T) {
	dir := t.TempDir()
	_, err := Dial(DialConfig{
		IPCDir:       dir,
		RegionSize:   64,
		PollInterval: 5 * time.Millisecond,
		Timeout:      30 * time.Millisecond,
	})
	if err == nil {
		t.Fatal("expected Dial to time out when no consumer ever creates the shm file")
	}
}

func TestListenThenDialRendezvous(t *testing.T) {
	dir := t.TempDir()
	const regionSize = 256

	type result struct {
		ep  *Endpoints
		err error
	}

	consumerDone := make(chan result, 1)
	go func() {
		ep, err := Listen(ListenConfig{IPCDir: dir, RegionSize: regionSize})
		consumerDone <- result{ep, err}
	}()

	// Give Listen a moment to create the fifos/shm file before the
	// producer starts polling; Dial's own poll loop would eventually
	// find them regardless, this just keeps the test fast.
	time.Sleep(10 * time.Millisecond)

	producerEP, err := Dial(DialConfig{
		IPCDir:       dir,
		RegionSize:   regionSize,
		PollInterval: 5 * time.Millisecond,
		Timeout:      2 * time.Second,
	})
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer producerEP.Close()

	res := <-consumerDone
	if res.err != nil {
		t.Fatalf("Listen failed: %v", res.err)
	}
	defer res.ep.Close()

	if len(producerEP.Region) != regionSize {
		t.Errorf("producer region size = %d, want %d", len(producerEP.Region), regionSize)
	}
	if len(res.ep.Region) != regionSize {
		t.Errorf("consumer region size = %d, want %d", len(res.ep.Region), regionSize)
	}

	// The two mmaps should observe each other's writes through the shared
	// backing file.
	producerEP.Region[0] = 0x42
	time.Sleep(5 * time.Millisecond)
	if res.ep.Region[0] != 0x42 {
		t.Errorf("consumer did not observe producer's write through shared mapping")
	}
}
