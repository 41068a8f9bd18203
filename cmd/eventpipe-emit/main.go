// Command eventpipe-emit is a synthetic producer harness: it opens an
// eventpipe transport against a waiting consumer and emits a generated
// stream of memory, computation, sync, and context events until told to
// stop, for exercising a consumer without a real instrumented program.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/dbitrace/eventpipe"
	"github.com/dbitrace/eventpipe/internal/eventgen"
	"github.com/dbitrace/eventpipe/internal/logging"
	"github.com/dbitrace/eventpipe/internal/wire"
)

func main() {
	app := &cli.App{
		Name:  "eventpipe-emit",
		Usage: "emit a synthetic event stream over a shared-memory eventpipe transport",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "ipc-dir",
				Aliases:  []string{"d"},
				Usage:    "directory holding the shared memory file and named pipes",
				Required: true,
			},
			&cli.IntFlag{Name: "buffers", Value: eventpipe.DefaultNumBuffers, Usage: "number of ring buffers"},
			&cli.IntFlag{Name: "max-events", Value: eventpipe.DefaultMaxEvents, Usage: "events per buffer"},
			&cli.IntFlag{Name: "pool-bytes", Value: eventpipe.DefaultPoolBytes, Usage: "byte pool size per buffer"},
			&cli.DurationFlag{Name: "rate", Value: time.Millisecond, Usage: "delay between emitted events"},
			&cli.Int64Flag{Name: "seed", Value: 1, Usage: "generator seed"},
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "enable debug logging"},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "eventpipe-emit: %v\n", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	logLevel := logging.LevelInfo
	if c.Bool("verbose") {
		logLevel = logging.LevelDebug
	}
	logger := logging.NewLogger(&logging.Config{Level: logLevel, Output: os.Stderr})
	logging.SetDefault(logger)

	cfg := eventpipe.DefaultConfig(c.String("ipc-dir"))
	cfg.NumBuffers = c.Int("buffers")
	cfg.MaxEvents = c.Int("max-events")
	cfg.PoolBytes = c.Int("pool-bytes")
	cfg.Logger = logger

	logger.Info("waiting for consumer rendezvous", "ipc_dir", cfg.IPCDir)
	producer, err := eventpipe.Open(cfg)
	if err != nil {
		return fmt.Errorf("open producer: %w", err)
	}
	logger.Info("rendezvous complete, emitting events")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	gen := eventgen.NewGenerator(c.Int64("seed"))
	ticker := time.NewTicker(c.Duration("rate"))
	defer ticker.Stop()

	var emitted uint64
loop:
	for {
		select {
		case <-sigCh:
			logger.Info("received shutdown signal", "emitted", emitted)
			break loop
		case <-ticker.C:
			rec, payload, ok := gen.Next()
			if !ok {
				continue
			}
			emitRecord(producer, gen, rec, payload)
			emitted++
		}
	}

	if err := producer.Close(); err != nil {
		return fmt.Errorf("close producer: %w", err)
	}

	if snap := producer.Metrics(); snap != nil {
		s := snap.Snapshot()
		logger.Info("shutdown complete", "total_ops", s.TotalOps, "rotations", s.Rotations, "blocked_rotations", s.BlockedRotations)
	}
	return nil
}

// emitRecord dispatches a synthetic wire.EventRecord to the matching
// Producer.Emit method. The generator and the producer both speak the
// same four-tag vocabulary, but Producer's API takes individual fields
// rather than a pre-built EventRecord, so this switch is the bridge.
func emitRecord(p *eventpipe.Producer, gen *eventgen.Generator, rec wire.EventRecord, payload []byte) {
	switch rec.Tag {
	case wire.TagMemory:
		if len(payload) > 0 {
			p.EmitMemoryWithPayload(rec.Kind, rec.Addr, payload)
		} else {
			p.EmitMemory(rec.Kind, rec.Addr, rec.Size)
		}
	case wire.TagComputation:
		p.EmitComputation(rec.Kind, rec.Arity)
	case wire.TagSync:
		p.EmitSync(rec.Kind, rec.Addr)
	case wire.TagContext:
		switch rec.Kind {
		case wire.ContextFunctionEntry, wire.ContextFunctionLeave:
			p.EmitContextFunction(rec.Kind, payload)
		default:
			p.EmitContext(rec.Kind, rec.Addr)
		}
	}
}
