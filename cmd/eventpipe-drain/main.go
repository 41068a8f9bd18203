// Command eventpipe-drain is a reference consumer: it performs rendezvous
// as the listening side of an eventpipe transport, decodes every event the
// producer emits, and prints or archives them until the producer signals
// FINISHED.
package main

import (
	"fmt"
	"os"

	"github.com/golang/snappy"
	pkgerrors "github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/dbitrace/eventpipe/internal/consumer"
	"github.com/dbitrace/eventpipe/internal/rendezvous"
	"github.com/dbitrace/eventpipe/internal/wire"
)

func main() {
	app := &cli.App{
		Name:  "eventpipe-drain",
		Usage: "listen for and decode events from a shared-memory eventpipe transport",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "ipc-dir",
				Aliases:  []string{"d"},
				Usage:    "directory to create the shared memory file and named pipes in",
				Required: true,
			},
			&cli.IntFlag{Name: "buffers", Value: 4, Usage: "number of ring buffers (must match the producer)"},
			&cli.IntFlag{Name: "max-events", Value: 8192, Usage: "events per buffer (must match the producer)"},
			&cli.IntFlag{Name: "pool-bytes", Value: 1 << 20, Usage: "byte pool size per buffer (must match the producer)"},
			&cli.StringFlag{Name: "archive", Usage: "append snappy-compressed event records to this file instead of printing them"},
			&cli.BoolFlag{Name: "quiet", Aliases: []string{"q"}, Usage: "suppress per-event output"},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "eventpipe-drain: %v\n", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	layout := wire.Layout{
		NumBuffers: c.Int("buffers"),
		MaxEvents:  c.Int("max-events"),
		PoolBytes:  c.Int("pool-bytes"),
	}
	if err := layout.Validate(); err != nil {
		return pkgerrors.Wrap(err, "invalid buffer geometry")
	}

	endpoints, err := rendezvous.Listen(rendezvous.ListenConfig{
		IPCDir:     c.String("ipc-dir"),
		RegionSize: layout.RegionSize(),
	})
	if err != nil {
		return pkgerrors.Wrap(err, "rendezvous listen")
	}
	defer endpoints.Close()

	var archiver *eventArchiver
	if path := c.String("archive"); path != "" {
		archiver, err = newEventArchiver(path)
		if err != nil {
			return pkgerrors.Wrap(err, "open archive")
		}
		defer archiver.Close()
	}

	quiet := c.Bool("quiet")
	count := 0
	onEvent := func(ev consumer.Event) {
		count++
		if archiver != nil {
			if err := archiver.Write(ev); err != nil {
				fmt.Fprintf(os.Stderr, "eventpipe-drain: archive write failed: %v\n", err)
			}
		}
		if !quiet && archiver == nil {
			fmt.Printf("[%d] buf=%d slot=%d tag=%s kind=%d addr=%#x size=%d payload=%d\n",
				count, ev.Buffer, ev.Slot, ev.Record.Tag, ev.Record.Kind, ev.Record.Addr, ev.Record.Size, len(ev.Payload))
		}
	}

	err = consumer.Drain(layout, endpoints.Region, endpoints.FullFIFO, endpoints.EmptyFIFO, onEvent)
	if err != nil {
		return pkgerrors.Wrap(err, "drain")
	}

	fmt.Fprintf(os.Stderr, "eventpipe-drain: received %d events\n", count)
	return nil
}

// eventArchiver appends snappy-compressed, length-prefixed event records to
// a file, for offline replay or analysis of a captured session.
type eventArchiver struct {
	f *os.File
	w *snappy.Writer
}

func newEventArchiver(path string) (*eventArchiver, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return &eventArchiver{f: f, w: snappy.NewBufferedWriter(f)}, nil
}

func (a *eventArchiver) Write(ev consumer.Event) error {
	var buf [20]byte
	buf[0] = byte(ev.Record.Tag)
	buf[1] = ev.Record.Kind
	buf[2] = ev.Record.Arity
	buf[3] = ev.Record.Op
	putUint32(buf[4:8], ev.Record.Size)
	putUint64(buf[8:16], ev.Record.Addr)
	putUint32(buf[16:20], uint32(len(ev.Payload)))
	if _, err := a.w.Write(buf[:]); err != nil {
		return err
	}
	_, err := a.w.Write(ev.Payload)
	return err
}

func (a *eventArchiver) Close() error {
	if err := a.w.Close(); err != nil {
		return err
	}
	return a.f.Close()
}

func putUint32(b []byte, v uint32) {
	b[0], b[1], b[2], b[3] = byte(v), byte(v>>8), byte(v>>16), byte(v>>24)
}

func putUint64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
}
