// Command splitrc-stress soak-tests the split reference count under
// real scheduler pressure: many goroutines cloning, accessing, and
// dropping both handle kinds against shared allocations, with the
// library's invariants checked after every allocation's lifetime.
//
// It complements the package's -race test suite with long, randomized
// runs:
//
//	splitrc-stress --writers 64 --readers 64 --allocs 10000 --churn 256
//
// The run fails loudly (non-zero exit) if any allocation is disposed
// zero or multiple times, or if a last-of-kind callback fires more than
// once.
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kolkov/splitrc"
)

type options struct {
	writers int
	readers int
	allocs  int
	churn   int
	verbose bool
}

func main() {
	opts := options{}

	cmd := &cobra.Command{
		Use:   "splitrc-stress",
		Short: "Soak-test the splitrc handle state machine",
		Long: `Soak-test the splitrc handle state machine.

Each allocation is shared between a pool of writer goroutines and a pool
of reader goroutines. Every goroutine clones its handle, touches the
payload, and drops the clone, a configurable number of times; the last
drops of both kinds race on purpose. After each allocation the tool
checks that the payload was disposed exactly once and that each
last-of-kind callback fired at most once.`,
		Version:       splitrc.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(opts)
		},
	}

	cmd.Flags().IntVar(&opts.writers, "writers", 32, "writer goroutines per allocation")
	cmd.Flags().IntVar(&opts.readers, "readers", 32, "reader goroutines per allocation")
	cmd.Flags().IntVar(&opts.allocs, "allocs", 1000, "allocations to cycle through")
	cmd.Flags().IntVar(&opts.churn, "churn", 64, "clone/drop rounds per goroutine")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "log per-allocation progress")

	if err := cmd.Execute(); err != nil {
		slog.Error("stress run failed", "error", err)
		os.Exit(1)
	}
}

// probe is the shared payload: it counts accesses and lifecycle events
// so every invariant is checkable after the allocation dies.
type probe struct {
	accesses  atomic.Int64
	txDrops   atomic.Int32
	rxDrops   atomic.Int32
	disposals atomic.Int32
}

func (p *probe) LastTxDidDrop() { p.txDrops.Add(1) }
func (p *probe) LastRxDidDrop() { p.rxDrops.Add(1) }
func (p *probe) Dispose()       { p.disposals.Add(1) }

func (p *probe) verify() error {
	if n := p.disposals.Load(); n != 1 {
		return fmt.Errorf("payload disposed %d times, want 1", n)
	}
	if n := p.txDrops.Load(); n > 1 {
		return fmt.Errorf("last-tx callback fired %d times", n)
	}
	if n := p.rxDrops.Load(); n > 1 {
		return fmt.Errorf("last-rx callback fired %d times", n)
	}
	if p.txDrops.Load()+p.rxDrops.Load() == 0 {
		return errors.New("neither last-of-kind callback fired")
	}
	return nil
}

func run(opts options) error {
	log := slog.New(slog.NewTextHandler(os.Stderr, nil))
	log.Info("starting soak run",
		"writers", opts.writers,
		"readers", opts.readers,
		"allocs", opts.allocs,
		"churn", opts.churn,
	)

	started := time.Now()
	var totalAccesses int64

	for i := 0; i < opts.allocs; i++ {
		p := &probe{}
		if err := cycle(p, opts); err != nil {
			return fmt.Errorf("allocation %d: %w", i, err)
		}
		totalAccesses += p.accesses.Load()
		if opts.verbose && (i+1)%100 == 0 {
			log.Info("progress", "allocs", i+1, "accesses", totalAccesses)
		}
	}

	log.Info("soak run passed",
		"allocs", opts.allocs,
		"accesses", totalAccesses,
		"elapsed", time.Since(started).Round(time.Millisecond),
	)
	return nil
}

// cycle runs one allocation through its full lifetime and verifies the
// payload's event counts afterwards.
func cycle(p *probe, opts options) error {
	tx, rx := splitrc.New(p)

	var g errgroup.Group
	for w := 0; w < opts.writers; w++ {
		h, err := tx.Clone()
		if err != nil {
			return err
		}
		g.Go(func() error { return churn(txHandle{h}, opts.churn) })
	}
	for r := 0; r < opts.readers; r++ {
		h, err := rx.Clone()
		if err != nil {
			return err
		}
		g.Go(func() error { return churn(rxHandle{h}, opts.churn) })
	}

	// Drop the anchors first so the workers' final drops decide the
	// allocation's fate; the last tx and last rx routinely race.
	tx.Drop()
	rx.Drop()

	if err := g.Wait(); err != nil {
		return err
	}
	return p.verify()
}

// handle is the common surface of Tx[*probe] and Rx[*probe] the churn
// worker needs.
type handle interface {
	Value() *probe
	Drop()
}

// churners for the two kinds share one body via small adapters.
type txHandle struct{ *splitrc.Tx[*probe] }
type rxHandle struct{ *splitrc.Rx[*probe] }

func (h txHandle) clone() (handle, error) {
	c, err := h.Tx.Clone()
	if err != nil {
		return nil, err
	}
	return txHandle{c}, nil
}

func (h rxHandle) clone() (handle, error) {
	c, err := h.Rx.Clone()
	if err != nil {
		return nil, err
	}
	return rxHandle{c}, nil
}

type cloner interface {
	handle
	clone() (handle, error)
}

func churn(h cloner, rounds int) error {
	for i := 0; i < rounds; i++ {
		c, err := h.clone()
		if err != nil {
			h.Drop()
			return err
		}
		c.Value().accesses.Add(1)
		c.Drop()
	}
	h.Value().accesses.Add(1)
	h.Drop()
	return nil
}
