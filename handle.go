package splitrc

import (
	"fmt"
	"sync/atomic"

	"github.com/kolkov/splitrc/internal/counter"
)

// Tx is the write half of a split reference count. Many Tx handles may
// alias one allocation; they are fungible, and the payload's
// LastTxDidDrop callback fires when the last of them is dropped while
// the read side survives.
//
// A Tx may be sent to another goroutine, but a single handle must not be
// shared: each goroutine clones its own. Using a handle after Drop
// panics.
type Tx[T any] struct {
	rec     *record[T]
	dropped atomic.Bool
}

// Clone returns a new write handle aliasing the same allocation. The
// only failure is [ErrOverflow], in which case the count was rolled back
// and no handle was created.
func (t *Tx[T]) Clone() (*Tx[T], error) {
	r := t.live()
	if err := r.count.IncTx(); err != nil {
		return nil, fmt.Errorf("cloning write handle: %w", err)
	}
	return &Tx[T]{rec: r}, nil
}

// Value returns the shared payload. The payload is valid for as long as
// this handle (or any other handle of either kind) is alive.
func (t *Tx[T]) Value() T {
	return t.live().data
}

// Drop releases this handle. If it was the last write handle, the
// payload's last-tx callback fires while the read side survives; if it
// was the last handle of both kinds, the allocation is released.
// Dropping a handle twice panics.
func (t *Tx[T]) Drop() {
	if !t.dropped.CompareAndSwap(false, true) {
		panic("splitrc: Tx dropped twice")
	}
	r := t.rec
	t.rec = nil

	switch r.count.DecTx() {
	case counter.Unrelated:
	case counter.NotifyOther:
		r.notifyLastTx()
		if r.count.FinishNotify() {
			r.deallocate()
		}
	case counter.DeallocateNow:
		r.deallocate()
	}
}

// String delegates to the payload for diagnostics.
func (t *Tx[T]) String() string {
	return fmt.Sprint(t.live().data)
}

func (t *Tx[T]) live() *record[T] {
	if t.dropped.Load() {
		panic("splitrc: Tx used after Drop")
	}
	return t.rec
}

// Rx is the read half of a split reference count, the mirror image of
// [Tx]: cloning counts the read side, and the payload's LastRxDidDrop
// callback fires when the last read handle is dropped while the write
// side survives.
type Rx[T any] struct {
	rec     *record[T]
	dropped atomic.Bool
}

// Clone returns a new read handle aliasing the same allocation. The only
// failure is [ErrOverflow], in which case the count was rolled back and
// no handle was created.
func (x *Rx[T]) Clone() (*Rx[T], error) {
	r := x.live()
	if err := r.count.IncRx(); err != nil {
		return nil, fmt.Errorf("cloning read handle: %w", err)
	}
	return &Rx[T]{rec: r}, nil
}

// Value returns the shared payload. The payload is valid for as long as
// this handle (or any other handle of either kind) is alive.
func (x *Rx[T]) Value() T {
	return x.live().data
}

// Drop releases this handle; see [Tx.Drop] for the mirrored semantics.
func (x *Rx[T]) Drop() {
	if !x.dropped.CompareAndSwap(false, true) {
		panic("splitrc: Rx dropped twice")
	}
	r := x.rec
	x.rec = nil

	switch r.count.DecRx() {
	case counter.Unrelated:
	case counter.NotifyOther:
		r.notifyLastRx()
		if r.count.FinishNotify() {
			r.deallocate()
		}
	case counter.DeallocateNow:
		r.deallocate()
	}
}

// String delegates to the payload for diagnostics.
func (x *Rx[T]) String() string {
	return fmt.Sprint(x.live().data)
}

func (x *Rx[T]) live() *record[T] {
	if x.dropped.Load() {
		panic("splitrc: Rx used after Drop")
	}
	return x.rec
}
