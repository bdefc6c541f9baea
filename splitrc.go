package splitrc

import "github.com/kolkov/splitrc/internal/counter"

// record is the shared heap block behind one handle pair: the payload,
// the packed counter that is the sole arbiter of its lifetime, and the
// payload's optional contracts resolved once at allocation.
//
// No single handle owns the record; it is owned jointly by the set of
// all live handles, tracked only through the counter. The record is
// never moved after allocation, so the payload's address is stable for
// its entire lifetime.
type record[T any] struct {
	data  T
	count counter.Split

	// Contracts resolved against the payload at allocation time; nil
	// where the payload opts out. Resolving once keeps type assertions
	// off the drop path.
	notify  Notify
	pinned  PinnedNotify
	dispose Disposer
}

func newRecord[T any](data T, pin bool) *record[T] {
	r := &record[T]{data: data}
	r.count.Init()

	// Prefer methods reachable through &r.data: for a value payload
	// this covers both value and pointer receivers, and the receiver
	// is the record's own slot rather than a copy. A payload that is
	// itself a pointer type is matched directly.
	if n, ok := any(&r.data).(Notify); ok {
		r.notify = n
	} else if n, ok := any(r.data).(Notify); ok {
		r.notify = n
	}
	if pin {
		if pn, ok := any(&r.data).(PinnedNotify); ok {
			r.pinned = pn
		} else if pn, ok := any(r.data).(PinnedNotify); ok {
			r.pinned = pn
		}
	}
	if d, ok := any(&r.data).(Disposer); ok {
		r.dispose = d
	} else if d, ok := any(r.data).(Disposer); ok {
		r.dispose = d
	}
	return r
}

// notifyLastTx delivers the last-write-handle event, preferring the
// pinned variant on pinned records.
func (r *record[T]) notifyLastTx() {
	if r.pinned != nil {
		r.pinned.LastTxDidDropPinned()
		return
	}
	if r.notify != nil {
		r.notify.LastTxDidDrop()
	}
}

// notifyLastRx delivers the last-read-handle event.
func (r *record[T]) notifyLastRx() {
	if r.pinned != nil {
		r.pinned.LastRxDidDropPinned()
		return
	}
	if r.notify != nil {
		r.notify.LastRxDidDrop()
	}
}

// deallocate releases the record. The counter has proven both sides
// empty and finalized, so exactly one goroutine ever gets here per
// allocation. The payload's Dispose hook runs first; the memory itself
// is reclaimed by the garbage collector once the last handle clears its
// pointer.
func (r *record[T]) deallocate() {
	if r.dispose != nil {
		r.dispose.Dispose()
	}
}

// New allocates a shared record holding data and returns the initial
// handle pair, one write handle and one read handle, with the counter at
// one write, one read.
//
// data should usually be a pointer type (or implement its callbacks on
// value receivers); see [Notify] for the callback contract.
func New[T any](data T) (*Tx[T], *Rx[T]) {
	r := newRecord(data, false)
	return &Tx[T]{rec: r}, &Rx[T]{rec: r}
}

// Pin allocates like [New] but returns pinned handles: the payload is
// reachable only by stable pointer (no copying accessor is exposed) and
// notifications prefer the payload's [PinnedNotify] methods. Counting
// behavior is identical to [New].
func Pin[T any](data T) (*PinnedTx[T], *PinnedRx[T]) {
	r := newRecord(data, true)
	return &PinnedTx[T]{h: &Tx[T]{rec: r}}, &PinnedRx[T]{h: &Rx[T]{rec: r}}
}
