// Package splitrc provides a reference-counted allocation shared between
// two kinds of handles: a write handle ([Tx]) and a read handle ([Rx]).
//
// Both kinds are independently cloneable and independently counted, and
// the shared payload is told, exactly once, when the last handle of
// either kind disappears while handles of the other kind still exist.
// The allocation itself is released exactly once, when every handle of
// both kinds is gone. This lets channel-like or observer-like objects
// react to "all writers left" or "all readers left" without a separate
// signaling mechanism.
//
// # Quick Start
//
//	type inbox struct {
//		splitrc.NoNotify
//		closed atomic.Bool
//	}
//
//	// Called when the last write handle drops while readers remain.
//	func (b *inbox) LastTxDidDrop() { b.closed.Store(true) }
//
//	func main() {
//		tx, rx := splitrc.New(&inbox{})
//		// hand tx to producers, rx to consumers; each side may
//		// Clone() freely and must Drop() every handle it holds.
//		rx2, _ := rx.Clone()
//		tx.Drop()          // last writer: inbox.LastTxDidDrop fires
//		rx.Drop()
//		rx2.Drop()         // last handle overall: allocation released
//	}
//
// # API Overview
//
//   - Allocation: [New], [Pin]
//   - Handles: [Tx], [Rx], [PinnedTx], [PinnedRx]
//   - Payload contracts: [Notify] (with [NoNotify] defaults),
//     [PinnedNotify], [Disposer]
//   - Errors: [ErrOverflow]
//
// # How It Works
//
// Every allocation carries a single 64-bit atomic word packing the write
// count, the read count, and a two-bit finalize count. Cloning a handle
// increments its side; dropping decrements it. A decrement that takes a
// side to zero classifies itself in the same compare-and-swap: either
// other handles of that kind remain, or the payload must be notified, or
// both sides are gone and the record is released. The finalize count
// arbitrates the one genuinely hard race, the last write handle and the
// last read handle dropping from different goroutines at the same
// moment: each side records its teardown, and whichever moves the count
// from 1 to 2 releases the allocation, strictly after both callbacks
// have returned.
//
// # Concurrency
//
// Handles may be sent freely between goroutines and the payload may be
// read through any number of live handles at once; the handle layer adds
// no locking of its own, and the payload remains valid for as long as at
// least one handle of either kind is alive. Clone and Drop are lock-free
// (a bounded retry on one atomic word). Notification callbacks run on
// the goroutine that dropped the last handle; they must not acquire a
// lock that may already be held around that Drop call.
package splitrc
