package counter

import (
	"errors"
	"fmt"
	"os"
	"sync/atomic"
)

// Word layout: [ tx:31 | rx:31 | fin:2 ].
//
// 31 bits per handle kind is enough for any sane program; two billion
// live clones of one handle is an accident, not a workload. The two
// finalize bits only ever count to 2.
const (
	finBits   = 2
	fieldBits = 31

	finMask   = uint64(1)<<finBits - 1
	fieldMask = uint64(1)<<fieldBits - 1

	rxShift = finBits
	txShift = finBits + fieldBits

	txUnit  = uint64(1) << txShift
	rxUnit  = uint64(1) << rxShift
	finUnit = uint64(1)

	// initState encodes one write handle, one read handle, nothing
	// finalized. This is the state every fresh allocation starts in.
	initState = txUnit + rxUnit

	// finalized is the terminal finalize count: both sides retired.
	finalized = 2
)

// Overflow thresholds for a single handle-kind field.
//
// A count in [overflowWarn, overflowAbort) is almost certainly a handle
// leak in the caller; the increment is rolled back and reported as a
// recoverable error. A count at or past overflowAbort means the field is
// within 2^16 increments of wrapping to zero while handles are live,
// which would free the record under them. By then the counting state is
// already corrupt, so the process is terminated instead.
//
// The exact values are tuning parameters, not a contract. Any placement
// that leaves tens of thousands of increments of headroom works.
const (
	overflowWarn  uint32 = 1 << 30
	overflowAbort uint32 = uint32(fieldMask) - 1<<16
)

// ErrOverflow is returned when cloning a handle would push its side of
// the count past the high-water mark. The increment has been rolled back
// and every existing handle remains valid.
var ErrOverflow = errors.New("splitrc: reference count overflow")

// abortProcess terminates the process on unrecoverable counter
// corruption. Overridden in tests; nothing else may touch it.
var abortProcess = func() {
	fmt.Fprintln(os.Stderr, "splitrc: reference count reached the abort threshold; counting state is corrupt")
	os.Exit(2)
}

// Outcome classifies what the caller of a decrement must do next.
type Outcome uint8

const (
	// Unrelated means other handles of the same kind remain. Nothing
	// further to do.
	Unrelated Outcome = iota

	// NotifyOther means this was the last handle of its kind and the
	// payload's matching callback must run, followed by FinishNotify.
	NotifyOther

	// DeallocateNow means both sides are gone and fully retired; the
	// caller owns deallocation and no callback fires.
	DeallocateNow
)

// String returns the outcome name for diagnostics.
func (o Outcome) String() string {
	switch o {
	case Unrelated:
		return "Unrelated"
	case NotifyOther:
		return "NotifyOther"
	case DeallocateNow:
		return "DeallocateNow"
	default:
		return "Outcome(invalid)"
	}
}

// Split is the packed tri-field reference count. The zero value is NOT
// ready for use; call Init first.
type Split struct {
	state atomic.Uint64
}

// Init sets the counter to its initial one-write, one-read state.
// Called exactly once, before the counter is shared.
func (c *Split) Init() {
	c.state.Store(initState)
}

// IncTx adds one write handle. Returns ErrOverflow (with the increment
// rolled back) past the high-water mark; aborts the process past the
// abort threshold.
func (c *Split) IncTx() error {
	n := txOf(c.state.Add(txUnit))
	if n < overflowWarn {
		return nil
	}
	return c.incOverflow(txUnit, n)
}

// IncRx adds one read handle. Same overflow behavior as IncTx.
func (c *Split) IncRx() error {
	n := rxOf(c.state.Add(rxUnit))
	if n < overflowWarn {
		return nil
	}
	return c.incOverflow(rxUnit, n)
}

// incOverflow is the cold path shared by both increments.
func (c *Split) incOverflow(unit uint64, n uint32) error {
	if n >= overflowAbort {
		abortProcess() // does not return outside of tests
		return ErrOverflow
	}
	c.state.Add(^unit + 1) // two's-complement subtract: undo the increment
	return ErrOverflow
}

// DecTx removes one write handle and classifies the zero crossing.
func (c *Split) DecTx() Outcome {
	return c.dec(txShift, rxShift)
}

// DecRx removes one read handle and classifies the zero crossing.
func (c *Split) DecRx() Outcome {
	return c.dec(rxShift, txShift)
}

// dec is the shared decrement transaction. Reading the word, deciding
// the outcome, and applying any finalize bump are one CAS; splitting
// them would let two goroutines racing on opposite sides both claim
// deallocation, or both skip it.
func (c *Split) dec(ownShift, otherShift uint) Outcome {
	for {
		old := c.state.Load()
		own := field(old, ownShift)
		other := field(old, otherShift)
		fin := finOf(old)

		if own == 0 {
			panic("splitrc: handle count underflow (drop without a live handle)")
		}

		next := old - uint64(1)<<ownShift
		var out Outcome
		switch {
		case own > 1:
			out = Unrelated
		case other > 0:
			out = NotifyOther
		case fin == 0:
			// The counterpart's last drop is somewhere between its
			// zero crossing and its finalize bump: the two last drops
			// overlap. Both sides notify; fin arbitrates who frees.
			out = NotifyOther
		case fin == 1:
			// The counterpart notified (or had nothing to notify) and
			// recorded finalization. This side retires silently and,
			// by moving fin to 2 in the same CAS, wins deallocation.
			next += finUnit
			out = DeallocateNow
		default:
			panic("splitrc: finalize count corrupt (record already retired)")
		}

		if c.state.CompareAndSwap(old, next) {
			return out
		}
	}
}

// FinishNotify records that this side has finished its last-handle
// teardown (callback included). Reports true when the caller moved the
// finalize count to 2 and therefore owns deallocation.
//
// A plain fetch-add suffices: fin is only ever incremented, at most once
// per side, and the add cannot disturb the neighboring fields.
func (c *Split) FinishNotify() bool {
	return finOf(c.state.Add(finUnit)) == finalized
}

// Counts returns the current field values. Diagnostics and tests only;
// the values may be stale by the time the caller looks at them.
func (c *Split) Counts() (tx, rx, fin uint32) {
	w := c.state.Load()
	return txOf(w), rxOf(w), finOf(w)
}

// String renders the counter state, e.g. "tx=2 rx=1 fin=0".
func (c *Split) String() string {
	tx, rx, fin := c.Counts()
	return fmt.Sprintf("tx=%d rx=%d fin=%d", tx, rx, fin)
}

func txOf(w uint64) uint32 { return uint32(w >> txShift) }

func rxOf(w uint64) uint32 { return uint32(w>>rxShift) & uint32(fieldMask) }

func finOf(w uint64) uint32 { return uint32(w & finMask) }

func field(w uint64, shift uint) uint32 {
	return uint32(w>>shift) & uint32(fieldMask)
}
