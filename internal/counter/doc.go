// Package counter implements the packed split reference count that backs
// the splitrc handle pair.
//
// A single 64-bit atomic word holds three fields:
//
//	[ tx:31 | rx:31 | fin:2 ]
//
//   - tx: number of live write handles (bits 33-63)
//   - rx: number of live read handles (bits 2-32)
//   - fin: finalize count (bits 0-1), the race arbiter for deallocation
//
// Keeping all three fields in one word is what makes the drop path safe:
// a decrement, its classification, and any finalize bump are applied in a
// single compare-and-swap, so two goroutines dropping the last write
// handle and the last read handle at the same moment can never both
// conclude that they own deallocation.
//
// # Finalize protocol
//
// Each side of the count performs exactly one finalize bump over the
// record's lifetime:
//
//   - A side whose last drop must notify the payload (the other side is
//     live, or its teardown is still in flight) bumps fin with
//     [Split.FinishNotify] after the callback returns.
//   - A side whose last drop needs no notification (the other side has
//     fully retired) bumps fin inside the decrement CAS itself.
//
// The record is deallocated exactly once, by whichever side moves fin
// from 1 to 2. fin only ever grows and never exceeds 2.
//
// # Memory ordering
//
// Increments only need to make the new handle visible to whichever
// goroutine later decrements it; decrements need full acquire-release so
// the zero-crossing classification never acts on a stale read. Go's
// sync/atomic operations are sequentially consistent, which is strictly
// stronger than both, so every write made through a dropping handle is
// visible to the goroutine that runs the notification callback or frees
// the record.
package counter
