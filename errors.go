package splitrc

import "github.com/kolkov/splitrc/internal/counter"

// ErrOverflow reports that cloning a handle would push its side of the
// reference count past the high-water mark, which in practice means the
// caller is leaking clones. The failed Clone had no effect: the count
// was rolled back and every existing handle, and the allocation itself,
// remain valid.
//
// Counts far beyond this mark (within a few tens of thousands of the
// field's wraparound point) are treated as unrecoverable corruption and
// terminate the process instead, since wrapping to zero with live
// handles would free the payload under them.
var ErrOverflow = counter.ErrOverflow
