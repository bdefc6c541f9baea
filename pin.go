package splitrc

// PinnedTx is a write handle from a [Pin] allocation. It counts exactly
// like [Tx]; the difference is access: the payload is reachable only
// through [PinnedTx.Ref], a pointer that stays valid and stable for the
// allocation's whole lifetime, and no copying accessor is exposed.
type PinnedTx[T any] struct {
	h *Tx[T]
}

// Clone returns a new pinned write handle aliasing the same allocation.
func (p *PinnedTx[T]) Clone() (*PinnedTx[T], error) {
	h, err := p.h.Clone()
	if err != nil {
		return nil, err
	}
	return &PinnedTx[T]{h: h}, nil
}

// Ref returns the payload's stable address. The pointer is valid for as
// long as any handle of either kind is alive; holding it past the last
// Drop is a caller bug.
func (p *PinnedTx[T]) Ref() *T {
	return &p.h.live().data
}

// Drop releases this handle; semantics match [Tx.Drop], except that a
// payload implementing [PinnedNotify] is notified through its pinned
// methods.
func (p *PinnedTx[T]) Drop() {
	p.h.Drop()
}

// String delegates to the payload for diagnostics.
func (p *PinnedTx[T]) String() string {
	return p.h.String()
}

// PinnedRx is the read-side counterpart of [PinnedTx].
type PinnedRx[T any] struct {
	h *Rx[T]
}

// Clone returns a new pinned read handle aliasing the same allocation.
func (p *PinnedRx[T]) Clone() (*PinnedRx[T], error) {
	h, err := p.h.Clone()
	if err != nil {
		return nil, err
	}
	return &PinnedRx[T]{h: h}, nil
}

// Ref returns the payload's stable address; see [PinnedTx.Ref].
func (p *PinnedRx[T]) Ref() *T {
	return &p.h.live().data
}

// Drop releases this handle; see [PinnedTx.Drop].
func (p *PinnedRx[T]) Drop() {
	p.h.Drop()
}

// String delegates to the payload for diagnostics.
func (p *PinnedRx[T]) String() string {
	return p.h.String()
}
