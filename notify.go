package splitrc

// Notify lets a payload learn when the last write handle or the last
// read handle referencing it is dropped. Implementing it is optional:
// the interface is resolved against the payload once, at allocation
// time, and payloads that do not implement it simply receive no
// callbacks.
//
// Over one allocation's lifetime each callback fires at most once, and a
// callback fires only when the opposite side is still live at that
// moment (or the two sides' last drops overlap, in which case both fire,
// possibly concurrently). If one side retires completely and the other
// side's last handle drops afterwards, the later side gets no callback;
// the callbacks report asymmetric survival, not mere destruction.
//
// Both callbacks run on the goroutine that dropped the last handle,
// while the payload is still fully valid. To avoid deadlock they must
// not acquire a lock that may be held around the Drop call that
// triggered them.
type Notify interface {
	// LastTxDidDrop is called when the last Tx is dropped.
	LastTxDidDrop()

	// LastRxDidDrop is called when the last Rx is dropped.
	LastRxDidDrop()
}

// NoNotify is an embeddable no-op implementation of Notify. Payloads
// that only care about one side embed it and override one method.
type NoNotify struct{}

// LastTxDidDrop implements Notify as a no-op.
func (NoNotify) LastTxDidDrop() {}

// LastRxDidDrop implements Notify as a no-op.
func (NoNotify) LastRxDidDrop() {}

// PinnedNotify is the pinned-reference variant of Notify, used only for
// allocations made with [Pin]. Implement the methods on the pointer type
// so the receiver is the payload's stable address (the address never
// changes for the allocation's lifetime), suitable for registering the
// payload elsewhere by identity.
//
// A pinned allocation whose payload implements PinnedNotify has its
// notifications delivered through these methods; otherwise delivery
// falls back to the plain Notify methods.
type PinnedNotify interface {
	// LastTxDidDropPinned is called when the last PinnedTx is dropped.
	LastTxDidDropPinned()

	// LastRxDidDropPinned is called when the last PinnedRx is dropped.
	LastRxDidDropPinned()
}

// Disposer is implemented by payloads that need teardown when the
// allocation is released. Dispose runs exactly once, after all handles
// of both kinds are gone and any fired notification callbacks have
// returned.
type Disposer interface {
	Dispose()
}
