package cementmanager

// receiveSourceRing is a fixed-capacity stack of receive/source pairs
// ordered oldest to newest. Pushing onto a full ring overwrites the oldest
// pair: work lost this way is recovered later through a checkpoint, which
// is what keeps traversal memory bounded on arbitrarily deep dependency
// chains.
type receiveSourceRing struct {
	items []receiveSourcePair
	head  int
	size  int
}

func newReceiveSourceRing(capacity int) *receiveSourceRing {
	return &receiveSourceRing{items: make([]receiveSourcePair, capacity)}
}

func (r *receiveSourceRing) empty() bool {
	return r.size == 0
}

func (r *receiveSourceRing) len() int {
	return r.size
}

func (r *receiveSourceRing) full() bool {
	return r.size == len(r.items)
}

// back returns the newest pair. Callers must check empty first.
func (r *receiveSourceRing) back() receiveSourcePair {
	return r.items[(r.head+r.size-1)%len(r.items)]
}

// pushBack appends a pair, overwriting the oldest entry when full.
func (r *receiveSourceRing) pushBack(pair receiveSourcePair) {
	if r.full() {
		r.items[r.head] = pair
		r.head = (r.head + 1) % len(r.items)
		return
	}
	r.items[(r.head+r.size)%len(r.items)] = pair
	r.size++
}

// popBack removes the newest pair.
func (r *receiveSourceRing) popBack() {
	if r.size > 0 {
		r.size--
	}
}
