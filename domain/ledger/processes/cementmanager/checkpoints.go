package cementmanager

import (
	"github.com/lattixnet/lattixd/domain/ledger/model/externalapi"
)

// hashRing is a fixed-capacity buffer of block hashes ordered oldest to
// newest. When full, pushing overwrites the oldest entry. The cement
// manager stores traversal checkpoints in one of these: dropping the
// oldest checkpoint is safe because a dropped chain prefix is re-derived
// from the original hash once everything deeper has been cemented.
type hashRing struct {
	items []externalapi.BlockHash
	head  int
	size  int
}

func newHashRing(capacity int) *hashRing {
	return &hashRing{items: make([]externalapi.BlockHash, capacity)}
}

func (r *hashRing) empty() bool {
	return r.size == 0
}

func (r *hashRing) len() int {
	return r.size
}

// back returns the newest entry. Callers must check empty first.
func (r *hashRing) back() externalapi.BlockHash {
	return r.items[(r.head+r.size-1)%len(r.items)]
}

// pushBack appends a hash, overwriting the oldest entry when full.
func (r *hashRing) pushBack(hash externalapi.BlockHash) {
	if r.size == len(r.items) {
		r.items[r.head] = hash
		r.head = (r.head + 1) % len(r.items)
		return
	}
	r.items[(r.head+r.size)%len(r.items)] = hash
	r.size++
}

// truncateAt removes the oldest occurrence of the given hash together with
// every newer entry. A hash is truncated once the chain segment it marks
// has been fully resolved; everything pushed after it belonged to that
// segment's dependencies. No-op when the hash is not present.
func (r *hashRing) truncateAt(hash externalapi.BlockHash) {
	for i := 0; i < r.size; i++ {
		if r.items[(r.head+i)%len(r.items)] == hash {
			r.size = i
			return
		}
	}
}
