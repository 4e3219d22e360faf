package cementmanager

import (
	"testing"

	"github.com/lattixnet/lattixd/domain/ledger/model/externalapi"
)

func ringHash(b byte) externalapi.BlockHash {
	var hash externalapi.BlockHash
	hash[0] = b
	return hash
}

func TestHashRingPushAndOverwrite(t *testing.T) {
	ring := newHashRing(3)
	if !ring.empty() {
		t.Fatal("new ring should be empty")
	}

	ring.pushBack(ringHash(1))
	ring.pushBack(ringHash(2))
	ring.pushBack(ringHash(3))
	if ring.len() != 3 {
		t.Fatalf("expected len 3, got %d", ring.len())
	}
	if ring.back() != ringHash(3) {
		t.Fatalf("back should be the newest entry, got %s", ring.back())
	}

	// Pushing onto a full ring drops the oldest entry.
	ring.pushBack(ringHash(4))
	if ring.len() != 3 {
		t.Fatalf("overwriting push changed len to %d", ring.len())
	}
	if ring.back() != ringHash(4) {
		t.Fatalf("back after overwrite: %s", ring.back())
	}
}

func TestHashRingTruncateAt(t *testing.T) {
	ring := newHashRing(4)
	ring.pushBack(ringHash(1))
	ring.pushBack(ringHash(2))
	ring.pushBack(ringHash(3))

	// Removes the entry itself and everything newer.
	ring.truncateAt(ringHash(2))
	if ring.len() != 1 {
		t.Fatalf("expected len 1 after truncate, got %d", ring.len())
	}
	if ring.back() != ringHash(1) {
		t.Fatalf("expected only the oldest entry to remain, got %s", ring.back())
	}

	// Unknown hashes are a no-op.
	ring.truncateAt(ringHash(9))
	if ring.len() != 1 {
		t.Fatalf("truncate of an absent hash changed len to %d", ring.len())
	}

	// Truncating the oldest entry empties the ring.
	ring.truncateAt(ringHash(1))
	if !ring.empty() {
		t.Fatal("expected an empty ring")
	}
}

func TestHashRingTruncateAfterWrap(t *testing.T) {
	ring := newHashRing(3)
	for b := byte(1); b <= 5; b++ {
		ring.pushBack(ringHash(b))
	}
	// Ring now holds 3, 4, 5 with a shifted head.
	ring.truncateAt(ringHash(4))
	if ring.len() != 1 || ring.back() != ringHash(3) {
		t.Fatalf("expected [3] after wrap truncate, got len %d back %s", ring.len(), ring.back())
	}
}

func TestReceiveSourceRingStackBehavior(t *testing.T) {
	ring := newReceiveSourceRing(2)
	pair := func(b byte) receiveSourcePair {
		return receiveSourcePair{sourceHash: ringHash(b)}
	}

	ring.pushBack(pair(1))
	ring.pushBack(pair(2))
	if !ring.full() {
		t.Fatal("ring should be full")
	}
	if ring.back().sourceHash != ringHash(2) {
		t.Fatalf("back: %s", ring.back().sourceHash)
	}

	ring.popBack()
	if ring.full() || ring.len() != 1 {
		t.Fatalf("expected len 1 after pop, got %d", ring.len())
	}
	if ring.back().sourceHash != ringHash(1) {
		t.Fatalf("back after pop: %s", ring.back().sourceHash)
	}

	// Refill and overflow: the oldest pair is dropped, the newest kept.
	ring.pushBack(pair(3))
	ring.pushBack(pair(4))
	if ring.len() != 2 || ring.back().sourceHash != ringHash(4) {
		t.Fatalf("after overflow: len %d back %s", ring.len(), ring.back().sourceHash)
	}

	ring.popBack()
	if ring.back().sourceHash != ringHash(3) {
		t.Fatalf("the surviving entry should be the second newest, got %s", ring.back().sourceHash)
	}
}
