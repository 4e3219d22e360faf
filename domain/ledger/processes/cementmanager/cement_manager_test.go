package cementmanager

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/davecgh/go-spew/spew"

	"github.com/lattixnet/lattixd/domain/ledger/model/externalapi"
	"github.com/lattixnet/lattixd/domain/ledger/writequeue"
)

func TestCementSingleChain(t *testing.T) {
	tc := setupTestContext(t)

	chain := newTestChain(testAccount(1))
	openHash := chain.addOpen(unstoredSource(1))
	chain.addSend()
	chain.addSend()
	chain.store(tc)
	tc.setConfirmationHeight(chain.account, 1, openHash)

	tc.manager.Process(chain.block(3))

	expected := []externalapi.BlockHash{chain.hash(2), chain.hash(3)}
	got := tc.cementedHashes()
	if len(got) != len(expected) {
		t.Fatalf("expected %d cemented blocks, got: %s", len(expected), spew.Sdump(tc.cementedBatches))
	}
	for i, hash := range expected {
		if got[i] != hash {
			t.Fatalf("cemented block %d: expected %s, got %s", i, hash, got[i])
		}
	}

	info := tc.confirmationHeight(chain.account)
	if info.Height != 3 || info.Frontier != chain.hash(3) {
		t.Fatalf("expected confirmation height {3, %s}, got {%d, %s}",
			chain.hash(3), info.Height, info.Frontier)
	}
	if len(tc.alreadyCemented) != 0 {
		t.Fatalf("unexpected already-cemented notifications: %v", tc.alreadyCemented)
	}
	if !tc.manager.PendingWritesEmpty() {
		t.Fatal("pending writes should be drained")
	}
}

func TestCementFromUnconfirmedAccount(t *testing.T) {
	tc := setupTestContext(t)

	chain := newTestChain(testAccount(1))
	chain.addOpen(unstoredSource(1))
	chain.addSend()
	chain.store(tc)

	// No confirmation record at all: cementing the frontier must walk
	// down to the open block.
	tc.manager.Process(chain.block(2))

	got := tc.cementedHashes()
	if len(got) != 2 || got[0] != chain.hash(1) || got[1] != chain.hash(2) {
		t.Fatalf("expected [open, send] cemented, got: %s", spew.Sdump(tc.cementedBatches))
	}
	info := tc.confirmationHeight(chain.account)
	if info.Height != 2 || info.Frontier != chain.hash(2) {
		t.Fatalf("unexpected confirmation record {%d, %s}", info.Height, info.Frontier)
	}
}

func TestAlreadyCemented(t *testing.T) {
	tc := setupTestContext(t)

	chain := newTestChain(testAccount(1))
	chain.addOpen(unstoredSource(1))
	chain.addSend()
	chain.addSend()
	chain.store(tc)
	tc.setConfirmationHeight(chain.account, 3, chain.hash(3))

	tc.manager.Process(chain.block(2))

	if len(tc.cementedBatches) != 0 {
		t.Fatalf("nothing should be cemented, got: %s", spew.Sdump(tc.cementedBatches))
	}
	if len(tc.alreadyCemented) != 1 || tc.alreadyCemented[0] != chain.hash(2) {
		t.Fatalf("expected a single already-cemented notification for %s, got %v",
			chain.hash(2), tc.alreadyCemented)
	}
	info := tc.confirmationHeight(chain.account)
	if info.Height != 3 {
		t.Fatalf("confirmation height must not move, got %d", info.Height)
	}
}

func TestReprocessingIsIdempotent(t *testing.T) {
	tc := setupTestContext(t)

	chain := newTestChain(testAccount(1))
	chain.addOpen(unstoredSource(1))
	chain.addSend()
	chain.store(tc)

	tc.manager.Process(chain.block(2))
	cementedOnce := len(tc.cementedHashes())

	tc.manager.Process(chain.block(2))

	if len(tc.cementedHashes()) != cementedOnce {
		t.Fatalf("reprocessing cemented additional blocks: %s", spew.Sdump(tc.cementedBatches))
	}
	if len(tc.alreadyCemented) != 1 || tc.alreadyCemented[0] != chain.hash(2) {
		t.Fatalf("expected one already-cemented notification, got %v", tc.alreadyCemented)
	}
	if tc.ledger.CementedCount() != 2 {
		t.Fatalf("expected 2 total cemented blocks, got %d", tc.ledger.CementedCount())
	}
}

func TestCementAcrossReceive(t *testing.T) {
	tc := setupTestContext(t)

	sender := newTestChain(testAccount(1))
	sender.addOpen(unstoredSource(1))
	sendHash := sender.addSend()
	sender.store(tc)

	recipient := newTestChain(testAccount(2))
	recipient.addOpen(sendHash)
	recipient.store(tc)

	// Cementing the recipient's open block must cement the sender's
	// whole chain first.
	tc.manager.Process(recipient.block(1))

	got := tc.cementedHashes()
	expected := []externalapi.BlockHash{sender.hash(1), sender.hash(2), recipient.hash(1)}
	if len(got) != len(expected) {
		t.Fatalf("expected %d cemented blocks, got: %s", len(expected), spew.Sdump(tc.cementedBatches))
	}
	for i, hash := range expected {
		if got[i] != hash {
			t.Fatalf("cemented block %d out of causal order: expected %s, got %s", i, hash, got[i])
		}
	}

	senderInfo := tc.confirmationHeight(sender.account)
	if senderInfo.Height != 2 || senderInfo.Frontier != sendHash {
		t.Fatalf("sender confirmation record {%d, %s}", senderInfo.Height, senderInfo.Frontier)
	}
	recipientInfo := tc.confirmationHeight(recipient.account)
	if recipientInfo.Height != 1 || recipientInfo.Frontier != recipient.hash(1) {
		t.Fatalf("recipient confirmation record {%d, %s}", recipientInfo.Height, recipientInfo.Frontier)
	}
}

func TestCementReceiveCascadeWithTinyRings(t *testing.T) {
	tc := setupTestContext(t)

	// Force the checkpoint and receive/source rings to wrap constantly.
	tc.manager.maxItems = 2

	const numAccounts = 6
	chains := make([]*testChain, numAccounts)
	var previousSend externalapi.BlockHash
	for i := 0; i < numAccounts; i++ {
		chain := newTestChain(testAccount(byte(10 + i)))
		if i == 0 {
			chain.addOpen(unstoredSource(1))
		} else {
			chain.addReceive(previousSend)
		}
		if i < numAccounts-1 {
			previousSend = chain.addSend()
		}
		chain.store(tc)
		chains[i] = chain
	}

	last := chains[numAccounts-1]
	tc.manager.Process(last.block(uint64(len(last.blocks))))

	// Every block of every chain must end up cemented exactly once
	// despite the dropped ring entries.
	seen := make(map[externalapi.BlockHash]int)
	for _, hash := range tc.cementedHashes() {
		seen[hash]++
	}
	var expectedTotal int
	for _, chain := range chains {
		expectedTotal += len(chain.blocks)
		for _, hash := range chain.hashes {
			if seen[hash] != 1 {
				t.Fatalf("block %s cemented %d times", hash, seen[hash])
			}
		}
		info := tc.confirmationHeight(chain.account)
		if info.Height != uint64(len(chain.blocks)) || info.Frontier != chain.frontier() {
			t.Fatalf("account %s confirmation record {%d, %s}, want {%d, %s}",
				chain.account, info.Height, info.Frontier, len(chain.blocks), chain.frontier())
		}
	}
	if len(seen) != expectedTotal {
		t.Fatalf("expected %d distinct cemented blocks, got %d", expectedTotal, len(seen))
	}
}

func TestConfirmationHeightNeverRegresses(t *testing.T) {
	tc := setupTestContext(t)

	chain := newTestChain(testAccount(1))
	chain.addOpen(unstoredSource(1))
	chain.addSend()
	chain.addSend()
	chain.store(tc)

	tc.manager.Process(chain.block(3))
	if info := tc.confirmationHeight(chain.account); info.Height != 3 {
		t.Fatalf("expected height 3, got %d", info.Height)
	}

	// A stale request for a lower block must not move the record back.
	tc.manager.Process(chain.block(1))
	info := tc.confirmationHeight(chain.account)
	if info.Height != 3 || info.Frontier != chain.hash(3) {
		t.Fatalf("confirmation record regressed to {%d, %s}", info.Height, info.Frontier)
	}
}

func TestSplitCommitsRespectBatchWriteSize(t *testing.T) {
	tc := setupTestContext(t)
	atomic.StoreUint64(&tc.manager.batchWriteSize, 2)

	chain := newTestChain(testAccount(1))
	chain.addOpen(unstoredSource(1))
	for i := 0; i < 4; i++ {
		chain.addSend()
	}
	chain.store(tc)

	tc.manager.Process(chain.block(5))

	if len(tc.cementedBatches) < 2 {
		t.Fatalf("expected multiple commit batches, got: %s", spew.Sdump(tc.cementedBatches))
	}
	var total int
	for i, batch := range tc.cementedBatches {
		if len(batch) > 2 && i != len(tc.cementedBatches)-1 {
			t.Fatalf("batch %d exceeds the write size: %d blocks", i, len(batch))
		}
		total += len(batch)
	}
	if total != 5 {
		t.Fatalf("expected 5 cemented blocks across batches, got %d", total)
	}
	info := tc.confirmationHeight(chain.account)
	if info.Height != 5 || info.Frontier != chain.hash(5) {
		t.Fatalf("confirmation record {%d, %s}", info.Height, info.Frontier)
	}
}

func TestDeferredFlushUnderLoad(t *testing.T) {
	tc := setupTestContext(t)

	// Pretend more confirmation work is queued behind us and the burst
	// just started: a finished traversal should then keep its writes
	// pending to batch them with the upcoming work.
	atomic.StoreUint64(&tc.awaitingCount, 5)
	tc.manager.config.BatchSeparateMinTime = time.Hour

	chain := newTestChain(testAccount(1))
	chain.addOpen(unstoredSource(1))
	chain.addSend()
	chain.store(tc)

	tc.manager.Process(chain.block(2))

	if tc.manager.PendingWritesEmpty() {
		t.Fatal("writes should still be pending")
	}
	if len(tc.cementedBatches) != 0 {
		t.Fatalf("nothing should be flushed yet, got: %s", spew.Sdump(tc.cementedBatches))
	}
	if info := tc.confirmationHeight(chain.account); info.Height != 0 {
		t.Fatalf("confirmation height written prematurely: %d", info.Height)
	}

	tc.manager.FlushPending()

	if !tc.manager.PendingWritesEmpty() {
		t.Fatal("pending writes should be drained")
	}
	if len(tc.cementedHashes()) != 2 {
		t.Fatalf("expected 2 cemented blocks after the flush, got: %s", spew.Sdump(tc.cementedBatches))
	}
	if info := tc.confirmationHeight(chain.account); info.Height != 2 {
		t.Fatalf("expected confirmation height 2, got %d", info.Height)
	}
}

func TestForcedWriteBlocksUntilQueueFrees(t *testing.T) {
	tc := setupTestContext(t)
	tc.manager.pendingWritesMaxSize = 1

	chain := newTestChain(testAccount(1))
	chain.addOpen(unstoredSource(1))
	chain.addSend()
	chain.store(tc)

	// Hold the write queue with another writer so TryAcquire fails and
	// the forced write has to block for its turn.
	guard := tc.writeQueue.Wait(writequeue.WriterTesting)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		tc.manager.Process(chain.block(2))
	}()

	time.Sleep(50 * time.Millisecond)
	if !tc.writeQueue.Contains(writequeue.WriterCementing) {
		t.Error("the cementing writer should be waiting on the queue")
	}
	guard.Release()
	wg.Wait()

	if len(tc.cementedHashes()) != 2 {
		t.Fatalf("expected 2 cemented blocks, got: %s", spew.Sdump(tc.cementedBatches))
	}
}

func TestUnstoredSourceIsNotAReceive(t *testing.T) {
	tc := setupTestContext(t)

	// A receive whose source block is not stored (sent from outside the
	// ledger, or long since pruned) must not trigger a source-chain
	// walk; it cements like any other block.
	recipient := newTestChain(testAccount(2))
	recipient.addReceive(unstoredSource(7))
	recipient.store(tc)

	tc.manager.Process(recipient.block(1))

	got := tc.cementedHashes()
	if len(got) != 1 || got[0] != recipient.hash(1) {
		t.Fatalf("expected only the receive cemented, got: %s", spew.Sdump(tc.cementedBatches))
	}
}

func TestStopAbortsTraversal(t *testing.T) {
	tc := setupTestContext(t)

	chain := newTestChain(testAccount(1))
	chain.addOpen(unstoredSource(1))
	for i := 0; i < 20; i++ {
		chain.addSend()
	}
	chain.store(tc)

	tc.manager.Stop()
	tc.manager.Process(chain.block(21))

	if info := tc.confirmationHeight(chain.account); info.Height != 0 {
		t.Fatalf("stopped manager still wrote height %d", info.Height)
	}
}

func TestAdjustBatchWriteSizeShrinksOnSlowCommits(t *testing.T) {
	tc := setupTestContext(t)

	atomic.StoreUint64(&tc.manager.batchWriteSize, 100000)
	tc.manager.adjustBatchWriteSize(maximumBatchWriteTime+time.Millisecond, 100000)
	if got := atomic.LoadUint64(&tc.manager.batchWriteSize); got != 90000 {
		t.Fatalf("expected shrink to 90000, got %d", got)
	}

	// Fast commits leave the threshold alone.
	tc.manager.adjustBatchWriteSize(time.Millisecond, 90000)
	if got := atomic.LoadUint64(&tc.manager.batchWriteSize); got != 90000 {
		t.Fatalf("threshold moved on a fast commit: %d", got)
	}

	// The floor holds.
	atomic.StoreUint64(&tc.manager.batchWriteSize, minimumBatchWriteSize)
	tc.manager.adjustBatchWriteSize(maximumBatchWriteTime+time.Millisecond, minimumBatchWriteSize)
	if got := atomic.LoadUint64(&tc.manager.batchWriteSize); got != minimumBatchWriteSize {
		t.Fatalf("threshold fell through the floor: %d", got)
	}
}

func TestLedgerCementedCounter(t *testing.T) {
	tc := setupTestContext(t)

	chain := newTestChain(testAccount(1))
	chain.addOpen(unstoredSource(1))
	chain.addSend()
	chain.addSend()
	chain.store(tc)

	tc.manager.Process(chain.block(3))

	if got := tc.ledger.CementedCount(); got != 3 {
		t.Fatalf("expected cemented counter 3, got %d", got)
	}
}
