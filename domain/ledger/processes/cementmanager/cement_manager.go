package cementmanager

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/lattixnet/lattixd/domain/ledger"
	"github.com/lattixnet/lattixd/domain/ledger/model"
	"github.com/lattixnet/lattixd/domain/ledger/model/externalapi"
	"github.com/lattixnet/lattixd/domain/ledger/utils/ledgerhashing"
	"github.com/lattixnet/lattixd/domain/ledger/writequeue"
)

const (
	// defaultMaxItems bounds the checkpoint ring, the receive/source ring
	// and the pending-writes queue. Traversal memory never exceeds a
	// multiple of this regardless of chain depth.
	defaultMaxItems = 131072

	// defaultBatchReadSize is the number of blocks walked before the read
	// snapshot is refreshed, bounding how long one database snapshot is
	// pinned.
	defaultBatchReadSize = 65536

	// defaultBatchWriteSize is the initial adaptive flush threshold in
	// blocks.
	defaultBatchWriteSize = 65536

	// minimumBatchWriteSize is the floor the adaptive threshold may
	// shrink to.
	minimumBatchWriteSize = 16384

	// maximumBatchWriteTime is the wall-clock budget for applying one
	// write transaction. Exceeding it shrinks the adaptive threshold by
	// 10% so future flushes hold the write queue for shorter periods.
	maximumBatchWriteTime = 250 * time.Millisecond
)

// topAndNextHash is the walker's resumption token: the hash to process
// next and, when already known, the block that follows it in the same
// chain, sparing a lookup.
type topAndNextHash struct {
	top        externalapi.BlockHash
	next       *externalapi.BlockHash
	nextHeight uint64
}

// receiveChainDetails describes a receive block discovered mid-walk: the
// account it belongs to, where to resume in the chain that led to it, and
// the [bottomHeight..height] range now known confirmable in that account.
type receiveChainDetails struct {
	account      externalapi.Account
	height       uint64
	hash         externalapi.BlockHash
	topLevel     externalapi.BlockHash
	next         *externalapi.BlockHash
	bottomHeight uint64
	bottomMost   externalapi.BlockHash
}

// receiveSourcePair pairs a discovered receive with the source block on
// the other account's chain whose ancestry must be cemented first.
type receiveSourcePair struct {
	receiveDetails receiveChainDetails
	sourceHash     externalapi.BlockHash
}

// confirmedInfo is one burst-scoped account-cache entry, shadowing the
// stored confirmation record for accounts already visited in this burst.
type confirmedInfo struct {
	confirmedHeight  uint64
	iteratedFrontier externalapi.BlockHash
}

// writeDetails is one pending write intent: for account, everything from
// bottomHash(bottomHeight) through topHash(topHeight) is now confirmed.
type writeDetails struct {
	account      externalapi.Account
	bottomHeight uint64
	bottomHash   externalapi.BlockHash
	topHeight    uint64
	topHash      externalapi.BlockHash
}

// Config holds the cement manager's tunables.
type Config struct {
	// BatchSeparateMinTime is the minimum burst run time before a
	// finished traversal flushes even though other confirmation work is
	// still queued behind it.
	BatchSeparateMinTime time.Duration
}

type cementManager struct {
	ledger     *ledger.Ledger
	writeQueue *writequeue.WriteQueue
	config     Config

	notifyCemented          func([]*externalapi.Block)
	notifyAlreadyCemented   func(externalapi.BlockHash)
	awaitingProcessingCount func() uint64

	// processMtx serializes Process entry: concurrent requests for
	// different hashes share all burst state below.
	processMtx        sync.Mutex
	accountsConfirmed map[externalapi.Account]confirmedInfo
	pendingWrites     []writeDetails
	timer             time.Time

	maxItems             int
	batchReadSize        uint64
	pendingWritesMaxSize int

	// batchWriteSize is the shared adaptive flush threshold, read and
	// written across bursts; always accessed atomically.
	batchWriteSize uint64

	stop uint32

	// atomic mirrors of queue sizes for the diagnostics surface.
	pendingWritesSize     uint64
	accountsConfirmedSize uint64
}

// New instantiates a CementManager over the given ledger. notifyCemented
// is invoked with every batch of freshly cemented blocks after the batch
// is durably committed; notifyAlreadyCemented is invoked when a requested
// block turns out to need no work; awaitingProcessingCount reports how
// many blocks are waiting for confirmation processing elsewhere and only
// steers the batching policy.
func New(ledger *ledger.Ledger, writeQueue *writequeue.WriteQueue, config Config,
	notifyCemented func([]*externalapi.Block),
	notifyAlreadyCemented func(externalapi.BlockHash),
	awaitingProcessingCount func() uint64) model.CementManager {

	return &cementManager{
		ledger:                  ledger,
		writeQueue:              writeQueue,
		config:                  config,
		notifyCemented:          notifyCemented,
		notifyAlreadyCemented:   notifyAlreadyCemented,
		awaitingProcessingCount: awaitingProcessingCount,
		accountsConfirmed:       make(map[externalapi.Account]confirmedInfo),
		maxItems:                defaultMaxItems,
		batchReadSize:           defaultBatchReadSize,
		pendingWritesMaxSize:    defaultMaxItems,
		batchWriteSize:          defaultBatchWriteSize,
	}
}

// Stop requests a cooperative abort: the current burst unwinds without
// flushing work that was not yet queued. Already committed progress stays
// durable; unflushed pending writes are re-derived by a later Process
// call.
func (cm *cementManager) Stop() {
	atomic.StoreUint32(&cm.stop, 1)
}

func (cm *cementManager) isStopped() bool {
	return atomic.LoadUint32(&cm.stop) != 0
}

// FlushPending drains accumulated write intents outside a traversal,
// blocking until the write queue admits the cementing writer. The burst
// account cache is reset afterwards since it only shadows queued work.
func (cm *cementManager) FlushPending() {
	cm.processMtx.Lock()
	defer cm.processMtx.Unlock()

	if len(cm.pendingWrites) == 0 {
		cm.clearProcessVariables()
		return
	}
	guard := cm.writeQueue.Wait(writequeue.WriterCementing)
	cm.cementBlocks(guard)
	cm.clearProcessVariables()
}

// PendingWritesEmpty returns whether no write intents are queued.
func (cm *cementManager) PendingWritesEmpty() bool {
	return atomic.LoadUint64(&cm.pendingWritesSize) == 0
}

// PendingWritesCount returns the number of queued write intents.
func (cm *cementManager) PendingWritesCount() uint64 {
	return atomic.LoadUint64(&cm.pendingWritesSize)
}

// AccountsConfirmedCount returns the size of the burst account cache.
func (cm *cementManager) AccountsConfirmedCount() uint64 {
	return atomic.LoadUint64(&cm.accountsConfirmedSize)
}

// Process walks the account-chain lattice backward from originalBlock to
// the lowest still-unconfirmed ancestors, queues confirmation height
// advances for every completed segment, and flushes them in batches under
// the ledger write queue. See nextBlock for the traversal priority.
func (cm *cementManager) Process(originalBlock *externalapi.Block) {
	cm.processMtx.Lock()
	defer cm.processMtx.Unlock()

	if len(cm.pendingWrites) == 0 {
		// Fresh burst: the account cache and the batching timer are
		// per-burst state.
		cm.clearProcessVariables()
		cm.timer = time.Now()
	}

	originalHash := *ledgerhashing.BlockHash(originalBlock)

	var nextInReceiveChain *topAndNextHash
	checkpoints := newHashRing(cm.maxItems)
	receiveSourcePairs := newReceiveSourceRing(cm.maxItems)
	var current externalapi.BlockHash
	firstIter := true

	dbTx, err := cm.ledger.BeginReadTransaction()
	if err != nil {
		cm.fatalf("failed to begin a read transaction: %s", err)
	}
	defer dbTx.Close()

	for more := true; more; more = (!receiveSourcePairs.empty() || current != originalHash) && !cm.isStopped() {
		hashToProcess, receiveDetails := cm.nextBlock(nextInReceiveChain, checkpoints, receiveSourcePairs, originalHash)
		current = hashToProcess.top
		topLevelHash := current

		var block *externalapi.Block
		if firstIter {
			block = originalBlock
		} else {
			block, err = cm.ledger.Block(dbTx, &current)
			if err != nil {
				cm.fatalf("failed to read block %s: %s", current, err)
			}
		}

		if block == nil {
			if cm.ledger.PruningEnabled() {
				pruned, err := cm.ledger.IsPruned(dbTx, &current)
				if err != nil {
					cm.fatalf("failed to query pruned state of %s: %s", current, err)
				}
				if pruned {
					// A pruned source is an already-settled terminus.
					if !receiveSourcePairs.empty() {
						receiveSourcePairs.popBack()
					}
					continue
				}
			}
			cm.fatalf("ledger mismatch trying to set confirmation height for block %s", current)
		}

		account := block.AccountOwner()

		// Prefer the burst cache so accounts revisited within one burst
		// see heights queued but not yet committed.
		var confirmationHeightInfo externalapi.ConfirmationHeightInfo
		if cached, ok := cm.accountsConfirmed[account]; ok {
			confirmationHeightInfo = externalapi.ConfirmationHeightInfo{
				Height:   cached.confirmedHeight,
				Frontier: cached.iteratedFrontier,
			}
		} else {
			confirmationHeightInfo, err = cm.ledger.ConfirmationHeight(dbTx, &account)
			if err != nil {
				cm.fatalf("failed to read confirmation height for account %s: %s", account, err)
			}
			if firstIter && confirmationHeightInfo.Height >= block.Sideband.Height && current == originalHash {
				// The requested block needs no new work.
				cm.notifyAlreadyCemented(originalHash)
			}
		}

		blockHeight := block.Sideband.Height
		alreadyCemented := confirmationHeightInfo.Height >= blockHeight

		// Find the lowest still-unconfirmed block of this chain unless we
		// are already one above the cemented frontier.
		if !alreadyCemented && blockHeight-confirmationHeightInfo.Height > 1 {
			if blockHeight-confirmationHeightInfo.Height == 2 {
				// Exactly one block in between: it is simply the previous.
				current = block.Previous
				blockHeight--
			} else if nextInReceiveChain == nil {
				current, blockHeight = cm.leastUnconfirmedFromTopLevel(dbTx, current, account, confirmationHeightInfo, blockHeight)
			} else {
				// The cached successor of the last receive saves the
				// lookup; we already know what follows it.
				current = *hashToProcess.next
				blockHeight = hashToProcess.nextHeight
			}
		}

		topMostNonReceive := current
		hitReceive := false
		if !alreadyCemented {
			hitReceive = cm.iterate(dbTx, blockHeight, current, checkpoints, &topMostNonReceive, topLevelHash, receiveSourcePairs, account)
		}

		// A stop request is honored within one traversal step; updating a
		// long chain must not delay shutdown.
		if cm.isStopped() {
			break
		}

		wasReceiveChainResumption := nextInReceiveChain != nil
		nextInReceiveChain = nil

		// Also handle hitting a receive whose sends below should be
		// confirmed first.
		if !hitReceive || (receiveSourcePairs.len() == 1 && topMostNonReceive != current) {
			nextInReceiveChain = cm.prepareForCementing(&preparationData{
				dbTx:                   dbTx,
				topMostNonReceiveHash:  topMostNonReceive,
				alreadyCemented:        alreadyCemented,
				checkpoints:            checkpoints,
				confirmationHeightInfo: confirmationHeightInfo,
				account:                account,
				bottomHeight:           blockHeight,
				bottomMost:             current,
				receiveDetails:         receiveDetails,
			})

			// If the resumption token was used this iteration the pair it
			// came from was already popped.
			if !wasReceiveChainResumption && !receiveSourcePairs.empty() {
				receiveSourcePairs.popBack()
			}

			totalPendingBlocks := cm.totalPendingWriteBlockCount()
			maxBatchWriteSizeReached := totalPendingBlocks >= atomic.LoadUint64(&cm.batchWriteSize)
			minTimeExceeded := time.Since(cm.timer) >= cm.config.BatchSeparateMinTime
			finishedIterating := current == originalHash
			shouldOutput := finishedIterating && (cm.awaitingProcessingCount() == 0 || minTimeExceeded)
			forceWrite := len(cm.pendingWrites) >= cm.pendingWritesMaxSize ||
				len(cm.accountsConfirmed) >= cm.pendingWritesMaxSize

			if (maxBatchWriteSizeReached || shouldOutput || forceWrite) && len(cm.pendingWrites) > 0 {
				// Flush now if nothing else is using the ledger write
				// queue, otherwise keep iterating — unless the hard
				// ceiling was hit, in which case block until it frees up.
				if guard, acquired := cm.writeQueue.TryAcquire(writequeue.WriterCementing); acquired {
					cm.cementBlocks(guard)
				} else if forceWrite {
					guard := cm.writeQueue.Wait(writequeue.WriterCementing)
					cm.cementBlocks(guard)
				}
			}
		}

		firstIter = false
		err = dbTx.Refresh()
		if err != nil {
			cm.fatalf("failed to refresh the read transaction: %s", err)
		}
	}
}

// nextBlock resolves the next hash to iterate over. The priority is:
//  1. The next block in the account chain of the last handled receive.
//  2. The source of the most recently found receive (its chain must be
//     resolved before the receive can be cemented).
//  3. The most recent checkpoint.
//  4. The hash originally passed in, which also terminates the outer
//     loop once reached with an empty receive/source ring.
func (cm *cementManager) nextBlock(nextInReceiveChain *topAndNextHash, checkpoints *hashRing,
	receiveSourcePairs *receiveSourceRing, originalHash externalapi.BlockHash) (topAndNextHash, *receiveChainDetails) {

	if nextInReceiveChain != nil {
		return *nextInReceiveChain, nil
	}
	if !receiveSourcePairs.empty() {
		pair := receiveSourcePairs.back()
		receiveDetails := pair.receiveDetails
		return topAndNextHash{
			top:        pair.sourceHash,
			next:       receiveDetails.next,
			nextHeight: receiveDetails.height + 1,
		}, &receiveDetails
	}
	if !checkpoints.empty() {
		return topAndNextHash{top: checkpoints.back()}, nil
	}
	return topAndNextHash{top: originalHash}, nil
}

// leastUnconfirmedFromTopLevel finds the lowest unconfirmed block in the
// account's chain: the successor of the stored cemented frontier, or the
// open block when nothing was confirmed yet.
func (cm *cementManager) leastUnconfirmedFromTopLevel(dbTx model.DBReadTransaction,
	hash externalapi.BlockHash, account externalapi.Account,
	confirmationHeightInfo externalapi.ConfirmationHeightInfo, blockHeight uint64) (externalapi.BlockHash, uint64) {

	if confirmationHeightInfo.Height == 0 {
		accountInfo, err := cm.ledger.AccountInfo(dbTx, &account)
		if err != nil {
			cm.fatalf("failed to read account info for %s: %s", account, err)
		}
		if accountInfo == nil {
			cm.fatalf("account %s has blocks but no account info", account)
		}
		return accountInfo.Open, 1
	}

	if blockHeight > confirmationHeightInfo.Height {
		frontierBlock, err := cm.ledger.Block(dbTx, &confirmationHeightInfo.Frontier)
		if err != nil {
			cm.fatalf("failed to read cemented frontier %s: %s", confirmationHeightInfo.Frontier, err)
		}
		if frontierBlock == nil {
			cm.fatalf("cemented frontier %s of account %s is not stored", confirmationHeightInfo.Frontier, account)
		}
		return frontierBlock.Sideband.Successor, frontierBlock.Sideband.Height + 1
	}
	return hash, blockHeight
}

func (cm *cementManager) clearProcessVariables() {
	cm.accountsConfirmed = make(map[externalapi.Account]confirmedInfo)
	atomic.StoreUint64(&cm.accountsConfirmedSize, 0)
}

func (cm *cementManager) setAccountConfirmed(account externalapi.Account, info confirmedInfo) {
	_, existed := cm.accountsConfirmed[account]
	cm.accountsConfirmed[account] = info
	if !existed {
		atomic.AddUint64(&cm.accountsConfirmedSize, 1)
	}
}

func (cm *cementManager) enqueueWrite(details writeDetails) {
	cm.pendingWrites = append(cm.pendingWrites, details)
	atomic.AddUint64(&cm.pendingWritesSize, 1)
}

func (cm *cementManager) totalPendingWriteBlockCount() uint64 {
	var total uint64
	for _, details := range cm.pendingWrites {
		total += details.topHeight - details.bottomHeight + 1
	}
	return total
}

// fatalf reports an unrecoverable ledger-consistency or write-apply
// failure. There is no safe local recovery: cementing must never guess,
// so the process terminates (the panic is turned into a logged shutdown
// by the caller's spawn wrapper).
func (cm *cementManager) fatalf(format string, args ...interface{}) {
	err := errors.Errorf(format, args...)
	log.Criticalf("%+v", err)
	panic(err)
}
