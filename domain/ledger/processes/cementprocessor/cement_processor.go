package cementprocessor

import (
	"sync"
	"sync/atomic"

	"github.com/lattixnet/lattixd/domain/ledger"
	"github.com/lattixnet/lattixd/domain/ledger/model"
	"github.com/lattixnet/lattixd/domain/ledger/model/externalapi"
	"github.com/lattixnet/lattixd/domain/ledger/processes/cementmanager"
	"github.com/lattixnet/lattixd/domain/ledger/utils/ledgerhashing"
	"github.com/lattixnet/lattixd/domain/ledger/writequeue"
)

// CementProcessor owns the single cementing goroutine. Blocks that
// achieved quorum are queued with Add; the worker feeds them one at a
// time into the cement manager and fans results out to the registered
// observers. Observers run on the worker goroutine, after the relevant
// write transaction committed.
type CementProcessor struct {
	manager model.CementManager

	mtx  sync.Mutex
	cond *sync.Cond

	// awaiting is the FIFO of quorum-confirmed blocks not yet handed to
	// the manager, deduplicated by hash via awaitingSet.
	awaiting     []*externalapi.Block
	awaitingSet  map[externalapi.BlockHash]struct{}
	awaitingSize uint64

	// originalHashesPending holds hashes handed to the manager whose
	// confirmation work may not have been flushed yet, so callers can
	// still observe them as in flight.
	originalHashesPending map[externalapi.BlockHash]struct{}
	originalBlock         *externalapi.Block

	paused  bool
	stopped bool
	done    chan struct{}

	cementedObservers        []func([]*externalapi.Block)
	alreadyCementedObservers []func(externalapi.BlockHash)
}

// Config holds the processor's tunables and is passed through to the
// cement manager.
type Config = cementmanager.Config

// New builds a CementProcessor over the given ledger and write queue.
// Call Start to launch the worker.
func New(ledger *ledger.Ledger, writeQueue *writequeue.WriteQueue, config Config) *CementProcessor {
	cp := &CementProcessor{
		awaitingSet:           make(map[externalapi.BlockHash]struct{}),
		originalHashesPending: make(map[externalapi.BlockHash]struct{}),
		done:                  make(chan struct{}),
	}
	cp.cond = sync.NewCond(&cp.mtx)
	cp.manager = cementmanager.New(ledger, writeQueue, config,
		cp.notifyCemented, cp.notifyAlreadyCemented, cp.AwaitingProcessingCount)
	return cp
}

// Start launches the worker goroutine.
func (cp *CementProcessor) Start() {
	spawn(func() {
		defer close(cp.done)
		cp.run()
	})
}

// Stop aborts in-flight traversal, wakes the worker and waits for it to
// exit. Work already committed stays durable; anything else is re-derived
// when the same blocks are added again.
func (cp *CementProcessor) Stop() {
	cp.mtx.Lock()
	cp.stopped = true
	cp.manager.Stop()
	cp.cond.Broadcast()
	cp.mtx.Unlock()
	<-cp.done
	log.Infof("Cement processor stopped")
}

// Add queues a quorum-confirmed block for cementing. Duplicate hashes
// already waiting are ignored.
func (cp *CementProcessor) Add(block *externalapi.Block) {
	hash := *ledgerhashing.BlockHash(block)

	cp.mtx.Lock()
	if _, ok := cp.awaitingSet[hash]; !ok {
		cp.awaiting = append(cp.awaiting, block)
		cp.awaitingSet[hash] = struct{}{}
		atomic.AddUint64(&cp.awaitingSize, 1)
	}
	cp.mtx.Unlock()
	cp.cond.Signal()
}

// AwaitingProcessingCount returns how many blocks wait in the queue. The
// manager uses it to decide whether a finished traversal should flush
// immediately or batch with the work behind it.
func (cp *CementProcessor) AwaitingProcessingCount() uint64 {
	return atomic.LoadUint64(&cp.awaitingSize)
}

// IsProcessingAddedBlock reports whether hash is queued or was handed to
// the manager and not yet flushed out.
func (cp *CementProcessor) IsProcessingAddedBlock(hash externalapi.BlockHash) bool {
	cp.mtx.Lock()
	defer cp.mtx.Unlock()
	if _, ok := cp.awaitingSet[hash]; ok {
		return true
	}
	_, ok := cp.originalHashesPending[hash]
	return ok
}

// Pause halts dequeuing without stopping the worker. Queued blocks keep
// accumulating until Unpause.
func (cp *CementProcessor) Pause() {
	cp.mtx.Lock()
	cp.paused = true
	cp.mtx.Unlock()
}

// Unpause resumes dequeuing.
func (cp *CementProcessor) Unpause() {
	cp.mtx.Lock()
	cp.paused = false
	cp.mtx.Unlock()
	cp.cond.Broadcast()
}

// AddCementedObserver registers a callback invoked with every batch of
// freshly cemented blocks, after the batch committed. Register before
// Start.
func (cp *CementProcessor) AddCementedObserver(observer func([]*externalapi.Block)) {
	cp.mtx.Lock()
	defer cp.mtx.Unlock()
	cp.cementedObservers = append(cp.cementedObservers, observer)
}

// AddAlreadyCementedObserver registers a callback invoked when an added
// block turns out to already be at or below its account's confirmation
// height. Register before Start.
func (cp *CementProcessor) AddAlreadyCementedObserver(observer func(externalapi.BlockHash)) {
	cp.mtx.Lock()
	defer cp.mtx.Unlock()
	cp.alreadyCementedObservers = append(cp.alreadyCementedObservers, observer)
}

// PendingWritesCount exposes the manager's unflushed write-intent count.
func (cp *CementProcessor) PendingWritesCount() uint64 {
	return cp.manager.PendingWritesCount()
}

// AccountsConfirmedCount exposes the size of the manager's burst account
// cache.
func (cp *CementProcessor) AccountsConfirmedCount() uint64 {
	return cp.manager.AccountsConfirmedCount()
}

func (cp *CementProcessor) run() {
	cp.mtx.Lock()
	defer cp.mtx.Unlock()
	for !cp.stopped {
		if !cp.paused && len(cp.awaiting) > 0 {
			if cp.manager.PendingWritesEmpty() {
				// Everything handed over so far has been flushed.
				cp.originalHashesPending = make(map[externalapi.BlockHash]struct{})
			}
			block := cp.setNextBlock()
			cp.mtx.Unlock()
			cp.manager.Process(block)
			cp.mtx.Lock()
		} else if !cp.paused && !cp.manager.PendingWritesEmpty() {
			// Nothing queued but a burst left unflushed intents behind;
			// land them now rather than waiting for more traffic.
			cp.mtx.Unlock()
			cp.manager.FlushPending()
			cp.mtx.Lock()
			cp.originalBlock = nil
			cp.originalHashesPending = make(map[externalapi.BlockHash]struct{})
		} else {
			cp.originalBlock = nil
			cp.originalHashesPending = make(map[externalapi.BlockHash]struct{})
			cp.cond.Wait()
		}
	}
}

// setNextBlock pops the queue front and marks its hash as in flight.
// Caller holds the mutex.
func (cp *CementProcessor) setNextBlock() *externalapi.Block {
	block := cp.awaiting[0]
	cp.awaiting = cp.awaiting[1:]
	hash := *ledgerhashing.BlockHash(block)
	delete(cp.awaitingSet, hash)
	atomic.AddUint64(&cp.awaitingSize, ^uint64(0))
	cp.originalBlock = block
	cp.originalHashesPending[hash] = struct{}{}
	return block
}

func (cp *CementProcessor) notifyCemented(blocks []*externalapi.Block) {
	cp.mtx.Lock()
	observers := cp.cementedObservers
	cp.mtx.Unlock()
	for _, observer := range observers {
		observer(blocks)
	}
	log.Debugf("Notified observers of %d cemented blocks", len(blocks))
}

func (cp *CementProcessor) notifyAlreadyCemented(hash externalapi.BlockHash) {
	cp.mtx.Lock()
	observers := cp.alreadyCementedObservers
	cp.mtx.Unlock()
	for _, observer := range observers {
		observer(hash)
	}
}
