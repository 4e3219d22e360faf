package cementmanager

import (
	"sync/atomic"
	"time"

	"github.com/lattixnet/lattixd/domain/ledger/model"
	"github.com/lattixnet/lattixd/domain/ledger/model/externalapi"
	"github.com/lattixnet/lattixd/domain/ledger/writequeue"
)

// cementBlocks drains the pending-writes queue under the held write
// guard. Large chains are committed in slices of batchWriteSize blocks,
// releasing the guard between slices so block processing and pruning get
// their turn; observers are notified only after each slice is durably
// committed. The guard is released before this function returns.
func (cm *cementManager) cementBlocks(guard *writequeue.Guard) {
	batchStart := time.Now()
	var cementedBlocks []*externalapi.Block

	// The write transaction cannot read its own batched puts, so heights
	// written earlier in this drain are shadowed locally.
	updatedHeights := make(map[externalapi.Account]externalapi.ConfirmationHeightInfo)

	dbTx, err := cm.ledger.BeginWriteTransaction()
	if err != nil {
		cm.fatalf("failed to begin a write transaction: %s", err)
	}
	defer dbTx.RollbackUnlessClosed()

	for len(cm.pendingWrites) > 0 {
		pending := cm.pendingWrites[0]

		confirmationHeightInfo, ok := updatedHeights[pending.account]
		if !ok {
			confirmationHeightInfo, err = cm.ledger.ConfirmationHeight(dbTx, &pending.account)
			if err != nil {
				cm.fatalf("failed to read confirmation height for account %s: %s", pending.account, err)
			}
		}

		if pending.topHeight > confirmationHeightInfo.Height {
			// Another entry for the same account may have raised the
			// height past this entry's bottom while it sat in the queue.
			var newCementedFrontier externalapi.BlockHash
			var numBlocksConfirmed, startHeight uint64
			if pending.bottomHeight > confirmationHeightInfo.Height {
				newCementedFrontier = pending.bottomHash
				numBlocksConfirmed = pending.topHeight - pending.bottomHeight + 1
				startHeight = pending.bottomHeight
			} else {
				frontierBlock := cm.mustBlock(dbTx, &confirmationHeightInfo.Frontier)
				newCementedFrontier = frontierBlock.Sideband.Successor
				numBlocksConfirmed = pending.topHeight - confirmationHeightInfo.Height
				startHeight = confirmationHeightInfo.Height + 1
			}

			// Cementing starts at the bottom of the range and works
			// upwards, so a partial flush still leaves the invariant
			// intact: everything at or below the stored height is
			// cemented.
			hash := newCementedFrontier
			block := cm.mustBlock(dbTx, &hash)
			for totalBlocksCemented := uint64(0); numBlocksConfirmed-totalBlocksCemented != 0; totalBlocksCemented++ {
				lastIteration := numBlocksConfirmed-totalBlocksCemented == 1
				cementedBlocks = append(cementedBlocks, block)

				if uint64(len(cementedBlocks)) >= atomic.LoadUint64(&cm.batchWriteSize) && !lastIteration {
					partialInfo := externalapi.ConfirmationHeightInfo{
						Height:   startHeight + totalBlocksCemented,
						Frontier: hash,
					}
					err = cm.ledger.SetConfirmationHeight(dbTx, &pending.account, partialInfo)
					if err != nil {
						cm.fatalf("failed to write confirmation height for account %s: %s", pending.account, err)
					}
					updatedHeights[pending.account] = partialInfo

					err = dbTx.Commit()
					if err != nil {
						cm.fatalf("failed to commit cemented batch: %s", err)
					}
					cm.adjustBatchWriteSize(time.Since(batchStart), uint64(len(cementedBlocks)))

					cm.ledger.AddCemented(uint64(len(cementedBlocks)))
					guard.Release()
					cm.notifyCemented(cementedBlocks)
					cementedBlocks = nil

					// Other writers run here; re-acquire and continue the
					// same range under a fresh snapshot.
					guard = cm.writeQueue.Wait(writequeue.WriterCementing)
					dbTx, err = cm.ledger.BeginWriteTransaction()
					if err != nil {
						cm.fatalf("failed to begin a write transaction: %s", err)
					}
					batchStart = time.Now()
				}

				if !lastIteration {
					hash = block.Sideband.Successor
					block = cm.mustBlock(dbTx, &hash)
				}
			}

			newInfo := externalapi.ConfirmationHeightInfo{
				Height:   pending.topHeight,
				Frontier: pending.topHash,
			}
			err = cm.ledger.SetConfirmationHeight(dbTx, &pending.account, newInfo)
			if err != nil {
				cm.fatalf("failed to write confirmation height for account %s: %s", pending.account, err)
			}
			updatedHeights[pending.account] = newInfo
		}

		// The cache entry has served its purpose once its height is what
		// got written; a taller entry means more queued work references
		// it still.
		if cached, ok := cm.accountsConfirmed[pending.account]; ok && cached.confirmedHeight == pending.topHeight {
			delete(cm.accountsConfirmed, pending.account)
			atomic.AddUint64(&cm.accountsConfirmedSize, ^uint64(0))
		}
		cm.pendingWrites = cm.pendingWrites[1:]
		atomic.AddUint64(&cm.pendingWritesSize, ^uint64(0))
	}

	err = dbTx.Commit()
	if err != nil {
		cm.fatalf("failed to commit cemented batch: %s", err)
	}
	cm.adjustBatchWriteSize(time.Since(batchStart), uint64(len(cementedBlocks)))

	guard.Release()
	if len(cementedBlocks) > 0 {
		cm.ledger.AddCemented(uint64(len(cementedBlocks)))
		cm.notifyCemented(cementedBlocks)
	}
	cm.timer = time.Now()
}

// adjustBatchWriteSize shrinks the adaptive flush threshold by 10% when a
// commit overran its time budget, down to a floor. It never grows back:
// an environment that was slow once is assumed slow.
func (cm *cementManager) adjustBatchWriteSize(elapsed time.Duration, numBlocks uint64) {
	if numBlocks == 0 {
		return
	}
	if elapsed > maximumBatchWriteTime {
		currentSize := atomic.LoadUint64(&cm.batchWriteSize)
		newSize := currentSize - currentSize/10
		if newSize < minimumBatchWriteSize {
			newSize = minimumBatchWriteSize
		}
		if newSize != currentSize {
			atomic.StoreUint64(&cm.batchWriteSize, newSize)
			log.Debugf("Batch write size reduced from %d to %d after a %s commit of %d blocks",
				currentSize, newSize, elapsed, numBlocks)
		}
	}
}

func (cm *cementManager) mustBlock(dbTx model.DBReader, hash *externalapi.BlockHash) *externalapi.Block {
	block, err := cm.ledger.Block(dbTx, hash)
	if err != nil {
		cm.fatalf("failed to read block %s during cementing: %s", hash, err)
	}
	if block == nil {
		cm.fatalf("block %s expected during cementing is not stored", hash)
	}
	return block
}
