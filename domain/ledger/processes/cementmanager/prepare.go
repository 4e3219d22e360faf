package cementmanager

import (
	"github.com/lattixnet/lattixd/domain/ledger/model"
	"github.com/lattixnet/lattixd/domain/ledger/model/externalapi"
)

// preparationData gathers everything one traversal step learned, feeding
// prepareForCementing.
type preparationData struct {
	dbTx                   model.DBReadTransaction
	topMostNonReceiveHash  externalapi.BlockHash
	alreadyCemented        bool
	checkpoints            *hashRing
	confirmationHeightInfo externalapi.ConfirmationHeightInfo
	account                externalapi.Account
	bottomHeight           uint64
	bottomMost             externalapi.BlockHash
	receiveDetails         *receiveChainDetails
}

// prepareForCementing converts the iterated segment into pending write
// intents and updates the burst account cache, so later steps of the same
// burst observe heights that are queued but not yet committed. When the
// handled receive has a known successor a resumption token is returned so
// the walk continues in that chain without a lookup.
func (cm *cementManager) prepareForCementing(data *preparationData) *topAndNextHash {
	var nextInReceiveChain *topAndNextHash

	if !data.alreadyCemented {
		// Queue the non-receive blocks iterated for this account.
		blockHeight := cm.blockHeight(data.dbTx, &data.topMostNonReceiveHash)
		if blockHeight > data.confirmationHeightInfo.Height {
			cm.setAccountConfirmed(data.account, confirmedInfo{
				confirmedHeight:  blockHeight,
				iteratedFrontier: data.topMostNonReceiveHash,
			})

			data.checkpoints.truncateAt(data.topMostNonReceiveHash)

			cm.enqueueWrite(writeDetails{
				account:      data.account,
				bottomHeight: data.bottomHeight,
				bottomHash:   data.bottomMost,
				topHeight:    blockHeight,
				topHash:      data.topMostNonReceiveHash,
			})
		}
	}

	// Queue the receive block and all non-receive blocks below it that
	// the walk to it covered.
	if data.receiveDetails != nil {
		receiveDetails := data.receiveDetails
		cm.setAccountConfirmed(receiveDetails.account, confirmedInfo{
			confirmedHeight:  receiveDetails.height,
			iteratedFrontier: receiveDetails.hash,
		})

		if receiveDetails.next != nil {
			nextInReceiveChain = &topAndNextHash{
				top:        receiveDetails.topLevel,
				next:       receiveDetails.next,
				nextHeight: receiveDetails.height + 1,
			}
		} else {
			data.checkpoints.truncateAt(receiveDetails.hash)
		}

		cm.enqueueWrite(writeDetails{
			account:      receiveDetails.account,
			bottomHeight: receiveDetails.bottomHeight,
			bottomHash:   receiveDetails.bottomMost,
			topHeight:    receiveDetails.height,
			topHash:      receiveDetails.hash,
		})
	}

	return nextInReceiveChain
}

// blockHeight returns the sideband height of hash, or 0 when the block is
// not stored.
func (cm *cementManager) blockHeight(dbTx model.DBReadTransaction, hash *externalapi.BlockHash) uint64 {
	height, err := cm.ledger.BlockHeight(dbTx, hash)
	if err != nil {
		cm.fatalf("failed to read height of block %s: %s", hash, err)
	}
	return height
}
