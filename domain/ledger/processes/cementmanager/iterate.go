package cementmanager

import (
	"github.com/lattixnet/lattixd/domain/ledger/model"
	"github.com/lattixnet/lattixd/domain/ledger/model/externalapi"
)

// iterate walks one account chain upward from bottomHash towards
// topLevelHash. It stops at the first receive block it crosses, pushing a
// receive/source pair so the source chain is resolved first, or at
// topLevelHash itself. topMostNonReceive tracks the highest non-receive
// block seen, which bounds what prepareForCementing may queue. Returns
// whether a receive was hit.
func (cm *cementManager) iterate(dbTx model.DBReadTransaction, bottomHeight uint64,
	bottomHash externalapi.BlockHash, checkpoints *hashRing,
	topMostNonReceive *externalapi.BlockHash, topLevelHash externalapi.BlockHash,
	receiveSourcePairs *receiveSourceRing, account externalapi.Account) bool {

	reachedTarget := false
	hitReceive := false
	hash := bottomHash
	numBlocks := uint64(0)
	for !hash.IsZero() && !reachedTarget && !cm.isStopped() {
		// Once a receive is cemented everything above it up to the next
		// receive can be cemented too, so store those details for later.
		numBlocks++
		block, err := cm.ledger.Block(dbTx, &hash)
		if err != nil {
			cm.fatalf("failed to read block %s while iterating account %s: %s", hash, account, err)
		}
		if block == nil {
			cm.fatalf("block %s expected in chain of account %s is not stored", hash, account)
		}

		source := block.SourceHash()
		isReceive := false
		if !source.IsZero() && !cm.ledger.IsEpochLink(&source) {
			exists, err := cm.ledger.BlockExists(dbTx, &source)
			if err != nil {
				cm.fatalf("failed to query existence of source %s: %s", source, err)
			}
			isReceive = exists
		}

		if isReceive {
			hitReceive = true
			reachedTarget = true
			sideband := block.Sideband
			var next *externalapi.BlockHash
			if !sideband.Successor.IsZero() && sideband.Successor != topLevelHash {
				successor := sideband.Successor
				next = &successor
			}
			receiveSourcePairs.pushBack(receiveSourcePair{
				receiveDetails: receiveChainDetails{
					account:      account,
					height:       sideband.Height,
					hash:         hash,
					topLevel:     topLevelHash,
					next:         next,
					bottomHeight: bottomHeight,
					bottomMost:   bottomHash,
				},
				sourceHash: source,
			})
			// Store a checkpoint when the pair ring wraps so that
			// arbitrarily long receive cascades can still be traversed to
			// the open block.
			if receiveSourcePairs.full() {
				checkpoints.pushBack(topLevelHash)
			}
		} else {
			// A send/change/epoch block which isn't the desired top level.
			*topMostNonReceive = hash
			if hash == topLevelHash {
				reachedTarget = true
			} else {
				hash = block.Sideband.Successor
			}
		}

		// The account could be very large; don't pin one read snapshot
		// for the whole walk.
		if numBlocks%cm.batchReadSize == 0 {
			err := dbTx.Refresh()
			if err != nil {
				cm.fatalf("failed to refresh the read transaction: %s", err)
			}
		}
	}

	return hitReceive
}
