package model

import "github.com/lattixnet/lattixd/domain/ledger/model/externalapi"

// PrunedStore represents the set of block hashes whose contents have been
// pruned from the ledger. A pruned block is known to have existed and to
// have been cemented, but its body is no longer stored.
type PrunedStore interface {
	// Has returns whether the given hash is recorded as pruned.
	Has(dbContext DBReader, blockHash *externalapi.BlockHash) (bool, error)

	// Put records the given hash as pruned.
	Put(dbTx DBWriteTransaction, blockHash *externalapi.BlockHash) error
}
