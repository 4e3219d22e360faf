package model

import "github.com/lattixnet/lattixd/domain/ledger/model/externalapi"

// BlockStore represents a store of blocks keyed by their hash.
type BlockStore interface {
	// Block gets the block associated with the given hash. It returns
	// database.ErrNotFound if the block is not stored.
	Block(dbContext DBReader, blockHash *externalapi.BlockHash) (*externalapi.Block, error)

	// HasBlock returns whether a block with the given hash is stored.
	HasBlock(dbContext DBReader, blockHash *externalapi.BlockHash) (bool, error)

	// Put stores the given block and returns its hash.
	Put(dbTx DBWriteTransaction, block *externalapi.Block) (*externalapi.BlockHash, error)
}
