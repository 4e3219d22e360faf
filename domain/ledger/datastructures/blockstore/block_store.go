package blockstore

import (
	"github.com/lattixnet/lattixd/domain/ledger/model"
	"github.com/lattixnet/lattixd/domain/ledger/model/externalapi"
	"github.com/lattixnet/lattixd/domain/ledger/utils/ledgerhashing"
	"github.com/lattixnet/lattixd/infrastructure/db/database"
)

var bucket = database.MakeBucket([]byte("blocks"))

type blockStore struct{}

// New instantiates a new BlockStore.
func New() model.BlockStore {
	return &blockStore{}
}

func (bs *blockStore) Block(dbContext model.DBReader, blockHash *externalapi.BlockHash) (*externalapi.Block, error) {
	blockBytes, err := dbContext.Get(bs.hashAsKey(blockHash))
	if err != nil {
		return nil, err
	}
	return deserializeBlock(blockBytes)
}

func (bs *blockStore) HasBlock(dbContext model.DBReader, blockHash *externalapi.BlockHash) (bool, error) {
	return dbContext.Has(bs.hashAsKey(blockHash))
}

func (bs *blockStore) Put(dbTx model.DBWriteTransaction, block *externalapi.Block) (*externalapi.BlockHash, error) {
	blockHash := ledgerhashing.BlockHash(block)
	blockBytes, err := serializeBlock(block)
	if err != nil {
		return nil, err
	}
	err = dbTx.Put(bs.hashAsKey(blockHash), blockBytes)
	if err != nil {
		return nil, err
	}
	return blockHash, nil
}

func (bs *blockStore) hashAsKey(blockHash *externalapi.BlockHash) *database.Key {
	return bucket.Key(blockHash.ByteSlice())
}
