package prunedstore

import (
	"github.com/lattixnet/lattixd/domain/ledger/model"
	"github.com/lattixnet/lattixd/domain/ledger/model/externalapi"
	"github.com/lattixnet/lattixd/infrastructure/db/database"
)

var bucket = database.MakeBucket([]byte("pruned"))

type prunedStore struct{}

// New instantiates a new PrunedStore.
func New() model.PrunedStore {
	return &prunedStore{}
}

func (ps *prunedStore) Has(dbContext model.DBReader, blockHash *externalapi.BlockHash) (bool, error) {
	return dbContext.Has(ps.hashAsKey(blockHash))
}

func (ps *prunedStore) Put(dbTx model.DBWriteTransaction, blockHash *externalapi.BlockHash) error {
	return dbTx.Put(ps.hashAsKey(blockHash), []byte{})
}

func (ps *prunedStore) hashAsKey(blockHash *externalapi.BlockHash) *database.Key {
	return bucket.Key(blockHash.ByteSlice())
}
