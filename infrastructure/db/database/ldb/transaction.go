package ldb

import (
	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"

	"github.com/lattixnet/lattixd/infrastructure/db/database"
)

// LevelDBTransaction is a thin wrapper around goleveldb batches and
// snapshots. It implements database.WriteTransaction.
//
// Note: reads do not observe the transaction's own uncommitted writes.
// Callers that need read-your-writes keep their own in-transaction state.
type LevelDBTransaction struct {
	db       *LevelDB
	snapshot *leveldb.Snapshot
	batch    *leveldb.Batch
	isClosed bool
}

// Begin begins a new write transaction.
func (db *LevelDB) Begin() (database.WriteTransaction, error) {
	snapshot, err := db.ldb.GetSnapshot()
	if err != nil {
		return nil, err
	}
	return &LevelDBTransaction{
		db:       db,
		snapshot: snapshot,
		batch:    new(leveldb.Batch),
	}, nil
}

// Commit atomically writes the accumulated batch to the database.
func (tx *LevelDBTransaction) Commit() error {
	if tx.isClosed {
		return errors.New("cannot commit a closed transaction")
	}
	tx.isClosed = true
	tx.snapshot.Release()
	return errors.WithStack(tx.db.ldb.Write(tx.batch, nil))
}

// Rollback discards the accumulated batch.
func (tx *LevelDBTransaction) Rollback() error {
	if tx.isClosed {
		return errors.New("cannot rollback a closed transaction")
	}
	tx.isClosed = true
	tx.snapshot.Release()
	tx.batch.Reset()
	return nil
}

// RollbackUnlessClosed discards the accumulated batch unless the
// transaction was already committed or rolled back.
func (tx *LevelDBTransaction) RollbackUnlessClosed() error {
	if tx.isClosed {
		return nil
	}
	return tx.Rollback()
}

// Put adds a write of the given value for the given key to the batch.
func (tx *LevelDBTransaction) Put(key *database.Key, value []byte) error {
	if tx.isClosed {
		return errors.New("cannot put into a closed transaction")
	}
	tx.batch.Put(key.Bytes(), value)
	return nil
}

// Delete adds a delete of the given key to the batch.
func (tx *LevelDBTransaction) Delete(key *database.Key) error {
	if tx.isClosed {
		return errors.New("cannot delete from a closed transaction")
	}
	tx.batch.Delete(key.Bytes())
	return nil
}

// Get gets the value for the given key from the transaction's snapshot. It
// returns database.ErrNotFound if the given key does not exist.
func (tx *LevelDBTransaction) Get(key *database.Key) ([]byte, error) {
	if tx.isClosed {
		return nil, errors.New("cannot get from a closed transaction")
	}
	data, err := tx.snapshot.Get(key.Bytes(), nil)
	if err != nil {
		if err == leveldb.ErrNotFound {
			return nil, errNotFoundForKey(key)
		}
		return nil, err
	}
	return data, nil
}

// Has returns true if the transaction's snapshot contains the given key.
func (tx *LevelDBTransaction) Has(key *database.Key) (bool, error) {
	if tx.isClosed {
		return false, errors.New("cannot get from a closed transaction")
	}
	return tx.snapshot.Has(key.Bytes(), nil)
}
