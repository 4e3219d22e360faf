package ldb

import (
	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"

	"github.com/lattixnet/lattixd/infrastructure/db/database"
)

// LevelDBReadTransaction is a refreshable snapshot over the database. It
// implements database.ReadTransaction.
type LevelDBReadTransaction struct {
	db       *LevelDB
	snapshot *leveldb.Snapshot
	isClosed bool
}

// BeginReadTransaction starts a refreshable read-only view over the
// database.
func (db *LevelDB) BeginReadTransaction() (database.ReadTransaction, error) {
	snapshot, err := db.ldb.GetSnapshot()
	if err != nil {
		return nil, err
	}
	return &LevelDBReadTransaction{db: db, snapshot: snapshot}, nil
}

// Refresh advances the transaction's view to the current state of the
// database by releasing the held snapshot and taking a new one.
func (tx *LevelDBReadTransaction) Refresh() error {
	if tx.isClosed {
		return errors.New("cannot refresh a closed read transaction")
	}
	snapshot, err := tx.db.ldb.GetSnapshot()
	if err != nil {
		return err
	}
	tx.snapshot.Release()
	tx.snapshot = snapshot
	return nil
}

// Close releases the held snapshot.
func (tx *LevelDBReadTransaction) Close() {
	if tx.isClosed {
		return
	}
	tx.isClosed = true
	tx.snapshot.Release()
}

// Get gets the value for the given key. It returns database.ErrNotFound if
// the given key does not exist.
func (tx *LevelDBReadTransaction) Get(key *database.Key) ([]byte, error) {
	if tx.isClosed {
		return nil, errors.New("cannot get from a closed read transaction")
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

// Has returns true if the transaction's view contains the given key.
func (tx *LevelDBReadTransaction) Has(key *database.Key) (bool, error) {
	if tx.isClosed {
		return false, errors.New("cannot get from a closed read transaction")
	}
	return tx.snapshot.Has(key.Bytes(), nil)
}
