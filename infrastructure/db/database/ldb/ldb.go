package ldb

import (
	"github.com/syndtr/goleveldb/leveldb"
	ldbErrors "github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/opt"

	"github.com/lattixnet/lattixd/infrastructure/db/database"
)

// LevelDB defines a thin wrapper around goleveldb that implements
// database.Database.
type LevelDB struct {
	ldb *leveldb.DB
}

// NewLevelDB opens a leveldb instance defined by the given path. If the
// database does not exist it is created; if it is corrupted a recovery is
// attempted.
func NewLevelDB(path string) (*LevelDB, error) {
	options := opt.Options{
		Compression: opt.NoCompression,
	}
	ldb, err := leveldb.OpenFile(path, &options)

	if _, corrupted := err.(*ldbErrors.ErrCorrupted); corrupted {
		log.Warnf("LevelDB corruption detected for path %s: %s", path, err)
		ldb, err = leveldb.RecoverFile(path, nil)
		if err != nil {
			return nil, err
		}
		log.Warnf("LevelDB recovered from corruption for path %s", path)
	}

	if err != nil {
		return nil, err
	}

	return &LevelDB{ldb: ldb}, nil
}

// Close closes the leveldb instance.
func (db *LevelDB) Close() error {
	return db.ldb.Close()
}

// Get gets the value for the given key. It returns database.ErrNotFound if
// the given key does not exist.
func (db *LevelDB) Get(key *database.Key) ([]byte, error) {
	data, err := db.ldb.Get(key.Bytes(), nil)
	if err != nil {
		if err == leveldb.ErrNotFound {
			return nil, errNotFoundForKey(key)
		}
		return nil, err
	}
	return data, nil
}

// Has returns true if the database contains the given key.
func (db *LevelDB) Has(key *database.Key) (bool, error) {
	return db.ldb.Has(key.Bytes(), nil)
}
