package database

// DataAccessor defines the common interface of reads against a database or
// a transaction over one.
type DataAccessor interface {
	// Get gets the value for the given key. It returns ErrNotFound if the
	// given key does not exist.
	Get(key *Key) ([]byte, error)

	// Has returns true if the database contains the given key.
	Has(key *Key) (bool, error)
}

// ReadTransaction is a read-only view over the database taken at a single
// point in time. The view can be advanced to the current state of the
// database via Refresh without being closed, which bounds how long a
// single database snapshot is pinned by a long scan.
type ReadTransaction interface {
	DataAccessor

	// Refresh advances the transaction's view to the current state of
	// the database.
	Refresh() error

	// Close releases the resources held by the transaction. The
	// transaction may not be used after Close is called.
	Close()
}

// WriteTransaction is an atomic unit of updates against the database.
// Reads within the transaction observe the database as it was when the
// transaction began; writes become visible only on Commit.
//
// Note: transactions provide data consistency, not exclusion. Concurrent
// writers must be serialized externally (see the ledger write queue).
type WriteTransaction interface {
	DataAccessor

	// Put sets the value for the given key, overwriting any previous
	// value.
	Put(key *Key, value []byte) error

	// Delete deletes the value for the given key. It is not an error to
	// delete a nonexistent key.
	Delete(key *Key) error

	// Commit atomically applies all of the transaction's writes.
	Commit() error

	// Rollback discards the transaction's writes.
	Rollback() error

	// RollbackUnlessClosed discards the transaction's writes unless the
	// transaction was already committed or rolled back.
	RollbackUnlessClosed() error
}

// Database defines the interface of a key/value database that supports
// snapshot reads and atomic write transactions.
type Database interface {
	DataAccessor

	// BeginReadTransaction starts a refreshable read-only view over the
	// database.
	BeginReadTransaction() (ReadTransaction, error)

	// Begin starts a write transaction.
	Begin() (WriteTransaction, error)

	// Close closes the database.
	Close() error
}
