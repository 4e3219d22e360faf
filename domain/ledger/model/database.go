package model

import (
	"github.com/lattixnet/lattixd/infrastructure/db/database"
)

// DBReader is a read-only view of the database: either a live database
// handle, a read transaction or a write transaction.
type DBReader = database.DataAccessor

// DBReadTransaction is a refreshable snapshot over the database. The
// confirmation engine periodically refreshes its read transaction so a
// long chain walk never pins one database snapshot for its whole span.
type DBReadTransaction = database.ReadTransaction

// DBWriteTransaction is an atomic batch of writes against the database.
type DBWriteTransaction = database.WriteTransaction

// DBManager defines the interface of a database that can begin read and
// write transactions.
type DBManager = database.Database
