package ldb

import (
	"github.com/pkg/errors"

	"github.com/lattixnet/lattixd/infrastructure/db/database"
)

func errNotFoundForKey(key *database.Key) error {
	return errors.Wrapf(database.ErrNotFound, "key %s not found", key)
}
