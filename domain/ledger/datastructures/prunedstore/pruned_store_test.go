package prunedstore

import (
	"path/filepath"
	"testing"

	"github.com/lattixnet/lattixd/domain/ledger/model/externalapi"
	"github.com/lattixnet/lattixd/infrastructure/db/database/ldb"
)

func TestPrunedStoreMembership(t *testing.T) {
	db, err := ldb.NewLevelDB(filepath.Join(t.TempDir(), "db"))
	if err != nil {
		t.Fatalf("NewLevelDB: %s", err)
	}
	defer db.Close()
	store := New()

	var hash externalapi.BlockHash
	hash[0] = 0x11

	has, err := store.Has(db, &hash)
	if err != nil {
		t.Fatalf("Has: %s", err)
	}
	if has {
		t.Fatal("unexpected membership before Put")
	}

	dbTx, err := db.Begin()
	if err != nil {
		t.Fatalf("Begin: %s", err)
	}
	err = store.Put(dbTx, &hash)
	if err != nil {
		t.Fatalf("Put: %s", err)
	}
	err = dbTx.Commit()
	if err != nil {
		t.Fatalf("Commit: %s", err)
	}

	has, err = store.Has(db, &hash)
	if err != nil {
		t.Fatalf("Has: %s", err)
	}
	if !has {
		t.Fatal("stored hash not reported as pruned")
	}
}
