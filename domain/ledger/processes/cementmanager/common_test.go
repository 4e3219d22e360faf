package cementmanager

import (
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lattixnet/lattixd/domain/ledger"
	"github.com/lattixnet/lattixd/domain/ledger/model/externalapi"
	"github.com/lattixnet/lattixd/domain/ledger/utils/ledgerhashing"
	"github.com/lattixnet/lattixd/domain/ledger/writequeue"
	"github.com/lattixnet/lattixd/infrastructure/db/database/ldb"
)

// testContext wires a cement manager over a real on-disk database and
// records every notification it emits.
type testContext struct {
	t          *testing.T
	ledger     *ledger.Ledger
	writeQueue *writequeue.WriteQueue
	manager    *cementManager

	awaitingCount uint64

	cementedBatches [][]*externalapi.Block
	alreadyCemented []externalapi.BlockHash
}

func setupTestContext(t *testing.T) *testContext {
	db, err := ldb.NewLevelDB(filepath.Join(t.TempDir(), "db"))
	if err != nil {
		t.Fatalf("NewLevelDB: %s", err)
	}
	t.Cleanup(func() {
		err := db.Close()
		if err != nil {
			t.Errorf("closing the database: %s", err)
		}
	})

	tc := &testContext{t: t}
	tc.ledger = ledger.New(db, ledger.Config{PruningEnabled: true})
	tc.writeQueue = writequeue.New()
	manager := New(tc.ledger, tc.writeQueue, Config{BatchSeparateMinTime: 50 * time.Millisecond},
		func(blocks []*externalapi.Block) {
			tc.cementedBatches = append(tc.cementedBatches, blocks)
		},
		func(hash externalapi.BlockHash) {
			tc.alreadyCemented = append(tc.alreadyCemented, hash)
		},
		func() uint64 {
			return atomic.LoadUint64(&tc.awaitingCount)
		})
	tc.manager = manager.(*cementManager)
	return tc
}

// cementedHashes flattens the recorded batches into hash order of
// notification.
func (tc *testContext) cementedHashes() []externalapi.BlockHash {
	var hashes []externalapi.BlockHash
	for _, batch := range tc.cementedBatches {
		for _, block := range batch {
			hashes = append(hashes, *ledgerhashing.BlockHash(block))
		}
	}
	return hashes
}

func (tc *testContext) setConfirmationHeight(account externalapi.Account, height uint64, frontier externalapi.BlockHash) {
	dbTx, err := tc.ledger.BeginWriteTransaction()
	if err != nil {
		tc.t.Fatalf("BeginWriteTransaction: %s", err)
	}
	defer dbTx.RollbackUnlessClosed()
	err = tc.ledger.SetConfirmationHeight(dbTx, &account,
		externalapi.ConfirmationHeightInfo{Height: height, Frontier: frontier})
	if err != nil {
		tc.t.Fatalf("SetConfirmationHeight: %s", err)
	}
	err = dbTx.Commit()
	if err != nil {
		tc.t.Fatalf("Commit: %s", err)
	}
}

func (tc *testContext) confirmationHeight(account externalapi.Account) externalapi.ConfirmationHeightInfo {
	dbTx, err := tc.ledger.BeginReadTransaction()
	if err != nil {
		tc.t.Fatalf("BeginReadTransaction: %s", err)
	}
	defer dbTx.Close()
	info, err := tc.ledger.ConfirmationHeight(dbTx, &account)
	if err != nil {
		tc.t.Fatalf("ConfirmationHeight: %s", err)
	}
	return info
}

func testAccount(b byte) externalapi.Account {
	var account externalapi.Account
	account[0] = b
	return account
}

// unstoredSource fabricates a source hash that is deliberately absent
// from the block store, so the open block referencing it does not count
// as a receive.
func unstoredSource(b byte) externalapi.BlockHash {
	var hash externalapi.BlockHash
	hash[0] = 0xff
	hash[1] = b
	return hash
}

// testChain builds one account chain block by block, wiring previous
// pointers, sidebands and successors the way the block processor would.
type testChain struct {
	account externalapi.Account
	blocks  []*externalapi.Block
	hashes  []externalapi.BlockHash
}

func newTestChain(account externalapi.Account) *testChain {
	return &testChain{account: account}
}

func (c *testChain) append(block *externalapi.Block) externalapi.BlockHash {
	block.Sideband = &externalapi.BlockSideband{
		Height:  uint64(len(c.blocks) + 1),
		Account: c.account,
	}
	hash := *ledgerhashing.BlockHash(block)
	if len(c.blocks) > 0 {
		c.blocks[len(c.blocks)-1].Sideband.Successor = hash
	}
	c.blocks = append(c.blocks, block)
	c.hashes = append(c.hashes, hash)
	return hash
}

func (c *testChain) previous() externalapi.BlockHash {
	if len(c.hashes) == 0 {
		return externalapi.BlockHash{}
	}
	return c.hashes[len(c.hashes)-1]
}

// addOpen starts the chain. source may be an unstored hash when the
// funds' origin is outside the test ledger.
func (c *testChain) addOpen(source externalapi.BlockHash) externalapi.BlockHash {
	return c.append(&externalapi.Block{
		Type:    externalapi.BlockTypeOpen,
		Account: c.account,
		Source:  source,
		Balance: uint64(len(c.blocks) + 1),
	})
}

func (c *testChain) addSend() externalapi.BlockHash {
	return c.append(&externalapi.Block{
		Type:     externalapi.BlockTypeSend,
		Previous: c.previous(),
		Balance:  uint64(len(c.blocks) + 1),
	})
}

func (c *testChain) addReceive(source externalapi.BlockHash) externalapi.BlockHash {
	return c.append(&externalapi.Block{
		Type:     externalapi.BlockTypeReceive,
		Previous: c.previous(),
		Source:   source,
		Balance:  uint64(len(c.blocks) + 1),
	})
}

func (c *testChain) block(height uint64) *externalapi.Block {
	return c.blocks[height-1]
}

func (c *testChain) hash(height uint64) externalapi.BlockHash {
	return c.hashes[height-1]
}

func (c *testChain) frontier() externalapi.BlockHash {
	return c.hashes[len(c.hashes)-1]
}

// store persists the chain's blocks and account record.
func (c *testChain) store(tc *testContext) {
	dbTx, err := tc.ledger.BeginWriteTransaction()
	if err != nil {
		tc.t.Fatalf("BeginWriteTransaction: %s", err)
	}
	defer dbTx.RollbackUnlessClosed()
	for _, block := range c.blocks {
		_, err := tc.ledger.BlockStore().Put(dbTx, block)
		if err != nil {
			tc.t.Fatalf("Put block: %s", err)
		}
	}
	err = tc.ledger.AccountStore().Put(dbTx, &c.account, &externalapi.AccountInfo{
		Head:       c.frontier(),
		Open:       c.hashes[0],
		BlockCount: uint64(len(c.blocks)),
	})
	if err != nil {
		tc.t.Fatalf("Put account info: %s", err)
	}
	err = dbTx.Commit()
	if err != nil {
		tc.t.Fatalf("Commit: %s", err)
	}
}
