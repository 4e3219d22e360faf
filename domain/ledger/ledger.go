package ledger

import (
	"sync/atomic"

	"github.com/lattixnet/lattixd/domain/ledger/datastructures/accountstore"
	"github.com/lattixnet/lattixd/domain/ledger/datastructures/blockstore"
	"github.com/lattixnet/lattixd/domain/ledger/datastructures/confirmationheightstore"
	"github.com/lattixnet/lattixd/domain/ledger/datastructures/prunedstore"
	"github.com/lattixnet/lattixd/domain/ledger/model"
	"github.com/lattixnet/lattixd/domain/ledger/model/externalapi"
	"github.com/lattixnet/lattixd/infrastructure/db/database"
)

// Config holds the ledger-level configuration the confirmation subsystem
// consults.
type Config struct {
	// PruningEnabled controls whether a missing block may legitimately
	// be explained by the pruned set.
	PruningEnabled bool

	// EpochLinks are the designated link values that mark epoch upgrade
	// blocks. An epoch link looks like a source hash but never is one.
	EpochLinks []externalapi.BlockHash
}

// Ledger is the facade over the ledger stores consumed by the
// confirmation processes. It owns no locking: reads run under the
// caller's transaction and writes must hold the ledger write queue.
type Ledger struct {
	dbManager model.DBManager
	config    Config

	blockStore              model.BlockStore
	accountStore            model.AccountStore
	confirmationHeightStore model.ConfirmationHeightStore
	prunedStore             model.PrunedStore

	epochLinks map[externalapi.BlockHash]struct{}

	cementedCount uint64
}

// New instantiates a Ledger over the given database.
func New(dbManager model.DBManager, config Config) *Ledger {
	epochLinks := make(map[externalapi.BlockHash]struct{}, len(config.EpochLinks))
	for _, link := range config.EpochLinks {
		epochLinks[link] = struct{}{}
	}
	return &Ledger{
		dbManager:               dbManager,
		config:                  config,
		blockStore:              blockstore.New(),
		accountStore:            accountstore.New(),
		confirmationHeightStore: confirmationheightstore.New(),
		prunedStore:             prunedstore.New(),
		epochLinks:              epochLinks,
	}
}

// BeginReadTransaction starts a refreshable read-only view over the
// ledger database.
func (l *Ledger) BeginReadTransaction() (model.DBReadTransaction, error) {
	return l.dbManager.BeginReadTransaction()
}

// BeginWriteTransaction starts a write transaction. The caller must hold
// the ledger write queue.
func (l *Ledger) BeginWriteTransaction() (model.DBWriteTransaction, error) {
	return l.dbManager.Begin()
}

// Block gets the block with the given hash, or nil if it is not stored.
// Any other failure is returned as an error.
func (l *Ledger) Block(dbContext model.DBReader, blockHash *externalapi.BlockHash) (*externalapi.Block, error) {
	block, err := l.blockStore.Block(dbContext, blockHash)
	if database.IsNotFoundError(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return block, nil
}

// BlockExists returns whether the block with the given hash is stored.
func (l *Ledger) BlockExists(dbContext model.DBReader, blockHash *externalapi.BlockHash) (bool, error) {
	return l.blockStore.HasBlock(dbContext, blockHash)
}

// BlockHeight returns the chain height of the block with the given hash,
// or 0 if the block is not stored.
func (l *Ledger) BlockHeight(dbContext model.DBReader, blockHash *externalapi.BlockHash) (uint64, error) {
	block, err := l.Block(dbContext, blockHash)
	if err != nil {
		return 0, err
	}
	if block == nil {
		return 0, nil
	}
	return block.Sideband.Height, nil
}

// AccountInfo gets the chain metadata for the given account, or nil if the
// account has no chain.
func (l *Ledger) AccountInfo(dbContext model.DBReader, account *externalapi.Account) (*externalapi.AccountInfo, error) {
	accountInfo, err := l.accountStore.Get(dbContext, account)
	if database.IsNotFoundError(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return accountInfo, nil
}

// ConfirmationHeight gets the confirmation record for the given account.
// An account with no record yet is reported as height 0 with a zero
// frontier.
func (l *Ledger) ConfirmationHeight(dbContext model.DBReader, account *externalapi.Account) (externalapi.ConfirmationHeightInfo, error) {
	info, err := l.confirmationHeightStore.Get(dbContext, account)
	if database.IsNotFoundError(err) {
		return externalapi.ConfirmationHeightInfo{}, nil
	}
	if err != nil {
		return externalapi.ConfirmationHeightInfo{}, err
	}
	return *info, nil
}

// SetConfirmationHeight stages the confirmation record for the given
// account in the given write transaction.
func (l *Ledger) SetConfirmationHeight(dbTx model.DBWriteTransaction, account *externalapi.Account, info externalapi.ConfirmationHeightInfo) error {
	return l.confirmationHeightStore.Put(dbTx, account, &info)
}

// IsPruned returns whether the given hash is recorded as pruned.
func (l *Ledger) IsPruned(dbContext model.DBReader, blockHash *externalapi.BlockHash) (bool, error) {
	return l.prunedStore.Has(dbContext, blockHash)
}

// PruningEnabled returns whether ledger pruning is enabled.
func (l *Ledger) PruningEnabled() bool {
	return l.config.PruningEnabled
}

// IsEpochLink returns whether the given hash is a designated epoch link.
func (l *Ledger) IsEpochLink(linkHash *externalapi.BlockHash) bool {
	_, ok := l.epochLinks[*linkHash]
	return ok
}

// BlockStore exposes the underlying block store. Intended for block
// insertion by the block processing subsystem and for tests.
func (l *Ledger) BlockStore() model.BlockStore {
	return l.blockStore
}

// AccountStore exposes the underlying account store.
func (l *Ledger) AccountStore() model.AccountStore {
	return l.accountStore
}

// PrunedStore exposes the underlying pruned set.
func (l *Ledger) PrunedStore() model.PrunedStore {
	return l.prunedStore
}

// AddCemented advances the diagnostic count of cemented blocks.
func (l *Ledger) AddCemented(delta uint64) {
	atomic.AddUint64(&l.cementedCount, delta)
}

// CementedCount returns the diagnostic count of blocks cemented since
// startup.
func (l *Ledger) CementedCount() uint64 {
	return atomic.LoadUint64(&l.cementedCount)
}
