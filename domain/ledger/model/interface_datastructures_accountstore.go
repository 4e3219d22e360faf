package model

import "github.com/lattixnet/lattixd/domain/ledger/model/externalapi"

// AccountStore represents a store of per-account chain metadata.
type AccountStore interface {
	// Get gets the AccountInfo associated with the given account. It
	// returns database.ErrNotFound if the account has no chain.
	Get(dbContext DBReader, account *externalapi.Account) (*externalapi.AccountInfo, error)

	// Put stores the AccountInfo for the given account.
	Put(dbTx DBWriteTransaction, account *externalapi.Account, accountInfo *externalapi.AccountInfo) error
}
