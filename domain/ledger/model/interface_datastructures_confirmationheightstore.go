package model

import "github.com/lattixnet/lattixd/domain/ledger/model/externalapi"

// ConfirmationHeightStore represents a store of per-account confirmation
// height records. The record is only ever advanced, and only while holding
// the ledger write queue.
type ConfirmationHeightStore interface {
	// Get gets the ConfirmationHeightInfo associated with the given
	// account. It returns database.ErrNotFound if the account has never
	// had a block confirmed.
	Get(dbContext DBReader, account *externalapi.Account) (*externalapi.ConfirmationHeightInfo, error)

	// Put stores the ConfirmationHeightInfo for the given account.
	Put(dbTx DBWriteTransaction, account *externalapi.Account, confirmationHeightInfo *externalapi.ConfirmationHeightInfo) error
}
