package accountstore

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/lattixnet/lattixd/domain/ledger/model"
	"github.com/lattixnet/lattixd/domain/ledger/model/externalapi"
	"github.com/lattixnet/lattixd/infrastructure/db/database"
)

var bucket = database.MakeBucket([]byte("accounts"))

const serializedInfoLength = externalapi.BlockHashSize + externalapi.BlockHashSize + 8

type accountStore struct{}

// New instantiates a new AccountStore.
func New() model.AccountStore {
	return &accountStore{}
}

func (as *accountStore) Get(dbContext model.DBReader, account *externalapi.Account) (*externalapi.AccountInfo, error) {
	infoBytes, err := dbContext.Get(as.accountAsKey(account))
	if err != nil {
		return nil, err
	}
	return deserializeInfo(infoBytes)
}

func (as *accountStore) Put(dbTx model.DBWriteTransaction, account *externalapi.Account, accountInfo *externalapi.AccountInfo) error {
	return dbTx.Put(as.accountAsKey(account), serializeInfo(accountInfo))
}

func (as *accountStore) accountAsKey(account *externalapi.Account) *database.Key {
	return bucket.Key(account.ByteSlice())
}

func serializeInfo(info *externalapi.AccountInfo) []byte {
	infoBytes := make([]byte, serializedInfoLength)
	copy(infoBytes, info.Head[:])
	copy(infoBytes[externalapi.BlockHashSize:], info.Open[:])
	binary.BigEndian.PutUint64(infoBytes[2*externalapi.BlockHashSize:], info.BlockCount)
	return infoBytes
}

func deserializeInfo(infoBytes []byte) (*externalapi.AccountInfo, error) {
	if len(infoBytes) != serializedInfoLength {
		return nil, errors.Errorf("invalid serialized account info length. Want: %d, got: %d",
			serializedInfoLength, len(infoBytes))
	}
	info := &externalapi.AccountInfo{}
	copy(info.Head[:], infoBytes)
	copy(info.Open[:], infoBytes[externalapi.BlockHashSize:])
	info.BlockCount = binary.BigEndian.Uint64(infoBytes[2*externalapi.BlockHashSize:])
	return info, nil
}
