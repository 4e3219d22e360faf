package confirmationheightstore

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/lattixnet/lattixd/domain/ledger/model"
	"github.com/lattixnet/lattixd/domain/ledger/model/externalapi"
	"github.com/lattixnet/lattixd/infrastructure/db/database"
)

var bucket = database.MakeBucket([]byte("confirmation-heights"))

// Record layout is fixed width: 8-byte big-endian height followed by the
// 32-byte frontier hash.
const serializedInfoLength = 8 + externalapi.BlockHashSize

type confirmationHeightStore struct{}

// New instantiates a new ConfirmationHeightStore.
func New() model.ConfirmationHeightStore {
	return &confirmationHeightStore{}
}

func (chs *confirmationHeightStore) Get(dbContext model.DBReader, account *externalapi.Account) (*externalapi.ConfirmationHeightInfo, error) {
	infoBytes, err := dbContext.Get(chs.accountAsKey(account))
	if err != nil {
		return nil, err
	}
	return deserializeInfo(infoBytes)
}

func (chs *confirmationHeightStore) Put(dbTx model.DBWriteTransaction, account *externalapi.Account, confirmationHeightInfo *externalapi.ConfirmationHeightInfo) error {
	return dbTx.Put(chs.accountAsKey(account), serializeInfo(confirmationHeightInfo))
}

func (chs *confirmationHeightStore) accountAsKey(account *externalapi.Account) *database.Key {
	return bucket.Key(account.ByteSlice())
}

func serializeInfo(info *externalapi.ConfirmationHeightInfo) []byte {
	infoBytes := make([]byte, serializedInfoLength)
	binary.BigEndian.PutUint64(infoBytes, info.Height)
	copy(infoBytes[8:], info.Frontier[:])
	return infoBytes
}

func deserializeInfo(infoBytes []byte) (*externalapi.ConfirmationHeightInfo, error) {
	if len(infoBytes) != serializedInfoLength {
		return nil, errors.Errorf("invalid serialized confirmation height info length. Want: %d, got: %d",
			serializedInfoLength, len(infoBytes))
	}
	info := &externalapi.ConfirmationHeightInfo{
		Height: binary.BigEndian.Uint64(infoBytes),
	}
	copy(info.Frontier[:], infoBytes[8:])
	return info, nil
}
