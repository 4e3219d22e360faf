package ledgerhashing

import (
	"encoding/binary"

	"golang.org/x/crypto/blake2b"

	"github.com/lattixnet/lattixd/domain/ledger/model/externalapi"
)

// BlockHash returns the blake2b-256 hash identifying the given block. The
// hash covers the block contents only; the sideband is attached after
// validation and never contributes to identity.
func BlockHash(block *externalapi.Block) *externalapi.BlockHash {
	hasher, err := blake2b.New256(nil)
	if err != nil {
		// New256 fails only for invalid key lengths.
		panic(err)
	}

	_, _ = hasher.Write([]byte{byte(block.Type)})
	_, _ = hasher.Write(block.Previous[:])
	_, _ = hasher.Write(block.Account[:])
	_, _ = hasher.Write(block.Source[:])
	_, _ = hasher.Write(block.Link[:])
	_, _ = hasher.Write(block.Representative[:])

	var balanceBytes [8]byte
	binary.BigEndian.PutUint64(balanceBytes[:], block.Balance)
	_, _ = hasher.Write(balanceBytes[:])

	var hash externalapi.BlockHash
	copy(hash[:], hasher.Sum(nil))
	return &hash
}
