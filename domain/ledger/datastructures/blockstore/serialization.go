package blockstore

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/lattixnet/lattixd/domain/ledger/model/externalapi"
)

// Serialized block layout, all fields fixed width and big endian:
//   type (1) | previous (32) | account (32) | source (32) | link (32) |
//   representative (32) | balance (8) |
//   sideband: height (8) | successor (32) | account (32) | epoch (1)
const serializedBlockLength = 1 + 32 + 32 + 32 + 32 + 32 + 8 + 8 + 32 + 32 + 1

func serializeBlock(block *externalapi.Block) ([]byte, error) {
	if block.Sideband == nil {
		return nil, errors.New("cannot serialize a block without a sideband")
	}

	blockBytes := make([]byte, 0, serializedBlockLength)
	blockBytes = append(blockBytes, byte(block.Type))
	blockBytes = append(blockBytes, block.Previous[:]...)
	blockBytes = append(blockBytes, block.Account[:]...)
	blockBytes = append(blockBytes, block.Source[:]...)
	blockBytes = append(blockBytes, block.Link[:]...)
	blockBytes = append(blockBytes, block.Representative[:]...)

	var uint64Bytes [8]byte
	binary.BigEndian.PutUint64(uint64Bytes[:], block.Balance)
	blockBytes = append(blockBytes, uint64Bytes[:]...)

	binary.BigEndian.PutUint64(uint64Bytes[:], block.Sideband.Height)
	blockBytes = append(blockBytes, uint64Bytes[:]...)
	blockBytes = append(blockBytes, block.Sideband.Successor[:]...)
	blockBytes = append(blockBytes, block.Sideband.Account[:]...)
	blockBytes = append(blockBytes, block.Sideband.Epoch)

	return blockBytes, nil
}

func deserializeBlock(blockBytes []byte) (*externalapi.Block, error) {
	if len(blockBytes) != serializedBlockLength {
		return nil, errors.Errorf("invalid serialized block length. Want: %d, got: %d",
			serializedBlockLength, len(blockBytes))
	}

	block := &externalapi.Block{Sideband: &externalapi.BlockSideband{}}
	offset := 0

	block.Type = externalapi.BlockType(blockBytes[offset])
	offset++
	offset += copy(block.Previous[:], blockBytes[offset:])
	offset += copy(block.Account[:], blockBytes[offset:])
	offset += copy(block.Source[:], blockBytes[offset:])
	offset += copy(block.Link[:], blockBytes[offset:])
	offset += copy(block.Representative[:], blockBytes[offset:])
	block.Balance = binary.BigEndian.Uint64(blockBytes[offset:])
	offset += 8

	block.Sideband.Height = binary.BigEndian.Uint64(blockBytes[offset:])
	offset += 8
	offset += copy(block.Sideband.Successor[:], blockBytes[offset:])
	offset += copy(block.Sideband.Account[:], blockBytes[offset:])
	block.Sideband.Epoch = blockBytes[offset]

	return block, nil
}
