package externalapi

import (
	"encoding/hex"

	"github.com/pkg/errors"
)

// BlockHashSize of array used to store hashes.
const BlockHashSize = 32

// BlockHash is the blake2b hash of a block's contents.
type BlockHash [BlockHashSize]byte

// NewBlockHashFromByteSlice returns a BlockHash from the given byte slice.
func NewBlockHashFromByteSlice(hashBytes []byte) (*BlockHash, error) {
	if len(hashBytes) != BlockHashSize {
		return nil, errors.Errorf("invalid hash size. Want: %d, got: %d",
			BlockHashSize, len(hashBytes))
	}
	var hash BlockHash
	copy(hash[:], hashBytes)
	return &hash, nil
}

// NewBlockHashFromString returns a BlockHash from the given hex string.
func NewBlockHashFromString(hashString string) (*BlockHash, error) {
	hashBytes, err := hex.DecodeString(hashString)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return NewBlockHashFromByteSlice(hashBytes)
}

// String returns the hex-encoded representation of the hash.
func (hash BlockHash) String() string {
	return hex.EncodeToString(hash[:])
}

// IsZero returns whether the hash is all zeros.
func (hash BlockHash) IsZero() bool {
	return hash == BlockHash{}
}

// ByteSlice returns a copy of the hash as a byte slice.
func (hash BlockHash) ByteSlice() []byte {
	hashBytes := make([]byte, BlockHashSize)
	copy(hashBytes, hash[:])
	return hashBytes
}
