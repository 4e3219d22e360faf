package externalapi

import (
	"encoding/hex"

	"github.com/pkg/errors"
)

// AccountSize of array used to store account public keys.
const AccountSize = 32

// Account is the public key identifying one account chain in the lattice.
type Account [AccountSize]byte

// NewAccountFromByteSlice returns an Account from the given byte slice.
func NewAccountFromByteSlice(accountBytes []byte) (*Account, error) {
	if len(accountBytes) != AccountSize {
		return nil, errors.Errorf("invalid account size. Want: %d, got: %d",
			AccountSize, len(accountBytes))
	}
	var account Account
	copy(account[:], accountBytes)
	return &account, nil
}

// String returns the hex-encoded representation of the account.
func (account Account) String() string {
	return hex.EncodeToString(account[:])
}

// IsZero returns whether the account is all zeros.
func (account Account) IsZero() bool {
	return account == Account{}
}

// ByteSlice returns a copy of the account as a byte slice.
func (account Account) ByteSlice() []byte {
	accountBytes := make([]byte, AccountSize)
	copy(accountBytes, account[:])
	return accountBytes
}
