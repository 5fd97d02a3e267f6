package accounts

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// KeyGenerator produces activation keys.
type KeyGenerator func() (string, error)

var digitRange = big.NewInt(10)

// NewActivationKey draws ActivationKeyLength digits, each uniformly from 0-9.
func NewActivationKey() (string, error) {
	key := make([]byte, ActivationKeyLength)
	for i := range key {
		n, err := rand.Int(rand.Reader, digitRange)
		if err != nil {
			return "", fmt.Errorf("accounts: activation key: %w", err)
		}
		key[i] = byte('0' + n.Int64())
	}
	return string(key), nil
}
