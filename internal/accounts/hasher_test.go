package accounts_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/registration-demo/registration/internal/accounts"
)

func TestBcryptHasherRoundTrip(t *testing.T) {
	hasher := accounts.NewBcryptHasher(bcrypt.MinCost)

	hash, err := hasher.Hash("correct horse battery")
	require.NoError(t, err)
	assert.NotContains(t, hash, "correct horse battery")
	assert.True(t, hasher.Verify("correct horse battery", hash))
	assert.False(t, hasher.Verify("correct horse batterY", hash))
}

func TestBcryptHasherLongPasswords(t *testing.T) {
	hasher := accounts.NewBcryptHasher(bcrypt.MinCost)
	prefix := strings.Repeat("x", 100)

	hash, err := hasher.Hash(prefix + "a")
	require.NoError(t, err)
	assert.True(t, hasher.Verify(prefix+"a", hash))
	assert.False(t, hasher.Verify(prefix+"b", hash))
}

func TestNewBcryptHasherCostFallback(t *testing.T) {
	assert.Equal(t, bcrypt.DefaultCost, accounts.NewBcryptHasher(0).Cost)
	assert.Equal(t, bcrypt.DefaultCost, accounts.NewBcryptHasher(bcrypt.MaxCost+1).Cost)
	assert.Equal(t, bcrypt.MinCost, accounts.NewBcryptHasher(bcrypt.MinCost).Cost)
}
