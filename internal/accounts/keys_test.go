package accounts_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/registration-demo/registration/internal/accounts"
)

func TestNewActivationKeyShape(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 200; i++ {
		key, err := accounts.NewActivationKey()
		require.NoError(t, err)
		require.Len(t, key, accounts.ActivationKeyLength)
		for _, r := range key {
			assert.True(t, r >= '0' && r <= '9', "unexpected rune %q in %q", r, key)
		}
		seen[key] = struct{}{}
	}
	assert.Greater(t, len(seen), 1)
}
