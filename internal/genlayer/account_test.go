package genlayer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeneratePrivateKey(t *testing.T) {
	key, err := GeneratePrivateKey()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "0x"))
	assert.Len(t, key, 66)

	account, err := ParsePrivateKey(key)
	require.NoError(t, err)
	assert.NotEqual(t, [20]byte{}, [20]byte(account.Address))
}

func TestParsePrivateKey(t *testing.T) {
	account, err := ParsePrivateKey("0x4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318")
	require.NoError(t, err)
	assert.Equal(t, "0x2c7536E3605D9C16a7a3D7b1898e529396a65c23", account.Address.Hex())

	_, err = ParsePrivateKey("4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318")
	assert.Error(t, err)

	_, err = ParsePrivateKey("0xnothex")
	assert.Error(t, err)
}

func TestEnsurePrivateKey(t *testing.T) {
	existing := "0x4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"
	key, generated, err := EnsurePrivateKey(existing)
	require.NoError(t, err)
	assert.False(t, generated)
	assert.Equal(t, existing, key)

	for _, stored := range []string{"", "garbage", "0x1234"} {
		key, generated, err := EnsurePrivateKey(stored)
		require.NoError(t, err)
		assert.True(t, generated)
		assert.NotEqual(t, stored, key)
	}
}
