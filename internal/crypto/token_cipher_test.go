package crypto

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey(t *testing.T, seed byte) string {
	t.Helper()

	key := make([]byte, 32)
	for i := range key {
		key[i] = seed + byte(i)
	}
	return base64.StdEncoding.EncodeToString(key)
}

func TestNewTokenCipher_RejectsBadKeys(t *testing.T) {
	_, err := NewTokenCipher("not base64!!!")
	assert.Error(t, err)

	short := base64.StdEncoding.EncodeToString([]byte("too short"))
	_, err = NewTokenCipher(short)
	assert.Error(t, err)
}

func TestSealOpen_Roundtrip(t *testing.T) {
	cipher, err := NewTokenCipher(testKey(t, 0))
	require.NoError(t, err)

	sealed, err := cipher.Seal("bearer-token-123")
	require.NoError(t, err)
	assert.NotEqual(t, "bearer-token-123", sealed)

	opened, err := cipher.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "bearer-token-123", opened)
}

func TestSeal_RandomNonce(t *testing.T) {
	cipher, err := NewTokenCipher(testKey(t, 0))
	require.NoError(t, err)

	first, err := cipher.Seal("same token")
	require.NoError(t, err)
	second, err := cipher.Seal("same token")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestOpen_Failures(t *testing.T) {
	cipher, err := NewTokenCipher(testKey(t, 0))
	require.NoError(t, err)

	t.Run("wrong key", func(t *testing.T) {
		other, err := NewTokenCipher(testKey(t, 100))
		require.NoError(t, err)

		sealed, err := other.Seal("secret")
		require.NoError(t, err)

		_, err = cipher.Open(sealed)
		assert.Error(t, err)
	})

	t.Run("corrupted value", func(t *testing.T) {
		sealed, err := cipher.Seal("secret")
		require.NoError(t, err)

		raw, err := base64.StdEncoding.DecodeString(sealed)
		require.NoError(t, err)
		raw[len(raw)-1] ^= 0xFF

		_, err = cipher.Open(base64.StdEncoding.EncodeToString(raw))
		assert.Error(t, err)
	})

	t.Run("not base64", func(t *testing.T) {
		_, err := cipher.Open("%%%")
		assert.Error(t, err)
	})

	t.Run("too short", func(t *testing.T) {
		_, err := cipher.Open(base64.StdEncoding.EncodeToString([]byte("x")))
		assert.Error(t, err)
	})
}
