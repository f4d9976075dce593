package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCryptoRandomBytes(t *testing.T) {
	t.Run("Generate correct length", func(t *testing.T) {
		bytes, err := CryptoRandomBytes(20)
		require.NoError(t, err)
		assert.Len(t, bytes, 20)
	})

	t.Run("Generate unique values", func(t *testing.T) {
		bytes1, err := CryptoRandomBytes(20)
		require.NoError(t, err)

		bytes2, err := CryptoRandomBytes(20)
		require.NoError(t, err)

		assert.NotEqual(t, bytes1, bytes2, "Random bytes should not be identical")
	})
}

func TestCryptoRandomString(t *testing.T) {
	t.Run("Generate correct length", func(t *testing.T) {
		for _, n := range []int{0, 1, 16, 32, 200} {
			str, err := CryptoRandomString(n)
			require.NoError(t, err)
			assert.Len(t, str, n)
		}
	})

	t.Run("Generate alphanumeric characters only", func(t *testing.T) {
		str, err := CryptoRandomString(500)
		require.NoError(t, err)

		for _, c := range str {
			assert.True(t,
				(c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z'),
				"Character '%c' is not alphanumeric", c)
		}
	})

	t.Run("Generate unique values", func(t *testing.T) {
		seen := make(map[string]struct{}, 1000)
		for range 1000 {
			str, err := CryptoRandomString(32)
			require.NoError(t, err)
			_, dup := seen[str]
			require.False(t, dup, "duplicate random string %q", str)
			seen[str] = struct{}{}
		}
	})
}

func TestConstantTimeEqual(t *testing.T) {
	assert.True(t, ConstantTimeEqual("secret", "secret"))
	assert.False(t, ConstantTimeEqual("secret", "Secret"))
	assert.False(t, ConstantTimeEqual("secret", "secret-longer"))
	assert.False(t, ConstantTimeEqual("secret", ""))
	assert.True(t, ConstantTimeEqual("", ""))
}
