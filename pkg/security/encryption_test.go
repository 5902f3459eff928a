package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAESEncryptor_RoundTrip(t *testing.T) {
	enc, err := NewAESEncryptor("test-secret")
	require.NoError(t, err)

	for _, plaintext := range []string{"", "api-key-12345", "長度不限的中文字串"} {
		ciphertext, err := enc.EncryptString(plaintext)
		require.NoError(t, err)
		assert.NotEqual(t, plaintext, ciphertext)

		got, err := enc.DecryptString(ciphertext)
		require.NoError(t, err)
		assert.Equal(t, plaintext, got)
	}
}

func TestAESEncryptor_NonDeterministic(t *testing.T) {
	enc, err := NewAESEncryptor("test-secret")
	require.NoError(t, err)

	first, err := enc.EncryptString("api-key")
	require.NoError(t, err)
	second, err := enc.EncryptString("api-key")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestAESEncryptor_WrongKeyFails(t *testing.T) {
	enc, err := NewAESEncryptor("test-secret")
	require.NoError(t, err)
	other, err := NewAESEncryptor("different-secret")
	require.NoError(t, err)

	ciphertext, err := enc.EncryptString("api-key")
	require.NoError(t, err)

	_, err = other.DecryptString(ciphertext)
	assert.ErrorIs(t, err, ErrDecryption)
}

func TestAESEncryptor_RejectsGarbage(t *testing.T) {
	enc, err := NewAESEncryptor("test-secret")
	require.NoError(t, err)

	_, err = enc.DecryptString("not base64!!!")
	assert.ErrorIs(t, err, ErrDecryption)

	// Valid base64 but shorter than a nonce.
	_, err = enc.DecryptString("YWJj")
	assert.ErrorIs(t, err, ErrDecryption)
}
