package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 32 bytes, base64 encoded
const testKey = "dGVzdC1rZXktZm9yLXVuaXQtdGVzdHMtMzItYnl0ZXM="

func TestSecretCipher_RoundTrip(t *testing.T) {
	c, err := NewSecretCipher(testKey)
	require.NoError(t, err)

	sealed, err := c.Encrypt("db-password-123")
	require.NoError(t, err)
	assert.NotEqual(t, "db-password-123", sealed)

	opened, err := c.Decrypt(sealed)
	require.NoError(t, err)
	assert.Equal(t, "db-password-123", opened)
}

func TestSecretCipher_PassphraseKey(t *testing.T) {
	c, err := NewSecretCipher("not-base64-just-a-passphrase")
	require.NoError(t, err)

	sealed, err := c.Encrypt("value")
	require.NoError(t, err)
	opened, err := c.Decrypt(sealed)
	require.NoError(t, err)
	assert.Equal(t, "value", opened)
}

func TestSecretCipher_EmptyKey(t *testing.T) {
	_, err := NewSecretCipher("")
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestSecretCipher_EmptyValuesPassThrough(t *testing.T) {
	c, err := NewSecretCipher(testKey)
	require.NoError(t, err)

	sealed, err := c.Encrypt("")
	require.NoError(t, err)
	assert.Equal(t, "", sealed)

	opened, err := c.Decrypt("")
	require.NoError(t, err)
	assert.Equal(t, "", opened)
}

func TestSecretCipher_WrongKey(t *testing.T) {
	c1, err := NewSecretCipher(testKey)
	require.NoError(t, err)
	c2, err := NewSecretCipher("a-completely-different-key")
	require.NoError(t, err)

	sealed, err := c1.Encrypt("secret")
	require.NoError(t, err)

	_, err = c2.Decrypt(sealed)
	assert.ErrorIs(t, err, ErrDecryptionFailed)
}

func TestSecretCipher_GarbageCiphertext(t *testing.T) {
	c, err := NewSecretCipher(testKey)
	require.NoError(t, err)

	_, err = c.Decrypt("not base64 at all!!!")
	assert.ErrorIs(t, err, ErrDecryptionFailed)

	_, err = c.Decrypt("c2hvcnQ=") // valid base64, too short for nonce+tag
	assert.ErrorIs(t, err, ErrDecryptionFailed)
}

func TestSecretCipher_MapRoundTrip(t *testing.T) {
	c, err := NewSecretCipher(testKey)
	require.NoError(t, err)

	secrets := map[string]string{"username": "ingest", "password": "s3cret"}
	sealed, err := c.EncryptMap(secrets)
	require.NoError(t, err)

	opened, err := c.DecryptMap(sealed)
	require.NoError(t, err)
	assert.Equal(t, secrets, opened)
}

func TestSecretCipher_EmptyMap(t *testing.T) {
	c, err := NewSecretCipher(testKey)
	require.NoError(t, err)

	sealed, err := c.EncryptMap(nil)
	require.NoError(t, err)
	assert.Equal(t, "", sealed)

	opened, err := c.DecryptMap("")
	require.NoError(t, err)
	assert.NotNil(t, opened)
	assert.Empty(t, opened)
}
