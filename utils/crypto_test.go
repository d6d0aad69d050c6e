package utils

import (
	"crypto/rand"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey(t *testing.T) string {
	t.Helper()
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	return base64.StdEncoding.EncodeToString(key)
}

func TestAESVaultRoundTrip(t *testing.T) {
	vault, err := NewAESVaultFromBase64Key(testKey(t))
	require.NoError(t, err)

	plaintext := []byte("ya29.a0AfH6SMB-access-token")
	sealed, err := vault.Encrypt(plaintext)
	require.NoError(t, err)
	assert.NotEqual(t, plaintext, sealed)

	opened, err := vault.Decrypt(sealed)
	require.NoError(t, err)
	assert.Equal(t, plaintext, opened)
}

func TestAESVaultNoncesDiffer(t *testing.T) {
	vault, err := NewAESVaultFromBase64Key(testKey(t))
	require.NoError(t, err)

	a, err := vault.Encrypt([]byte("same"))
	require.NoError(t, err)
	b, err := vault.Encrypt([]byte("same"))
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestAESVaultWrongKeyFails(t *testing.T) {
	vault1, err := NewAESVaultFromBase64Key(testKey(t))
	require.NoError(t, err)
	vault2, err := NewAESVaultFromBase64Key(testKey(t))
	require.NoError(t, err)

	sealed, err := vault1.Encrypt([]byte("secret"))
	require.NoError(t, err)

	_, err = vault2.Decrypt(sealed)
	assert.Error(t, err)
}

func TestAESVaultRejectsBadKeys(t *testing.T) {
	_, err := NewAESVaultFromBase64Key("")
	assert.Error(t, err)

	_, err = NewAESVaultFromBase64Key("not-base64!!!")
	assert.Error(t, err)

	short := base64.StdEncoding.EncodeToString([]byte("too-short"))
	_, err = NewAESVaultFromBase64Key(short)
	assert.Error(t, err)
}

func TestAESVaultTruncatedCiphertext(t *testing.T) {
	vault, err := NewAESVaultFromBase64Key(testKey(t))
	require.NoError(t, err)

	_, err = vault.Decrypt([]byte{0x01, 0x02})
	assert.Error(t, err)
}
