package utils

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"
)

// Encrypter seals and opens token material. Ciphertext is opaque to the
// rest of the system.
type Encrypter interface {
	Encrypt(plaintext []byte) ([]byte, error)
	Decrypt(ciphertext []byte) ([]byte, error)
}

// AESVault is an AES-GCM Encrypter for stored OAuth tokens.
type AESVault struct {
	aead cipher.AEAD
}

// NewAESVaultFromBase64Key creates an AESVault from a base64-encoded
// 32-byte key.
func NewAESVaultFromBase64Key(encodedKey string) (*AESVault, error) {
	if encodedKey == "" {
		return nil, errors.New("token vault key is empty")
	}
	key, err := base64.StdEncoding.DecodeString(encodedKey)
	if err != nil {
		return nil, err
	}
	if len(key) != 32 {
		return nil, errors.New("token vault key must be 32 bytes")
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &AESVault{aead: aead}, nil
}

// Encrypt seals plaintext and prepends the nonce.
func (v *AESVault) Encrypt(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, v.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	ciphertext := v.aead.Seal(nil, nonce, plaintext, nil)
	return append(nonce, ciphertext...), nil
}

// Decrypt opens ciphertext carrying a nonce prefix.
func (v *AESVault) Decrypt(ciphertext []byte) ([]byte, error) {
	nonceSize := v.aead.NonceSize()
	if len(ciphertext) < nonceSize {
		return nil, errors.New("ciphertext too short")
	}
	nonce := ciphertext[:nonceSize]
	data := ciphertext[nonceSize:]
	return v.aead.Open(nil, nonce, data, nil)
}
