// Package encryption guards stored third-party credentials with AES-256-CBC.
// Values are encoded as "ivhex:cipherhex"; decryption is deliberately
// tolerant so legacy plaintext values keep working during migration.
package encryption

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

const legacyPrefix = "$$_"

// Cipher encrypts and decrypts short secrets such as API keys.
type Cipher struct {
	key []byte
}

// New derives a 256-bit key from the configured secret.
func New(secret string) *Cipher {
	sum := sha256.Sum256([]byte(secret))
	return &Cipher{key: sum[:]}
}

// Encrypt returns "ivhex:cipherhex" for the given plaintext. Empty input
// stays empty.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", fmt.Errorf("failed to build cipher: %w", err)
	}

	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("failed to generate iv: %w", err)
	}

	padded := pad([]byte(plaintext))
	encrypted := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(encrypted, padded)

	return hex.EncodeToString(iv) + ":" + hex.EncodeToString(encrypted), nil
}

// Decrypt reverses Encrypt. Values that are not in the expected format are
// returned unchanged: they predate encryption and are treated as plaintext.
func (c *Cipher) Decrypt(value string) string {
	if value == "" {
		return ""
	}

	raw := strings.TrimPrefix(value, legacyPrefix)
	parts := strings.SplitN(raw, ":", 2)
	if len(parts) != 2 {
		return value
	}

	iv, err := hex.DecodeString(parts[0])
	if err != nil || len(iv) != aes.BlockSize {
		return value
	}
	encrypted, err := hex.DecodeString(parts[1])
	if err != nil || len(encrypted) == 0 || len(encrypted)%aes.BlockSize != 0 {
		return value
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return value
	}

	decrypted := make([]byte, len(encrypted))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(decrypted, encrypted)

	plaintext, err := unpad(decrypted)
	if err != nil {
		return value
	}
	return string(plaintext)
}

func pad(data []byte) []byte {
	n := aes.BlockSize - len(data)%aes.BlockSize
	padded := make([]byte, len(data)+n)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(n)
	}
	return padded
}

func unpad(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, errors.New("empty ciphertext")
	}
	n := int(data[len(data)-1])
	if n == 0 || n > aes.BlockSize || n > len(data) {
		return nil, errors.New("invalid padding")
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, errors.New("invalid padding")
		}
	}
	return data[:len(data)-n], nil
}
