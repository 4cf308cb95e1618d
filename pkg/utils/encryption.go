package utils

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"
	"sync"
)

var (
	encryptionMu  sync.RWMutex
	encryptionKey []byte
)

// ErrEncryptionDisabled is returned when no key has been configured.
var ErrEncryptionDisabled = errors.New("encryption key not configured")

// ParseEncryptionKey decodes a base64-encoded 32-byte AES-256 key.
func ParseEncryptionKey(keyBase64 string) ([]byte, error) {
	keyBytes, err := base64.StdEncoding.DecodeString(keyBase64)
	if err != nil {
		return nil, errors.New("ENCRYPTION_KEY must be base64-encoded")
	}
	if len(keyBytes) != 32 {
		return nil, errors.New("ENCRYPTION_KEY must decode to exactly 32 bytes (256 bits)")
	}
	return keyBytes, nil
}

// ConfigureEncryption installs the process-wide key. An empty value disables
// encryption.
func ConfigureEncryption(keyBase64 string) error {
	var key []byte
	if keyBase64 != "" {
		parsed, err := ParseEncryptionKey(keyBase64)
		if err != nil {
			return err
		}
		key = parsed
	}
	encryptionMu.Lock()
	encryptionKey = key
	encryptionMu.Unlock()
	return nil
}

// EncryptionEnabled reports whether a key is configured.
func EncryptionEnabled() bool {
	encryptionMu.RLock()
	defer encryptionMu.RUnlock()
	return encryptionKey != nil
}

func currentKey() ([]byte, error) {
	encryptionMu.RLock()
	defer encryptionMu.RUnlock()
	if encryptionKey == nil {
		return nil, ErrEncryptionDisabled
	}
	return encryptionKey, nil
}

// Encrypt encrypts plaintext using AES-256-GCM; the nonce is prepended.
func Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	key, err := currentKey()
	if err != nil {
		return "", err
	}
	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err = io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	ciphertext := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// Decrypt reverses Encrypt.
func Decrypt(ciphertext string) (string, error) {
	if ciphertext == "" {
		return "", nil
	}
	key, err := currentKey()
	if err != nil {
		return "", err
	}
	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", err
	}
	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return "", errors.New("ciphertext too short")
	}

	nonce, sealed := data[:nonceSize], data[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
