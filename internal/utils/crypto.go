package utils

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"sync"

	"fsms/backend/pkg/config"
	phxlog "fsms/backend/pkg/log"
)

// Chave de desenvolvimento usada apenas quando ENCRYPTION_KEY_HEX não está definida fora de produção.
const devEncryptionKeyHex = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

var (
	ErrMissingEncryptionKey = errors.New("ENCRYPTION_KEY_HEX is required in production")
	ErrInvalidEncryptionKey = errors.New("encryption key must be 32 bytes (64 hex characters) for AES-256")
	ErrCiphertextTooShort   = errors.New("ciphertext too short")
)

var (
	keyMu         sync.RWMutex
	encryptionKey []byte
)

// SetEncryptionKey decodifica e instala a chave AES-256 usada por Encrypt/Decrypt.
func SetEncryptionKey(hexKey string) error {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEncryptionKey, err)
	}
	if len(key) != 32 {
		return ErrInvalidEncryptionKey
	}
	keyMu.Lock()
	encryptionKey = key
	keyMu.Unlock()
	return nil
}

// InitEncryptionKey carrega a chave a partir da configuração.
// Em ambientes que não são de produção, uma chave de desenvolvimento é usada se nenhuma estiver definida.
func InitEncryptionKey() error {
	hexKey := config.Cfg.EncryptionKeyHex
	if hexKey == "" {
		if config.Cfg.Environment == "production" {
			return ErrMissingEncryptionKey
		}
		phxlog.L.Warn("ENCRYPTION_KEY_HEX not set, using the development key. DO NOT USE IN PRODUCTION.")
		hexKey = devEncryptionKeyHex
	}
	return SetEncryptionKey(hexKey)
}

func currentKey() ([]byte, error) {
	keyMu.RLock()
	key := encryptionKey
	keyMu.RUnlock()
	if key != nil {
		return key, nil
	}
	if err := InitEncryptionKey(); err != nil {
		return nil, err
	}
	keyMu.RLock()
	defer keyMu.RUnlock()
	return encryptionKey, nil
}

func newGCM() (cipher.AEAD, error) {
	key, err := currentKey()
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// Encrypt encrypts data using AES-GCM. The nonce is prepended and the result hex encoded.
func Encrypt(plaintext string) (string, error) {
	gcm, err := newGCM()
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err = io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	ciphertext := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return hex.EncodeToString(ciphertext), nil
}

// Decrypt decrypts data produced by Encrypt.
func Decrypt(ciphertextHex string) (string, error) {
	ciphertext, err := hex.DecodeString(ciphertextHex)
	if err != nil {
		return "", err
	}

	gcm, err := newGCM()
	if err != nil {
		return "", err
	}

	nonceSize := gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return "", ErrCiphertextTooShort
	}

	nonce, encryptedMessage := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, encryptedMessage, nil)
	if err != nil {
		return "", err
	}

	return string(plaintext), nil
}
