package utils

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/afterposten/backend/pkg/logger"
)

const (
	keyLengthHex = 64 // 32 bytes
	gcmIVLength  = 12
	gcmTagLength = 16
)

var (
	ErrInvalidKey        = errors.New("encryption key must be a 64-char hex string (32 bytes)")
	ErrInvalidCiphertext = errors.New("invalid ciphertext format")
)

// Cipher encrypts publisher secrets with AES-256-GCM.
// Ciphertexts are "iv:ciphertext:tag", each part hex encoded.
type Cipher struct {
	aead cipher.AEAD
}

func NewCipher(hexKey string) (*Cipher, error) {
	if len(hexKey) != keyLengthHex {
		return nil, ErrInvalidKey
	}
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, ErrInvalidKey
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCMWithNonceSize(block, gcmIVLength)
	if err != nil {
		return nil, err
	}
	return &Cipher{aead: aead}, nil
}

func (c *Cipher) Encrypt(plaintext string) (string, error) {
	iv := make([]byte, gcmIVLength)
	if _, err := rand.Read(iv); err != nil {
		return "", err
	}
	sealed := c.aead.Seal(nil, iv, []byte(plaintext), nil)
	body, tag := sealed[:len(sealed)-gcmTagLength], sealed[len(sealed)-gcmTagLength:]
	return hex.EncodeToString(iv) + ":" + hex.EncodeToString(body) + ":" + hex.EncodeToString(tag), nil
}

func (c *Cipher) Decrypt(ciphertext string) (string, error) {
	parts := strings.Split(ciphertext, ":")
	if len(parts) != 3 || parts[0] == "" || parts[2] == "" {
		return "", ErrInvalidCiphertext
	}
	iv, err := hex.DecodeString(parts[0])
	if err != nil || len(iv) != gcmIVLength {
		return "", ErrInvalidCiphertext
	}
	body, err := hex.DecodeString(parts[1])
	if err != nil {
		return "", ErrInvalidCiphertext
	}
	tag, err := hex.DecodeString(parts[2])
	if err != nil || len(tag) != gcmTagLength {
		return "", ErrInvalidCiphertext
	}
	plain, err := c.aead.Open(nil, iv, append(body, tag...), nil)
	if err != nil {
		return "", fmt.Errorf("decrypt: %w", err)
	}
	return string(plain), nil
}

// DefaultKeyFile is ~/.afterposten/encryption.key.
func DefaultKeyFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".afterposten", "encryption.key")
}

// ResolveEncryptionKey picks the configured key, then the key file, and
// otherwise generates a new key and persists it to the key file.
func ResolveEncryptionKey(configured, keyFile string) (string, error) {
	if len(configured) == keyLengthHex {
		return configured, nil
	}
	if configured != "" {
		logger.Warn().Msg("[Crypto] Configured encryption key has wrong length, ignoring it")
	}

	if keyFile == "" {
		keyFile = DefaultKeyFile()
	}

	if data, err := os.ReadFile(keyFile); err == nil {
		if key := strings.TrimSpace(string(data)); len(key) == keyLengthHex {
			return key, nil
		}
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	key := hex.EncodeToString(raw)

	if err := os.MkdirAll(filepath.Dir(keyFile), 0700); err != nil {
		return "", err
	}
	if err := os.WriteFile(keyFile, []byte(key), 0600); err != nil {
		return "", err
	}
	logger.Infof("[Crypto] Generated new encryption key at %s", keyFile)
	return key, nil
}
