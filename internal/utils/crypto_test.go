package utils

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testKey = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

func TestCipher_RoundTrip(t *testing.T) {
	c, err := NewCipher(testKey)
	if err != nil {
		t.Fatalf("NewCipher() error = %v", err)
	}

	for _, plain := range []string{"my-secret-token", "", "ünïcödé ✓"} {
		enc, err := c.Encrypt(plain)
		if err != nil {
			t.Fatalf("Encrypt() error = %v", err)
		}
		if len(strings.Split(enc, ":")) != 3 {
			t.Errorf("ciphertext %q should have iv:ciphertext:tag form", enc)
		}
		if plain != "" && strings.Contains(enc, plain) {
			t.Error("ciphertext must not contain the plaintext")
		}
		dec, err := c.Decrypt(enc)
		if err != nil {
			t.Fatalf("Decrypt() error = %v", err)
		}
		if dec != plain {
			t.Errorf("Decrypt() = %q, expected %q", dec, plain)
		}
	}
}

func TestCipher_RandomIV(t *testing.T) {
	c, _ := NewCipher(testKey)
	a, _ := c.Encrypt("same")
	b, _ := c.Encrypt("same")
	if a == b {
		t.Error("two encryptions of the same text should differ")
	}
}

func TestCipher_Tampered(t *testing.T) {
	c, _ := NewCipher(testKey)
	enc, _ := c.Encrypt("secret")
	parts := strings.Split(enc, ":")

	flipped := []byte(parts[1])
	if flipped[0] == 'a' {
		flipped[0] = 'b'
	} else {
		flipped[0] = 'a'
	}
	tampered := parts[0] + ":" + string(flipped) + ":" + parts[2]

	if _, err := c.Decrypt(tampered); err == nil {
		t.Error("Decrypt should fail on tampered ciphertext")
	}
}

func TestCipher_WrongKey(t *testing.T) {
	c1, _ := NewCipher(testKey)
	c2, _ := NewCipher(strings.Repeat("f", 64))
	enc, _ := c1.Encrypt("secret")
	if _, err := c2.Decrypt(enc); err == nil {
		t.Error("Decrypt with a different key should fail")
	}
}

func TestCipher_InvalidFormat(t *testing.T) {
	c, _ := NewCipher(testKey)
	for _, bad := range []string{"", "abc", "a:b", "zz:zz:zz", "00:00"} {
		if _, err := c.Decrypt(bad); !errors.Is(err, ErrInvalidCiphertext) {
			t.Errorf("Decrypt(%q) expected ErrInvalidCiphertext, got %v", bad, err)
		}
	}
}

func TestNewCipher_InvalidKey(t *testing.T) {
	for _, key := range []string{"", "short", strings.Repeat("z", 64)} {
		if _, err := NewCipher(key); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("NewCipher(%q) expected ErrInvalidKey, got %v", key, err)
		}
	}
}

func TestResolveEncryptionKey(t *testing.T) {
	keyFile := filepath.Join(t.TempDir(), "keys", "encryption.key")

	key, err := ResolveEncryptionKey(testKey, keyFile)
	if err != nil || key != testKey {
		t.Fatalf("configured key should win, got %q, %v", key, err)
	}

	generated, err := ResolveEncryptionKey("", keyFile)
	if err != nil {
		t.Fatalf("ResolveEncryptionKey() error = %v", err)
	}
	if len(generated) != 64 {
		t.Errorf("generated key length = %d, expected 64", len(generated))
	}
	info, err := os.Stat(keyFile)
	if err != nil {
		t.Fatalf("key file should be persisted: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("key file mode = %v, expected 0600", info.Mode().Perm())
	}

	again, _ := ResolveEncryptionKey("", keyFile)
	if again != generated {
		t.Error("persisted key should be reused on the next resolve")
	}
}
