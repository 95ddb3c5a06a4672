// Package secrets encrypts third-party API keys at rest.
//
// Blobs are stored as "salt:nonce:tag:ciphertext" with each segment hex-encoded.
// A fresh salt and nonce are drawn per encryption, so encrypting the same
// plaintext twice never yields the same blob. The per-message key is derived
// from the long-lived master secret with PBKDF2-SHA512.
package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	saltLength = 64
	nonceSize  = 16
	tagSize    = 16
	keyLength  = 32
	kdfRounds  = 100_000

	minMasterKeyLength = 32
)

// ErrMalformedBlob is returned when a stored blob does not parse.
var ErrMalformedBlob = errors.New("secrets: malformed encrypted blob")

// ErrDecryptFailed is returned when authentication of a blob fails, which
// covers both tampering and a wrong master key. Callers must treat it as
// fatal for the credential; there is no fallback.
var ErrDecryptFailed = errors.New("secrets: decryption failed")

// Cipher performs authenticated encryption of credential strings.
type Cipher struct {
	masterKey []byte
}

// NewCipher validates the master key and returns a ready Cipher.
func NewCipher(masterKey string) (*Cipher, error) {
	if len(masterKey) < minMasterKeyLength {
		return nil, fmt.Errorf("secrets: master key must be at least %d characters", minMasterKeyLength)
	}
	return &Cipher{masterKey: []byte(masterKey)}, nil
}

// Encrypt seals plaintext under a freshly derived key.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("secrets: generate salt: %w", err)
	}
	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("secrets: generate nonce: %w", err)
	}

	gcm, err := c.aead(salt)
	if err != nil {
		return "", err
	}

	sealed := gcm.Seal(nil, nonce, []byte(plaintext), nil)
	// Seal appends the tag; store it as its own segment.
	ct := sealed[:len(sealed)-tagSize]
	tag := sealed[len(sealed)-tagSize:]

	return strings.Join([]string{
		hex.EncodeToString(salt),
		hex.EncodeToString(nonce),
		hex.EncodeToString(tag),
		hex.EncodeToString(ct),
	}, ":"), nil
}

// Decrypt opens a stored blob. It fails closed: any parse error, tampering,
// or key mismatch returns an error and never a partial plaintext.
func (c *Cipher) Decrypt(blob string) (string, error) {
	parts := strings.Split(blob, ":")
	if len(parts) != 4 {
		return "", ErrMalformedBlob
	}

	salt, err := hex.DecodeString(parts[0])
	if err != nil || len(salt) != saltLength {
		return "", ErrMalformedBlob
	}
	nonce, err := hex.DecodeString(parts[1])
	if err != nil || len(nonce) != nonceSize {
		return "", ErrMalformedBlob
	}
	tag, err := hex.DecodeString(parts[2])
	if err != nil || len(tag) != tagSize {
		return "", ErrMalformedBlob
	}
	ct, err := hex.DecodeString(parts[3])
	if err != nil {
		return "", ErrMalformedBlob
	}

	gcm, err := c.aead(salt)
	if err != nil {
		return "", err
	}

	plaintext, err := gcm.Open(nil, nonce, append(ct, tag...), nil)
	if err != nil {
		return "", ErrDecryptFailed
	}
	return string(plaintext), nil
}

func (c *Cipher) aead(salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key(c.masterKey, salt, kdfRounds, keyLength, sha512.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("secrets: init cipher: %w", err)
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, nonceSize)
	if err != nil {
		return nil, fmt.Errorf("secrets: init gcm: %w", err)
	}
	return gcm, nil
}
