// Package vault encrypts OAuth credentials before they are persisted.
//
// Stored format: base64(nonce[16] || ciphertext || tag[16]) using AES-256-GCM.
// Values written through SafeEncrypt carry an explicit "enc:v1:" marker so
// that SafeDecrypt can tell them apart from legacy plaintext tokens.
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"brandhub/infrastructure/bugsink"
	"brandhub/infrastructure/logger"

	"github.com/spf13/viper"
)

const (
	KeyEnv    = "TOKEN_ENCRYPTION_KEY"
	NonceSize = 16
	TagSize   = 16
	Marker    = "enc:v1:"
)

var (
	ErrMissingKey = errors.New("token encryption key is not configured")
	ErrIntegrity  = errors.New("token ciphertext failed integrity check")
)

// KeySource returns the raw secret. It is consulted on every call.
type KeySource func() string

func init() {
	_ = viper.BindEnv(KeyEnv)
}

// EnvKeySource reads the secret through viper, which falls back to the
// process environment.
func EnvKeySource() string {
	return viper.GetString(KeyEnv)
}

type Vault struct {
	keySource KeySource
}

func New(src KeySource) *Vault {
	if src == nil {
		src = EnvKeySource
	}
	return &Vault{keySource: src}
}

// Default reads the key from TOKEN_ENCRYPTION_KEY.
func Default() *Vault { return New(EnvKeySource) }

// HasKey reports whether a key is currently configured.
func (v *Vault) HasKey() bool {
	return strings.TrimSpace(v.keySource()) != ""
}

func (v *Vault) key() ([]byte, error) {
	secret := strings.TrimSpace(v.keySource())
	if secret == "" {
		return nil, ErrMissingKey
	}
	if len(secret) == 64 {
		if b, err := hex.DecodeString(secret); err == nil {
			return b, nil
		}
	}
	sum := sha256.Sum256([]byte(secret))
	return sum[:], nil
}

func (v *Vault) aead() (cipher.AEAD, error) {
	key, err := v.key()
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	return cipher.NewGCMWithNonceSize(block, NonceSize)
}

// Encrypt seals plaintext with a fresh random nonce.
func (v *Vault) Encrypt(plaintext string) (string, error) {
	gcm, err := v.aead()
	if err != nil {
		return "", err
	}
	nonce := make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	// Seal appends ciphertext||tag after the nonce prefix.
	sealed := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a blob produced by Encrypt. Any corruption, truncation or
// wrong key yields an error wrapping ErrIntegrity.
func (v *Vault) Decrypt(ciphertext string) (string, error) {
	gcm, err := v.aead()
	if err != nil {
		return "", err
	}
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: invalid encoding", ErrIntegrity)
	}
	if len(raw) < NonceSize+TagSize {
		return "", fmt.Errorf("%w: blob too short", ErrIntegrity)
	}
	plain, err := gcm.Open(nil, raw[:NonceSize], raw[NonceSize:], nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrIntegrity, err)
	}
	return string(plain), nil
}

// IsEncrypted reports whether a stored value looks like vault output:
// either it carries the marker, or it is base64 long enough to hold a
// nonce and a tag.
func IsEncrypted(value string) bool {
	if strings.HasPrefix(value, Marker) {
		return true
	}
	return looksLikeBlob(value)
}

func looksLikeBlob(value string) bool {
	if value == "" {
		return false
	}
	raw, err := base64.StdEncoding.Strict().DecodeString(value)
	if err != nil {
		return false
	}
	return len(raw) >= NonceSize+TagSize
}

// SafeEncrypt encrypts when a key is configured and stores plaintext
// otherwise.
func (v *Vault) SafeEncrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	if !v.HasKey() {
		logger.GetLogger().Warn("token encryption key not set; storing credential unencrypted")
		return plaintext, nil
	}
	blob, err := v.Encrypt(plaintext)
	if err != nil {
		return "", err
	}
	return Marker + blob, nil
}

// SafeDecrypt returns the plaintext of a stored credential.
//
// Marked values must decrypt. Unmarked values are legacy: a strict base64
// blob long enough to hold a nonce and a tag must decrypt too, anything else
// is returned as plaintext.
func (v *Vault) SafeDecrypt(stored string) (string, error) {
	if stored == "" {
		return "", nil
	}
	marked := strings.HasPrefix(stored, Marker)
	if !v.HasKey() {
		if marked {
			return "", ErrMissingKey
		}
		logger.GetLogger().Warn("token encryption key not set; reading credential as plaintext")
		return stored, nil
	}
	if marked {
		return v.Decrypt(strings.TrimPrefix(stored, Marker))
	}
	if !looksLikeBlob(stored) {
		return stored, nil
	}
	plain, err := v.Decrypt(stored)
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("unmarked credential blob did not decrypt")
		bugsink.CaptureError(err, map[string]string{"component": "vault"})
		return "", err
	}
	return plain, nil
}
