// Package vault seals third-party API credentials under a user passphrase.
// The passphrase is only used to derive the key and is never stored; losing
// it makes the sealed credentials unrecoverable.
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// Version tags the sealing scheme stored alongside every blob.
	Version = "v1"
	// Iterations is the PBKDF2 work factor.
	Iterations = 250000
	keyLength  = 32
	nonceSize  = 12
)

var (
	ErrEmptyPassphrase    = errors.New("vault: passphrase must not be empty")
	ErrDecrypt            = errors.New("vault: wrong passphrase or corrupted data")
	ErrUnsupportedVersion = errors.New("vault: unsupported version")
	ErrMalformed          = errors.New("vault: malformed sealed payload")
)

// Sealed is the storable form of an encrypted secret.
type Sealed struct {
	Version    string `json:"v" bson:"v"`
	Nonce      string `json:"iv" bson:"iv"`
	Ciphertext string `json:"ct" bson:"ct"`
	Timestamp  string `json:"ts" bson:"ts"`
}

// Vault derives keys for a fixed service label.
type Vault struct {
	label string
	rand  io.Reader
	now   func() time.Time
}

// New returns a vault whose salts include the given service label.
func New(label string) *Vault {
	return &Vault{label: label, rand: rand.Reader, now: time.Now}
}

// Salt is the per-user salt string.
func (v *Vault) Salt(userID string) string {
	return "packwrap|" + userID + "|" + v.label
}

// DeriveKey runs PBKDF2-HMAC-SHA256 over the passphrase and the user's salt.
func (v *Vault) DeriveKey(passphrase, userID string) []byte {
	return pbkdf2.Key([]byte(passphrase), []byte(v.Salt(userID)), Iterations, keyLength, sha256.New)
}

// Seal encrypts the JSON form of secret with AES-256-GCM.
func (v *Vault) Seal(passphrase, userID string, secret any) (Sealed, error) {
	if passphrase == "" {
		return Sealed{}, ErrEmptyPassphrase
	}

	plaintext, err := json.Marshal(secret)
	if err != nil {
		return Sealed{}, fmt.Errorf("vault: encode secret: %w", err)
	}

	aead, err := newAEAD(v.DeriveKey(passphrase, userID))
	if err != nil {
		return Sealed{}, err
	}

	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(v.rand, nonce); err != nil {
		return Sealed{}, fmt.Errorf("vault: generate nonce: %w", err)
	}

	return Sealed{
		Version:    Version,
		Nonce:      base64.StdEncoding.EncodeToString(nonce),
		Ciphertext: base64.StdEncoding.EncodeToString(aead.Seal(nil, nonce, plaintext, nil)),
		Timestamp:  v.now().UTC().Format(time.RFC3339),
	}, nil
}

// Open decrypts sealed into dst. A wrong passphrase or any tampering yields
// ErrDecrypt.
func (v *Vault) Open(passphrase, userID string, sealed Sealed, dst any) error {
	if passphrase == "" {
		return ErrEmptyPassphrase
	}
	if sealed.Version != Version {
		return fmt.Errorf("%w: %q", ErrUnsupportedVersion, sealed.Version)
	}

	nonce, err := base64.StdEncoding.DecodeString(sealed.Nonce)
	if err != nil || len(nonce) != nonceSize {
		return ErrMalformed
	}
	ciphertext, err := base64.StdEncoding.DecodeString(sealed.Ciphertext)
	if err != nil {
		return ErrMalformed
	}

	aead, err := newAEAD(v.DeriveKey(passphrase, userID))
	if err != nil {
		return err
	}

	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return ErrDecrypt
	}

	if err := json.Unmarshal(plaintext, dst); err != nil {
		return fmt.Errorf("vault: decode secret: %w", err)
	}
	return nil
}

func newAEAD(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("vault: init cipher: %w", err)
	}
	aead, err := cipher.NewGCMWithNonceSize(block, nonceSize)
	if err != nil {
		return nil, fmt.Errorf("vault: init gcm: %w", err)
	}
	return aead, nil
}
