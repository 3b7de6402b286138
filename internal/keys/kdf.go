// Package keys implements the cryptographic primitives for wallet custody:
// passphrase key derivation, signing key-pair generation, authenticated
// encryption of private key material, and message signing.
//
// Everything here is pure and CPU-bound. Persistence and session handling
// live in the wallet context; this package never stores anything.
package keys

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/argon2"

	dErrors "custodia/pkg/domain-errors"
)

// Argon2id defaults. Parameters travel with the wallet so stored blobs stay
// decryptable if the defaults are raised later.
const (
	defaultKDFTime      = 3
	defaultKDFMemoryKiB = 64 * 1024
	defaultKDFThreads   = 4
	derivedKeyLen       = 32
	saltLen             = 16
)

// MinPassphraseLength is the floor applied when no explicit minimum is
// configured.
const MinPassphraseLength = 12

// KDFParams captures the argon2id parameters used to derive a wallet's
// key-encryption key. Serialized alongside the keystore.
type KDFParams struct {
	Salt      string `json:"salt"` // base64, raw std encoding
	Time      uint32 `json:"time"`
	MemoryKiB uint32 `json:"memory_kib"`
	Threads   uint8  `json:"threads"`
	KeyLen    uint32 `json:"key_len"`
}

// NewKDFParams generates fresh parameters with a random salt.
func NewKDFParams() (KDFParams, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return KDFParams{}, fmt.Errorf("generate kdf salt: %w", err)
	}
	return KDFParams{
		Salt:      base64.RawStdEncoding.EncodeToString(salt),
		Time:      defaultKDFTime,
		MemoryKiB: defaultKDFMemoryKiB,
		Threads:   defaultKDFThreads,
		KeyLen:    derivedKeyLen,
	}, nil
}

// DeriveKey derives the symmetric key-encryption key from a passphrase.
// Deterministic for a given (passphrase, params) pair.
func DeriveKey(passphrase string, params KDFParams, minLength int) ([]byte, error) {
	if minLength <= 0 {
		minLength = MinPassphraseLength
	}
	if len(passphrase) < minLength {
		return nil, dErrors.Newf(dErrors.CodeValidation, "passphrase must be at least %d characters", minLength)
	}
	salt, err := base64.RawStdEncoding.DecodeString(params.Salt)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "malformed kdf salt")
	}
	return argon2.IDKey([]byte(passphrase), salt, params.Time, params.MemoryKiB, params.Threads, params.KeyLen), nil
}

// KeysEqual compares two derived keys in constant time.
func KeysEqual(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}
