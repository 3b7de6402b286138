package keys

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/mr-tron/base58"
)

// KeyPair is one asymmetric signing key. The private half only ever exists
// encrypted under the wallet's key-encryption key; a superseded key is kept
// for verifying old signatures but never signs new material.
type KeyPair struct {
	ID                  string     `json:"id"`
	PublicKey           []byte     `json:"public_key"`
	EncryptedPrivateKey []byte     `json:"encrypted_private_key"`
	CreatedAt           time.Time  `json:"created_at"`
	SupersededAt        *time.Time `json:"superseded_at,omitempty"`
}

// Generate creates a fresh ed25519 key pair and immediately seals the
// private key under symmetricKey. The key ID is a stable fingerprint of the
// public key so it survives re-encryption under a new passphrase.
func Generate(symmetricKey []byte, now time.Time) (KeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return KeyPair{}, fmt.Errorf("generate ed25519 key: %w", err)
	}
	encrypted, err := EncryptPrivateKey(priv, symmetricKey)
	if err != nil {
		return KeyPair{}, err
	}
	return KeyPair{
		ID:                  Fingerprint(pub),
		PublicKey:           pub,
		EncryptedPrivateKey: encrypted,
		CreatedAt:           now,
	}, nil
}

// Fingerprint derives the key ID from a public key: base58 of the first 16
// bytes of its SHA-256 digest.
func Fingerprint(pub ed25519.PublicKey) string {
	sum := sha256.Sum256(pub)
	return base58.Encode(sum[:16])
}

// IsActive reports whether the key may sign new material.
func (k KeyPair) IsActive() bool {
	return k.SupersededAt == nil
}

// Supersede marks the key verify-only. Idempotent.
func (k *KeyPair) Supersede(now time.Time) {
	if k.SupersededAt == nil {
		t := now
		k.SupersededAt = &t
	}
}

// Sign signs payload with an unsealed private key.
func Sign(payload []byte, privateKey ed25519.PrivateKey) []byte {
	return ed25519.Sign(privateKey, payload)
}

// Verify reports whether signature covers payload under publicKey.
func Verify(payload, signature []byte, publicKey ed25519.PublicKey) bool {
	if len(publicKey) != ed25519.PublicKeySize {
		return false
	}
	return ed25519.Verify(publicKey, payload, signature)
}
