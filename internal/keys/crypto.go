package keys

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
)

// ErrDecryptionFailed is the uniform failure for authenticated decryption.
// A wrong key and a tampered blob are indistinguishable to callers; services
// translate this into AuthenticationFailed without extra detail.
var ErrDecryptionFailed = errors.New("keystore decryption failed")

// EncryptPrivateKey seals a private key under the derived symmetric key with
// AES-256-GCM. The returned blob is nonce||ciphertext.
func EncryptPrivateKey(privateKey ed25519.PrivateKey, symmetricKey []byte) ([]byte, error) {
	aead, err := newAEAD(symmetricKey)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	return aead.Seal(nonce, nonce, privateKey, nil), nil
}

// DecryptPrivateKey opens a blob produced by EncryptPrivateKey. Any failure
// (short blob, wrong key, tampering) comes back as ErrDecryptionFailed.
func DecryptPrivateKey(blob, symmetricKey []byte) (ed25519.PrivateKey, error) {
	aead, err := newAEAD(symmetricKey)
	if err != nil {
		return nil, err
	}
	if len(blob) < aead.NonceSize() {
		return nil, ErrDecryptionFailed
	}
	nonce, ciphertext := blob[:aead.NonceSize()], blob[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	if len(plaintext) != ed25519.PrivateKeySize {
		return nil, ErrDecryptionFailed
	}
	return ed25519.PrivateKey(plaintext), nil
}

// EncryptBlob seals an arbitrary payload (backup export) under a derived key.
func EncryptBlob(payload, symmetricKey []byte) ([]byte, error) {
	aead, err := newAEAD(symmetricKey)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	return aead.Seal(nonce, nonce, payload, nil), nil
}

// DecryptBlob opens a payload sealed by EncryptBlob with the uniform failure.
func DecryptBlob(blob, symmetricKey []byte) ([]byte, error) {
	aead, err := newAEAD(symmetricKey)
	if err != nil {
		return nil, err
	}
	if len(blob) < aead.NonceSize() {
		return nil, ErrDecryptionFailed
	}
	nonce, ciphertext := blob[:aead.NonceSize()], blob[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return plaintext, nil
}

func newAEAD(symmetricKey []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(symmetricKey)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	return cipher.NewGCM(block)
}
