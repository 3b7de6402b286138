package models

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/mr-tron/base58"

	dErrors "custodia/pkg/domain-errors"
	id "custodia/pkg/domain"
)

// multicodec prefix for an ed25519 public key (0xed varint-encoded).
var ed25519Multicodec = []byte{0xed, 0x01}

// MultibaseKey encodes a public key as base58btc multibase with the ed25519
// multicodec prefix, the form did:key identifiers and
// Ed25519VerificationKey2020 methods carry.
func MultibaseKey(pub ed25519.PublicKey) string {
	return "z" + base58.Encode(append(append([]byte{}, ed25519Multicodec...), pub...))
}

// DecodeMultibaseKey reverses MultibaseKey.
func DecodeMultibaseKey(encoded string) (ed25519.PublicKey, error) {
	if !strings.HasPrefix(encoded, "z") {
		return nil, dErrors.New(dErrors.CodeValidation, "key must be base58btc multibase")
	}
	raw, err := base58.Decode(encoded[1:])
	if err != nil {
		return nil, dErrors.New(dErrors.CodeValidation, "key is not valid base58")
	}
	if len(raw) != len(ed25519Multicodec)+ed25519.PublicKeySize ||
		raw[0] != ed25519Multicodec[0] || raw[1] != ed25519Multicodec[1] {
		return nil, dErrors.New(dErrors.CodeValidation, "key is not an ed25519 multicodec key")
	}
	return ed25519.PublicKey(raw[len(ed25519Multicodec):]), nil
}

// DIDForMethod derives the method-specific identifier:
//
//	did:key  — from the public key itself
//	did:web  — from the configured domain plus the wallet path
//	did:ethr — an address-shaped digest of the public key; anchoring the
//	           address on chain is an external collaborator's job
func DIDForMethod(method Method, pub ed25519.PublicKey, webDomain string, walletID id.WalletID) (string, error) {
	switch method {
	case MethodKey:
		return "did:key:" + MultibaseKey(pub), nil
	case MethodWeb:
		if webDomain == "" {
			return "", dErrors.New(dErrors.CodeValidation, "did:web requires a configured domain")
		}
		return fmt.Sprintf("did:web:%s:wallets:%s", webDomain, walletID), nil
	case MethodEthr:
		sum := sha256.Sum256(pub)
		return "did:ethr:0x" + hex.EncodeToString(sum[12:32]), nil
	default:
		return "", dErrors.Newf(dErrors.CodeValidation, "unsupported DID method %q", method)
	}
}

// MethodOf extracts the method from a DID string.
func MethodOf(did string) (Method, error) {
	parts := strings.SplitN(did, ":", 3)
	if len(parts) != 3 || parts[0] != "did" || parts[2] == "" {
		return "", dErrors.New(dErrors.CodeValidation, "malformed DID")
	}
	return ParseMethod(parts[1])
}

// NewVerificationMethod builds the document entry for a wallet key.
func NewVerificationMethod(did, keyID string, pub ed25519.PublicKey, createdAt time.Time) VerificationMethod {
	return VerificationMethod{
		ID:                 did + "#" + keyID,
		Type:               Ed25519VerificationKey2020,
		Controller:         did,
		KeyID:              keyID,
		PublicKeyMultibase: MultibaseKey(pub),
		CreatedAt:          createdAt,
	}
}
