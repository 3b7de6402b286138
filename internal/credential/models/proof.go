package models

import (
	"bytes"
	"crypto/ed25519"
	"encoding/json"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	dErrors "custodia/pkg/domain-errors"
)

// ErrProofInvalid marks any proof check failure. The cause stays internal
// so callers cannot distinguish a forged signature from a tampered body.
var ErrProofInvalid = errors.New("proof is invalid")

// credentialClaims is the signed JWS payload. It binds every field a
// verifier relies on: credential identity, issuer, subject, validity window,
// type, and the claim set itself.
type credentialClaims struct {
	CredentialType    string         `json:"vc_type"`
	CredentialSubject map[string]any `json:"vc_claims"`
	jwt.RegisteredClaims
}

func newCredentialClaims(c *Credential) credentialClaims {
	claims := credentialClaims{
		CredentialType:    c.Type,
		CredentialSubject: c.Claims,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:       c.ID.String(),
			Issuer:   c.IssuerDID,
			Subject:  c.SubjectDID,
			IssuedAt: jwt.NewNumericDate(c.IssuedAt),
		},
	}
	if c.ExpiresAt != nil {
		claims.ExpiresAt = jwt.NewNumericDate(*c.ExpiresAt)
	}
	return claims
}

// SignCredential produces the credential proof: a compact EdDSA JWS over the
// credential body, with the verification method ID in the kid header so
// verifiers can locate the exact key even after rotation.
func SignCredential(c *Credential, verificationMethodID string, privateKey ed25519.PrivateKey, now time.Time) (Proof, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, newCredentialClaims(c))
	token.Header["kid"] = verificationMethodID

	jws, err := token.SignedString(privateKey)
	if err != nil {
		return Proof{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign credential")
	}
	return Proof{
		Type:               ProofType,
		Created:            now,
		VerificationMethod: verificationMethodID,
		JWS:                jws,
	}, nil
}

// VerifyCredentialProof checks the proof signature against the given public
// key and confirms the signed payload matches the presented credential body.
// Expiration is deliberately not enforced here: the verifier reports it as a
// distinct outcome after the revocation check.
func VerifyCredentialProof(c *Credential, publicKey ed25519.PublicKey) error {
	parsed, err := jwt.ParseWithClaims(c.Proof.JWS, &credentialClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return publicKey, nil
	}, jwt.WithoutClaimsValidation())
	if err != nil || !parsed.Valid {
		return ErrProofInvalid
	}

	kid, _ := parsed.Header["kid"].(string)
	if kid != c.Proof.VerificationMethod {
		return ErrProofInvalid
	}

	signed, ok := parsed.Claims.(*credentialClaims)
	if !ok {
		return ErrProofInvalid
	}
	if signed.ID != c.ID.String() ||
		signed.Issuer != c.IssuerDID ||
		signed.Subject != c.SubjectDID ||
		signed.CredentialType != c.Type {
		return ErrProofInvalid
	}
	// The validity window is signed too; the presented timestamps must match
	// it, or the issuance date and expiry could be rewritten on the wire.
	if signed.IssuedAt == nil || !signed.IssuedAt.Time.Equal(c.IssuedAt.Truncate(time.Second)) {
		return ErrProofInvalid
	}
	if (signed.ExpiresAt == nil) != (c.ExpiresAt == nil) {
		return ErrProofInvalid
	}
	if signed.ExpiresAt != nil && !signed.ExpiresAt.Time.Equal(c.ExpiresAt.Truncate(time.Second)) {
		return ErrProofInvalid
	}
	if !jsonEqual(signed.CredentialSubject, c.Claims) {
		return ErrProofInvalid
	}
	return nil
}

// jsonEqual compares two claim maps by canonical JSON encoding; Go sorts
// map keys when marshalling, so equal claim sets encode identically.
func jsonEqual(a, b map[string]any) bool {
	aj, errA := json.Marshal(a)
	bj, errB := json.Marshal(b)
	return errA == nil && errB == nil && bytes.Equal(aj, bj)
}
