package models

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	credModels "custodia/internal/credential/models"
	dErrors "custodia/pkg/domain-errors"
)

// presentationClaims is the signed JWS payload for the envelope. The
// challenge and domain are part of the payload, and the embedded
// credentials are bound in via a digest over their canonical encoding.
type presentationClaims struct {
	Challenge         string `json:"vp_challenge"`
	Domain            string `json:"vp_domain,omitempty"`
	CredentialsDigest string `json:"vp_credentials_digest"`
	jwt.RegisteredClaims
}

func newPresentationClaims(p *Presentation) (presentationClaims, error) {
	digest, err := credentialsDigest(p.Credentials)
	if err != nil {
		return presentationClaims{}, err
	}
	return presentationClaims{
		Challenge:         p.Challenge,
		Domain:            p.Domain,
		CredentialsDigest: digest,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:       p.ID.String(),
			Issuer:   p.HolderDID,
			IssuedAt: jwt.NewNumericDate(p.CreatedAt),
		},
	}, nil
}

// SignPresentation produces the envelope proof with the holder's active key.
func SignPresentation(p *Presentation, verificationMethodID string, privateKey ed25519.PrivateKey, now time.Time) (credModels.Proof, error) {
	claims, err := newPresentationClaims(p)
	if err != nil {
		return credModels.Proof{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to prepare presentation payload")
	}
	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	token.Header["kid"] = verificationMethodID

	jws, err := token.SignedString(privateKey)
	if err != nil {
		return credModels.Proof{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign presentation")
	}
	return credModels.Proof{
		Type:               credModels.ProofType,
		Created:            now,
		VerificationMethod: verificationMethodID,
		JWS:                jws,
	}, nil
}

// VerifyPresentationProof checks the holder signature over the envelope and
// confirms the signed challenge, domain, holder, and credential set match
// what is presented.
func VerifyPresentationProof(p *Presentation, publicKey ed25519.PublicKey) error {
	parsed, err := jwt.ParseWithClaims(p.Proof.JWS, &presentationClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return publicKey, nil
	}, jwt.WithoutClaimsValidation())
	if err != nil || !parsed.Valid {
		return credModels.ErrProofInvalid
	}

	kid, _ := parsed.Header["kid"].(string)
	if kid != p.Proof.VerificationMethod {
		return credModels.ErrProofInvalid
	}

	signed, ok := parsed.Claims.(*presentationClaims)
	if !ok {
		return credModels.ErrProofInvalid
	}
	digest, err := credentialsDigest(p.Credentials)
	if err != nil {
		return credModels.ErrProofInvalid
	}
	if signed.ID != p.ID.String() ||
		signed.Issuer != p.HolderDID ||
		signed.Challenge != p.Challenge ||
		signed.Domain != p.Domain ||
		signed.CredentialsDigest != digest {
		return credModels.ErrProofInvalid
	}
	// CreatedAt is signed as well: the envelope date decides which holder
	// key must cover it, so it cannot be rewritten on the wire.
	if signed.IssuedAt == nil || !signed.IssuedAt.Time.Equal(p.CreatedAt.Truncate(time.Second)) {
		return credModels.ErrProofInvalid
	}
	return nil
}

// credentialsDigest binds the embedded credentials to the envelope
// signature. Canonical: encoding/json sorts map keys, so equal credential
// sets encode identically.
func credentialsDigest(credentials []credModels.Credential) (string, error) {
	encoded, err := json.Marshal(credentials)
	if err != nil {
		return "", fmt.Errorf("encode credentials: %w", err)
	}
	sum := sha256.Sum256(encoded)
	return hex.EncodeToString(sum[:]), nil
}
