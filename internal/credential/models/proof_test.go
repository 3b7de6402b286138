package models

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	id "custodia/pkg/domain"
)

func signedCredential(t *testing.T) (*Credential, ed25519.PublicKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	c, err := NewCredential(id.NewTenantID(), "enrollment", "did:key:z6MkIssuer", "did:key:z6MkSubject",
		map[string]any{"institution": "Aldgate College", "program": "Mathematics BSc"}, nil, now)
	require.NoError(t, err)

	proof, err := SignCredential(c, "did:key:z6MkIssuer#key-1", priv, now)
	require.NoError(t, err)
	c.Proof = proof
	return c, pub
}

func TestProofRoundTrip(t *testing.T) {
	c, pub := signedCredential(t)

	require.Equal(t, ProofType, c.Proof.Type)
	require.Equal(t, "did:key:z6MkIssuer#key-1", c.Proof.VerificationMethod)
	require.NoError(t, VerifyCredentialProof(c, pub))
}

func TestProofWrongKey(t *testing.T) {
	c, _ := signedCredential(t)
	otherPub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	require.ErrorIs(t, VerifyCredentialProof(c, otherPub), ErrProofInvalid)
}

func TestProofTamperedBody(t *testing.T) {
	tamper := []func(c *Credential){
		func(c *Credential) { c.Claims["program"] = "Law LLB" },
		func(c *Credential) { c.SubjectDID = "did:key:z6MkImpostor" },
		func(c *Credential) { c.Type = "tutor_accreditation" },
		func(c *Credential) { c.ID = id.NewCredentialID() },
		func(c *Credential) { c.IssuedAt = c.IssuedAt.Add(-48 * time.Hour) },
		func(c *Credential) { later := c.IssuedAt.Add(time.Hour); c.ExpiresAt = &later },
	}
	for _, mutate := range tamper {
		c, pub := signedCredential(t)
		mutate(c)
		require.ErrorIs(t, VerifyCredentialProof(c, pub), ErrProofInvalid)
	}
}

func TestProofKeyIDMismatch(t *testing.T) {
	c, pub := signedCredential(t)
	// A proof claiming a different verification method than the one that
	// signed must not verify, even with the right key.
	c.Proof.VerificationMethod = "did:key:z6MkIssuer#key-2"
	require.ErrorIs(t, VerifyCredentialProof(c, pub), ErrProofInvalid)
}

func TestNewCredentialValidation(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)

	_, err := NewCredential(id.NewTenantID(), "", "did:a", "did:b", nil, nil, now)
	require.Error(t, err)

	_, err = NewCredential(id.NewTenantID(), "enrollment", "", "did:b", nil, nil, now)
	require.Error(t, err)

	_, err = NewCredential(id.NewTenantID(), "enrollment", "did:a", "did:b", nil, &past, now)
	require.Error(t, err)
}

func TestIsExpired(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	expires := now.Add(time.Hour)

	c, err := NewCredential(id.NewTenantID(), "enrollment", "did:a", "did:b", nil, &expires, now)
	require.NoError(t, err)

	require.False(t, c.IsExpired(now))
	require.True(t, c.IsExpired(now.Add(2*time.Hour)))

	forever, err := NewCredential(id.NewTenantID(), "enrollment", "did:a", "did:b", nil, nil, now)
	require.NoError(t, err)
	require.False(t, forever.IsExpired(now.Add(100*365*24*time.Hour)))
}
