package service_test

import (
	"context"
	"crypto/ed25519"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	credModels "custodia/internal/credential/models"
	"custodia/internal/credential/revocation"
	"custodia/internal/credential/schema"
	credService "custodia/internal/credential/service"
	credStore "custodia/internal/credential/store"
	didService "custodia/internal/did/service"
	didStore "custodia/internal/did/store"
	walletService "custodia/internal/wallet/service"
	backupStore "custodia/internal/wallet/store/backup"
	sessionStore "custodia/internal/wallet/store/session"
	walletStore "custodia/internal/wallet/store/wallet"
	dErrors "custodia/pkg/domain-errors"
	id "custodia/pkg/domain"
	"custodia/pkg/platform/tx"
	"custodia/pkg/requestcontext"
)

const (
	passphrase = "correct-horse-battery"
	subjectDID = "did:key:z6MkhaXgBZDvotDkL5257faiztiGiC2QtKLGpbnnEGta2doK"
)

type CredentialServiceSuite struct {
	suite.Suite

	credentials *credStore.InMemory
	revocations *revocation.InMemory
	walletSvc   *walletService.Service
	didSvc      *didService.Service
	service     *credService.Service

	tenantID  id.TenantID
	userID    id.UserID
	issuerDID string
	now       time.Time
	ctx       context.Context
}

func TestCredentialServiceSuite(t *testing.T) {
	suite.Run(t, new(CredentialServiceSuite))
}

func (s *CredentialServiceSuite) SetupTest() {
	s.now = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
	s.tenantID = id.NewTenantID()
	s.userID = id.NewUserID()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	wallets := walletStore.NewInMemory()
	s.credentials = credStore.NewInMemory()
	s.revocations = revocation.NewInMemory()

	s.walletSvc = walletService.New(
		wallets,
		sessionStore.NewInMemoryWithClock(func() time.Time { return s.now }),
		backupStore.NewInMemory(),
		walletService.WithLogger(logger),
	)
	s.didSvc = didService.New(
		didStore.NewInMemory(),
		wallets,
		s.walletSvc,
		tx.NewMemoryRunner(),
		didService.WithLogger(logger),
	)
	s.walletSvc.BindDIDCreator(s.didSvc)

	registry := revocation.NewRegistry(s.revocations, s.credentials, revocation.WithRegistryLogger(logger))
	s.service = credService.New(
		s.credentials,
		registry,
		s.didSvc,
		s.walletSvc,
		wallets,
		schema.NewRegistry(),
		credService.WithLogger(logger),
	)

	result, err := s.walletSvc.CreateWallet(s.ctx, s.tenantID, s.userID, passphrase, "key")
	s.Require().NoError(err)
	s.issuerDID = result.PrimaryDID
	_, err = s.walletSvc.UnlockWallet(s.ctx, s.tenantID, s.userID, passphrase)
	s.Require().NoError(err)
}

func (s *CredentialServiceSuite) issue(claims map[string]any) *credModels.Credential {
	c, err := s.service.IssueCredential(s.ctx, credService.IssueRequest{
		TenantID:         s.tenantID,
		UserID:           s.userID,
		IssuerPassphrase: passphrase,
		CredentialType:   "enrollment",
		SubjectDID:       subjectDID,
		Claims:           claims,
	})
	s.Require().NoError(err)
	return c
}

func enrollmentClaims() map[string]any {
	return map[string]any{"institution": "Aldgate College", "program": "Mathematics BSc"}
}

func (s *CredentialServiceSuite) TestIssueAndVerify() {
	c := s.issue(enrollmentClaims())

	s.Equal(s.issuerDID, c.IssuerDID)
	s.Equal(credModels.StatusActive, c.Status)
	s.Equal(credModels.ProofType, c.Proof.Type)
	s.NotEmpty(c.Proof.JWS)
	s.Contains(c.Proof.VerificationMethod, s.issuerDID+"#")

	result, err := s.service.VerifyCredential(s.ctx, c, credService.VerifyOptions{CheckStatus: true, CheckSchema: true})
	s.Require().NoError(err)
	s.True(result.Valid)
	s.Empty(result.Reason)
}

func (s *CredentialServiceSuite) TestIssueRequiresUnlockedWallet() {
	s.Require().NoError(s.walletSvc.LockWallet(s.ctx, s.tenantID, s.userID))

	_, err := s.service.IssueCredential(s.ctx, credService.IssueRequest{
		TenantID:         s.tenantID,
		UserID:           s.userID,
		IssuerPassphrase: passphrase,
		CredentialType:   "enrollment",
		SubjectDID:       subjectDID,
		Claims:           enrollmentClaims(),
	})
	s.True(dErrors.HasCode(err, dErrors.CodeLocked))
}

func (s *CredentialServiceSuite) TestIssueUnknownType() {
	_, err := s.service.IssueCredential(s.ctx, credService.IssueRequest{
		TenantID:         s.tenantID,
		UserID:           s.userID,
		IssuerPassphrase: passphrase,
		CredentialType:   "diploma",
		SubjectDID:       subjectDID,
		Claims:           map[string]any{},
	})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *CredentialServiceSuite) TestIssueMalformedClaims() {
	_, err := s.service.IssueCredential(s.ctx, credService.IssueRequest{
		TenantID:         s.tenantID,
		UserID:           s.userID,
		IssuerPassphrase: passphrase,
		CredentialType:   "enrollment",
		SubjectDID:       subjectDID,
		Claims:           map[string]any{"institution": 42, "program": "Mathematics BSc"},
	})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *CredentialServiceSuite) TestTamperedClaimsFailSignature() {
	c := s.issue(enrollmentClaims())
	c.Claims["program"] = "Law LLB"

	result, err := s.service.VerifyCredential(s.ctx, c, credService.VerifyOptions{})
	s.Require().NoError(err)
	s.False(result.Valid)
	s.Equal(credModels.ReasonInvalidSignature, result.Reason)
}

func (s *CredentialServiceSuite) TestRevokeThenVerify() {
	c := s.issue(enrollmentClaims())

	entry, err := s.service.RevokeCredential(s.ctx, s.tenantID, c.ID, "enrollment withdrawn", "registrar")
	s.Require().NoError(err)
	s.Equal(c.ID, entry.CredentialID)

	stored, err := s.service.GetCredential(s.ctx, s.tenantID, c.ID)
	s.Require().NoError(err)
	s.Equal(credModels.StatusRevoked, stored.Status)

	result, err := s.service.VerifyCredential(s.ctx, c, credService.VerifyOptions{CheckStatus: true})
	s.Require().NoError(err)
	s.False(result.Valid)
	s.Equal(credModels.ReasonRevoked, result.Reason)
	s.Empty(result.Detail, "reasons are issuer-only unless disclosure is enabled")

	_, err = s.service.RevokeCredential(s.ctx, s.tenantID, c.ID, "again", "registrar")
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *CredentialServiceSuite) TestRevokeUnknownCredential() {
	_, err := s.service.RevokeCredential(s.ctx, s.tenantID, id.NewCredentialID(), "reason", "registrar")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *CredentialServiceSuite) TestRevokeForeignTenant() {
	c := s.issue(enrollmentClaims())

	_, err := s.service.RevokeCredential(s.ctx, id.NewTenantID(), c.ID, "reason", "registrar")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *CredentialServiceSuite) TestRevocationReasonDisclosure() {
	registry := revocation.NewRegistry(s.revocations, s.credentials, revocation.WithReasonDisclosure(true))
	disclosing := credService.New(s.credentials, registry, s.didSvc, s.walletSvc, nil, schema.NewRegistry())

	c := s.issue(enrollmentClaims())
	_, err := disclosing.RevokeCredential(s.ctx, s.tenantID, c.ID, "enrollment withdrawn", "registrar")
	s.Require().NoError(err)

	result, err := disclosing.VerifyCredential(s.ctx, c, credService.VerifyOptions{CheckStatus: true})
	s.Require().NoError(err)
	s.Equal(credModels.ReasonRevoked, result.Reason)
	s.Equal("enrollment withdrawn", result.Detail)
}

func (s *CredentialServiceSuite) TestExpiredCredential() {
	expires := s.now.Add(time.Hour)
	c, err := s.service.IssueCredential(s.ctx, credService.IssueRequest{
		TenantID:         s.tenantID,
		UserID:           s.userID,
		IssuerPassphrase: passphrase,
		CredentialType:   "enrollment",
		SubjectDID:       subjectDID,
		Claims:           enrollmentClaims(),
		ExpiresAt:        &expires,
	})
	s.Require().NoError(err)

	later := requestcontext.WithTime(context.Background(), s.now.Add(2*time.Hour))
	result, err := s.service.VerifyCredential(later, c, credService.VerifyOptions{})
	s.Require().NoError(err)
	s.False(result.Valid)
	s.Equal(credModels.ReasonExpired, result.Reason)
}

func (s *CredentialServiceSuite) TestUntrustedIssuer() {
	c := s.issue(enrollmentClaims())

	result, err := s.service.VerifyCredential(s.ctx, c, credService.VerifyOptions{
		TrustedIssuers: []string{"did:key:z6MkSomeoneElse"},
	})
	s.Require().NoError(err)
	s.False(result.Valid)
	s.Equal(credModels.ReasonUntrustedIssuer, result.Reason)

	result, err = s.service.VerifyCredential(s.ctx, c, credService.VerifyOptions{
		TrustedIssuers: []string{c.IssuerDID},
	})
	s.Require().NoError(err)
	s.True(result.Valid)
}

func (s *CredentialServiceSuite) TestVerifyAfterRotation() {
	before := s.issue(enrollmentClaims())

	_, err := s.didSvc.RotateKeys(s.ctx, didService.RotateKeysRequest{
		TenantID:          s.tenantID,
		UserID:            s.userID,
		DID:               s.issuerDID,
		CurrentPassphrase: passphrase,
		Reason:            "scheduled",
	})
	s.Require().NoError(err)

	// The pre-rotation credential still verifies against the superseded key.
	result, err := s.service.VerifyCredential(s.ctx, before, credService.VerifyOptions{CheckStatus: true, CheckSchema: true})
	s.Require().NoError(err)
	s.True(result.Valid)

	// New issuances sign with the new key.
	after := s.issue(enrollmentClaims())
	s.NotEqual(before.Proof.VerificationMethod, after.Proof.VerificationMethod)

	result, err = s.service.VerifyCredential(s.ctx, after, credService.VerifyOptions{CheckStatus: true, CheckSchema: true})
	s.Require().NoError(err)
	s.True(result.Valid)
}

func (s *CredentialServiceSuite) TestSupersededKeyCannotSignNewMaterial() {
	before := s.issue(enrollmentClaims())

	var stolen ed25519.PrivateKey
	err := s.walletSvc.WithSigningKey(s.ctx, s.tenantID, s.userID, passphrase, func(_ string, privateKey ed25519.PrivateKey) error {
		stolen = append(ed25519.PrivateKey(nil), privateKey...)
		return nil
	})
	s.Require().NoError(err)

	_, err = s.didSvc.RotateKeys(s.ctx, didService.RotateKeysRequest{
		TenantID:          s.tenantID,
		UserID:            s.userID,
		DID:               s.issuerDID,
		CurrentPassphrase: passphrase,
		Reason:            "compromise_suspected",
	})
	s.Require().NoError(err)

	// A stolen pre-rotation key signing fresh material dated after the
	// rotation must not verify, even though the superseded method is still
	// in the document.
	later := s.now.Add(48 * time.Hour)
	forged, err := credModels.NewCredential(s.tenantID, "enrollment", s.issuerDID, subjectDID, enrollmentClaims(), nil, later)
	s.Require().NoError(err)
	proof, err := credModels.SignCredential(forged, before.Proof.VerificationMethod, stolen, later)
	s.Require().NoError(err)
	forged.Proof = proof

	result, err := s.service.VerifyCredential(s.ctx, forged, credService.VerifyOptions{CheckStatus: true, CheckSchema: true})
	s.Require().NoError(err)
	s.False(result.Valid)
	s.Equal(credModels.ReasonInvalidSignature, result.Reason)
}

func (s *CredentialServiceSuite) TestListCredentials() {
	first := s.issue(enrollmentClaims())
	second := s.issue(enrollmentClaims())

	bySubject, err := s.service.ListCredentials(s.ctx, s.tenantID, credService.Filter{SubjectDID: subjectDID})
	s.Require().NoError(err)
	s.Require().Len(bySubject, 2)
	s.ElementsMatch(
		[]id.CredentialID{first.ID, second.ID},
		[]id.CredentialID{bySubject[0].ID, bySubject[1].ID},
	)

	byIssuer, err := s.service.ListCredentials(s.ctx, s.tenantID, credService.Filter{IssuerDID: s.issuerDID})
	s.Require().NoError(err)
	s.Len(byIssuer, 2)

	_, err = s.service.ListCredentials(s.ctx, s.tenantID, credService.Filter{})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}
