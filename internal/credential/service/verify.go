package service

import (
	"context"
	"time"

	"custodia/internal/credential/models"
	didModels "custodia/internal/did/models"
	dErrors "custodia/pkg/domain-errors"
	"custodia/pkg/requestcontext"
)

// VerifyOptions tune a verification. TrustedIssuers overrides the service
// default allow-list; nil means "use the default", an empty non-nil slice
// trusts nobody.
type VerifyOptions struct {
	CheckStatus    bool
	CheckSchema    bool
	TrustedIssuers []string
}

// VerifyCredential runs the verification pipeline in order: issuer DID
// resolution, key lookup (superseded keys included, scoped to the window in
// which they were active), signature, schema,
// revocation, expiry, issuer trust. Expected failures — a bad signature, a
// revoked or expired credential — are returned as a structured outcome, not
// an error; only resolution and infrastructure faults surface as errors.
func (s *Service) VerifyCredential(ctx context.Context, c *models.Credential, opts VerifyOptions) (models.VerificationResult, error) {
	ctx, span := s.tracer.Start(ctx, "credential.Verify")
	defer span.End()
	if s.metrics != nil {
		defer s.metrics.ObserveVerify(time.Now())
	}

	result, err := s.verify(ctx, c, opts)
	if err != nil {
		span.RecordError(err)
		return models.VerificationResult{}, err
	}
	if s.metrics != nil {
		outcome := "valid"
		if !result.Valid {
			outcome = string(result.Reason)
		}
		s.metrics.IncrementVerification(outcome)
	}
	return result, nil
}

func (s *Service) verify(ctx context.Context, c *models.Credential, opts VerifyOptions) (models.VerificationResult, error) {
	doc, err := s.resolver.ResolveDID(ctx, c.IssuerDID)
	if err != nil {
		return models.VerificationResult{}, err
	}

	vm, ok := doc.VerificationMethodByID(c.Proof.VerificationMethod)
	if !ok {
		return models.Failed(models.ReasonInvalidSignature, "proof key is not in the issuer's DID document"), nil
	}
	if !vm.ActiveAt(c.IssuedAt) {
		return models.Failed(models.ReasonInvalidSignature, "proof key was not active when the credential was issued"), nil
	}
	publicKey, err := didModels.DecodeMultibaseKey(vm.PublicKeyMultibase)
	if err != nil {
		return models.Failed(models.ReasonInvalidSignature, "issuer verification method is malformed"), nil
	}
	if err := models.VerifyCredentialProof(c, publicKey); err != nil {
		return models.Failed(models.ReasonInvalidSignature, ""), nil
	}

	if opts.CheckSchema {
		if err := s.schemas.Validate(c.Type, c.Claims); err != nil {
			return models.Failed(models.ReasonSchemaViolation, dErrors.MessageOf(err)), nil
		}
	}

	if opts.CheckStatus {
		entry, err := s.registry.Entry(ctx, c.TenantID, c.ID)
		switch {
		case err == nil:
			return models.Failed(models.ReasonRevoked, s.registry.DisclosedReason(entry)), nil
		case dErrors.HasCode(err, dErrors.CodeNotFound):
			// not revoked
		default:
			return models.VerificationResult{}, err
		}
	}

	if c.IsExpired(requestcontext.Now(ctx)) {
		return models.Failed(models.ReasonExpired, ""), nil
	}

	trusted := opts.TrustedIssuers
	if trusted == nil {
		trusted = s.trustedIssuers
	}
	if trusted != nil && !contains(trusted, c.IssuerDID) {
		return models.Failed(models.ReasonUntrustedIssuer, ""), nil
	}

	return models.Verified(), nil
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
