package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"custodia/internal/audit"
	credModels "custodia/internal/credential/models"
	credService "custodia/internal/credential/service"
	didModels "custodia/internal/did/models"
	"custodia/internal/presentation/models"
	dErrors "custodia/pkg/domain-errors"
	id "custodia/pkg/domain"
	"custodia/pkg/platform/sentinel"
)

// VerifyOptions bind a verification to what the verifier expects. Challenge
// and Domain are compared against the envelope when set; TrustedIssuers is
// forwarded to every embedded credential check (nil keeps the credential
// service default).
type VerifyOptions struct {
	Challenge      string
	Domain         string
	TrustedIssuers []string
}

// VerifyPresentation checks the envelope binding (expected challenge and
// domain), verifies the holder's signature over the envelope, consumes the
// challenge so a captured presentation cannot be replayed, and then runs the
// full credential pipeline for every embedded credential, preceded by a
// batch revocation sweep. The result is valid only when all of those pass;
// the first failure in that order is reported.
func (s *Service) VerifyPresentation(ctx context.Context, p *models.Presentation, opts VerifyOptions) (credModels.VerificationResult, error) {
	ctx, span := s.tracer.Start(ctx, "presentation.Verify")
	defer span.End()
	if s.metrics != nil {
		defer s.metrics.ObserveVerify(time.Now())
	}

	result, err := s.verify(ctx, p, opts)
	if err != nil {
		span.RecordError(err)
		return credModels.VerificationResult{}, err
	}

	outcome := "valid"
	if !result.Valid {
		outcome = string(result.Reason)
	}
	if s.metrics != nil {
		s.metrics.IncrementVerification(outcome)
	}
	audit.LogAudit(ctx, s.logger, s.auditPublisher, audit.Event{
		Action:   audit.EventPresentationVerified,
		TenantID: p.TenantID,
		Subject:  p.ID.String(),
		Reason:   outcome,
	})
	return result, nil
}

func (s *Service) verify(ctx context.Context, p *models.Presentation, opts VerifyOptions) (credModels.VerificationResult, error) {
	if opts.Challenge != "" && p.Challenge != opts.Challenge {
		return credModels.Failed(credModels.ReasonChallengeMismatch, "presentation is bound to a different challenge"), nil
	}
	if opts.Domain != "" && p.Domain != opts.Domain {
		return credModels.Failed(credModels.ReasonChallengeMismatch, "presentation is bound to a different domain"), nil
	}

	doc, err := s.resolver.ResolveDID(ctx, p.HolderDID)
	if err != nil {
		return credModels.VerificationResult{}, err
	}
	vm, ok := doc.VerificationMethodByID(p.Proof.VerificationMethod)
	if !ok {
		return credModels.Failed(credModels.ReasonInvalidSignature, "proof key is not in the holder's DID document"), nil
	}
	if !vm.ActiveAt(p.CreatedAt) {
		return credModels.Failed(credModels.ReasonInvalidSignature, "proof key was not active when the presentation was created"), nil
	}
	publicKey, err := didModels.DecodeMultibaseKey(vm.PublicKeyMultibase)
	if err != nil {
		return credModels.Failed(credModels.ReasonInvalidSignature, "holder verification method is malformed"), nil
	}
	if err := models.VerifyPresentationProof(p, publicKey); err != nil {
		return credModels.Failed(credModels.ReasonInvalidSignature, ""), nil
	}

	// Consume only after the holder proof holds: a forged envelope must not
	// burn someone else's pending challenge. The first authentic
	// verification wins; everything after it is treated as a replay.
	if err := s.challenges.Consume(ctx, p.Challenge, s.challengeRetention); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return credModels.Failed(credModels.ReasonChallengeMismatch, "challenge has already been used"), nil
		}
		return credModels.VerificationResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to consume challenge")
	}

	credentialIDs := make([]id.CredentialID, len(p.Credentials))
	for i := range p.Credentials {
		credentialIDs[i] = p.Credentials[i].ID
	}
	revoked, err := s.revocations.RevokedSet(ctx, p.TenantID, credentialIDs)
	if err != nil {
		return credModels.VerificationResult{}, err
	}
	for _, credentialID := range credentialIDs {
		if _, ok := revoked[credentialID]; ok {
			return credModels.Failed(credModels.ReasonRevoked, fmt.Sprintf("credential %s failed verification", credentialID)), nil
		}
	}

	results := make([]credModels.VerificationResult, len(p.Credentials))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelCredentialChecks)
	for i := range p.Credentials {
		g.Go(func() error {
			r, err := s.verifier.VerifyCredential(gctx, &p.Credentials[i], credService.VerifyOptions{
				CheckStatus:    true,
				CheckSchema:    true,
				TrustedIssuers: opts.TrustedIssuers,
			})
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return credModels.VerificationResult{}, err
	}
	for i, r := range results {
		if !r.Valid {
			detail := fmt.Sprintf("credential %s failed verification", p.Credentials[i].ID)
			if r.Detail != "" {
				detail = fmt.Sprintf("%s: %s", detail, r.Detail)
			}
			return credModels.Failed(r.Reason, detail), nil
		}
	}

	return credModels.Verified(), nil
}
