package service

import (
	"context"
	"errors"

	"custodia/internal/audit"
	"custodia/internal/did/models"
	dErrors "custodia/pkg/domain-errors"
	id "custodia/pkg/domain"
	"custodia/pkg/platform/sentinel"
	"custodia/pkg/requestcontext"
)

// RotateKeysRequest carries the rotation protocol inputs. ExpectedVersion is
// the document version the caller read; zero means "whatever is current".
type RotateKeysRequest struct {
	TenantID          id.TenantID
	UserID            id.UserID
	DID               string
	CurrentPassphrase string
	NewPassphrase     string
	Reason            models.RotationReason
	ExpectedVersion   int
}

// RotateKeys executes the rotation protocol: re-validate the passphrase,
// generate a replacement key pair, supersede the prior verification method,
// bump the document version, and persist document and keystore atomically.
// A stale document version loses with CodeConflict and must re-read.
func (s *Service) RotateKeys(ctx context.Context, req RotateKeysRequest) (*models.Document, error) {
	ctx, span := s.tracer.Start(ctx, "did.RotateKeys")
	defer span.End()

	doc, err := s.registry.FindByDID(ctx, req.DID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "DID not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load DID document")
	}

	expectedVersion := doc.Version
	if req.ExpectedVersion != 0 && req.ExpectedVersion != doc.Version {
		return nil, dErrors.New(dErrors.CodeConflict, "document version is stale, re-read and retry")
	}

	now := requestcontext.Now(ctx)
	err = s.runner.RunInTx(ctx, func(txCtx context.Context) error {
		w, replacement, keystoreVersion, err := s.rotator.RotateKeypair(txCtx, req.TenantID, req.UserID, req.CurrentPassphrase, req.NewPassphrase)
		if err != nil {
			return err
		}
		if w.ID != doc.ControllerWalletID {
			return dErrors.New(dErrors.CodeForbidden, "DID is not controlled by this wallet")
		}

		vm := models.NewVerificationMethod(doc.DID, replacement.ID, replacement.PublicKey, now)
		if err := doc.ApplyRotation(vm, now); err != nil {
			return err
		}

		if err := s.registry.UpdateDocument(txCtx, doc, expectedVersion); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeConflict, "concurrent rotation, re-read and retry")
			}
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "DID not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist DID document")
		}
		return s.rotator.PersistKeystore(txCtx, w, keystoreVersion)
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	audit.LogAudit(ctx, s.logger, s.auditPublisher, audit.Event{
		Action:   audit.EventKeysRotated,
		TenantID: req.TenantID,
		UserID:   req.UserID,
		Subject:  req.DID,
		Reason:   string(req.Reason),
	})
	if s.metrics != nil {
		s.metrics.IncrementKeysRotated(string(req.Reason))
	}
	return doc, nil
}
