// Package handler wires presentation endpoints to the presentation service.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	credModels "custodia/internal/credential/models"
	"custodia/internal/presentation/models"
	"custodia/internal/presentation/service"
	id "custodia/pkg/domain"
	"custodia/pkg/platform/httputil"
	"custodia/pkg/requestcontext"
)

// Service defines the presentation operations the HTTP layer depends on.
type Service interface {
	CreatePresentation(ctx context.Context, req service.CreateRequest) (*models.Presentation, error)
	VerifyPresentation(ctx context.Context, p *models.Presentation, opts service.VerifyOptions) (credModels.VerificationResult, error)
}

// Handler wires presentation endpoints to the presentation service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a presentation handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts presentation endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/tenants/{tenantID}/users/{userID}/presentations", h.HandleCreate)
	r.Post("/tenants/{tenantID}/presentations/verify", h.HandleVerify)
}

// HandleCreate handles POST /tenants/{tenantID}/users/{userID}/presentations.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	tenantID, err := id.ParseTenantID(chi.URLParam(r, "tenantID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	userID, err := id.ParseUserID(chi.URLParam(r, "userID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeAndPrepare[CreatePresentationRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	credentialIDs := make([]id.CredentialID, 0, len(req.CredentialIDs))
	for _, raw := range req.CredentialIDs {
		credentialID, err := id.ParseCredentialID(raw)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		credentialIDs = append(credentialIDs, credentialID)
	}

	p, err := h.service.CreatePresentation(ctx, service.CreateRequest{
		TenantID:         tenantID,
		UserID:           userID,
		HolderPassphrase: req.Passphrase,
		CredentialIDs:    credentialIDs,
		Challenge:        req.Challenge,
		Domain:           req.Domain,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, FromPresentation(p))
}

// HandleVerify handles POST /tenants/{tenantID}/presentations/verify. The
// outcome is always 200: verification failures are data, not errors.
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	tenantID, err := id.ParseTenantID(chi.URLParam(r, "tenantID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeAndPrepare[VerifyPresentationRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	p, err := req.Presentation.toModel(tenantID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := h.service.VerifyPresentation(ctx, p, service.VerifyOptions{
		Challenge:      req.Challenge,
		Domain:         req.Domain,
		TrustedIssuers: req.TrustedIssuers,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromVerification(result))
}

func (p PresentationPayload) toModel(tenantID id.TenantID) (*models.Presentation, error) {
	presentationID, err := id.ParsePresentationID(p.ID)
	if err != nil {
		return nil, err
	}
	credentials := make([]credModels.Credential, 0, len(p.Credentials))
	for _, c := range p.Credentials {
		credentialID, err := id.ParseCredentialID(c.ID)
		if err != nil {
			return nil, err
		}
		credentials = append(credentials, credModels.Credential{
			ID:         credentialID,
			TenantID:   tenantID,
			Type:       c.Type,
			IssuerDID:  c.IssuerDID,
			SubjectDID: c.SubjectDID,
			Claims:     c.Claims,
			IssuedAt:   c.IssuedAt,
			ExpiresAt:  c.ExpiresAt,
			Proof: credModels.Proof{
				Type:               c.Proof.Type,
				Created:            c.Proof.Created,
				VerificationMethod: c.Proof.VerificationMethod,
				JWS:                c.Proof.JWS,
			},
			Status: credModels.StatusActive,
		})
	}
	return &models.Presentation{
		ID:          presentationID,
		TenantID:    tenantID,
		HolderDID:   p.HolderDID,
		Credentials: credentials,
		Challenge:   p.Challenge,
		Domain:      p.Domain,
		Proof: credModels.Proof{
			Type:               p.Proof.Type,
			Created:            p.Proof.Created,
			VerificationMethod: p.Proof.VerificationMethod,
			JWS:                p.Proof.JWS,
		},
		CreatedAt: p.CreatedAt,
	}, nil
}
