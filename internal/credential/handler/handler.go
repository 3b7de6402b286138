// Package handler wires credential endpoints to the credential service.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"custodia/internal/credential/models"
	"custodia/internal/credential/revocation"
	"custodia/internal/credential/service"
	id "custodia/pkg/domain"
	"custodia/pkg/platform/httputil"
	"custodia/pkg/requestcontext"
)

// Service defines the credential operations the HTTP layer depends on.
type Service interface {
	IssueCredential(ctx context.Context, req service.IssueRequest) (*models.Credential, error)
	GetCredential(ctx context.Context, tenantID id.TenantID, credentialID id.CredentialID) (*models.Credential, error)
	ListCredentials(ctx context.Context, tenantID id.TenantID, filter service.Filter) ([]models.Credential, error)
	VerifyCredential(ctx context.Context, c *models.Credential, opts service.VerifyOptions) (models.VerificationResult, error)
	RevokeCredential(ctx context.Context, tenantID id.TenantID, credentialID id.CredentialID, reason, revokedBy string) (revocation.Entry, error)
	RevocationStatus(ctx context.Context, tenantID id.TenantID, credentialID id.CredentialID) (bool, error)
}

// Handler wires credential endpoints to the credential service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a credential handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts credential endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/tenants/{tenantID}/users/{userID}/credentials", h.HandleIssue)
	r.Route("/tenants/{tenantID}/credentials", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Post("/verify", h.HandleVerify)
		r.Get("/{credentialID}", h.HandleGet)
		r.Get("/{credentialID}/status", h.HandleStatus)
		r.Post("/{credentialID}/revoke", h.HandleRevoke)
	})
}

func tenantParam(r *http.Request) (id.TenantID, error) {
	return id.ParseTenantID(chi.URLParam(r, "tenantID"))
}

func credentialParam(r *http.Request) (id.CredentialID, error) {
	return id.ParseCredentialID(chi.URLParam(r, "credentialID"))
}

// HandleIssue handles POST /tenants/{tenantID}/users/{userID}/credentials.
func (h *Handler) HandleIssue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	tenantID, err := tenantParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	userID, err := id.ParseUserID(chi.URLParam(r, "userID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeAndPrepare[IssueCredentialRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	c, err := h.service.IssueCredential(ctx, service.IssueRequest{
		TenantID:         tenantID,
		UserID:           userID,
		IssuerPassphrase: req.Passphrase,
		CredentialType:   req.CredentialType,
		SubjectDID:       req.SubjectDID,
		Claims:           req.Claims,
		ExpiresAt:        req.ExpiresAt,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, FromCredential(c))
}

// HandleGet handles GET /tenants/{tenantID}/credentials/{credentialID}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tenantID, err := tenantParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	credentialID, err := credentialParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	c, err := h.service.GetCredential(ctx, tenantID, credentialID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromCredential(c))
}

// HandleList handles GET /tenants/{tenantID}/credentials with a subject_did
// or issuer_did query filter.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tenantID, err := tenantParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	credentials, err := h.service.ListCredentials(ctx, tenantID, service.Filter{
		SubjectDID: r.URL.Query().Get("subject_did"),
		IssuerDID:  r.URL.Query().Get("issuer_did"),
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	out := make([]*CredentialResponse, 0, len(credentials))
	for i := range credentials {
		out = append(out, FromCredential(&credentials[i]))
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

// HandleVerify handles POST /tenants/{tenantID}/credentials/verify. The
// outcome is always 200: verification failures are data, not errors.
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	tenantID, err := tenantParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeAndPrepare[VerifyCredentialRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	c, err := req.Credential.toModel(tenantID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := h.service.VerifyCredential(ctx, c, service.VerifyOptions{
		CheckStatus:    req.CheckStatus,
		CheckSchema:    req.CheckSchema,
		TrustedIssuers: req.TrustedIssuers,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromVerification(result))
}

// HandleStatus handles GET /tenants/{tenantID}/credentials/{credentialID}/status.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tenantID, err := tenantParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	credentialID, err := credentialParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	revoked, err := h.service.RevocationStatus(ctx, tenantID, credentialID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, StatusResponse{
		CredentialID: credentialID.String(),
		Revoked:      revoked,
	})
}

// HandleRevoke handles POST /tenants/{tenantID}/credentials/{credentialID}/revoke.
func (h *Handler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	tenantID, err := tenantParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	credentialID, err := credentialParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeAndPrepare[RevokeCredentialRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	entry, err := h.service.RevokeCredential(ctx, tenantID, credentialID, req.Reason, req.RevokedBy)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromRevocation(entry))
}

func (p CredentialPayload) toModel(tenantID id.TenantID) (*models.Credential, error) {
	credentialID, err := id.ParseCredentialID(p.ID)
	if err != nil {
		return nil, err
	}
	return &models.Credential{
		ID:         credentialID,
		TenantID:   tenantID,
		Type:       p.Type,
		IssuerDID:  p.IssuerDID,
		SubjectDID: p.SubjectDID,
		Claims:     p.Claims,
		IssuedAt:   p.IssuedAt,
		ExpiresAt:  p.ExpiresAt,
		Proof: models.Proof{
			Type:               p.Proof.Type,
			Created:            p.Proof.Created,
			VerificationMethod: p.Proof.VerificationMethod,
			JWS:                p.Proof.JWS,
		},
		Status: models.StatusActive,
	}, nil
}
