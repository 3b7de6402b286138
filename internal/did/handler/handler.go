// Package handler wires DID endpoints to the DID service.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"custodia/internal/did/models"
	"custodia/internal/did/service"
	id "custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
	"custodia/pkg/platform/httputil"
	"custodia/pkg/requestcontext"
)

// Service defines the DID operations the HTTP layer depends on.
type Service interface {
	ListDIDs(ctx context.Context, tenantID id.TenantID, userID id.UserID) ([]models.Document, error)
	ResolveDID(ctx context.Context, did string) (*models.Document, error)
	RotateKeys(ctx context.Context, req service.RotateKeysRequest) (*models.Document, error)
}

// Handler wires DID endpoints to the DID service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a DID handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts DID endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/dids/{did}", h.HandleResolve)
	r.Route("/tenants/{tenantID}/users/{userID}/dids", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Post("/{did}/rotate", h.HandleRotate)
	})
}

// HandleResolve handles GET /dids/{did}.
func (h *Handler) HandleResolve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	did := chi.URLParam(r, "did")
	if did == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "did is required"))
		return
	}

	doc, err := h.service.ResolveDID(ctx, did)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromDocument(doc))
}

// HandleList handles GET /tenants/{tenantID}/users/{userID}/dids.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

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

	docs, err := h.service.ListDIDs(ctx, tenantID, userID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	out := make([]*DocumentResponse, 0, len(docs))
	for i := range docs {
		out = append(out, FromDocument(&docs[i]))
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

// HandleRotate handles POST /tenants/{tenantID}/users/{userID}/dids/{did}/rotate.
func (h *Handler) HandleRotate(w http.ResponseWriter, r *http.Request) {
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
	did := chi.URLParam(r, "did")

	req, ok := httputil.DecodeAndPrepare[RotateKeysRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	doc, err := h.service.RotateKeys(ctx, service.RotateKeysRequest{
		TenantID:          tenantID,
		UserID:            userID,
		DID:               did,
		CurrentPassphrase: req.CurrentPassphrase,
		NewPassphrase:     req.NewPassphrase,
		Reason:            req.ParsedReason(),
		ExpectedVersion:   req.ExpectedVersion,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "key rotation failed",
			"request_id", requestID,
			"tenant_id", tenantID,
			"user_id", userID,
			"did", did,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromDocument(doc))
}
