// Package handler wires wallet custody endpoints to the wallet service.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"custodia/internal/wallet/models"
	"custodia/internal/wallet/service"
	id "custodia/pkg/domain"
	"custodia/pkg/platform/httputil"
	"custodia/pkg/requestcontext"
)

// Service defines the wallet operations the HTTP layer depends on.
type Service interface {
	CreateWallet(ctx context.Context, tenantID id.TenantID, userID id.UserID, passphrase, didMethod string) (*service.CreateWalletResult, error)
	GetWallet(ctx context.Context, tenantID id.TenantID, userID id.UserID) (*models.Wallet, error)
	UnlockWallet(ctx context.Context, tenantID id.TenantID, userID id.UserID, passphrase string) (*models.Session, error)
	LockWallet(ctx context.Context, tenantID id.TenantID, userID id.UserID) error
	RetireWallet(ctx context.Context, tenantID id.TenantID, userID id.UserID) error
	CreateBackup(ctx context.Context, tenantID id.TenantID, userID id.UserID, passphrase string) (*models.Backup, error)
	ListBackups(ctx context.Context, tenantID id.TenantID, userID id.UserID) ([]models.Backup, error)
	RestoreFromBackup(ctx context.Context, tenantID id.TenantID, userID id.UserID, backupID id.BackupID, passphrase string) (*models.Wallet, error)
}

// Handler wires wallet endpoints to the wallet service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a wallet handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts wallet endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/tenants/{tenantID}/users/{userID}/wallet", func(r chi.Router) {
		r.Post("/", h.HandleCreate)
		r.Get("/", h.HandleGet)
		r.Delete("/", h.HandleRetire)
		r.Post("/unlock", h.HandleUnlock)
		r.Post("/lock", h.HandleLock)
		r.Post("/backups", h.HandleCreateBackup)
		r.Get("/backups", h.HandleListBackups)
		r.Post("/backups/{backupID}/restore", h.HandleRestoreBackup)
	})
}

// owner parses the tenant and user scope from the URL.
func owner(w http.ResponseWriter, r *http.Request) (id.TenantID, id.UserID, bool) {
	tenantID, err := id.ParseTenantID(chi.URLParam(r, "tenantID"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.TenantID{}, id.UserID{}, false
	}
	userID, err := id.ParseUserID(chi.URLParam(r, "userID"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.TenantID{}, id.UserID{}, false
	}
	return tenantID, userID, true
}

// HandleCreate handles POST /tenants/{tenantID}/users/{userID}/wallet.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	tenantID, userID, ok := owner(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[CreateWalletRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.service.CreateWallet(ctx, tenantID, userID, req.Passphrase, req.DIDMethod)
	if err != nil {
		h.logger.ErrorContext(ctx, "wallet creation failed",
			"request_id", requestID,
			"tenant_id", tenantID,
			"user_id", userID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, CreateWalletResponse{
		Wallet:     FromWallet(result.Wallet),
		PrimaryDID: result.PrimaryDID,
	})
}

// HandleGet handles GET /tenants/{tenantID}/users/{userID}/wallet.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tenantID, userID, ok := owner(w, r)
	if !ok {
		return
	}
	wallet, err := h.service.GetWallet(ctx, tenantID, userID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromWallet(wallet))
}

// HandleRetire handles DELETE /tenants/{tenantID}/users/{userID}/wallet.
func (h *Handler) HandleRetire(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tenantID, userID, ok := owner(w, r)
	if !ok {
		return
	}
	if err := h.service.RetireWallet(ctx, tenantID, userID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleUnlock handles POST /tenants/{tenantID}/users/{userID}/wallet/unlock.
func (h *Handler) HandleUnlock(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	tenantID, userID, ok := owner(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[PassphraseRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	session, err := h.service.UnlockWallet(ctx, tenantID, userID, req.Passphrase)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, SessionResponse{
		SessionID:        session.ID.String(),
		SessionExpiresAt: session.ExpiresAt,
	})
}

// HandleLock handles POST /tenants/{tenantID}/users/{userID}/wallet/lock.
func (h *Handler) HandleLock(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tenantID, userID, ok := owner(w, r)
	if !ok {
		return
	}
	if err := h.service.LockWallet(ctx, tenantID, userID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleCreateBackup handles POST /tenants/{tenantID}/users/{userID}/wallet/backups.
func (h *Handler) HandleCreateBackup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	tenantID, userID, ok := owner(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[PassphraseRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	backup, err := h.service.CreateBackup(ctx, tenantID, userID, req.Passphrase)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, FromBackup(backup, true))
}

// HandleListBackups handles GET /tenants/{tenantID}/users/{userID}/wallet/backups.
func (h *Handler) HandleListBackups(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tenantID, userID, ok := owner(w, r)
	if !ok {
		return
	}
	backups, err := h.service.ListBackups(ctx, tenantID, userID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	out := make([]*BackupResponse, 0, len(backups))
	for i := range backups {
		out = append(out, FromBackup(&backups[i], false))
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

// HandleRestoreBackup handles POST /tenants/{tenantID}/users/{userID}/wallet/backups/{backupID}/restore.
func (h *Handler) HandleRestoreBackup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	tenantID, userID, ok := owner(w, r)
	if !ok {
		return
	}
	backupID, err := id.ParseBackupID(chi.URLParam(r, "backupID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[PassphraseRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	wallet, err := h.service.RestoreFromBackup(ctx, tenantID, userID, backupID, req.Passphrase)
	if err != nil {
		h.logger.ErrorContext(ctx, "wallet restore failed",
			"request_id", requestID,
			"tenant_id", tenantID,
			"user_id", userID,
			"backup_id", backupID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromWallet(wallet))
}
