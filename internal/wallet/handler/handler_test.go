package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"custodia/internal/wallet/service"
	backupStore "custodia/internal/wallet/store/backup"
	sessionStore "custodia/internal/wallet/store/session"
	walletStore "custodia/internal/wallet/store/wallet"
	id "custodia/pkg/domain"
	"custodia/pkg/platform/middleware/requesttime"
)

func newWalletRouter(t *testing.T) chi.Router {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := service.New(
		walletStore.NewInMemory(),
		sessionStore.NewInMemory(),
		backupStore.NewInMemory(),
		service.WithLogger(logger),
	)
	router := chi.NewRouter()
	router.Use(requesttime.Middleware)
	New(svc, logger).Register(router)
	return router
}

func walletPath(tenantID id.TenantID, userID id.UserID) string {
	return fmt.Sprintf("/tenants/%s/users/%s/wallet", tenantID, userID)
}

func doJSON(t *testing.T, router chi.Router, method, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&body).Encode(payload); err != nil {
			t.Fatalf("failed to encode payload: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestWalletLifecycleViaHandlers(t *testing.T) {
	router := newWalletRouter(t)
	tenantID, userID := id.NewTenantID(), id.NewUserID()
	base := walletPath(tenantID, userID)

	rec := doJSON(t, router, http.MethodPost, base, map[string]string{"passphrase": "correct-horse-battery"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 creating wallet, got %d: %s", rec.Code, rec.Body)
	}
	var created struct {
		Wallet struct {
			ID     string `json:"id"`
			Status string `json:"status"`
			Keys   []struct {
				ID                  string `json:"id"`
				PublicKey           string `json:"public_key"`
				EncryptedPrivateKey string `json:"encrypted_private_key"`
			} `json:"keys"`
		} `json:"wallet"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("failed to decode create response: %v", err)
	}
	if created.Wallet.Status != "active" || len(created.Wallet.Keys) != 1 {
		t.Fatalf("unexpected wallet summary: %+v", created.Wallet)
	}
	if created.Wallet.Keys[0].EncryptedPrivateKey != "" {
		t.Fatalf("encrypted key material must never appear in responses")
	}

	rec = doJSON(t, router, http.MethodPost, base, map[string]string{"passphrase": "correct-horse-battery"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 on duplicate wallet, got %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodPost, base+"/unlock", map[string]string{"passphrase": "correct-horse-battery"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 unlocking, got %d: %s", rec.Code, rec.Body)
	}
	var session struct {
		SessionID        string `json:"session_id"`
		SessionExpiresAt string `json:"session_expires_at"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&session); err != nil {
		t.Fatalf("failed to decode unlock response: %v", err)
	}
	if session.SessionID == "" || session.SessionExpiresAt == "" {
		t.Fatalf("expected session id and expiry, got %+v", session)
	}

	rec = doJSON(t, router, http.MethodPost, base+"/lock", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 locking, got %d", rec.Code)
	}
	// Lock is idempotent.
	rec = doJSON(t, router, http.MethodPost, base+"/lock", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 on repeat lock, got %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodGet, base, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 getting wallet, got %d", rec.Code)
	}
}

func TestUnlockWrongPassphrase(t *testing.T) {
	router := newWalletRouter(t)
	tenantID, userID := id.NewTenantID(), id.NewUserID()
	base := walletPath(tenantID, userID)

	rec := doJSON(t, router, http.MethodPost, base, map[string]string{"passphrase": "correct-horse-battery"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 creating wallet, got %d", rec.Code)
	}

	wrong := doJSON(t, router, http.MethodPost, base+"/unlock", map[string]string{"passphrase": "wrong-passphrase"})
	if wrong.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 on wrong passphrase, got %d", wrong.Code)
	}

	// A missing wallet must be indistinguishable from a wrong passphrase.
	missing := doJSON(t, router, http.MethodPost, walletPath(id.NewTenantID(), id.NewUserID())+"/unlock",
		map[string]string{"passphrase": "correct-horse-battery"})
	if missing.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 on missing wallet, got %d", missing.Code)
	}
	if wrong.Body.String() != missing.Body.String() {
		t.Fatalf("unlock failure responses must be uniform: %q vs %q", wrong.Body, missing.Body)
	}
}

func TestBackupEndpoints(t *testing.T) {
	router := newWalletRouter(t)
	tenantID, userID := id.NewTenantID(), id.NewUserID()
	base := walletPath(tenantID, userID)

	rec := doJSON(t, router, http.MethodPost, base, map[string]string{"passphrase": "correct-horse-battery"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 creating wallet, got %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodPost, base+"/backups", map[string]string{"passphrase": "correct-horse-battery"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 creating backup, got %d: %s", rec.Code, rec.Body)
	}
	var backup struct {
		ID   string `json:"id"`
		Blob string `json:"blob"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&backup); err != nil {
		t.Fatalf("failed to decode backup response: %v", err)
	}
	if backup.ID == "" || backup.Blob == "" {
		t.Fatalf("expected backup id and blob, got %+v", backup)
	}

	rec = doJSON(t, router, http.MethodGet, base+"/backups", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 listing backups, got %d", rec.Code)
	}
	var listed []struct {
		ID   string `json:"id"`
		Blob string `json:"blob"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&listed); err != nil {
		t.Fatalf("failed to decode backup list: %v", err)
	}
	if len(listed) != 1 || listed[0].ID != backup.ID {
		t.Fatalf("expected the created backup in the listing, got %+v", listed)
	}
	if listed[0].Blob != "" {
		t.Fatalf("listings must not carry backup blobs")
	}

	rec = doJSON(t, router, http.MethodPost, base+"/backups/"+backup.ID+"/restore", map[string]string{"passphrase": "correct-horse-battery"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 restoring backup, got %d: %s", rec.Code, rec.Body)
	}
}

func TestValidationErrors(t *testing.T) {
	router := newWalletRouter(t)
	base := walletPath(id.NewTenantID(), id.NewUserID())

	rec := doJSON(t, router, http.MethodPost, base, map[string]string{})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 on missing passphrase, got %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodPost, "/tenants/not-a-uuid/users/"+id.NewUserID().String()+"/wallet",
		map[string]string{"passphrase": "correct-horse-battery"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 on malformed tenant id, got %d", rec.Code)
	}
}
