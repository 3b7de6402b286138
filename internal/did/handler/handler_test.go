package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	didService "custodia/internal/did/service"
	didStore "custodia/internal/did/store"
	walletService "custodia/internal/wallet/service"
	backupStore "custodia/internal/wallet/store/backup"
	sessionStore "custodia/internal/wallet/store/session"
	walletStore "custodia/internal/wallet/store/wallet"
	id "custodia/pkg/domain"
	"custodia/pkg/platform/middleware/requesttime"
	"custodia/pkg/platform/tx"
)

const testPassphrase = "correct-horse-battery"

type didFixture struct {
	router    chi.Router
	walletSvc *walletService.Service
}

func newDIDRouter(t *testing.T) *didFixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	wallets := walletStore.NewInMemory()
	walletSvc := walletService.New(
		wallets,
		sessionStore.NewInMemory(),
		backupStore.NewInMemory(),
		walletService.WithLogger(logger),
	)
	didSvc := didService.New(
		didStore.NewInMemory(),
		wallets,
		walletSvc,
		tx.NewMemoryRunner(),
		didService.WithLogger(logger),
	)
	walletSvc.BindDIDCreator(didSvc)

	router := chi.NewRouter()
	router.Use(requesttime.Middleware)
	New(didSvc, logger).Register(router)
	return &didFixture{router: router, walletSvc: walletSvc}
}

func (f *didFixture) provision(t *testing.T) (id.TenantID, id.UserID, string) {
	t.Helper()
	tenantID, userID := id.NewTenantID(), id.NewUserID()
	ctx := httptest.NewRequest(http.MethodGet, "/", nil).Context()

	result, err := f.walletSvc.CreateWallet(ctx, tenantID, userID, testPassphrase, "key")
	if err != nil {
		t.Fatalf("failed to create wallet: %v", err)
	}
	if _, err := f.walletSvc.UnlockWallet(ctx, tenantID, userID, testPassphrase); err != nil {
		t.Fatalf("failed to unlock wallet: %v", err)
	}
	return tenantID, userID, result.PrimaryDID
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

func TestResolveDID(t *testing.T) {
	f := newDIDRouter(t)
	_, _, did := f.provision(t)

	rec := doJSON(t, f.router, http.MethodGet, "/dids/"+did, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 resolving DID, got %d: %s", rec.Code, rec.Body)
	}
	var doc struct {
		DID                 string `json:"did"`
		Version             int    `json:"version"`
		VerificationMethods []struct {
			ID string `json:"id"`
		} `json:"verification_methods"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&doc); err != nil {
		t.Fatalf("failed to decode document: %v", err)
	}
	if doc.DID != did || doc.Version != 1 || len(doc.VerificationMethods) != 1 {
		t.Fatalf("unexpected document: %+v", doc)
	}
	if !strings.HasPrefix(doc.VerificationMethods[0].ID, did+"#") {
		t.Fatalf("verification method ID %q not anchored to DID", doc.VerificationMethods[0].ID)
	}
}

func TestResolveUnregisteredKeyDID(t *testing.T) {
	f := newDIDRouter(t)

	// did:key documents derive from the identifier even when unregistered.
	rec := doJSON(t, f.router, http.MethodGet, "/dids/did:key:z6MkhaXgBZDvotDkL5257faiztiGiC2QtKLGpbnnEGta2doK", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 deriving did:key document, got %d: %s", rec.Code, rec.Body)
	}
}

func TestListDIDs(t *testing.T) {
	f := newDIDRouter(t)
	tenantID, userID, did := f.provision(t)

	rec := doJSON(t, f.router, http.MethodGet, fmt.Sprintf("/tenants/%s/users/%s/dids", tenantID, userID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 listing DIDs, got %d: %s", rec.Code, rec.Body)
	}
	var docs []struct {
		DID string `json:"did"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&docs); err != nil {
		t.Fatalf("failed to decode list: %v", err)
	}
	if len(docs) != 1 || docs[0].DID != did {
		t.Fatalf("unexpected list: %+v", docs)
	}
}

func TestRotateKeysViaHandler(t *testing.T) {
	f := newDIDRouter(t)
	tenantID, userID, did := f.provision(t)
	path := fmt.Sprintf("/tenants/%s/users/%s/dids/%s/rotate", tenantID, userID, did)

	rec := doJSON(t, f.router, http.MethodPost, path, map[string]any{
		"current_passphrase": testPassphrase,
		"reason":             "scheduled",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 rotating keys, got %d: %s", rec.Code, rec.Body)
	}
	var doc struct {
		Version             int `json:"version"`
		VerificationMethods []struct {
			SupersededAt *string `json:"superseded_at"`
		} `json:"verification_methods"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&doc); err != nil {
		t.Fatalf("failed to decode document: %v", err)
	}
	if doc.Version != 2 || len(doc.VerificationMethods) != 2 {
		t.Fatalf("unexpected rotated document: %+v", doc)
	}
	if doc.VerificationMethods[0].SupersededAt == nil {
		t.Fatal("expected the original verification method to be superseded")
	}

	// A second rotation against the already-consumed version conflicts.
	rec = doJSON(t, f.router, http.MethodPost, path, map[string]any{
		"current_passphrase": testPassphrase,
		"reason":             "scheduled",
		"expected_version":   1,
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 on stale version, got %d: %s", rec.Code, rec.Body)
	}
}

func TestRotateKeysValidation(t *testing.T) {
	f := newDIDRouter(t)
	tenantID, userID, did := f.provision(t)
	path := fmt.Sprintf("/tenants/%s/users/%s/dids/%s/rotate", tenantID, userID, did)

	rec := doJSON(t, f.router, http.MethodPost, path, map[string]any{"reason": "scheduled"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without passphrase, got %d: %s", rec.Code, rec.Body)
	}

	rec = doJSON(t, f.router, http.MethodPost, path, map[string]any{
		"current_passphrase": testPassphrase,
		"reason":             "because",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown reason, got %d: %s", rec.Code, rec.Body)
	}
}
