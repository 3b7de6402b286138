package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"custodia/internal/credential/revocation"
	"custodia/internal/credential/schema"
	credService "custodia/internal/credential/service"
	credStore "custodia/internal/credential/store"
	didService "custodia/internal/did/service"
	didStore "custodia/internal/did/store"
	presService "custodia/internal/presentation/service"
	"custodia/internal/presentation/store/challenge"
	walletService "custodia/internal/wallet/service"
	backupStore "custodia/internal/wallet/store/backup"
	sessionStore "custodia/internal/wallet/store/session"
	walletStore "custodia/internal/wallet/store/wallet"
	id "custodia/pkg/domain"
	"custodia/pkg/platform/middleware/requesttime"
	"custodia/pkg/platform/tx"
)

const testPassphrase = "correct-horse-battery"

type presentationFixture struct {
	router    chi.Router
	walletSvc *walletService.Service
	credSvc   *credService.Service
	tenantID  id.TenantID
	issuerID  id.UserID
	holderID  id.UserID
	holderDID string
}

func newPresentationRouter(t *testing.T) *presentationFixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	wallets := walletStore.NewInMemory()
	credentials := credStore.NewInMemory()

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

	registry := revocation.NewRegistry(revocation.NewInMemory(), credentials, revocation.WithRegistryLogger(logger))
	credSvc := credService.New(credentials, registry, didSvc, walletSvc, wallets, schema.NewRegistry(),
		credService.WithLogger(logger))
	svc := presService.New(didSvc, walletSvc, wallets, credSvc, credSvc, registry, challenge.NewInMemory(),
		presService.WithLogger(logger))

	router := chi.NewRouter()
	router.Use(requesttime.Middleware)
	New(svc, logger).Register(router)

	f := &presentationFixture{
		router:    router,
		walletSvc: walletSvc,
		credSvc:   credSvc,
		tenantID:  id.NewTenantID(),
		issuerID:  id.NewUserID(),
		holderID:  id.NewUserID(),
	}
	ctx := context.Background()
	if _, err := walletSvc.CreateWallet(ctx, f.tenantID, f.issuerID, testPassphrase, "key"); err != nil {
		t.Fatalf("failed to create issuer wallet: %v", err)
	}
	if _, err := walletSvc.UnlockWallet(ctx, f.tenantID, f.issuerID, testPassphrase); err != nil {
		t.Fatalf("failed to unlock issuer wallet: %v", err)
	}
	holder, err := walletSvc.CreateWallet(ctx, f.tenantID, f.holderID, testPassphrase, "key")
	if err != nil {
		t.Fatalf("failed to create holder wallet: %v", err)
	}
	f.holderDID = holder.PrimaryDID
	if _, err := walletSvc.UnlockWallet(ctx, f.tenantID, f.holderID, testPassphrase); err != nil {
		t.Fatalf("failed to unlock holder wallet: %v", err)
	}
	return f
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

// issue goes through the credential service directly; the credential
// endpoints have their own handler tests.
func (f *presentationFixture) issue(t *testing.T) string {
	t.Helper()
	c, err := f.credSvc.IssueCredential(context.Background(), credService.IssueRequest{
		TenantID:         f.tenantID,
		UserID:           f.issuerID,
		IssuerPassphrase: testPassphrase,
		CredentialType:   "enrollment",
		SubjectDID:       f.holderDID,
		Claims:           map[string]any{"institution": "Aldgate College", "program": "Mathematics BSc"},
	})
	if err != nil {
		t.Fatalf("failed to issue credential: %v", err)
	}
	return c.ID.String()
}

func (f *presentationFixture) create(t *testing.T, credentialID, chal string) *PresentationResponse {
	t.Helper()
	rec := doJSON(t, f.router, http.MethodPost,
		fmt.Sprintf("/tenants/%s/users/%s/presentations", f.tenantID, f.holderID),
		map[string]any{
			"passphrase":     testPassphrase,
			"credential_ids": []string{credentialID},
			"challenge":      chal,
			"domain":         "verifier.example.edu",
		})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 creating presentation, got %d: %s", rec.Code, rec.Body)
	}
	var p PresentationResponse
	if err := json.NewDecoder(rec.Body).Decode(&p); err != nil {
		t.Fatalf("failed to decode presentation: %v", err)
	}
	return &p
}

func (f *presentationFixture) verify(t *testing.T, p *PresentationResponse, chal string) VerificationResponse {
	t.Helper()
	rec := doJSON(t, f.router, http.MethodPost,
		fmt.Sprintf("/tenants/%s/presentations/verify", f.tenantID),
		map[string]any{"presentation": p, "challenge": chal, "domain": "verifier.example.edu"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 verifying presentation, got %d: %s", rec.Code, rec.Body)
	}
	var result VerificationResponse
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode result: %v", err)
	}
	return result
}

func TestCreateAndVerifyViaHandlers(t *testing.T) {
	f := newPresentationRouter(t)
	credentialID := f.issue(t)

	p := f.create(t, credentialID, "abc")
	if p.HolderDID != f.holderDID || p.Challenge != "abc" || p.Proof.JWS == "" {
		t.Fatalf("unexpected presentation: %+v", p)
	}

	result := f.verify(t, p, "abc")
	if !result.Valid {
		t.Fatalf("expected valid result, got %+v", result)
	}
}

func TestChallengeMismatchViaHandlers(t *testing.T) {
	f := newPresentationRouter(t)
	credentialID := f.issue(t)

	p := f.create(t, credentialID, "abc")

	result := f.verify(t, p, "xyz")
	if result.Valid || result.Reason != "challenge_mismatch" {
		t.Fatalf("expected challenge_mismatch, got %+v", result)
	}

	result = f.verify(t, p, "abc")
	if !result.Valid {
		t.Fatalf("expected valid result after matching challenge, got %+v", result)
	}

	// The challenge is single-use.
	result = f.verify(t, p, "abc")
	if result.Valid || result.Reason != "challenge_mismatch" {
		t.Fatalf("expected replay to fail, got %+v", result)
	}
}

func TestCreateValidationViaHandlers(t *testing.T) {
	f := newPresentationRouter(t)
	path := fmt.Sprintf("/tenants/%s/users/%s/presentations", f.tenantID, f.holderID)

	rec := doJSON(t, f.router, http.MethodPost, path, map[string]any{
		"credential_ids": []string{"not-a-uuid"},
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without passphrase, got %d: %s", rec.Code, rec.Body)
	}

	rec = doJSON(t, f.router, http.MethodPost, path, map[string]any{
		"passphrase": testPassphrase,
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without credential_ids, got %d: %s", rec.Code, rec.Body)
	}
}

func TestVerifyValidationViaHandlers(t *testing.T) {
	f := newPresentationRouter(t)

	rec := doJSON(t, f.router, http.MethodPost,
		fmt.Sprintf("/tenants/%s/presentations/verify", f.tenantID),
		map[string]any{"presentation": map[string]any{"holder_did": "did:key:zHolder"}})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for incomplete presentation, got %d: %s", rec.Code, rec.Body)
	}
}
