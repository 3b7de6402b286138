// Package audit captures security-relevant actions from the SSI core as
// structured events. Services emit; sinks (memory store, kafka) fan out.
package audit

import (
	"context"
	"time"

	id "custodia/pkg/domain"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Action    string      `json:"action"`
	Timestamp time.Time   `json:"timestamp"`
	TenantID  id.TenantID `json:"tenant_id"`
	UserID    id.UserID   `json:"user_id"`
	Subject   string      `json:"subject,omitempty"` // wallet / DID / credential identifier
	Reason    string      `json:"reason,omitempty"`
	Actor     string      `json:"actor,omitempty"`
	RequestID string      `json:"request_id,omitempty"`
	Device    string      `json:"device,omitempty"`
	ClientIP  string      `json:"client_ip,omitempty"`
}

// Audit actions emitted by the SSI core.
const (
	EventWalletCreated        = "wallet_created"
	EventWalletUnlocked       = "wallet_unlocked"
	EventWalletUnlockFailed   = "wallet_unlock_failed"
	EventWalletLocked         = "wallet_locked"
	EventBackupCreated        = "backup_created"
	EventBackupRestored       = "backup_restored"
	EventDIDCreated           = "did_created"
	EventKeysRotated          = "keys_rotated"
	EventCredentialIssued     = "credential_issued"
	EventCredentialRevoked    = "credential_revoked"
	EventPresentationCreated  = "presentation_created"
	EventPresentationVerified = "presentation_verified"
)

// Publisher accepts audit events. Implementations must be safe for
// concurrent use; emission failures are logged, never propagated into the
// domain operation that triggered them.
type Publisher interface {
	Emit(ctx context.Context, event Event) error
}

// Store persists audit events for inspection. Append-only.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByUser(ctx context.Context, tenantID id.TenantID, userID id.UserID) ([]Event, error)
}
