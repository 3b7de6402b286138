// Package domain holds the typed identifiers shared across bounded contexts.
//
// IDs are distinct UUID types so a WalletID can never be passed where a
// TenantID is expected. Parse helpers enforce the trust-boundary invariant
// that IDs are valid, non-nil UUIDs.
package domain

import (
	"github.com/google/uuid"

	dErrors "custodia/pkg/domain-errors"
)

type (
	// TenantID identifies a tenant organization.
	TenantID uuid.UUID
	// UserID identifies a user within a tenant.
	UserID uuid.UUID
	// WalletID identifies a user's encrypted keystore.
	WalletID uuid.UUID
	// SessionID identifies a wallet unlock session.
	SessionID uuid.UUID
	// BackupID identifies a wallet backup blob.
	BackupID uuid.UUID
	// CredentialID identifies an issued verifiable credential.
	CredentialID uuid.UUID
	// PresentationID identifies a verifiable presentation envelope.
	PresentationID uuid.UUID
)

func (id TenantID) String() string       { return uuid.UUID(id).String() }
func (id UserID) String() string         { return uuid.UUID(id).String() }
func (id WalletID) String() string       { return uuid.UUID(id).String() }
func (id SessionID) String() string      { return uuid.UUID(id).String() }
func (id BackupID) String() string       { return uuid.UUID(id).String() }
func (id CredentialID) String() string   { return uuid.UUID(id).String() }
func (id PresentationID) String() string { return uuid.UUID(id).String() }

func (id TenantID) IsNil() bool       { return uuid.UUID(id) == uuid.Nil }
func (id UserID) IsNil() bool         { return uuid.UUID(id) == uuid.Nil }
func (id WalletID) IsNil() bool       { return uuid.UUID(id) == uuid.Nil }
func (id SessionID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id BackupID) IsNil() bool       { return uuid.UUID(id) == uuid.Nil }
func (id CredentialID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id PresentationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// NewTenantID returns a fresh random tenant ID.
func NewTenantID() TenantID { return TenantID(uuid.New()) }

// NewUserID returns a fresh random user ID.
func NewUserID() UserID { return UserID(uuid.New()) }

// NewWalletID returns a fresh random wallet ID.
func NewWalletID() WalletID { return WalletID(uuid.New()) }

// NewSessionID returns a fresh random session ID.
func NewSessionID() SessionID { return SessionID(uuid.New()) }

// NewBackupID returns a fresh random backup ID.
func NewBackupID() BackupID { return BackupID(uuid.New()) }

// NewCredentialID returns a fresh random credential ID.
func NewCredentialID() CredentialID { return CredentialID(uuid.New()) }

// NewPresentationID returns a fresh random presentation ID.
func NewPresentationID() PresentationID { return PresentationID(uuid.New()) }

func parseUUID(raw string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id is required")
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must be a valid UUID")
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must not be the nil UUID")
	}
	return parsed, nil
}

// ParseTenantID parses an untrusted string into a TenantID.
func ParseTenantID(raw string) (TenantID, error) {
	parsed, err := parseUUID(raw)
	return TenantID(parsed), err
}

// ParseUserID parses an untrusted string into a UserID.
func ParseUserID(raw string) (UserID, error) {
	parsed, err := parseUUID(raw)
	return UserID(parsed), err
}

// ParseWalletID parses an untrusted string into a WalletID.
func ParseWalletID(raw string) (WalletID, error) {
	parsed, err := parseUUID(raw)
	return WalletID(parsed), err
}

// ParseSessionID parses an untrusted string into a SessionID.
func ParseSessionID(raw string) (SessionID, error) {
	parsed, err := parseUUID(raw)
	return SessionID(parsed), err
}

// ParseBackupID parses an untrusted string into a BackupID.
func ParseBackupID(raw string) (BackupID, error) {
	parsed, err := parseUUID(raw)
	return BackupID(parsed), err
}

// ParseCredentialID parses an untrusted string into a CredentialID.
func ParseCredentialID(raw string) (CredentialID, error) {
	parsed, err := parseUUID(raw)
	return CredentialID(parsed), err
}

// ParsePresentationID parses an untrusted string into a PresentationID.
func ParsePresentationID(raw string) (PresentationID, error) {
	parsed, err := parseUUID(raw)
	return PresentationID(parsed), err
}
