package models

import (
	"time"

	id "custodia/pkg/domain"
)

// Session tracks a time-bounded wallet unlock. Expiry relocks the wallet
// automatically; no manual intervention is needed.
type Session struct {
	ID        id.SessionID `json:"id"`
	TenantID  id.TenantID  `json:"tenant_id"`
	UserID    id.UserID    `json:"user_id"`
	WalletID  id.WalletID  `json:"wallet_id"`
	Device    string       `json:"device,omitempty"`
	ClientIP  string       `json:"client_ip,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
	ExpiresAt time.Time    `json:"expires_at"`
}

// IsExpired reports whether the session has lapsed at the given instant.
func (s Session) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
