package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and infrastructure layers return
// these (optionally wrapped) so services can translate them into domain errors.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: record does not exist in store
// - ErrConflict: optimistic-concurrency write lost (stale version)
// - ErrExpired: unlock session or challenge has expired
// - ErrAlreadyUsed: resource (wallet slot, revocation entry, challenge) already consumed
// - ErrInvalidState: record in wrong state for requested operation
// - ErrUnavailable: backing service or delegated resolver temporarily unavailable
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrExpired      = errors.New("expired")
	ErrAlreadyUsed  = errors.New("already used")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
