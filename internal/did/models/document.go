// Package models holds the DID document aggregate and its invariants.
package models

import (
	"time"

	dErrors "custodia/pkg/domain-errors"
	id "custodia/pkg/domain"
)

// Method is a supported DID method.
type Method string

const (
	MethodKey  Method = "key"
	MethodWeb  Method = "web"
	MethodEthr Method = "ethr"
)

// ParseMethod validates a method name from untrusted input.
func ParseMethod(raw string) (Method, error) {
	switch Method(raw) {
	case MethodKey, MethodWeb, MethodEthr:
		return Method(raw), nil
	default:
		return "", dErrors.Newf(dErrors.CodeValidation, "unsupported DID method %q", raw)
	}
}

// RotationReason records why a key rotation happened. Stored for audit.
type RotationReason string

const (
	RotationScheduled         RotationReason = "scheduled"
	RotationCompromiseSuspect RotationReason = "compromise_suspected"
	RotationUserRequested     RotationReason = "user_requested"
	RotationPolicy            RotationReason = "policy"
)

// ParseRotationReason validates a rotation reason from untrusted input.
func ParseRotationReason(raw string) (RotationReason, error) {
	switch RotationReason(raw) {
	case RotationScheduled, RotationCompromiseSuspect, RotationUserRequested, RotationPolicy:
		return RotationReason(raw), nil
	default:
		return "", dErrors.Newf(dErrors.CodeValidation, "unknown rotation reason %q", raw)
	}
}

// VerificationMethod binds a wallet key to the document by reference. The
// wallet owns the key material; the document carries only the public half.
type VerificationMethod struct {
	ID                 string     `json:"id"` // <did>#<keyID>
	Type               string     `json:"type"`
	Controller         string     `json:"controller"`
	KeyID              string     `json:"key_id"` // wallet keystore fingerprint
	PublicKeyMultibase string     `json:"public_key_multibase"`
	CreatedAt          time.Time  `json:"created_at"`
	SupersededAt       *time.Time `json:"superseded_at,omitempty"`
}

// IsActive reports whether the method may be referenced by new proofs.
// Superseded methods stay in the document so old signatures keep verifying.
func (v VerificationMethod) IsActive() bool {
	return v.SupersededAt == nil
}

// ActiveAt reports whether the method was usable for signing at t. A
// superseded method only covers material dated up to its supersession, so a
// stolen pre-rotation key cannot sign anything new. Derived documents carry
// no provenance (zero CreatedAt) and skip the lower bound.
func (v VerificationMethod) ActiveAt(t time.Time) bool {
	if !v.CreatedAt.IsZero() && t.Before(v.CreatedAt) {
		return false
	}
	return v.SupersededAt == nil || !t.After(*v.SupersededAt)
}

// Ed25519VerificationKey2020 is the verification method type for ed25519 keys.
const Ed25519VerificationKey2020 = "Ed25519VerificationKey2020"

// Document is a DID document. Version increases monotonically on any
// mutation; at least one verification method is active at all times.
type Document struct {
	DID                 string               `json:"did"`
	Method              Method               `json:"method"`
	ControllerWalletID  id.WalletID          `json:"controller_wallet_id"`
	VerificationMethods []VerificationMethod `json:"verification_methods"`
	Version             int                  `json:"version"`
	CreatedAt           time.Time            `json:"created_at"`
	UpdatedAt           time.Time            `json:"updated_at"`
}

// NewDocument builds version 1 of a document with a single active method.
func NewDocument(did string, method Method, walletID id.WalletID, vm VerificationMethod, now time.Time) (*Document, error) {
	if did == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "did is required")
	}
	if walletID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "controller wallet is required")
	}
	if !vm.IsActive() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "initial verification method must be active")
	}
	return &Document{
		DID:                 did,
		Method:              method,
		ControllerWalletID:  walletID,
		VerificationMethods: []VerificationMethod{vm},
		Version:             1,
		CreatedAt:           now,
		UpdatedAt:           now,
	}, nil
}

// ActiveVerificationMethod returns the method new proofs must reference.
func (d *Document) ActiveVerificationMethod() (VerificationMethod, error) {
	for _, vm := range d.VerificationMethods {
		if vm.IsActive() {
			return vm, nil
		}
	}
	return VerificationMethod{}, dErrors.New(dErrors.CodeInvariantViolation, "document has no active verification method")
}

// VerificationMethodByID looks a method up by its full ID, superseded ones
// included: credentials signed before a rotation resolve their original key.
func (d *Document) VerificationMethodByID(vmID string) (VerificationMethod, bool) {
	for _, vm := range d.VerificationMethods {
		if vm.ID == vmID {
			return vm, true
		}
	}
	return VerificationMethod{}, false
}

// ApplyRotation supersedes every active method, appends the replacement and
// bumps the version. Superseded methods are never removed.
func (d *Document) ApplyRotation(replacement VerificationMethod, now time.Time) error {
	if !replacement.IsActive() {
		return dErrors.New(dErrors.CodeInvariantViolation, "replacement verification method must be active")
	}
	if _, exists := d.VerificationMethodByID(replacement.ID); exists {
		return dErrors.New(dErrors.CodeInvariantViolation, "replacement verification method already present")
	}
	for i := range d.VerificationMethods {
		if d.VerificationMethods[i].SupersededAt == nil {
			t := now
			d.VerificationMethods[i].SupersededAt = &t
		}
	}
	d.VerificationMethods = append(d.VerificationMethods, replacement)
	d.Version++
	d.UpdatedAt = now
	return nil
}

// Clone returns a deep copy so stores never hand out aliased slices.
func (d *Document) Clone() *Document {
	cp := *d
	cp.VerificationMethods = make([]VerificationMethod, len(d.VerificationMethods))
	for i, vm := range d.VerificationMethods {
		cvm := vm
		if vm.SupersededAt != nil {
			t := *vm.SupersededAt
			cvm.SupersededAt = &t
		}
		cp.VerificationMethods[i] = cvm
	}
	return &cp
}
