package models

// Reason explains why a verification returned valid:false. Verification
// failures are expected outcomes carried as data, never raised as errors,
// so batch verification can proceed without early termination.
type Reason string

const (
	ReasonInvalidSignature  Reason = "invalid_signature"
	ReasonSchemaViolation   Reason = "schema_violation"
	ReasonRevoked           Reason = "revoked"
	ReasonExpired           Reason = "expired"
	ReasonUntrustedIssuer   Reason = "untrusted_issuer"
	ReasonChallengeMismatch Reason = "challenge_mismatch"
)

// VerificationResult is the structured outcome of verifying a credential or
// presentation. Reason carries the first failing check in verification
// order; Detail adds operator-facing context and may be withheld from the
// API depending on disclosure configuration.
type VerificationResult struct {
	Valid  bool   `json:"valid"`
	Reason Reason `json:"reason,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// Verified is the passing outcome.
func Verified() VerificationResult {
	return VerificationResult{Valid: true}
}

// Failed builds a failing outcome with the given reason.
func Failed(reason Reason, detail string) VerificationResult {
	return VerificationResult{Valid: false, Reason: reason, Detail: detail}
}
