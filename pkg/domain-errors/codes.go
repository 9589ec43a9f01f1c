package dErrors

// Ledger-domain codes. Every check in the verifier chain and every lifecycle
// rule has its own code so callers can tell failures apart on the wire.

// Capability verification (one code per check in the chain).
const (
	CodeAttestationNotFound    Code = "attestation_not_found"
	CodeAttestationRevoked     Code = "attestation_revoked"
	CodeAttestationExpired     Code = "attestation_expired"
	CodeSchemaMismatch         Code = "schema_mismatch"
	CodeRecipientMismatch      Code = "recipient_mismatch"
	CodeIssuerNotRegistered    Code = "issuer_not_registered"
	CodeIssuerMismatch         Code = "issuer_mismatch"
	CodeDocumentMismatch       Code = "document_mismatch"
	CodePayloadMalformed       Code = "attestation_payload_malformed"
	CodeInsufficientCapability Code = "insufficient_capability"
	CodeAttestationUnavailable Code = "attestation_unavailable"
)

// Reservation and claim lifecycle.
const (
	CodeAlreadyReserved      Code = "already_reserved"
	CodeAlreadyClaimed       Code = "already_claimed"
	CodeNotReservedForCaller Code = "not_reserved_for_caller"
	CodeTokenNotFound        Code = "token_not_found"
	CodeTokenNotClaimed      Code = "token_not_claimed"
	CodeOnlyIssuerMayReserve Code = "only_issuer_may_reserve"
	CodeOnlyIssuerMayCancel  Code = "only_issuer_may_cancel"
	CodeLabelTooLarge        Code = "label_too_large"
	CodeLedgerPaused         Code = "ledger_paused"
)

// Variant behaviors.
const (
	CodeTokenLocked                Code = "token_locked"
	CodeRevocationUnsupported      Code = "revocation_unsupported"
	CodeAlreadyRevoked             Code = "already_revoked"
	CodeDelegationUnsupported      Code = "delegation_unsupported"
	CodeInvalidDelegationSignature Code = "invalid_delegation_signature"
)

// Value ledger.
const (
	CodeSlotMismatch          Code = "slot_mismatch"
	CodeInsufficientValue     Code = "insufficient_value"
	CodeInsufficientAllowance Code = "insufficient_allowance"
	CodeNotAuthorized         Code = "not_authorized"
	CodeNotValueBacked        Code = "not_value_backed"
)

// Issuer registry.
const (
	CodeIssuerAlreadyRegistered Code = "issuer_already_registered"
)
