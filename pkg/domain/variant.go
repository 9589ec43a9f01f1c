package domain

import dErrors "scrip/pkg/domain-errors"

// Variant names the lifecycle behavior a document's resolver runs with.
// Invariant: the value must be one of the supported variants; a document keeps
// its variant for life (assigned once, together with its issuer).
//
// Usage: construct via ParseVariant at trust boundaries to enforce the
// allowlist; direct casting bypasses validation.
type Variant string

// Supported resolver variants.
const (
	// VariantValue is the semi-fungible ledger: records carry slot-scoped
	// numeric value and value-transfer operations are enabled.
	VariantValue Variant = "value"
	// VariantLocked permanently binds a claimed record to its first owner.
	VariantLocked Variant = "locked"
	// VariantRevocable lets the issuer revoke a claimed record while
	// preserving ownership history.
	VariantRevocable Variant = "revocable"
	// VariantDelegated allows a time-bound delegated role on a claimed
	// record, cleared whenever the record changes hands.
	VariantDelegated Variant = "delegated"
)

// validVariants is the single source of truth for supported variants.
var validVariants = map[Variant]bool{
	VariantValue:     true,
	VariantLocked:    true,
	VariantRevocable: true,
	VariantDelegated: true,
}

// ParseVariant constructs a Variant from external input.
//
// Errors: returns CodeInvalidInput when the value is empty or unsupported; no
// other errors are expected.
func ParseVariant(s string) (Variant, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "variant cannot be empty")
	}
	v := Variant(s)
	if !v.IsValid() {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unsupported variant %q", s)
	}
	return v, nil
}

// IsValid checks if the variant is one of the supported values.
func (v Variant) IsValid() bool {
	return validVariants[v]
}

// SingleToken reports whether the variant allows at most one record per
// document. Only the value variant keys reservations by (document, slot).
func (v Variant) SingleToken() bool {
	return v != VariantValue
}

// String returns the string representation of the variant.
func (v Variant) String() string {
	return string(v)
}
