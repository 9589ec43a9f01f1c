// Package domain holds the typed identifiers and primitives shared across
// bounded contexts. Typed IDs prevent cross-entity assignment at compile time;
// ParseXxxID enforces validity at trust boundaries.
package domain

import (
	"strconv"

	"github.com/google/uuid"

	dErrors "scrip/pkg/domain-errors"
)

// DocumentID identifies the document a token ledger is bound to.
type DocumentID uuid.UUID

// PartyID identifies a participant (issuer, recipient, operator, delegate).
type PartyID uuid.UUID

// AttestationID identifies an attestation held by the external gateway.
type AttestationID uuid.UUID

// SchemaID identifies a capability attestation schema.
type SchemaID uuid.UUID

// TokenID addresses a token record. IDs are a global sequence assigned at
// reservation time, starting at zero.
type TokenID uint64

// SlotID groups value-bearing records; value is fungible only within a slot.
type SlotID uint64

func parseUUID(raw, what string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s cannot be empty", what)
	}
	u, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s is not a valid UUID", what)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s cannot be the nil UUID", what)
	}
	return u, nil
}

// ParseDocumentID validates and converts a raw string into a DocumentID.
func ParseDocumentID(raw string) (DocumentID, error) {
	u, err := parseUUID(raw, "document id")
	return DocumentID(u), err
}

// ParsePartyID validates and converts a raw string into a PartyID.
func ParsePartyID(raw string) (PartyID, error) {
	u, err := parseUUID(raw, "party id")
	return PartyID(u), err
}

// ParseAttestationID validates and converts a raw string into an AttestationID.
func ParseAttestationID(raw string) (AttestationID, error) {
	u, err := parseUUID(raw, "attestation id")
	return AttestationID(u), err
}

// ParseSchemaID validates and converts a raw string into a SchemaID.
func ParseSchemaID(raw string) (SchemaID, error) {
	u, err := parseUUID(raw, "schema id")
	return SchemaID(u), err
}

// ParseTokenID parses a decimal token id from transport input.
func ParseTokenID(raw string) (TokenID, error) {
	if raw == "" {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "token id cannot be empty")
	}
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "token id must be a non-negative integer")
	}
	return TokenID(n), nil
}

// ParseSlotID parses a decimal slot id from transport input.
func ParseSlotID(raw string) (SlotID, error) {
	if raw == "" {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "slot id cannot be empty")
	}
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "slot id must be a non-negative integer")
	}
	return SlotID(n), nil
}

func (d DocumentID) String() string    { return uuid.UUID(d).String() }
func (p PartyID) String() string       { return uuid.UUID(p).String() }
func (a AttestationID) String() string { return uuid.UUID(a).String() }
func (s SchemaID) String() string      { return uuid.UUID(s).String() }
func (t TokenID) String() string       { return strconv.FormatUint(uint64(t), 10) }
func (s SlotID) String() string        { return strconv.FormatUint(uint64(s), 10) }

// IsNil reports whether the id is the zero UUID.
func (d DocumentID) IsNil() bool { return uuid.UUID(d) == uuid.Nil }

// IsNil reports whether the id is the zero UUID. A nil PartyID on a
// reservation means the reservation is anonymous.
func (p PartyID) IsNil() bool { return uuid.UUID(p) == uuid.Nil }

// IsNil reports whether the id is the zero UUID.
func (a AttestationID) IsNil() bool { return uuid.UUID(a) == uuid.Nil }

// IsNil reports whether the id is the zero UUID.
func (s SchemaID) IsNil() bool { return uuid.UUID(s) == uuid.Nil }
