package handler

import (
	"strings"
	"time"

	id "scrip/pkg/domain"
	dErrors "scrip/pkg/domain-errors"
)

// ReserveRequest is the HTTP request body for
// POST /documents/{documentID}/reservations. An empty recipient makes the
// reservation anonymous.
type ReserveRequest struct {
	Recipient string `json:"recipient,omitempty"`
	Slot      uint64 `json:"slot"`
	Value     uint64 `json:"value"`
	Label     string `json:"label,omitempty"`

	parsedRecipient id.PartyID
}

// Validate validates and parses the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *ReserveRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	if recipient := strings.TrimSpace(r.Recipient); recipient != "" {
		parsed, err := id.ParsePartyID(recipient)
		if err != nil {
			return err
		}
		r.parsedRecipient = parsed
	}
	return nil
}

// ParsedRecipient returns the validated recipient, or the nil party for an
// anonymous reservation.
func (r *ReserveRequest) ParsedRecipient() id.PartyID {
	return r.parsedRecipient
}

// Anonymous reports whether the reservation names no recipient.
func (r *ReserveRequest) Anonymous() bool {
	return r.parsedRecipient.IsNil()
}

// ClaimRequest is the HTTP request body for
// POST /documents/{documentID}/tokens/{tokenID}/claim.
type ClaimRequest struct {
	AttestationID string `json:"attestation_id"`

	parsedAttestationID id.AttestationID
}

// Validate validates and parses the request.
func (r *ClaimRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	att, err := id.ParseAttestationID(strings.TrimSpace(r.AttestationID))
	if err != nil {
		return err
	}
	r.parsedAttestationID = att
	return nil
}

// ParsedAttestationID returns the validated attestation id.
func (r *ClaimRequest) ParsedAttestationID() id.AttestationID {
	return r.parsedAttestationID
}

// TransferRequest is the HTTP request body for
// POST /documents/{documentID}/tokens/{tokenID}/transfer.
type TransferRequest struct {
	To string `json:"to"`

	parsedTo id.PartyID
}

// Validate validates and parses the request.
func (r *TransferRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	to, err := id.ParsePartyID(strings.TrimSpace(r.To))
	if err != nil {
		return err
	}
	r.parsedTo = to
	return nil
}

// ParsedTo returns the validated transfer target.
func (r *TransferRequest) ParsedTo() id.PartyID {
	return r.parsedTo
}

// DelegateRequest is the HTTP request body for
// POST /documents/{documentID}/tokens/{tokenID}/delegate. Permit carries a
// signed delegation permit when a third party submits on the owner's behalf.
type DelegateRequest struct {
	Delegate  string `json:"delegate"`
	ExpiresAt int64  `json:"expires_at"`
	Permit    string `json:"permit,omitempty"`

	parsedDelegate id.PartyID
}

// Validate validates and parses the request.
func (r *DelegateRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	delegate, err := id.ParsePartyID(strings.TrimSpace(r.Delegate))
	if err != nil {
		return err
	}
	r.parsedDelegate = delegate

	if r.ExpiresAt <= 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "expires_at must be a positive unix timestamp")
	}
	return nil
}

// ParsedDelegate returns the validated delegate party.
func (r *DelegateRequest) ParsedDelegate() id.PartyID {
	return r.parsedDelegate
}

// ParsedExpiresAt returns the expiry as a time.
func (r *DelegateRequest) ParsedExpiresAt() time.Time {
	return time.Unix(r.ExpiresAt, 0).UTC()
}
