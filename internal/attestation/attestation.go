// Package attestation models the capability attestations this service
// consumes. Attestations are issued and stored by an external service; here
// they are looked up through a Gateway and interpreted by the verifier.
package attestation

import (
	"time"

	id "scrip/pkg/domain"
)

// Attestation is one capability grant: an issuer attests that a recipient
// holds certain capabilities over a document. The payload stays opaque at
// this layer; DecodePayload interprets it.
type Attestation struct {
	ID        id.AttestationID
	SchemaID  id.SchemaID
	Recipient id.PartyID
	Issuer    id.PartyID
	IssuedAt  time.Time
	ExpiresAt time.Time
	RevokedAt time.Time
	Payload   []byte
}

// Revoked reports whether the attestation has been revoked. A zero RevokedAt
// means active.
func (a Attestation) Revoked() bool {
	return !a.RevokedAt.IsZero()
}

// Expired reports whether the attestation has expired at the given instant.
// A zero ExpiresAt means it never expires, and an attestation expiring
// exactly now is still usable.
func (a Attestation) Expired(now time.Time) bool {
	return !a.ExpiresAt.IsZero() && a.ExpiresAt.Before(now)
}
