// Package credential fires the trust-credential side effect after a claim.
// The downstream service is an optional integration: its failures are
// logged, counted and swallowed, never surfaced to the claim path.
package credential

import (
	"context"
	"time"

	id "scrip/pkg/domain"
)

// ClaimEvent carries what the credential service needs about a completed
// claim.
type ClaimEvent struct {
	DocumentID    id.DocumentID
	TokenID       id.TokenID
	Slot          id.SlotID
	Value         uint64
	Owner         id.PartyID
	AttestationID id.AttestationID
	ClaimedAt     time.Time
}

// Issuer is the credential service integration point.
type Issuer interface {
	IssueClaimCredential(ctx context.Context, event ClaimEvent) error
}
