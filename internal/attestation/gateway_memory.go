package attestation

import (
	"context"
	"sync"
	"time"

	id "scrip/pkg/domain"
	"scrip/pkg/platform/sentinel"
)

// InMemoryGateway is a seedable stand-in for the attestation service, used
// in dev mode and tests. Edits between lookups are visible immediately, so
// revocation and expiry behave like they do against the real service.
type InMemoryGateway struct {
	mu           sync.RWMutex
	attestations map[id.AttestationID]Attestation
}

func NewInMemoryGateway() *InMemoryGateway {
	return &InMemoryGateway{attestations: make(map[id.AttestationID]Attestation)}
}

func (g *InMemoryGateway) Lookup(_ context.Context, attID id.AttestationID) (Attestation, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	att, ok := g.attestations[attID]
	if !ok {
		return Attestation{}, sentinel.ErrNotFound
	}
	return att, nil
}

// Seed stores or replaces an attestation.
func (g *InMemoryGateway) Seed(att Attestation) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.attestations[att.ID] = att
}

// Revoke marks a seeded attestation revoked, mimicking an external
// revocation landing between two lookups.
func (g *InMemoryGateway) Revoke(attID id.AttestationID, at time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if att, ok := g.attestations[attID]; ok {
		att.RevokedAt = at
		g.attestations[attID] = att
	}
}

// SetExpiry rewrites a seeded attestation's expiry.
func (g *InMemoryGateway) SetExpiry(attID id.AttestationID, expiresAt time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if att, ok := g.attestations[attID]; ok {
		att.ExpiresAt = expiresAt
		g.attestations[attID] = att
	}
}
