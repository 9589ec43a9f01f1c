package attestation

import (
	"context"

	id "scrip/pkg/domain"
)

//go:generate mockgen -source=gateway.go -destination=mocks/gateway.go -package=mocks

// Gateway looks attestations up in the external attestation service.
//
// Implementations return sentinel.ErrNotFound when no attestation exists
// under the id and sentinel.ErrUnavailable when the service cannot be
// reached; the verifier maps those onto its own failure codes.
type Gateway interface {
	Lookup(ctx context.Context, attID id.AttestationID) (Attestation, error)
}
