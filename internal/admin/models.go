// Package admin owns ledger governance: the pause switch every mutating
// operation consults, the capability schema the verifier compares against,
// and upgrade authorizations. All writes sit behind the governor token at
// the transport layer.
package admin

import (
	"time"

	id "scrip/pkg/domain"
)

// State is the governance state of the ledger. There is exactly one.
type State struct {
	Paused    bool
	SchemaID  id.SchemaID
	UpdatedAt time.Time
}

// Upgrade is one authorized upgrade. The deploy tooling consuming these is
// out of scope; the ledger only records and audits the authorization.
type Upgrade struct {
	Version      string
	AuthorizedAt time.Time
}
