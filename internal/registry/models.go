// Package registry records which issuer and resolver variant govern each
// document. Assignments mirror the external document registry and are
// written exactly once per document by the privileged executor.
package registry

import (
	"time"

	id "scrip/pkg/domain"
)

// Assignment binds a document to its issuer and resolver variant.
//
// Invariants:
//   - written once; never updated or deleted
//   - Issuer is non-nil
//   - Variant is one of the known resolver variants
type Assignment struct {
	DocumentID id.DocumentID `json:"document_id"`
	Issuer     id.PartyID    `json:"issuer"`
	Variant    id.Variant    `json:"variant"`
	CreatedAt  time.Time     `json:"created_at"`
}
