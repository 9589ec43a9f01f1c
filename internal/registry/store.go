package registry

import (
	"context"

	id "scrip/pkg/domain"
)

// Store persists assignments. Implementations return sentinel.ErrConflict
// when a document already has an assignment and sentinel.ErrNotFound when it
// has none; the service translates both at the boundary.
type Store interface {
	Create(ctx context.Context, assignment Assignment) error
	Find(ctx context.Context, doc id.DocumentID) (Assignment, error)
}
