package admin

import (
	"context"
)

// Store persists the governance state. Load returns sentinel.ErrNotFound
// until the state has been initialized once; RecordUpgrade returns
// sentinel.ErrConflict for an already-authorized version.
type Store interface {
	Load(ctx context.Context) (State, error)
	Save(ctx context.Context, state State) error
	RecordUpgrade(ctx context.Context, upgrade Upgrade) error
}
