//go:build integration

package registry_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scrip/internal/registry"
	registrymetrics "scrip/internal/registry/metrics"
	id "scrip/pkg/domain"
	"scrip/pkg/testutil/containers"
)

func TestCachedStore_ReadThrough(t *testing.T) {
	rc := containers.NewRedisContainer(t)
	t.Cleanup(func() { rc.Terminate(context.Background()) })

	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	inner := registry.NewInMemoryStore()
	store := registry.NewCachedStore(inner, rc.Client, time.Minute, registrymetrics.New(), logger)

	doc, err := id.ParseDocumentID(uuid.NewString())
	require.NoError(t, err)
	issuer, err := id.ParsePartyID(uuid.NewString())
	require.NoError(t, err)

	assignment := registry.Assignment{
		DocumentID: doc,
		Issuer:     issuer,
		Variant:    id.VariantValue,
		CreatedAt:  time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, store.Create(ctx, assignment))

	t.Run("create primes the cache", func(t *testing.T) {
		got, err := store.Find(ctx, doc)
		require.NoError(t, err)
		assert.Equal(t, issuer, got.Issuer)
		assert.Equal(t, id.VariantValue, got.Variant)
	})

	t.Run("a miss falls back to the inner store and reprimes", func(t *testing.T) {
		require.NoError(t, rc.FlushAll(ctx))

		got, err := store.Find(ctx, doc)
		require.NoError(t, err)
		assert.Equal(t, issuer, got.Issuer)

		// The entry is back in Redis now.
		keys, err := rc.Client.Keys(ctx, "scrip:registry:assignment:*").Result()
		require.NoError(t, err)
		assert.Len(t, keys, 1)
	})

	t.Run("a corrupt entry is dropped and re-read", func(t *testing.T) {
		key := "scrip:registry:assignment:" + doc.String()
		require.NoError(t, rc.Client.Set(ctx, key, "not-json", time.Minute).Err())

		got, err := store.Find(ctx, doc)
		require.NoError(t, err)
		assert.Equal(t, issuer, got.Issuer)
	})
}
