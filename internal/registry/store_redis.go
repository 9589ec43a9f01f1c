package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	registrymetrics "scrip/internal/registry/metrics"
	id "scrip/pkg/domain"
)

const cacheKeyPrefix = "scrip:registry:assignment:"

// CachedStore decorates a Store with a Redis read-through cache.
// Assignments are write-once, so cached entries can never go stale; the TTL
// only bounds memory. A cache outage degrades to the inner store.
type CachedStore struct {
	inner   Store
	redis   *goredis.Client
	ttl     time.Duration
	metrics *registrymetrics.Metrics
	logger  *slog.Logger
}

func NewCachedStore(inner Store, redis *goredis.Client, ttl time.Duration, metrics *registrymetrics.Metrics, logger *slog.Logger) *CachedStore {
	return &CachedStore{
		inner:   inner,
		redis:   redis,
		ttl:     ttl,
		metrics: metrics,
		logger:  logger,
	}
}

// cachedAssignment is the cache wire shape.
type cachedAssignment struct {
	Issuer    string `json:"issuer"`
	Variant   string `json:"variant"`
	CreatedAt int64  `json:"created_at"`
}

func (s *CachedStore) Create(ctx context.Context, assignment Assignment) error {
	if err := s.inner.Create(ctx, assignment); err != nil {
		return err
	}
	s.prime(ctx, assignment)
	return nil
}

func (s *CachedStore) Find(ctx context.Context, doc id.DocumentID) (Assignment, error) {
	if s.redis == nil {
		return s.inner.Find(ctx, doc)
	}

	key := cacheKeyPrefix + doc.String()

	raw, err := s.redis.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		assignment, decodeErr := decodeCached(doc, raw)
		if decodeErr == nil {
			s.metrics.IncrementCacheHit()
			return assignment, nil
		}
		s.logger.WarnContext(ctx, "dropping corrupt cache entry",
			slog.String("document_id", doc.String()),
			slog.String("error", decodeErr.Error()),
		)
		_ = s.redis.Del(ctx, key).Err()
	case errors.Is(err, goredis.Nil):
		// cache miss, fall through
	default:
		s.logger.WarnContext(ctx, "assignment cache read failed",
			slog.String("document_id", doc.String()),
			slog.String("error", err.Error()),
		)
	}

	s.metrics.IncrementCacheMiss()

	assignment, err := s.inner.Find(ctx, doc)
	if err != nil {
		return Assignment{}, err
	}
	s.prime(ctx, assignment)
	return assignment, nil
}

// prime writes an assignment into the cache, best effort.
func (s *CachedStore) prime(ctx context.Context, assignment Assignment) {
	if s.redis == nil {
		return
	}

	raw, err := json.Marshal(cachedAssignment{
		Issuer:    assignment.Issuer.String(),
		Variant:   string(assignment.Variant),
		CreatedAt: assignment.CreatedAt.Unix(),
	})
	if err != nil {
		return
	}

	key := cacheKeyPrefix + assignment.DocumentID.String()
	if err := s.redis.Set(ctx, key, raw, s.ttl).Err(); err != nil {
		s.logger.WarnContext(ctx, "assignment cache write failed",
			slog.String("document_id", assignment.DocumentID.String()),
			slog.String("error", err.Error()),
		)
	}
}

func decodeCached(doc id.DocumentID, raw []byte) (Assignment, error) {
	var dto cachedAssignment
	if err := json.Unmarshal(raw, &dto); err != nil {
		return Assignment{}, fmt.Errorf("decode cached assignment: %w", err)
	}

	issuer, err := id.ParsePartyID(dto.Issuer)
	if err != nil {
		return Assignment{}, fmt.Errorf("cached issuer: %w", err)
	}
	variant, err := id.ParseVariant(dto.Variant)
	if err != nil {
		return Assignment{}, fmt.Errorf("cached variant: %w", err)
	}

	return Assignment{
		DocumentID: doc,
		Issuer:     issuer,
		Variant:    variant,
		CreatedAt:  time.Unix(dto.CreatedAt, 0).UTC(),
	}, nil
}
