// Package cache provides caching implementations for repository interfaces.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"commodity_etl/internal/feature/commodities/domain/entity"
	"commodity_etl/internal/feature/commodities/usecase"
)

// ObservationStore is the repository being decorated: it both replaces and reads tables.
type ObservationStore interface {
	usecase.ObservationRepository
	usecase.ObservationReader
}

// allSymbols is the key segment for an unfiltered read.
const allSymbols = "_all"

// CachingObservationRepository decorates an ObservationStore with Redis caching.
// Reads are cached per table, generation and symbol. A successful ReplaceAll
// bumps the table's generation, so a read that fetched the old rows and stores
// them after the replace writes to a key no later read uses.
type CachingObservationRepository struct {
	inner     ObservationStore
	rdb       *redis.Client
	ttl       func() time.Duration
	namespace string
}

var _ ObservationStore = (*CachingObservationRepository)(nil)

// NewCachingObservationRepository decorates inner with Redis caching.
// ttl is evaluated on every cache write; nil means a fixed 5 minutes.
// If namespace is empty, it uses "commodities".
func NewCachingObservationRepository(rdb *redis.Client, ttl func() time.Duration, inner ObservationStore, namespace string) *CachingObservationRepository {
	if ttl == nil {
		ttl = func() time.Duration { return 5 * time.Minute }
	}
	if namespace == "" {
		namespace = "commodities"
	}
	return &CachingObservationRepository{
		inner:     inner,
		rdb:       rdb,
		ttl:       ttl,
		namespace: namespace,
	}
}

// ReplaceAll replaces the table and then invalidates its cached reads.
func (c *CachingObservationRepository) ReplaceAll(ctx context.Context, target entity.LoadTarget, observations []entity.Observation) (int64, error) {
	n, err := c.inner.ReplaceAll(ctx, target, observations)
	if err != nil {
		return 0, err
	}
	if c.rdb == nil {
		return n, nil
	}

	// Best effort: the commit already happened and the TTL bounds staleness.
	if err := c.rdb.Incr(ctx, c.generationKey(target.Table)).Err(); err != nil {
		slog.Warn("cache generation bump failed", "table", target.Table, "error", err)
	}
	// 旧世代のキーは誰も読まないが、TTLを待たずに片付ける
	if err := c.deleteByPattern(ctx, c.tablePrefix(target.Table)+"*"); err != nil {
		slog.Warn("cache invalidation failed", "table", target.Table, "error", err)
	}
	return n, nil
}

// Find retrieves rows, checking cache first then falling back to the database.
func (c *CachingObservationRepository) Find(ctx context.Context, table string, symbol entity.Symbol) ([]entity.Observation, error) {
	if c.rdb == nil {
		return c.inner.Find(ctx, table, symbol)
	}

	// 世代はDBを読む前に確定させる
	gen, err := c.generation(ctx, table)
	if err != nil {
		slog.Warn("cache generation unavailable, reading through", "table", table, "error", err)
		return c.inner.Find(ctx, table, symbol)
	}
	key := c.cacheKey(table, gen, symbol)

	// 1) Check cache
	if b, err := c.rdb.Get(ctx, key).Bytes(); err == nil && len(b) > 0 {
		var out []entity.Observation
		if err := json.Unmarshal(b, &out); err == nil {
			return out, nil
		}
		// Delete corrupted cache entry
		_ = c.rdb.Del(ctx, key).Err()
	}

	// 2) Fallback to database
	out, err := c.inner.Find(ctx, table, symbol)
	if err != nil {
		return nil, err
	}

	// 3) Store in cache (best effort)
	if b, err := json.Marshal(out); err == nil {
		_ = c.rdb.Set(ctx, key, b, c.ttl()).Err()
	}

	return out, nil
}

// generation returns the table's replace counter; 0 before the first replace.
func (c *CachingObservationRepository) generation(ctx context.Context, table string) (int64, error) {
	n, err := c.rdb.Get(ctx, c.generationKey(table)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}

// generationKey lives outside the table prefix so invalidation never deletes it.
// '#' cannot appear in a table identifier.
func (c *CachingObservationRepository) generationKey(table string) string {
	return fmt.Sprintf("%s:#gen:%s", c.namespace, safe(table))
}

func (c *CachingObservationRepository) cacheKey(table string, gen int64, symbol entity.Symbol) string {
	s := string(symbol)
	if s == "" {
		s = allSymbols
	}
	return fmt.Sprintf("%sg%d:%s", c.tablePrefix(table), gen, safe(s))
}

func (c *CachingObservationRepository) tablePrefix(table string) string {
	return fmt.Sprintf("%s:%s:", c.namespace, safe(table))
}

// deleteByPattern deletes all cache keys matching a given pattern using SCAN.
func (c *CachingObservationRepository) deleteByPattern(ctx context.Context, pattern string) error {
	var cursor uint64
	for {
		keys, cur, err := c.rdb.Scan(ctx, cursor, pattern, 200).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		cursor = cur
		if cursor == 0 {
			break
		}
	}
	return nil
}

// safe escapes characters that are problematic for Redis keys and SCAN patterns.
func safe(s string) string {
	return strings.NewReplacer(
		" ", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"[", "_",
		"]", "_",
	).Replace(s)
}
