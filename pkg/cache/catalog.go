package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"fleetlink/pkg/logger"
	"fleetlink/pkg/model"

	"github.com/redis/go-redis/v9"
)

const (
	CatalogKey           = "fleetlink:vehicles:catalog"
	CatalogGenerationKey = "fleetlink:vehicles:catalog:gen"
)

var errStaleSnapshot = errors.New("catalog changed while the snapshot was loading")

// CatalogCache keeps a snapshot of the whole vehicle catalog in Redis. A nil
// client disables it; every Redis failure degrades to a miss.
//
// Every mutation bumps a generation counter. A snapshot is only written when
// the generation observed before the store read is still current, so a load
// racing a create or delete never outlives the invalidation.
type CatalogCache struct {
	rdb *redis.Client
	ttl time.Duration
	log *logger.Logger
}

func NewCatalogCache(rdb *redis.Client, ttl time.Duration, log *logger.Logger) *CatalogCache {
	return &CatalogCache{
		rdb: rdb,
		ttl: ttl,
		log: log,
	}
}

func (c *CatalogCache) Enabled() bool {
	return c != nil && c.rdb != nil
}

// Get returns the cached snapshot. ok is false on a miss or on any error.
func (c *CatalogCache) Get(ctx context.Context) (vehicles []*model.Vehicle, ok bool) {
	if !c.Enabled() {
		return nil, false
	}

	data, err := c.rdb.Get(ctx, CatalogKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.WithContext(ctx).Warn("Catalog cache read failed, falling back to store", "error", err)
		}
		return nil, false
	}

	if err := json.Unmarshal(data, &vehicles); err != nil {
		c.log.WithContext(ctx).Warn("Catalog cache entry corrupt, discarding", "error", err)
		c.Invalidate(ctx)
		return nil, false
	}
	return vehicles, true
}

// Generation returns the current catalog generation. Callers read it before
// loading the catalog from the store and hand it back to Set. ok is false
// when Redis cannot be read, in which case the snapshot must not be written.
func (c *CatalogCache) Generation(ctx context.Context) (generation int64, ok bool) {
	if !c.Enabled() {
		return 0, false
	}

	generation, err := c.rdb.Get(ctx, CatalogGenerationKey).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		c.log.WithContext(ctx).Warn("Catalog generation read failed", "error", err)
		return 0, false
	}
	return generation, true
}

// Set stores vehicles as the snapshot of the given generation. The write is
// dropped when the catalog was invalidated after that generation was read.
func (c *CatalogCache) Set(ctx context.Context, generation int64, vehicles []*model.Vehicle) {
	if !c.Enabled() {
		return
	}

	data, err := json.Marshal(vehicles)
	if err != nil {
		c.log.WithContext(ctx).Warn("Failed to encode catalog snapshot", "error", err)
		return
	}

	err = c.rdb.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, CatalogGenerationKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != generation {
			return errStaleSnapshot
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, CatalogKey, data, c.ttl)
			return nil
		})
		return err
	}, CatalogGenerationKey)

	switch {
	case err == nil:
	case errors.Is(err, errStaleSnapshot), errors.Is(err, redis.TxFailedErr):
		c.log.WithContext(ctx).Debug("Catalog changed during load, snapshot discarded", "generation", generation)
	default:
		c.log.WithContext(ctx).Warn("Catalog cache write failed", "error", err)
	}
}

// Invalidate bumps the generation and drops the snapshot after any catalog
// mutation.
func (c *CatalogCache) Invalidate(ctx context.Context) {
	if !c.Enabled() {
		return
	}

	if err := c.rdb.Incr(ctx, CatalogGenerationKey).Err(); err != nil {
		c.log.WithContext(ctx).Warn("Catalog generation bump failed", "error", err)
	}
	if err := c.rdb.Del(ctx, CatalogKey).Err(); err != nil {
		c.log.WithContext(ctx).Warn("Catalog cache invalidation failed", "error", err)
	}
}
