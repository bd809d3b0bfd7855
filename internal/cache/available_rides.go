package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/aditya/go-dispatch/internal/models"
	"github.com/redis/go-redis/v9"
)

const (
	availableRidesKey        = "rides:available"
	availableRidesVersionKey = "rides:available:version"
)

// AvailableRidesCache holds a short-lived snapshot of the requested rides.
//
// Every Invalidate bumps a version. A reader takes the Version before it
// queries storage and hands it back to Set, which stores the snapshot only
// if no invalidation happened in between.
type AvailableRidesCache interface {
	Get(ctx context.Context) ([]*models.Ride, bool, error)
	Version(ctx context.Context) (int64, error)
	Set(ctx context.Context, version int64, rides []*models.Ride) error
	Invalidate(ctx context.Context) error
}

type availableRidesCache struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewAvailableRidesCache(redisClient *redis.Client, ttl time.Duration) AvailableRidesCache {
	return &availableRidesCache{redis: redisClient, ttl: ttl}
}

func (c *availableRidesCache) Get(ctx context.Context) ([]*models.Ride, bool, error) {
	data, err := c.redis.Get(ctx, availableRidesKey).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var rides []*models.Ride
	if err := json.Unmarshal(data, &rides); err != nil {
		return nil, false, err
	}
	return rides, true, nil
}

func (c *availableRidesCache) Version(ctx context.Context) (int64, error) {
	return readVersion(ctx, c.redis)
}

func (c *availableRidesCache) Set(ctx context.Context, version int64, rides []*models.Ride) error {
	data, err := json.Marshal(rides)
	if err != nil {
		return err
	}

	err = c.redis.Watch(ctx, func(tx *redis.Tx) error {
		current, err := readVersion(ctx, tx)
		if err != nil {
			return err
		}
		if current != version {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, availableRidesKey, data, c.ttl)
			return nil
		})
		return err
	}, availableRidesVersionKey)
	if errors.Is(err, redis.TxFailedErr) {
		// Invalidated while we were writing; the snapshot is stale.
		return nil
	}
	return err
}

func (c *availableRidesCache) Invalidate(ctx context.Context) error {
	_, err := c.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, availableRidesVersionKey)
		pipe.Del(ctx, availableRidesKey)
		return nil
	})
	return err
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func readVersion(ctx context.Context, r getter) (int64, error) {
	v, err := r.Get(ctx, availableRidesVersionKey).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return v, err
}
