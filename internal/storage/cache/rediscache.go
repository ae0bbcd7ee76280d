package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	urn "github.com/tinywideclouds/go-platform/pkg/net/v1"
	"github.com/tinywideclouds/go-push-notifier/pkg/device"
)

// ErrCacheMiss is returned when a recipient has no cached devices.
var ErrCacheMiss = errors.New("devices not cached")

// RedisDeviceCache keeps a JSON copy of each recipient's devices in Redis
// under push:devices:<urn>.
type RedisDeviceCache struct {
	rdb *redis.Client
}

// NewRedisDeviceCache connects to Redis and fails fast when the server
// does not answer a ping.
func NewRedisDeviceCache(ctx context.Context, addr, password string, db int) (*RedisDeviceCache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &RedisDeviceCache{rdb: rdb}, nil
}

// Devices returns the cached collection, or ErrCacheMiss.
func (c *RedisDeviceCache) Devices(ctx context.Context, recipient urn.URN) (*device.Devices, error) {
	raw, err := c.rdb.Get(ctx, devicesKey(recipient)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, err
	}

	devices := device.NewDevices()
	if err := json.Unmarshal(raw, devices); err != nil {
		return nil, fmt.Errorf("corrupt cached devices for %s: %w", recipient.String(), err)
	}
	return devices, nil
}

func (c *RedisDeviceCache) StoreDevices(ctx context.Context, recipient urn.URN, devices *device.Devices, ttl time.Duration) error {
	raw, err := json.Marshal(devices)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, devicesKey(recipient), raw, ttl).Err()
}

func (c *RedisDeviceCache) Invalidate(ctx context.Context, recipient urn.URN) error {
	return c.rdb.Del(ctx, devicesKey(recipient)).Err()
}

func (c *RedisDeviceCache) Close() error {
	return c.rdb.Close()
}

func devicesKey(recipient urn.URN) string {
	return "push:devices:" + recipient.String()
}
