// Package cache adds a Redis read-aside cache in front of a device store.
package cache

import (
	"context"
	"time"

	urn "github.com/tinywideclouds/go-platform/pkg/net/v1"
	"github.com/tinywideclouds/go-push-notifier/pkg/device"
	"github.com/tinywideclouds/go-push-notifier/pkg/dispatch"
)

// DeviceCache is the cache behind CachedDeviceStore. RedisDeviceCache
// implements it.
type DeviceCache interface {
	// Devices returns the cached collection or an error on a miss.
	Devices(ctx context.Context, recipient urn.URN) (*device.Devices, error)
	StoreDevices(ctx context.Context, recipient urn.URN, devices *device.Devices, ttl time.Duration) error
	Invalidate(ctx context.Context, recipient urn.URN) error
}

// CachedDeviceStore is a decorator that adds read-aside caching to any
// dispatch.DeviceStore. Writes invalidate the recipient's entry.
type CachedDeviceStore struct {
	realStore dispatch.DeviceStore
	cache     DeviceCache
	ttl       time.Duration
}

func NewCachedDeviceStore(realStore dispatch.DeviceStore, cache DeviceCache, ttl time.Duration) *CachedDeviceStore {
	return &CachedDeviceStore{
		realStore: realStore,
		cache:     cache,
		ttl:       ttl,
	}
}

func (s *CachedDeviceStore) Fetch(ctx context.Context, recipient urn.URN) (*device.Devices, error) {
	if cached, err := s.cache.Devices(ctx, recipient); err == nil && cached != nil {
		return cached, nil
	}

	fresh, err := s.realStore.Fetch(ctx, recipient)
	if err != nil {
		return nil, err
	}

	// Caching is an optimisation; a Redis failure still serves from the store.
	_ = s.cache.StoreDevices(ctx, recipient, fresh, s.ttl)

	return fresh, nil
}

func (s *CachedDeviceStore) Register(ctx context.Context, recipient urn.URN, d *device.Device) error {
	if err := s.realStore.Register(ctx, recipient, d); err != nil {
		return err
	}
	return s.cache.Invalidate(ctx, recipient)
}

// Unregister clears the cache even though the store write already
// succeeded, so removed devices stop receiving immediately.
func (s *CachedDeviceStore) Unregister(ctx context.Context, recipient urn.URN, key string) error {
	if err := s.realStore.Unregister(ctx, recipient, key); err != nil {
		return err
	}
	return s.cache.Invalidate(ctx, recipient)
}
