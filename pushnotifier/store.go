package pushnotifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/option"

	"github.com/tinywideclouds/go-push-notifier/internal/storage/cache"
	fsStore "github.com/tinywideclouds/go-push-notifier/internal/storage/firestore"
	"github.com/tinywideclouds/go-push-notifier/pkg/dispatch"
	"github.com/tinywideclouds/go-push-notifier/pushnotifier/config"
)

// NewDeviceStore opens the Firestore device registry of cfg.ProjectID and,
// when Redis is enabled, puts the read-aside cache in front of it. The
// returned func closes the underlying clients.
func NewDeviceStore(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...option.ClientOption) (dispatch.DeviceStore, func() error, error) {
	if cfg.ProjectID == "" {
		return nil, nil, errors.New("project id is required for the device store")
	}

	fsClient, err := firestore.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create firestore client: %w", err)
	}

	var store dispatch.DeviceStore = fsStore.NewDeviceStore(fsClient, logger)
	logger.Info("DeviceStore initialized", "type", "firestore")

	if !cfg.Redis.Enabled {
		return store, fsClient.Close, nil
	}

	logger.Info("Initializing Redis Cache layer...", "addr", cfg.Redis.Addr)
	redisCache, err := cache.NewRedisDeviceCache(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		_ = fsClient.Close()
		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	store = cache.NewCachedDeviceStore(store, redisCache, cfg.Redis.TTL)
	logger.Info("DeviceStore upgraded", "type", "redis_cached_firestore")

	closeAll := func() error {
		return errors.Join(redisCache.Close(), fsClient.Close())
	}
	return store, closeAll, nil
}
