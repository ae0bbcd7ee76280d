// Package pipeline routes a notification to the transport of each device
// platform.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tinywideclouds/go-push-notifier/pkg/device"
	"github.com/tinywideclouds/go-push-notifier/pkg/dispatch"
	"github.com/tinywideclouds/go-push-notifier/pkg/notification"
)

// Processor fans a notification out to the devices of a collection.
type Processor func(ctx context.Context, devices *device.Devices, n *notification.Notification) (*dispatch.Report, error)

// NewProcessor creates the logic that handles the "Fan-Out".
// Platforms without a dispatcher are skipped with a warning.
func NewProcessor(
	dispatchers map[device.Platform]dispatch.Dispatcher,
	logger *slog.Logger,
) Processor {

	return func(ctx context.Context, devices *device.Devices, n *notification.Notification) (*dispatch.Report, error) {
		report := dispatch.NewReport()
		procLogger := logger.With("report_id", report.ID)

		var errs []error
		for _, platform := range device.Platforms {
			keys := devices.Keys(platform)
			if len(keys) == 0 {
				continue
			}

			result := dispatch.PlatformResult{Platform: platform, Attempted: len(keys)}

			dispatcher, ok := dispatchers[platform]
			if !ok || dispatcher == nil {
				procLogger.Warn("No transport configured for platform; skipping devices", "platform", platform, "count", len(keys))
				result.Skipped = true
				report.Results = append(report.Results, result)
				continue
			}

			receipt, invalidKeys, err := dispatcher.Dispatch(ctx, keys, n)
			result.Receipt = receipt
			result.InvalidKeys = invalidKeys
			if len(invalidKeys) > 0 {
				procLogger.Info("Transport reported invalid device keys", "platform", platform, "count", len(invalidKeys))
			}
			if err != nil {
				procLogger.Error("Dispatch failed", "platform", platform, "err", err)
				result.Err = err
				errs = append(errs, fmt.Errorf("%s dispatch failed: %w", platform, err))
			} else {
				procLogger.Info("Dispatched", "platform", platform, "receipt", receipt)
			}
			report.Results = append(report.Results, result)
		}

		if devices.Len() == 0 {
			procLogger.Info("No devices in collection; nothing to dispatch.")
		}

		return report, errors.Join(errs...)
	}
}
