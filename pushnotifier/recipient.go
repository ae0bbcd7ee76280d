package pushnotifier

import (
	"context"
	"fmt"

	urn "github.com/tinywideclouds/go-platform/pkg/net/v1"
	"github.com/tinywideclouds/go-push-notifier/pkg/device"
	"github.com/tinywideclouds/go-push-notifier/pkg/dispatch"
)

// SendToRecipient delivers the notification to the devices registered for
// recipient in store. Device keys a transport rejected permanently are
// unregistered afterwards. The devices set on the Server are not used.
func (s *Server) SendToRecipient(ctx context.Context, store dispatch.DeviceStore, recipient urn.URN) (*dispatch.Report, error) {
	if s.notification == nil {
		return nil, ErrPushNotificationNotSet
	}

	logger := s.logger.With("recipient", recipient.String())

	devices, err := store.Fetch(ctx, recipient)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch devices for %s: %w", recipient.String(), err)
	}
	if devices == nil {
		devices = device.NewDevices()
	}
	if devices.Len() == 0 {
		logger.Info("Recipient has no registered devices")
	}

	report, sendErr := s.send(ctx, devices)

	// Self-healing: drop keys the platforms will never accept.
	for _, key := range report.InvalidDeviceKeys() {
		if err := store.Unregister(ctx, recipient, key); err != nil {
			logger.Error("Failed to unregister invalid device key", "err", err)
			continue
		}
		logger.Info("Unregistered invalid device key")
	}

	return report, sendErr
}
