package dispatch

import (
	"context"

	urn "github.com/tinywideclouds/go-platform/pkg/net/v1"
	"github.com/tinywideclouds/go-push-notifier/pkg/device"
	"github.com/tinywideclouds/go-push-notifier/pkg/notification"
)

// Dispatcher defines the contract for a component that can send notifications
// to a specific platform (e.g., Apple's APNS, Google's FCM).
type Dispatcher interface {
	// Dispatch sends the notification to a batch of device keys of one platform.
	// It returns a human readable receipt and the keys the platform reported
	// as permanently invalid. A non-nil error means the batch may be retried.
	Dispatch(ctx context.Context, keys []string, n *notification.Notification) (string, []string, error)
}

// DeviceStore remembers which devices belong to a recipient.
type DeviceStore interface {
	// Register adds or updates a device for the recipient. Registering the
	// same device key twice is an upsert.
	Register(ctx context.Context, recipient urn.URN, d *device.Device) error

	// Unregister removes the device with the given key. Removing an unknown
	// key is not an error.
	Unregister(ctx context.Context, recipient urn.URN, key string) error

	// Fetch returns every device registered for the recipient.
	Fetch(ctx context.Context, recipient urn.URN) (*device.Devices, error)
}
