package pushnotifier

import (
	"errors"
	"fmt"
)

var (
	// ErrDevicesNotSet is returned by Send when no device collection is set.
	ErrDevicesNotSet = errors.New("devices not set")

	// ErrPushNotificationNotSet is returned by Send when no notification is set.
	ErrPushNotificationNotSet = errors.New("push notification not set")
)

// InvalidCertificateError reports a certificate path that does not exist.
type InvalidCertificateError struct {
	// Service is APNS or FCM.
	Service string
	Path    string
	Err     error
}

func (e *InvalidCertificateError) Error() string {
	return fmt.Sprintf("the %s certificate path %s does not exist", e.Service, e.Path)
}

func (e *InvalidCertificateError) Unwrap() error {
	return e.Err
}
