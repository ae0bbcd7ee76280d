// Package device describes the recipients of a push notification: a single
// Device (platform plus device key) and an ordered Devices collection.
package device

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Platform is a push notification platform supported by the library.
type Platform string

const (
	IOS     Platform = "ios"
	Android Platform = "android"
)

// Platforms lists the supported platforms in dispatch order.
var Platforms = []Platform{IOS, Android}

func (p Platform) String() string { return string(p) }

func (p Platform) IsValid() bool {
	switch p {
	case IOS, Android:
		return true
	}
	return false
}

// InvalidPlatformError is returned when an operating system name is not
// one of the supported platforms.
type InvalidPlatformError struct {
	Platform string
}

func (e *InvalidPlatformError) Error() string {
	return fmt.Sprintf("platform %s is not supported", e.Platform)
}

// ParsePlatform matches name case-insensitively against the supported
// platforms and returns the lowercase form.
func ParsePlatform(name string) (Platform, error) {
	p := Platform(strings.ToLower(name))
	if !p.IsValid() {
		return "", &InvalidPlatformError{Platform: name}
	}
	return p, nil
}

// Device identifies one recipient of a push notification.
type Device struct {
	platform Platform
	key      string
}

// New builds a device for the given operating system and device key.
func New(operatingSystem, key string) (*Device, error) {
	d := &Device{}
	if err := d.SetOperatingSystem(operatingSystem); err != nil {
		return nil, err
	}
	return d.SetDeviceKey(key), nil
}

// SetOperatingSystem sets the device platform. The device is left
// unchanged when the name is not supported.
func (d *Device) SetOperatingSystem(name string) error {
	p, err := ParsePlatform(name)
	if err != nil {
		return err
	}
	d.platform = p
	return nil
}

func (d *Device) OperatingSystem() Platform {
	return d.platform
}

// SetDeviceKey sets the opaque token the push service uses to address
// the device.
func (d *Device) SetDeviceKey(key string) *Device {
	d.key = key
	return d
}

func (d *Device) DeviceKey() string {
	return d.key
}

// deviceJSON is the wire form used by the device registry cache.
type deviceJSON struct {
	Platform string `json:"platform"`
	Key      string `json:"key"`
}

func (d *Device) MarshalJSON() ([]byte, error) {
	return json.Marshal(deviceJSON{Platform: d.platform.String(), Key: d.key})
}

// UnmarshalJSON decodes a device and re-validates its platform.
func (d *Device) UnmarshalJSON(data []byte) error {
	var raw deviceJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if err := d.SetOperatingSystem(raw.Platform); err != nil {
		return err
	}
	d.key = raw.Key
	return nil
}
