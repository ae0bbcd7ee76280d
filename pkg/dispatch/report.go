// Package dispatch contains the contracts between the push server and its
// transports and device registry, and the report produced by a send.
package dispatch

import (
	"github.com/google/uuid"
	"github.com/tinywideclouds/go-push-notifier/pkg/device"
)

// PlatformResult is the outcome of dispatching to one platform.
type PlatformResult struct {
	Platform  device.Platform
	Attempted int
	Receipt   string
	// InvalidKeys are device keys the platform rejected permanently.
	InvalidKeys []string
	// Skipped is set when the platform had devices but no transport.
	Skipped bool
	Err     error
}

// Report summarises a send across platforms.
type Report struct {
	ID      string
	Results []PlatformResult
}

func NewReport() *Report {
	return &Report{ID: uuid.NewString()}
}

// Result returns the outcome for platform p, if it was dispatched or skipped.
func (r *Report) Result(p device.Platform) (PlatformResult, bool) {
	for _, res := range r.Results {
		if res.Platform == p {
			return res, true
		}
	}
	return PlatformResult{}, false
}

// InvalidDeviceKeys returns every invalid key across platforms.
func (r *Report) InvalidDeviceKeys() []string {
	var keys []string
	for _, res := range r.Results {
		keys = append(keys, res.InvalidKeys...)
	}
	return keys
}
