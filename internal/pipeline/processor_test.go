package pipeline_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tinywideclouds/go-push-notifier/internal/pipeline"
	"github.com/tinywideclouds/go-push-notifier/pkg/device"
	"github.com/tinywideclouds/go-push-notifier/pkg/dispatch"
	"github.com/tinywideclouds/go-push-notifier/pkg/notification"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type mockDispatcher struct {
	mock.Mock
}

func (m *mockDispatcher) Dispatch(ctx context.Context, keys []string, n *notification.Notification) (string, []string, error) {
	args := m.Called(ctx, keys, n)
	return args.String(0), args.Get(1).([]string), args.Error(2)
}

func mustDevice(t *testing.T, os, key string) *device.Device {
	t.Helper()
	d, err := device.New(os, key)
	require.NoError(t, err)
	return d
}

func TestProcessor_Routing(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	n := notification.New().SetTitle("Hello")

	devices := device.NewDevices(
		mustDevice(t, "ios", "apns-1"),
		mustDevice(t, "android", "fcm-1"),
		mustDevice(t, "iOS", "apns-2"),
	)

	t.Run("Routes Mixed Traffic Correctly", func(t *testing.T) {
		apnsMock := new(mockDispatcher)
		fcmMock := new(mockDispatcher)

		apnsMock.On("Dispatch", mock.Anything, []string{"apns-1", "apns-2"}, n).Return("success:2", []string(nil), nil)
		fcmMock.On("Dispatch", mock.Anything, []string{"fcm-1"}, n).Return("success:1", []string(nil), nil)

		processor := pipeline.NewProcessor(map[device.Platform]dispatch.Dispatcher{
			device.IOS:     apnsMock,
			device.Android: fcmMock,
		}, logger)
		report, err := processor(ctx, devices, n)

		require.NoError(t, err)
		require.Len(t, report.Results, 2)
		assert.Equal(t, device.IOS, report.Results[0].Platform)
		assert.Equal(t, 2, report.Results[0].Attempted)
		assert.Equal(t, "success:1", report.Results[1].Receipt)
		assert.NotEmpty(t, report.ID)
		apnsMock.AssertExpectations(t)
		fcmMock.AssertExpectations(t)
	})

	t.Run("Collects invalid keys", func(t *testing.T) {
		apnsMock := new(mockDispatcher)
		fcmMock := new(mockDispatcher)

		apnsMock.On("Dispatch", mock.Anything, mock.Anything, n).Return("success:1", []string{"apns-2"}, nil)
		fcmMock.On("Dispatch", mock.Anything, mock.Anything, n).Return("success:0", []string{"fcm-1"}, nil)

		processor := pipeline.NewProcessor(map[device.Platform]dispatch.Dispatcher{
			device.IOS:     apnsMock,
			device.Android: fcmMock,
		}, logger)
		report, err := processor(ctx, devices, n)

		require.NoError(t, err)
		assert.Equal(t, []string{"apns-2", "fcm-1"}, report.InvalidDeviceKeys())
	})

	t.Run("Missing transport is skipped", func(t *testing.T) {
		fcmMock := new(mockDispatcher)
		fcmMock.On("Dispatch", mock.Anything, []string{"fcm-1"}, n).Return("success:1", []string(nil), nil)

		processor := pipeline.NewProcessor(map[device.Platform]dispatch.Dispatcher{
			device.Android: fcmMock,
		}, logger)
		report, err := processor(ctx, devices, n)

		require.NoError(t, err)
		res, ok := report.Result(device.IOS)
		require.True(t, ok)
		assert.True(t, res.Skipped)
		assert.Equal(t, 2, res.Attempted)
	})

	t.Run("One failing platform does not stop the other", func(t *testing.T) {
		apnsMock := new(mockDispatcher)
		fcmMock := new(mockDispatcher)

		apnsErr := errors.New("apns down")
		apnsMock.On("Dispatch", mock.Anything, mock.Anything, n).Return("", []string(nil), apnsErr)
		fcmMock.On("Dispatch", mock.Anything, mock.Anything, n).Return("success:1", []string(nil), nil)

		processor := pipeline.NewProcessor(map[device.Platform]dispatch.Dispatcher{
			device.IOS:     apnsMock,
			device.Android: fcmMock,
		}, logger)
		report, err := processor(ctx, devices, n)

		require.ErrorIs(t, err, apnsErr)
		fcmMock.AssertExpectations(t)
		res, _ := report.Result(device.IOS)
		assert.ErrorIs(t, res.Err, apnsErr)
	})

	t.Run("Empty collection dispatches nothing", func(t *testing.T) {
		apnsMock := new(mockDispatcher)

		processor := pipeline.NewProcessor(map[device.Platform]dispatch.Dispatcher{device.IOS: apnsMock}, logger)
		report, err := processor(ctx, device.NewDevices(), n)

		require.NoError(t, err)
		assert.Empty(t, report.Results)
		apnsMock.AssertNotCalled(t, "Dispatch", mock.Anything, mock.Anything, mock.Anything)
	})
}
