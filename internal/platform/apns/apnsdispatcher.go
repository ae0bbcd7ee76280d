// Package apns provides the client for the Apple Push Notification Service.
package apns

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/sideshow/apns2"
	"github.com/sideshow/apns2/payload"
	"github.com/sideshow/apns2/token"
	"github.com/tinywideclouds/go-push-notifier/pkg/dispatch"
	"github.com/tinywideclouds/go-push-notifier/pkg/notification"
)

// APNSClient defines the subset of the apns2.Client methods we use.
// This allows mocking for unit tests.
type APNSClient interface {
	PushWithContext(ctx apns2.Context, n *apns2.Notification) (*apns2.Response, error)
}

type Dispatcher struct {
	client APNSClient
	topic  string // The App Bundle ID (e.g. com.example.app)
	logger *slog.Logger
}

// Config holds the credentials required to sign APNs tokens.
type Config struct {
	KeyID  string
	TeamID string
	Topic  string
	// AuthKeyPath points at the .p8 signing key downloaded from Apple.
	AuthKeyPath string
	// Development sends to the sandbox gateway instead of production.
	Development bool
}

// NewDispatcher creates a configured APNS dispatcher.
// It parses the P8 key immediately to fail fast if credentials are bad.
func NewDispatcher(cfg Config, logger *slog.Logger) (*Dispatcher, error) {
	authKey, err := token.AuthKeyFromFile(cfg.AuthKeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load APNs auth key %s: %w", cfg.AuthKeyPath, err)
	}

	tokenSource := &token.Token{
		AuthKey: authKey,
		KeyID:   cfg.KeyID,
		TeamID:  cfg.TeamID,
	}

	client := apns2.NewTokenClient(tokenSource)
	if cfg.Development {
		client = client.Development()
	} else {
		client = client.Production()
	}

	return &Dispatcher{
		client: client,
		topic:  cfg.Topic,
		logger: logger.With("component", "APNSDispatcher"),
	}, nil
}

// Dispatch sends the notification to a batch of APNs device keys.
// The APNs HTTP/2 API is unary, so keys are pushed one at a time. Keys that
// hit a transport error, a 5xx or 429 response, or the end of ctx are
// returned in a *dispatch.RetryableError.
func (d *Dispatcher) Dispatch(ctx context.Context, keys []string, n *notification.Notification) (string, []string, error) {
	if len(keys) == 0 {
		return "skipped: no tokens", nil, nil
	}

	var (
		invalidKeys []string
		failedKeys  []string
		lastErr     error
	)
	successCount := 0
	rejectedCount := 0

	builder := payload.NewPayload().
		AlertTitle(n.Title()).
		AlertBody(n.Content())
	for k, v := range n.Data() {
		builder.Custom(k, v)
	}

	for i, key := range keys {
		if err := ctx.Err(); err != nil {
			d.logger.Warn("APNs dispatch interrupted", "remaining", len(keys)-i, "err", err)
			failedKeys = append(failedKeys, keys[i:]...)
			lastErr = err
			break
		}

		res, err := d.client.PushWithContext(ctx, &apns2.Notification{
			ApnsID:      uuid.NewString(),
			DeviceToken: key,
			Topic:       d.topic,
			Payload:     builder,
		})
		if err != nil {
			d.logger.Error("APNs transport failed", "token", key, "err", err)
			failedKeys = append(failedKeys, key)
			lastErr = err
			continue
		}

		if res.Sent() {
			successCount++
			continue
		}

		switch {
		case res.Reason == apns2.ReasonBadDeviceToken,
			res.Reason == apns2.ReasonUnregistered,
			res.Reason == apns2.ReasonDeviceTokenNotForTopic:
			invalidKeys = append(invalidKeys, key)
		case res.StatusCode == http.StatusTooManyRequests || res.StatusCode >= http.StatusInternalServerError:
			d.logger.Warn("APNs temporarily unavailable", "reason", res.Reason, "status", res.StatusCode)
			failedKeys = append(failedKeys, key)
			lastErr = fmt.Errorf("apns responded %d %s", res.StatusCode, res.Reason)
		default:
			// The key may be fine; the request or our credentials are not.
			d.logger.Warn("APNs rejected notification", "reason", res.Reason, "status", res.StatusCode)
			rejectedCount++
		}
	}

	receipt := fmt.Sprintf("success:%d invalid:%d rejected:%d failed:%d", successCount, len(invalidKeys), rejectedCount, len(failedKeys))
	if len(failedKeys) > 0 {
		return receipt, invalidKeys, &dispatch.RetryableError{FailedKeys: failedKeys, Err: lastErr}
	}
	return receipt, invalidKeys, nil
}
