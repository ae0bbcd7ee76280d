// Package fcm provides the client for Firebase Cloud Messaging.
package fcm

import (
	"context"
	"fmt"
	"log/slog"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"

	"github.com/tinywideclouds/go-push-notifier/pkg/dispatch"
	"github.com/tinywideclouds/go-push-notifier/pkg/notification"
)

// MaxMulticastTokens is the FCM limit on tokens per multicast request.
const MaxMulticastTokens = 500

// MessagingClient defines the subset of the Firebase Messaging API we use.
// This interface allows us to mock the client for unit testing.
type MessagingClient interface {
	SendEachForMulticast(ctx context.Context, msg *messaging.MulticastMessage) (*messaging.BatchResponse, error)
}

type Dispatcher struct {
	client MessagingClient
	logger *slog.Logger
}

// NewDispatcher accepts the concrete client but stores it as the interface.
// *messaging.Client satisfies MessagingClient.
func NewDispatcher(client MessagingClient, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		client: client,
		logger: logger.With("component", "FCMDispatcher"),
	}
}

// NewMessagingClient builds a Firebase messaging client from a service
// account file. projectID may be empty when the file carries one.
func NewMessagingClient(ctx context.Context, credentialsPath, projectID string) (*messaging.Client, error) {
	var cfg *firebase.Config
	if projectID != "" {
		cfg = &firebase.Config{ProjectID: projectID}
	}
	app, err := firebase.NewApp(ctx, cfg, option.WithCredentialsFile(credentialsPath))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create FCM messaging client: %w", err)
	}
	return client, nil
}

// Dispatch sends the notification to the given registration tokens,
// splitting them into multicast batches. Tokens that failed transiently are
// returned in a *dispatch.RetryableError; delivered tokens never are.
func (d *Dispatcher) Dispatch(ctx context.Context, keys []string, n *notification.Notification) (string, []string, error) {
	if len(keys) == 0 {
		return "skipped: no tokens", nil, nil
	}

	var (
		invalidTokens []string
		failedTokens  []string
		lastErr       error
	)
	successCount := 0

	for start := 0; start < len(keys); start += MaxMulticastTokens {
		end := min(start+MaxMulticastTokens, len(keys))
		batch := keys[start:end]

		msg := &messaging.MulticastMessage{
			Tokens: batch,
			Data:   n.Data(),
			Notification: &messaging.Notification{
				Title: n.Title(),
				Body:  n.Content(),
			},
		}

		br, err := d.client.SendEachForMulticast(ctx, msg)
		if err != nil {
			// A malformed message fails every retry the same way.
			if messaging.IsInvalidArgument(err) {
				d.logger.Error("FCM rejected batch as InvalidArgument (dropping)", "batch_size", len(batch), "err", err)
				continue
			}
			d.logger.Warn("FCM batch transport failed", "batch_size", len(batch), "err", err)
			failedTokens = append(failedTokens, batch...)
			lastErr = fmt.Errorf("fcm transport failed: %w", err)
			continue
		}

		successCount += br.SuccessCount
		if br.FailureCount == 0 {
			continue
		}
		for idx, resp := range br.Responses {
			if resp.Success {
				continue
			}
			if messaging.IsInvalidArgument(resp.Error) || messaging.IsRegistrationTokenNotRegistered(resp.Error) {
				invalidTokens = append(invalidTokens, batch[idx])
				continue
			}
			d.logger.Warn("FCM token delivery failed", "err", resp.Error)
			failedTokens = append(failedTokens, batch[idx])
			lastErr = resp.Error
		}
	}

	receipt := fmt.Sprintf("success:%d invalid:%d", successCount, len(invalidTokens))
	if len(failedTokens) > 0 {
		return receipt, invalidTokens, &dispatch.RetryableError{FailedKeys: failedTokens, Err: lastErr}
	}
	return receipt, invalidTokens, nil
}
