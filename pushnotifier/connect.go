package pushnotifier

import (
	"context"
	"errors"
	"fmt"

	"github.com/tinywideclouds/go-push-notifier/internal/platform/apns"
	"github.com/tinywideclouds/go-push-notifier/internal/platform/fcm"
	"github.com/tinywideclouds/go-push-notifier/internal/resilience"
)

// ErrNoCredentials is returned by Connect when neither certificate is set.
var ErrNoCredentials = errors.New("no APNS or FCM certificate set")

// Connect builds the APNS and FCM transports from the stored credentials,
// replacing any attached ones. Certificate files are read here.
func (s *Server) Connect(ctx context.Context) error {
	if s.apnsCertificate == "" && s.fcmCertificate == "" {
		return ErrNoCredentials
	}

	if s.apnsCertificate != "" {
		d, err := apns.NewDispatcher(apns.Config{
			KeyID:       s.apnsKeyID,
			TeamID:      s.apnsTeamID,
			Topic:       s.apnsTopic,
			AuthKeyPath: s.apnsCertificate,
			Development: s.apnsDevelopment,
		}, s.logger)
		if err != nil {
			return fmt.Errorf("failed to connect to APNS: %w", err)
		}
		s.apnsDispatcher = resilience.Wrap(d, s.resilienceConfig("apns"), s.logger)
		s.logger.Info("APNS transport ready", "team_id", s.apnsTeamID, "key_id", s.apnsKeyID, "development", s.apnsDevelopment)
	}

	if s.fcmCertificate != "" {
		client, err := fcm.NewMessagingClient(ctx, s.fcmCertificate, s.fcmProjectID)
		if err != nil {
			return fmt.Errorf("failed to connect to FCM: %w", err)
		}
		s.fcmDispatcher = resilience.Wrap(fcm.NewDispatcher(client, s.logger), s.resilienceConfig("fcm"), s.logger)
		s.logger.Info("FCM transport ready", "project_id", s.fcmProjectID)
	}

	return nil
}

func (s *Server) resilienceConfig(name string) resilience.Config {
	cfg := resilience.DefaultConfig(name)
	cfg.MaxRetries = s.retry.MaxRetries
	if s.retry.InitialInterval > 0 {
		cfg.InitialInterval = s.retry.InitialInterval
	}
	if s.retry.MaxInterval > 0 {
		cfg.MaxInterval = s.retry.MaxInterval
	}
	if s.retry.BreakerTimeout > 0 {
		cfg.BreakerTimeout = s.retry.BreakerTimeout
	}
	return cfg
}
