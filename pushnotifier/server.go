// Package pushnotifier sends a notification to a collection of iOS and
// Android devices through APNS and FCM.
//
// A Server collects credentials, devices and a notification through setters
// and delivers with Send. Credentials are checked for existence when they are
// set and read when Connect builds the transports.
package pushnotifier

import (
	"context"
	"log/slog"
	"os"

	"github.com/tinywideclouds/go-push-notifier/internal/pipeline"
	"github.com/tinywideclouds/go-push-notifier/pkg/device"
	"github.com/tinywideclouds/go-push-notifier/pkg/dispatch"
	"github.com/tinywideclouds/go-push-notifier/pkg/notification"
	"github.com/tinywideclouds/go-push-notifier/pushnotifier/config"
)

const (
	serviceAPNS = "APNS"
	serviceFCM  = "FCM"
)

// Server holds everything needed to deliver one notification.
// It is not safe for concurrent use.
type Server struct {
	apnsCertificate string
	apnsTeamID      string
	apnsKeyID       string
	apnsTopic       string
	apnsDevelopment bool

	fcmCertificate string
	fcmProjectID   string

	retry config.RetryConfig

	devices      *device.Devices
	notification *notification.Notification

	apnsDispatcher dispatch.Dispatcher
	fcmDispatcher  dispatch.Dispatcher

	logger *slog.Logger
}

func NewServer(logger *slog.Logger) *Server {
	return &Server{
		retry:  config.DefaultRetryConfig(),
		logger: logger.With("component", "PushServer"),
	}
}

// NewServerFromConfig creates a Server and applies the credentials in cfg.
// Certificate paths that are set must exist.
func NewServerFromConfig(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	s := NewServer(logger)

	if cfg.Apns.CertificatePath != "" {
		if err := s.SetApnsCertificate(cfg.Apns.CertificatePath); err != nil {
			return nil, err
		}
	}
	if cfg.Fcm.CertificatePath != "" {
		if err := s.SetFcmCertificate(cfg.Fcm.CertificatePath); err != nil {
			return nil, err
		}
	}

	s.SetApnsTeamID(cfg.Apns.TeamID).
		SetApnsKeyID(cfg.Apns.KeyID).
		SetApnsTopic(cfg.Apns.Topic).
		SetApnsDevelopment(cfg.Apns.Development).
		SetFcmProjectID(cfg.Fcm.ProjectID).
		SetRetryConfig(cfg.Retry)

	return s, nil
}

// SetApnsCertificate stores the path of the APNS .p8 signing key.
// The path must exist now; it is not checked again.
func (s *Server) SetApnsCertificate(path string) error {
	if err := checkCertificate(serviceAPNS, path); err != nil {
		return err
	}
	s.apnsCertificate = path
	return nil
}

func (s *Server) ApnsCertificate() string {
	return s.apnsCertificate
}

func (s *Server) SetApnsTeamID(teamID string) *Server {
	s.apnsTeamID = teamID
	return s
}

func (s *Server) ApnsTeamID() string {
	return s.apnsTeamID
}

func (s *Server) SetApnsKeyID(keyID string) *Server {
	s.apnsKeyID = keyID
	return s
}

func (s *Server) ApnsKeyID() string {
	return s.apnsKeyID
}

// SetApnsTopic sets the app bundle id pushes are addressed to.
func (s *Server) SetApnsTopic(topic string) *Server {
	s.apnsTopic = topic
	return s
}

func (s *Server) ApnsTopic() string {
	return s.apnsTopic
}

// SetApnsDevelopment selects the APNS sandbox instead of production.
func (s *Server) SetApnsDevelopment(development bool) *Server {
	s.apnsDevelopment = development
	return s
}

func (s *Server) ApnsDevelopment() bool {
	return s.apnsDevelopment
}

// SetFcmCertificate stores the path of the Firebase service account file.
// The path must exist now; it is not checked again.
func (s *Server) SetFcmCertificate(path string) error {
	if err := checkCertificate(serviceFCM, path); err != nil {
		return err
	}
	s.fcmCertificate = path
	return nil
}

func (s *Server) FcmCertificate() string {
	return s.fcmCertificate
}

// SetFcmProjectID overrides the project id from the service account file.
func (s *Server) SetFcmProjectID(projectID string) *Server {
	s.fcmProjectID = projectID
	return s
}

func (s *Server) FcmProjectID() string {
	return s.fcmProjectID
}

// SetRetryConfig controls retries of the transports built by Connect.
// MaxRetries is used as given; zero disables retrying.
func (s *Server) SetRetryConfig(cfg config.RetryConfig) *Server {
	s.retry = cfg
	return s
}

func (s *Server) RetryConfig() config.RetryConfig {
	return s.retry
}

func (s *Server) SetDevices(devices *device.Devices) *Server {
	s.devices = devices
	return s
}

func (s *Server) Devices() *device.Devices {
	return s.devices
}

func (s *Server) SetPushNotification(n *notification.Notification) *Server {
	s.notification = n
	return s
}

func (s *Server) PushNotification() *notification.Notification {
	return s.notification
}

// SetApnsDispatcher attaches the transport for iOS devices.
func (s *Server) SetApnsDispatcher(d dispatch.Dispatcher) *Server {
	s.apnsDispatcher = d
	return s
}

func (s *Server) ApnsDispatcher() dispatch.Dispatcher {
	return s.apnsDispatcher
}

// SetFcmDispatcher attaches the transport for Android devices.
func (s *Server) SetFcmDispatcher(d dispatch.Dispatcher) *Server {
	s.fcmDispatcher = d
	return s
}

func (s *Server) FcmDispatcher() dispatch.Dispatcher {
	return s.fcmDispatcher
}

// Send delivers the notification to every device.
//
// Devices must be set before the notification is checked. Without any
// transport attached Send only validates and returns an empty report.
// Otherwise the report is returned together with the joined errors of
// the platforms that failed.
func (s *Server) Send(ctx context.Context) (*dispatch.Report, error) {
	if s.devices == nil {
		return nil, ErrDevicesNotSet
	}
	if s.notification == nil {
		return nil, ErrPushNotificationNotSet
	}
	return s.send(ctx, s.devices)
}

func (s *Server) send(ctx context.Context, devices *device.Devices) (*dispatch.Report, error) {
	dispatchers := s.dispatchers()
	if len(dispatchers) == 0 {
		s.logger.Info("No transport attached; nothing sent", "devices", devices.Len())
		return dispatch.NewReport(), nil
	}

	process := pipeline.NewProcessor(dispatchers, s.logger)
	return process(ctx, devices, s.notification)
}

func (s *Server) dispatchers() map[device.Platform]dispatch.Dispatcher {
	dispatchers := make(map[device.Platform]dispatch.Dispatcher, 2)
	if s.apnsDispatcher != nil {
		dispatchers[device.IOS] = s.apnsDispatcher
	}
	if s.fcmDispatcher != nil {
		dispatchers[device.Android] = s.fcmDispatcher
	}
	return dispatchers
}

// checkCertificate follows file_exists semantics: a directory counts and any
// stat failure counts as missing.
func checkCertificate(service, path string) error {
	if _, err := os.Stat(path); err != nil {
		return &InvalidCertificateError{Service: service, Path: path, Err: err}
	}
	return nil
}
