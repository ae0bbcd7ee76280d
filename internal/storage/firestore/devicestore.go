// Package firestore stores recipient devices in Google Cloud Firestore.
package firestore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	urn "github.com/tinywideclouds/go-platform/pkg/net/v1"
	"github.com/tinywideclouds/go-push-notifier/pkg/device"
)

// DeviceStore implements dispatch.DeviceStore using Google Cloud Firestore.
type DeviceStore struct {
	client *firestore.Client
	logger *slog.Logger
}

func NewDeviceStore(client *firestore.Client, logger *slog.Logger) *DeviceStore {
	return &DeviceStore{
		client: client,
		logger: logger.With("component", "FirestoreDeviceStore"),
	}
}

// deviceRecord is the internal DB representation.
type deviceRecord struct {
	Platform  string    `firestore:"platform"`
	Key       string    `firestore:"key"`
	UpdatedAt time.Time `firestore:"updated_at"`
}

func (s *DeviceStore) Register(ctx context.Context, recipient urn.URN, d *device.Device) error {
	// Hash of the key as Doc ID prevents duplicates and hot-spotting
	record := deviceRecord{
		Platform:  d.OperatingSystem().String(),
		Key:       d.DeviceKey(),
		UpdatedAt: time.Now(),
	}

	if _, err := s.deviceRef(recipient, hashKey(d.DeviceKey())).Set(ctx, record); err != nil {
		return fmt.Errorf("failed to register device for %s: %w", recipient.String(), err)
	}
	return nil
}

func (s *DeviceStore) Unregister(ctx context.Context, recipient urn.URN, key string) error {
	_, err := s.deviceRef(recipient, hashKey(key)).Delete(ctx)
	if err != nil && status.Code(err) != codes.NotFound {
		return fmt.Errorf("failed to unregister device for %s: %w", recipient.String(), err)
	}
	return nil
}

func (s *DeviceStore) Fetch(ctx context.Context, recipient urn.URN) (*device.Devices, error) {
	iter := s.devicesCollection(recipient).Documents(ctx)
	defer iter.Stop()

	devices := device.NewDevices()
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("firestore iteration failed: %w", err)
		}

		var record deviceRecord
		if err := doc.DataTo(&record); err != nil {
			s.logger.Warn("Skipping unreadable device record", "doc", doc.Ref.ID, "err", err)
			continue
		}

		d, err := device.New(record.Platform, record.Key)
		if err != nil {
			s.logger.Warn("Skipping device record with unsupported platform", "doc", doc.Ref.ID, "err", err)
			continue
		}
		devices.Add(d)
	}

	return devices, nil
}

// deviceRef: recipients/{recipient}/devices/{keyHash}
func (s *DeviceStore) deviceRef(recipient urn.URN, docID string) *firestore.DocumentRef {
	return s.devicesCollection(recipient).Doc(docID)
}

func (s *DeviceStore) devicesCollection(recipient urn.URN) *firestore.CollectionRef {
	return s.client.Collection("recipients").Doc(recipient.String()).Collection("devices")
}

func hashKey(k string) string {
	sum := sha256.Sum256([]byte(k))
	return hex.EncodeToString(sum[:])
}
