package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"clinichealth-notifier/pkg/models"
)

// FirestoreStore keeps appointments, patients, device registrations and
// notification records in Firestore collections. Expired notifications are
// removed by a Firestore TTL policy on expireAt.
type FirestoreStore struct {
	client *firestore.Client
	logger *zap.Logger
}

func NewFirestoreStore(client *firestore.Client, logger *zap.Logger) *FirestoreStore {
	return &FirestoreStore{client: client, logger: logger}
}

// DueAppointments returns appointments starting within [from, to] that have
// not been reminded yet. Documents that fail validation are logged and
// skipped so they cannot block the rest of the window.
func (s *FirestoreStore) DueAppointments(ctx context.Context, from, to time.Time) ([]models.Appointment, error) {
	iter := s.client.Collection(CollectionAppointments).
		Where("dateTime", ">=", from).
		Where("dateTime", "<=", to).
		Where("reminderSent", "==", false).
		Documents(ctx)
	defer iter.Stop()

	var appts []models.Appointment
	for {
		doc, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("query due appointments: %w", err)
		}

		appt, err := DecodeAppointment(doc.Ref.ID, doc.Data())
		if err != nil {
			s.logger.Warn("skipping appointment", zap.String("appointment_id", doc.Ref.ID), zap.Error(err))
			continue
		}
		appts = append(appts, *appt)
	}

	return appts, nil
}

// DeviceRegistration returns the registration for role, or nil when the
// document does not exist.
func (s *FirestoreStore) DeviceRegistration(ctx context.Context, role string) (*models.DeviceRegistration, error) {
	doc, err := s.client.Collection(CollectionDevices).Doc(role).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get device %s: %w", role, err)
	}
	return DecodeDevice(role, doc.Data())
}

// AddNotification stores rec. Reminder records are keyed by appointment so a
// second one for the same appointment is rejected with ErrDuplicate, as in
// PostgresStore.
func (s *FirestoreStore) AddNotification(ctx context.Context, rec *models.NotificationRecord) (string, error) {
	coll := s.client.Collection(CollectionNotifications)

	id := notificationDocID(rec)
	if id == "" {
		ref, _, err := coll.Add(ctx, rec)
		if err != nil {
			return "", fmt.Errorf("add notification for %s: %w", rec.AppointmentID, err)
		}
		rec.ID = ref.ID
		return ref.ID, nil
	}

	if _, err := coll.Doc(id).Create(ctx, rec); err != nil {
		return "", createNotificationErr(rec.AppointmentID, err)
	}
	rec.ID = id
	return id, nil
}

// notificationDocID is the fixed document id for records that must be unique
// per appointment, or "" for records that get a generated id.
func notificationDocID(rec *models.NotificationRecord) string {
	if rec.Type != models.NotificationTypeAppointmentReminder || rec.AppointmentID == "" {
		return ""
	}
	return rec.Type + "_" + rec.AppointmentID
}

func createNotificationErr(appointmentID string, err error) error {
	if status.Code(err) == codes.AlreadyExists {
		return fmt.Errorf("notification for %s: %w", appointmentID, ErrDuplicate)
	}
	return fmt.Errorf("create notification for %s: %w", appointmentID, err)
}

func (s *FirestoreStore) MarkReminderSent(ctx context.Context, appointmentID string) error {
	_, err := s.client.Collection(CollectionAppointments).Doc(appointmentID).Update(ctx, []firestore.Update{
		{Path: "reminderSent", Value: true},
	})
	if err != nil {
		return fmt.Errorf("mark reminder sent %s: %w", appointmentID, err)
	}
	return nil
}

func (s *FirestoreStore) Patient(ctx context.Context, id string) (*models.Patient, error) {
	if id == "" {
		return nil, ErrNotFound
	}
	doc, err := s.client.Collection(CollectionPatients).Doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, fmt.Errorf("patient %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get patient %s: %w", id, err)
	}
	return DecodePatient(id, doc.Data())
}

func (s *FirestoreStore) Appointment(ctx context.Context, id string) (*models.Appointment, error) {
	doc, err := s.client.Collection(CollectionAppointments).Doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, fmt.Errorf("appointment %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get appointment %s: %w", id, err)
	}
	return DecodeAppointment(id, doc.Data())
}

// Ping performs a cheap read to confirm Firestore is reachable.
func (s *FirestoreStore) Ping(ctx context.Context) error {
	_, err := s.client.Collection(CollectionDevices).Doc(models.DoctorRole).Get(ctx)
	if err != nil && status.Code(err) != codes.NotFound {
		return err
	}
	return nil
}

func (s *FirestoreStore) Close() error {
	return s.client.Close()
}
