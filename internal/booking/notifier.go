// Package booking emails patients a confirmation with a check-in code when
// an appointment is created.
package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"clinichealth-notifier/internal/database"
	"clinichealth-notifier/internal/email"
	"clinichealth-notifier/internal/localtime"
	"clinichealth-notifier/internal/metrics"
	"clinichealth-notifier/pkg/models"
)

type PatientReader interface {
	Patient(ctx context.Context, id string) (*models.Patient, error)
}

type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

type CodeImager interface {
	URL(payload string) string
}

type Notifier struct {
	patients PatientReader
	mailer   Mailer
	codes    CodeImager
	loc      *time.Location
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

func NewNotifier(patients PatientReader, mailer Mailer, codes CodeImager, loc *time.Location, m *metrics.Metrics, logger *zap.Logger) *Notifier {
	if loc == nil {
		loc = time.UTC
	}
	if m == nil {
		m = metrics.New()
	}
	return &Notifier{
		patients: patients,
		mailer:   mailer,
		codes:    codes,
		loc:      loc,
		metrics:  m,
		logger:   logger.Named("booking"),
	}
}

// Handle reacts to one appointment creation. A missing snapshot, an
// appointment without patient, an unknown patient or a patient without email
// end the event without error. Delivery
// errors are returned to the trigger.
func (n *Notifier) Handle(ctx context.Context, appt *models.Appointment) error {
	if appt == nil {
		n.logger.Debug("creation event without snapshot, ignoring")
		return nil
	}
	n.metrics.BookingEvents.Add(1)

	logger := n.logger.With(zap.String("appointment_id", appt.ID), zap.String("patient_id", appt.PatientID))
	logger.Info("preparing booking confirmation")

	if appt.PatientID == "" {
		n.metrics.BookingSkipped.Add(1)
		logger.Warn("appointment has no patient")
		return nil
	}

	patient, err := n.patients.Patient(ctx, appt.PatientID)
	if errors.Is(err, database.ErrNotFound) {
		n.metrics.BookingSkipped.Add(1)
		logger.Error("patient not found")
		return nil
	}
	if err != nil {
		return fmt.Errorf("load patient %s: %w", appt.PatientID, err)
	}

	if patient.Email == "" {
		n.metrics.BookingSkipped.Add(1)
		logger.Warn("patient has no email")
		return nil
	}

	subject, body, err := n.compose(appt, patient)
	if err != nil {
		return err
	}

	if err := n.mailer.Send(ctx, patient.Email, subject, body); err != nil {
		n.metrics.EmailErrors.Add(1)
		return fmt.Errorf("send booking confirmation for %s: %w", appt.ID, err)
	}
	n.metrics.EmailsSent.Add(1)

	logger.Info("booking confirmation sent", zap.String("to", patient.Email))
	return nil
}

func (n *Notifier) compose(appt *models.Appointment, patient *models.Patient) (subject, body string, err error) {
	date, clock := localtime.FormatLocal(appt.DateTime, n.loc)

	body, err = email.BookingConfirmationTemplate(email.BookingConfirmation{
		PatientName: patient.FullName(),
		Date:        date,
		Time:        clock,
		Motivo:      appt.MotivoOr(models.DefaultBookingMotivo),
		QRCodeURL:   n.codes.URL(appt.ID),
		CheckInCode: appt.ID,
	})
	if err != nil {
		return "", "", err
	}

	return email.BookingConfirmationSubject(date, clock), body, nil
}
