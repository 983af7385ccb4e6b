// Package reminder notifies the clinician's device shortly before each
// appointment starts.
package reminder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"clinichealth-notifier/internal/database"
	"clinichealth-notifier/internal/localtime"
	"clinichealth-notifier/internal/metrics"
	"clinichealth-notifier/internal/push"
	"clinichealth-notifier/pkg/models"
)

const Title = "Turno en 10 minutos"

type Store interface {
	DueAppointments(ctx context.Context, from, to time.Time) ([]models.Appointment, error)
	DeviceRegistration(ctx context.Context, role string) (*models.DeviceRegistration, error)
	AddNotification(ctx context.Context, rec *models.NotificationRecord) (string, error)
	MarkReminderSent(ctx context.Context, appointmentID string) error
}

type Pusher interface {
	Send(ctx context.Context, token, title, body string, priority push.Priority) error
}

type Options struct {
	Lookahead time.Duration
	Retention time.Duration
	Recipient string
	Location  *time.Location
	Now       func() time.Time
}

// Result summarizes one sweep.
type Result struct {
	Selected  int
	Delivered int
	Failed    int
	NoDevice  bool
}

type Sweeper struct {
	store   Store
	pusher  Pusher
	opts    Options
	metrics *metrics.Metrics
	logger  *zap.Logger
}

func NewSweeper(store Store, pusher Pusher, opts Options, m *metrics.Metrics, logger *zap.Logger) *Sweeper {
	if opts.Lookahead <= 0 {
		opts.Lookahead = models.ReminderLookahead
	}
	if opts.Retention <= 0 {
		opts.Retention = models.ReminderRetention
	}
	if opts.Recipient == "" {
		opts.Recipient = models.DoctorRole
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if m == nil {
		m = metrics.New()
	}

	return &Sweeper{
		store:   store,
		pusher:  pusher,
		opts:    opts,
		metrics: m,
		logger:  logger.Named("reminder"),
	}
}

// Run is the scheduler entry point. It never returns an error and never
// panics; failures are logged and the next tick starts fresh.
func (s *Sweeper) Run(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.metrics.SweepErrors.Add(1)
			s.logger.Error("sweep panicked", zap.Any("panic", r))
		}
	}()

	s.metrics.SweepsRun.Add(1)

	res, err := s.Sweep(ctx)
	if err != nil {
		s.metrics.SweepErrors.Add(1)
		s.logger.Error("sweep failed", zap.Error(err))
		return
	}

	if res.Selected > 0 {
		s.logger.Info("sweep finished",
			zap.Int("selected", res.Selected),
			zap.Int("delivered", res.Delivered),
			zap.Int("failed", res.Failed),
			zap.Bool("no_device", res.NoDevice),
		)
	}
}

// Sweep delivers one reminder for every unreminded appointment starting
// within the lookahead window. Appointments whose push fails keep
// reminderSent=false and are picked up again by the next sweep while they
// remain inside the window.
func (s *Sweeper) Sweep(ctx context.Context) (Result, error) {
	var res Result

	now := s.opts.Now()
	until := now.Add(s.opts.Lookahead)

	s.logger.Debug("looking for appointments", zap.Time("from", now), zap.Time("to", until))

	appts, err := s.store.DueAppointments(ctx, now, until)
	if err != nil {
		s.metrics.StoreErrors.Add(1)
		return res, fmt.Errorf("select due appointments: %w", err)
	}

	res.Selected = len(appts)
	if len(appts) == 0 {
		s.logger.Info("no appointments in the lookahead window")
		return res, nil
	}
	s.metrics.RemindersSelected.Add(int64(len(appts)))

	device, err := s.store.DeviceRegistration(ctx, s.opts.Recipient)
	if err != nil {
		s.metrics.StoreErrors.Add(1)
		return res, fmt.Errorf("resolve device %s: %w", s.opts.Recipient, err)
	}
	if device == nil {
		s.logger.Error("no device registered", zap.String("recipient", s.opts.Recipient))
		res.NoDevice = true
		return res, nil
	}
	if device.Token == "" {
		s.logger.Error("device registration has no token", zap.String("recipient", s.opts.Recipient))
		res.NoDevice = true
		return res, nil
	}

	for i := range appts {
		appt := &appts[i]
		if err := s.remind(ctx, device.Token, appt); err != nil {
			res.Failed++
			s.logger.Error("reminder not delivered",
				zap.String("appointment_id", appt.ID),
				zap.Bool("invalid_token", push.IsInvalidTokenError(err)),
				zap.Error(err),
			)
			continue
		}
		res.Delivered++
		s.logger.Info("reminder sent", zap.String("appointment_id", appt.ID))
	}

	return res, nil
}

func (s *Sweeper) remind(ctx context.Context, token string, appt *models.Appointment) error {
	title, body := Message(appt, s.opts.Location)

	if err := s.pusher.Send(ctx, token, title, body, push.PriorityHigh); err != nil {
		s.metrics.PushErrors.Add(1)
		return fmt.Errorf("push: %w", err)
	}
	s.metrics.PushSent.Add(1)

	createdAt := s.opts.Now()
	rec := &models.NotificationRecord{
		DoctorID:      s.opts.Recipient,
		AppointmentID: appt.ID,
		Title:         title,
		Body:          body,
		CreatedAt:     createdAt,
		ExpireAt:      createdAt.Add(s.opts.Retention),
		Read:          false,
		Type:          models.NotificationTypeAppointmentReminder,
	}

	// A duplicate means a previous sweep recorded the reminder but did not
	// get to set the flag.
	if _, err := s.store.AddNotification(ctx, rec); err != nil && !errors.Is(err, database.ErrDuplicate) {
		s.metrics.StoreErrors.Add(1)
		return fmt.Errorf("record notification: %w", err)
	}

	if err := s.store.MarkReminderSent(ctx, appt.ID); err != nil {
		s.metrics.StoreErrors.Add(1)
		return fmt.Errorf("mark reminder sent: %w", err)
	}

	return nil
}

// Message builds the push title and body for appt, with the start time
// rendered in loc.
func Message(appt *models.Appointment, loc *time.Location) (title, body string) {
	patient := appt.PatientID
	if patient == "" {
		patient = "Paciente"
	}
	_, clock := localtime.FormatLocal(appt.DateTime, loc)

	body = fmt.Sprintf("Tenés un turno (%s) con el paciente %s a las %s",
		appt.MotivoOr(models.DefaultReminderMotivo), patient, clock)
	return Title, body
}
