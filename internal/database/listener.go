package database

import (
	"context"
	"fmt"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"clinichealth-notifier/pkg/models"
)

// AppointmentCreatedChannel is the NOTIFY channel fired by the insert
// trigger in schema.sql; the payload is the new appointment id.
const AppointmentCreatedChannel = "appointment_created"

// AppointmentHandler reacts to one newly created appointment.
type AppointmentHandler func(ctx context.Context, appt *models.Appointment) error

type appointmentReader interface {
	Appointment(ctx context.Context, id string) (*models.Appointment, error)
}

// AppointmentListener turns Postgres notifications into handler calls,
// one per inserted appointment.
type AppointmentListener struct {
	listener *pq.Listener
	store    appointmentReader
	handler  AppointmentHandler
	logger   *zap.Logger
}

func NewAppointmentListener(databaseURL string, store appointmentReader, handler AppointmentHandler, logger *zap.Logger) (*AppointmentListener, error) {
	eventLog := func(ev pq.ListenerEventType, err error) {
		switch ev {
		case pq.ListenerEventConnected:
			logger.Info("appointment listener connected")
		case pq.ListenerEventDisconnected:
			logger.Warn("appointment listener disconnected", zap.Error(err))
		case pq.ListenerEventReconnected:
			logger.Info("appointment listener reconnected")
		case pq.ListenerEventConnectionAttemptFailed:
			logger.Warn("appointment listener connection attempt failed", zap.Error(err))
		}
	}

	l := pq.NewListener(databaseURL, 10*time.Second, time.Minute, eventLog)
	if err := l.Listen(AppointmentCreatedChannel); err != nil {
		l.Close()
		return nil, fmt.Errorf("listen %s: %w", AppointmentCreatedChannel, err)
	}

	return &AppointmentListener{
		listener: l,
		store:    store,
		handler:  handler,
		logger:   logger,
	}, nil
}

// Run blocks until ctx is cancelled. Handler errors are logged; the event
// is not redelivered.
func (l *AppointmentListener) Run(ctx context.Context) {
	defer l.listener.Close()

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("appointment listener stopped")
			return

		case n := <-l.listener.Notify:
			if n == nil {
				// Reconnected; notifications sent while disconnected are lost.
				l.logger.Warn("appointment listener reconnected, events during the outage were not received")
				continue
			}
			l.dispatch(ctx, n.Extra)

		case <-time.After(90 * time.Second):
			go func() {
				if err := l.listener.Ping(); err != nil {
					l.logger.Warn("appointment listener ping failed", zap.Error(err))
				}
			}()
		}
	}
}

func (l *AppointmentListener) dispatch(ctx context.Context, appointmentID string) {
	logger := l.logger.With(zap.String("appointment_id", appointmentID))

	appt, err := l.store.Appointment(ctx, appointmentID)
	if err != nil {
		logger.Error("load created appointment", zap.Error(err))
		return
	}

	if err := l.handler(ctx, appt); err != nil {
		logger.Error("appointment created handler failed", zap.Error(err))
	}
}
