package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"clinichealth-notifier/pkg/models"
)

type fakeAppointmentReader struct {
	appts map[string]*models.Appointment
}

func (f *fakeAppointmentReader) Appointment(_ context.Context, id string) (*models.Appointment, error) {
	if a, ok := f.appts[id]; ok {
		return a, nil
	}
	return nil, ErrNotFound
}

func TestListenerDispatch(t *testing.T) {
	reader := &fakeAppointmentReader{appts: map[string]*models.Appointment{
		"a1": {ID: "a1", PatientID: "p1", DateTime: time.Now()},
	}}

	var got []string
	l := &AppointmentListener{
		store: reader,
		handler: func(_ context.Context, appt *models.Appointment) error {
			got = append(got, appt.ID)
			return errors.New("smtp down")
		},
		logger: zap.NewNop(),
	}

	l.dispatch(context.Background(), "a1")
	l.dispatch(context.Background(), "missing")

	if len(got) != 1 || got[0] != "a1" {
		t.Fatalf("handled = %v, want [a1]", got)
	}
}
