package models

import "time"

const (
	NotificationTypeAppointmentReminder = "appointment-reminder"

	// DoctorRole is the device registration that receives reminders.
	DoctorRole = "doctor"

	ReminderLookahead = 10 * time.Minute
	ReminderRetention = 24 * time.Hour

	DefaultReminderMotivo = "Consulta"
	DefaultBookingMotivo  = "Consulta médica"
)

type Appointment struct {
	ID           string    `json:"id"`
	PatientID    string    `json:"patientId"`
	DateTime     time.Time `json:"dateTime"`
	Motivo       string    `json:"motivo,omitempty"`
	ReminderSent bool      `json:"reminderSent"`
}

// MotivoOr returns the appointment reason, or def when none was given.
func (a Appointment) MotivoOr(def string) string {
	if a.Motivo == "" {
		return def
	}
	return a.Motivo
}

type Patient struct {
	ID       string `json:"id"`
	Nombre   string `json:"nombre"`
	Apellido string `json:"apellido"`
	Email    string `json:"email,omitempty"`
}

func (p Patient) FullName() string {
	switch {
	case p.Nombre == "":
		return p.Apellido
	case p.Apellido == "":
		return p.Nombre
	}
	return p.Nombre + " " + p.Apellido
}

type DeviceRegistration struct {
	Role      string    `json:"role"`
	Token     string    `json:"token,omitempty"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

type NotificationRecord struct {
	ID            string    `json:"id" firestore:"-"`
	DoctorID      string    `json:"doctorId" firestore:"doctorId"`
	AppointmentID string    `json:"appointmentId" firestore:"appointmentId"`
	Title         string    `json:"title" firestore:"title"`
	Body          string    `json:"body" firestore:"body"`
	CreatedAt     time.Time `json:"createdAt" firestore:"createdAt"`
	ExpireAt      time.Time `json:"expireAt" firestore:"expireAt"`
	Read          bool      `json:"read" firestore:"read"`
	Type          string    `json:"type" firestore:"type"`
}
