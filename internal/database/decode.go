package database

import (
	"fmt"
	"time"

	"clinichealth-notifier/pkg/models"
)

const (
	CollectionAppointments  = "appointments"
	CollectionPatients      = "patients"
	CollectionDevices       = "devices"
	CollectionNotifications = "notifications"
)

func malformed(collection, id, format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s/%s: %s", ErrMalformedRecord, collection, id, fmt.Sprintf(format, args...))
}

// DecodeAppointment validates a loosely typed appointment document.
// dateTime is required and may be a time.Time (store snapshot) or an
// RFC 3339 string (JSON event payload). An appointment without patientId is
// still valid: it is reminded with a generic patient label and gets no
// booking confirmation.
func DecodeAppointment(id string, data map[string]interface{}) (*models.Appointment, error) {
	if id == "" {
		return nil, malformed(CollectionAppointments, "?", "missing id")
	}

	patientID, err := optionalString(data, "patientId")
	if err != nil {
		return nil, malformed(CollectionAppointments, id, "%v", err)
	}

	dt, err := requiredTime(data, "dateTime")
	if err != nil {
		return nil, malformed(CollectionAppointments, id, "%v", err)
	}

	motivo, err := optionalString(data, "motivo")
	if err != nil {
		return nil, malformed(CollectionAppointments, id, "%v", err)
	}

	reminderSent, err := optionalBool(data, "reminderSent")
	if err != nil {
		return nil, malformed(CollectionAppointments, id, "%v", err)
	}

	return &models.Appointment{
		ID:           id,
		PatientID:    patientID,
		DateTime:     dt,
		Motivo:       motivo,
		ReminderSent: reminderSent,
	}, nil
}

// DecodePatient validates a patient document. A missing email is valid.
func DecodePatient(id string, data map[string]interface{}) (*models.Patient, error) {
	nombre, err := requiredString(data, "nombre")
	if err != nil {
		return nil, malformed(CollectionPatients, id, "%v", err)
	}
	apellido, err := optionalString(data, "apellido")
	if err != nil {
		return nil, malformed(CollectionPatients, id, "%v", err)
	}
	email, err := optionalString(data, "email")
	if err != nil {
		return nil, malformed(CollectionPatients, id, "%v", err)
	}

	return &models.Patient{
		ID:       id,
		Nombre:   nombre,
		Apellido: apellido,
		Email:    email,
	}, nil
}

// DecodeDevice validates a device registration. A missing token is valid.
func DecodeDevice(role string, data map[string]interface{}) (*models.DeviceRegistration, error) {
	token, err := optionalString(data, "token")
	if err != nil {
		return nil, malformed(CollectionDevices, role, "%v", err)
	}

	var updatedAt time.Time
	if _, ok := data["updatedAt"]; ok {
		if updatedAt, err = requiredTime(data, "updatedAt"); err != nil {
			return nil, malformed(CollectionDevices, role, "%v", err)
		}
	}

	return &models.DeviceRegistration{Role: role, Token: token, UpdatedAt: updatedAt}, nil
}

func requiredString(data map[string]interface{}, field string) (string, error) {
	v, ok := data[field]
	if !ok || v == nil {
		return "", fmt.Errorf("missing %s", field)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%s has type %T, want string", field, v)
	}
	if s == "" {
		return "", fmt.Errorf("empty %s", field)
	}
	return s, nil
}

func optionalString(data map[string]interface{}, field string) (string, error) {
	v, ok := data[field]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%s has type %T, want string", field, v)
	}
	return s, nil
}

func optionalBool(data map[string]interface{}, field string) (bool, error) {
	v, ok := data[field]
	if !ok || v == nil {
		return false, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("%s has type %T, want bool", field, v)
	}
	return b, nil
}

func requiredTime(data map[string]interface{}, field string) (time.Time, error) {
	v, ok := data[field]
	if !ok || v == nil {
		return time.Time{}, fmt.Errorf("missing %s", field)
	}
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case *time.Time:
		if t == nil {
			return time.Time{}, fmt.Errorf("missing %s", field)
		}
		return *t, nil
	case string:
		parsed, err := time.Parse(time.RFC3339, t)
		if err != nil {
			return time.Time{}, fmt.Errorf("%s: %w", field, err)
		}
		return parsed, nil
	default:
		return time.Time{}, fmt.Errorf("%s has type %T, want timestamp", field, v)
	}
}
