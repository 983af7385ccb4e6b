package database

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"clinichealth-notifier/pkg/models"
)

//go:embed schema.sql
var schemaSQL string

// uniqueViolation is the Postgres SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// dueAppointmentsQuery selects unreminded appointments in the closed window
// [$1, $2].
const dueAppointmentsQuery = `
	SELECT id, patient_id, date_time, motivo, reminder_sent
	FROM appointments
	WHERE date_time >= $1
	  AND date_time <= $2
	  AND reminder_sent = false
	ORDER BY date_time ASC, id ASC
`

type PostgresStore struct {
	conn   *sql.DB
	logger *zap.Logger
}

func NewPostgresStore(ctx context.Context, databaseURL string, logger *zap.Logger) (*PostgresStore, error) {
	conn, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	conn.SetMaxOpenConns(10)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(30 * time.Minute)

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	logger.Info("postgres connected")
	return &PostgresStore{conn: conn, logger: logger}, nil
}

// EnsureSchema creates tables, indexes and the creation trigger if missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.conn.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) DueAppointments(ctx context.Context, from, to time.Time) ([]models.Appointment, error) {
	rows, err := s.conn.QueryContext(ctx, dueAppointmentsQuery, from, to)
	if err != nil {
		return nil, fmt.Errorf("query due appointments: %w", err)
	}
	defer rows.Close()

	var appts []models.Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appts = append(appts, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate due appointments: %w", err)
	}

	return appts, nil
}

func (s *PostgresStore) DeviceRegistration(ctx context.Context, role string) (*models.DeviceRegistration, error) {
	var token sql.NullString
	var updatedAt time.Time

	err := s.conn.QueryRowContext(ctx,
		`SELECT token, updated_at FROM devices WHERE role = $1`, role,
	).Scan(&token, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get device %s: %w", role, err)
	}

	return &models.DeviceRegistration{Role: role, Token: token.String, UpdatedAt: updatedAt}, nil
}

// AddNotification inserts rec. A second reminder record for the same
// appointment is rejected with ErrDuplicate.
func (s *PostgresStore) AddNotification(ctx context.Context, rec *models.NotificationRecord) (string, error) {
	id := uuid.New().String()

	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO notifications (id, doctor_id, appointment_id, title, body, created_at, expire_at, read, type)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, id, rec.DoctorID, rec.AppointmentID, rec.Title, rec.Body, rec.CreatedAt, rec.ExpireAt, rec.Read, rec.Type)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return "", fmt.Errorf("notification for %s: %w", rec.AppointmentID, ErrDuplicate)
		}
		return "", fmt.Errorf("insert notification for %s: %w", rec.AppointmentID, err)
	}

	rec.ID = id
	return id, nil
}

func (s *PostgresStore) MarkReminderSent(ctx context.Context, appointmentID string) error {
	res, err := s.conn.ExecContext(ctx,
		`UPDATE appointments SET reminder_sent = true WHERE id = $1`, appointmentID)
	if err != nil {
		return fmt.Errorf("mark reminder sent %s: %w", appointmentID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark reminder sent %s: %w", appointmentID, err)
	}
	if n == 0 {
		return fmt.Errorf("appointment %s: %w", appointmentID, ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) Patient(ctx context.Context, id string) (*models.Patient, error) {
	var p models.Patient
	var email sql.NullString

	err := s.conn.QueryRowContext(ctx,
		`SELECT id, nombre, apellido, email FROM patients WHERE id = $1`, id,
	).Scan(&p.ID, &p.Nombre, &p.Apellido, &email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("patient %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get patient %s: %w", id, err)
	}

	p.Email = email.String
	return &p, nil
}

func (s *PostgresStore) Appointment(ctx context.Context, id string) (*models.Appointment, error) {
	row := s.conn.QueryRowContext(ctx,
		`SELECT id, patient_id, date_time, motivo, reminder_sent FROM appointments WHERE id = $1`, id)

	a, err := scanAppointment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("appointment %s: %w", id, ErrNotFound)
	}
	return a, err
}

// DeleteExpiredNotifications removes records whose expireAt has passed.
func (s *PostgresStore) DeleteExpiredNotifications(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.conn.ExecContext(ctx, `DELETE FROM notifications WHERE expire_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired notifications: %w", err)
	}
	return res.RowsAffected()
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.conn.PingContext(ctx)
}

func (s *PostgresStore) Close() error {
	return s.conn.Close()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAppointment(row rowScanner) (*models.Appointment, error) {
	var a models.Appointment
	var patientID, motivo sql.NullString

	if err := row.Scan(&a.ID, &patientID, &a.DateTime, &motivo, &a.ReminderSent); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan appointment: %w", err)
	}

	a.PatientID = patientID.String
	a.Motivo = motivo.String
	return &a, nil
}
