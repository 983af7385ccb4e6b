// Package api serves the appointment creation webhook and the operational
// endpoints.
package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"clinichealth-notifier/internal/database"
	"clinichealth-notifier/internal/metrics"
	"clinichealth-notifier/pkg/models"
)

const maxEventBytes = 64 << 10

// AppointmentHandler reacts to a newly created appointment.
type AppointmentHandler interface {
	Handle(ctx context.Context, appt *models.Appointment) error
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	handler    AppointmentHandler
	store      Pinger
	metrics    *metrics.Metrics
	instanceID string
	logger     *zap.Logger
}

// NewServer builds the HTTP surface. A nil handler disables the creation
// webhook.
func NewServer(handler AppointmentHandler, store Pinger, m *metrics.Metrics, instanceID string, logger *zap.Logger) *Server {
	if m == nil {
		m = metrics.New()
	}
	return &Server{
		handler:    handler,
		store:      store,
		metrics:    m,
		instanceID: instanceID,
		logger:     logger.Named("api"),
	}
}

func (s *Server) Router() http.Handler {
	router := mux.NewRouter()

	// Full paths on the root router; mux answers 404 instead of 405 for
	// method mismatches inside a subrouter.
	router.HandleFunc("/api/events/appointment-created", s.appointmentCreated).Methods(http.MethodPost)
	router.HandleFunc("/api/health", s.health).Methods(http.MethodGet)
	router.HandleFunc("/api/stats", s.stats).Methods(http.MethodGet)
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	return corsMiddleware(router)
}

// createdEvent is the webhook payload. Appointment is the raw document so
// that it goes through the same validation as store reads.
type createdEvent struct {
	ID          string                 `json:"id"`
	Appointment map[string]interface{} `json:"appointment"`
}

func (s *Server) appointmentCreated(w http.ResponseWriter, r *http.Request) {
	if s.handler == nil {
		writeError(w, http.StatusServiceUnavailable, "booking notifications disabled")
		return
	}

	raw, err := io.ReadAll(io.LimitReader(r.Body, maxEventBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "cannot read body")
		return
	}
	if len(raw) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	var ev createdEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if ev.Appointment == nil {
		s.logger.Debug("creation event without appointment", zap.String("appointment_id", ev.ID))
		w.WriteHeader(http.StatusNoContent)
		return
	}

	appt, err := database.DecodeAppointment(ev.ID, ev.Appointment)
	if err != nil {
		s.logger.Warn("rejecting creation event", zap.Error(err))
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.handler.Handle(r.Context(), appt); err != nil {
		s.logger.Error("booking notification failed", zap.String("appointment_id", appt.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "notification failed")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := "healthy"
	httpStatus := http.StatusOK
	if err := s.store.Ping(ctx); err != nil {
		s.logger.Warn("store ping failed", zap.Error(err))
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]string{
		"status": status,
		"time":   time.Now().Format(time.RFC3339),
	})
}

type statsResponse struct {
	InstanceID string           `json:"instance_id"`
	Timestamp  int64            `json:"timestamp"`
	Metrics    metrics.Snapshot `json:"metrics"`
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statsResponse{
		InstanceID: s.instanceID,
		Timestamp:  time.Now().Unix(),
		Metrics:    s.metrics.Snapshot(),
	})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Accept")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

