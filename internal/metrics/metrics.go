package metrics

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Metrics tracks delivery statistics for the process.
type Metrics struct {
	SweepsRun         atomic.Int64
	SweepErrors       atomic.Int64
	RemindersSelected atomic.Int64
	PushSent          atomic.Int64
	PushErrors        atomic.Int64
	StoreErrors       atomic.Int64

	BookingEvents  atomic.Int64
	BookingSkipped atomic.Int64
	EmailsSent     atomic.Int64
	EmailErrors    atomic.Int64

	NotificationsExpired atomic.Int64

	StartTime time.Time
}

func New() *Metrics {
	return &Metrics{StartTime: time.Now()}
}

// Snapshot is the JSON shape served on /api/stats.
type Snapshot struct {
	Uptime               string `json:"uptime"`
	SweepsRun            int64  `json:"sweeps_run"`
	SweepErrors          int64  `json:"sweep_errors"`
	RemindersSelected    int64  `json:"reminders_selected"`
	PushSent             int64  `json:"push_sent"`
	PushErrors           int64  `json:"push_errors"`
	StoreErrors          int64  `json:"store_errors"`
	BookingEvents        int64  `json:"booking_events"`
	BookingSkipped       int64  `json:"booking_skipped"`
	EmailsSent           int64  `json:"emails_sent"`
	EmailErrors          int64  `json:"email_errors"`
	NotificationsExpired int64  `json:"notifications_expired"`
}

func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		Uptime:               time.Since(m.StartTime).Round(time.Second).String(),
		SweepsRun:            m.SweepsRun.Load(),
		SweepErrors:          m.SweepErrors.Load(),
		RemindersSelected:    m.RemindersSelected.Load(),
		PushSent:             m.PushSent.Load(),
		PushErrors:           m.PushErrors.Load(),
		StoreErrors:          m.StoreErrors.Load(),
		BookingEvents:        m.BookingEvents.Load(),
		BookingSkipped:       m.BookingSkipped.Load(),
		EmailsSent:           m.EmailsSent.Load(),
		EmailErrors:          m.EmailErrors.Load(),
		NotificationsExpired: m.NotificationsExpired.Load(),
	}
}

// LogPeriodically logs a snapshot every interval and once more on shutdown.
func LogPeriodically(ctx context.Context, m *Metrics, interval time.Duration, logger *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			Log(m, logger)
			return
		case <-ticker.C:
			Log(m, logger)
		}
	}
}

func Log(m *Metrics, logger *zap.Logger) {
	s := m.Snapshot()
	logger.Info("metrics report",
		zap.String("uptime", s.Uptime),
		zap.Int64("sweeps_run", s.SweepsRun),
		zap.Int64("sweep_errors", s.SweepErrors),
		zap.Int64("reminders_selected", s.RemindersSelected),
		zap.Int64("push_sent", s.PushSent),
		zap.Int64("push_errors", s.PushErrors),
		zap.Int64("store_errors", s.StoreErrors),
		zap.Int64("booking_events", s.BookingEvents),
		zap.Int64("booking_skipped", s.BookingSkipped),
		zap.Int64("emails_sent", s.EmailsSent),
		zap.Int64("email_errors", s.EmailErrors),
		zap.Int64("notifications_expired", s.NotificationsExpired),
	)
}
