package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"clinichealth-notifier/internal/api"
	"clinichealth-notifier/internal/booking"
	"clinichealth-notifier/internal/checkin"
	"clinichealth-notifier/internal/config"
	"clinichealth-notifier/internal/database"
	"clinichealth-notifier/internal/email"
	"clinichealth-notifier/internal/localtime"
	"clinichealth-notifier/internal/metrics"
	"clinichealth-notifier/internal/push"
	"clinichealth-notifier/internal/reminder"
	"clinichealth-notifier/internal/scheduler"
	"clinichealth-notifier/pkg/logger"
)

const (
	shutdownTimeout = 15 * time.Second
	metricsInterval = 5 * time.Minute
	retentionSpec   = "@hourly"
)

// store is what both backends provide to the jobs and the API.
type store interface {
	reminder.Store
	booking.PatientReader
	Ping(ctx context.Context) error
	Close() error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	zl, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer zl.Sync()

	instanceID := fmt.Sprintf("%s-%d", uuid.New().String()[:8], os.Getpid())
	zl = zl.With(zap.String("instance_id", instanceID))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, instanceID, zl); err != nil {
		zl.Fatal("server stopped with error", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, instanceID string, zl *zap.Logger) error {
	zl.Info("starting clinichealth notifier",
		zap.String("environment", cfg.Environment),
		zap.String("store", cfg.StoreBackend),
	)

	loc, err := localtime.LoadZone(cfg.ClinicTimezone)
	if err != nil {
		return err
	}

	m := metrics.New()

	app, err := push.NewApp(ctx, cfg.FirebaseCredentialsPath, cfg.FirebaseProjectID)
	if err != nil {
		return err
	}

	pushService, err := push.NewFirebaseService(ctx, app, cfg.PushRateLimit, zl.Named("push"))
	if err != nil {
		return err
	}

	sched := scheduler.NewScheduler(loc, cfg.JobTimeout, zl)

	var st store
	var pg *database.PostgresStore

	switch cfg.StoreBackend {
	case config.BackendPostgres:
		pg, err = database.NewPostgresStore(ctx, cfg.DatabaseURL, zl.Named("postgres"))
		if err != nil {
			return err
		}
		if err := pg.EnsureSchema(ctx); err != nil {
			pg.Close()
			return err
		}
		st = pg

		err = sched.Register("notification-retention", retentionSpec, func(ctx context.Context) {
			n, err := pg.DeleteExpiredNotifications(ctx, time.Now())
			if err != nil {
				m.StoreErrors.Add(1)
				zl.Error("delete expired notifications", zap.Error(err))
				return
			}
			m.NotificationsExpired.Add(n)
			if n > 0 {
				zl.Info("expired notifications deleted", zap.Int64("count", n))
			}
		})
		if err != nil {
			pg.Close()
			return err
		}

	default:
		fs, err := app.Firestore(ctx)
		if err != nil {
			return fmt.Errorf("error getting Firestore client: %w", err)
		}
		st = database.NewFirestoreStore(fs, zl.Named("firestore"))
	}
	defer st.Close()

	sweeper := reminder.NewSweeper(st, pushService, reminder.Options{
		Lookahead: cfg.ReminderLookahead,
		Retention: cfg.NotificationRetention,
		Recipient: cfg.ReminderRecipient,
		Location:  loc,
	}, m, zl)

	if err := sched.Register("appointment-reminders", cfg.ReminderSchedule, sweeper.Run); err != nil {
		return err
	}

	// Booking confirmations need SMTP; without it the creation triggers stay off.
	var onCreated api.AppointmentHandler
	mailer, err := email.NewEmailService(cfg)
	if err != nil {
		zl.Warn("booking confirmations disabled", zap.Error(err))
	} else {
		notifier := booking.NewNotifier(st, mailer,
			checkin.NewBuilder(cfg.QRBaseURL, cfg.QRSize), loc, m, zl)
		onCreated = notifier

		if pg != nil {
			listener, err := database.NewAppointmentListener(cfg.DatabaseURL, pg, notifier.Handle, zl.Named("listener"))
			if err != nil {
				return err
			}
			go listener.Run(ctx)
		}
	}

	sched.Start()
	go metrics.LogPeriodically(ctx, m, metricsInterval, zl.Named("metrics"))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.NewServer(onCreated, st, m, instanceID, zl).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zl.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		zl.Info("shutdown signal received")
	case serveErr = <-errCh:
		zl.Error("http server failed", zap.Error(serveErr))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Warn("http shutdown", zap.Error(err))
	}
	sched.Stop(shutdownCtx)

	zl.Info("stopped")
	return serveErr
}
