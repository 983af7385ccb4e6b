package push

import (
	"context"
	"errors"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityNormal Priority = "normal"
)

var ErrEmptyToken = errors.New("device token is empty")

type FirebaseService struct {
	client  *messaging.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewFirebaseService builds the FCM client from an initialized app.
// ratePerSecond <= 0 disables outbound limiting.
func NewFirebaseService(ctx context.Context, app *firebase.App, ratePerSecond int, logger *zap.Logger) (*FirebaseService, error) {
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting Messaging client: %w", err)
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if ratePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(ratePerSecond), ratePerSecond)
	}

	logger.Info("firebase messaging initialized", zap.Int("rate_per_second", ratePerSecond))

	return &FirebaseService{
		client:  client,
		limiter: limiter,
		logger:  logger,
	}, nil
}

// Send delivers one notification to a single device token.
func (s *FirebaseService) Send(ctx context.Context, token, title, body string, priority Priority) error {
	if token == "" {
		return ErrEmptyToken
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("push rate limiter: %w", err)
	}

	response, err := s.client.Send(ctx, buildMessage(token, title, body, priority))
	if err != nil {
		return fmt.Errorf("error sending push: %w", err)
	}

	s.logger.Debug("push sent", zap.String("message_id", response))
	return nil
}

func buildMessage(token, title, body string, priority Priority) *messaging.Message {
	apnsPriority := "5"
	if priority == PriorityHigh {
		apnsPriority = "10"
	}

	return &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Android: &messaging.AndroidConfig{
			Priority: string(priority),
		},
		APNS: &messaging.APNSConfig{
			Headers: map[string]string{
				"apns-priority": apnsPriority,
			},
		},
	}
}

// IsInvalidTokenError reports whether FCM rejected the token as no longer
// registered for this sender.
func IsInvalidTokenError(err error) bool {
	if err == nil {
		return false
	}
	return messaging.IsRegistrationTokenNotRegistered(err) || messaging.IsSenderIDMismatch(err)
}
