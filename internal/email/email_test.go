package email

import (
	"context"
	"errors"
	"strings"
	"testing"

	"clinichealth-notifier/internal/config"

	"gopkg.in/gomail.v2"
)

type fakeDialer struct {
	sent []*gomail.Message
	err  error
}

func (f *fakeDialer) DialAndSend(m ...*gomail.Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, m...)
	return nil
}

func TestNewEmailServiceRequiresCredentials(t *testing.T) {
	if _, err := NewEmailService(&config.Config{SMTPHost: "smtp"}); err == nil {
		t.Fatal("expected error without credentials")
	}

	s, err := NewEmailService(&config.Config{
		SMTPHost:      "smtp.gmail.com",
		SMTPPort:      587,
		SMTPUsername:  "clinic@example.com",
		SMTPPassword:  "secret",
		SMTPFromName:  "ClinicHealth",
		SMTPFromEmail: "clinic@example.com",
	})
	if err != nil {
		t.Fatalf("NewEmailService() error = %v", err)
	}
	if s.from != "ClinicHealth <clinic@example.com>" {
		t.Errorf("from = %q", s.from)
	}
}

func TestSend(t *testing.T) {
	d := &fakeDialer{}
	s := &EmailService{from: "ClinicHealth <clinic@example.com>", dialer: d}

	if err := s.Send(context.Background(), "ana@example.com", "subject", "<p>hi</p>"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if len(d.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(d.sent))
	}
	m := d.sent[0]
	if got := m.GetHeader("To"); len(got) != 1 || got[0] != "ana@example.com" {
		t.Errorf("To = %v", got)
	}
	if got := m.GetHeader("From"); len(got) != 1 || got[0] != "ClinicHealth <clinic@example.com>" {
		t.Errorf("From = %v", got)
	}
}

func TestSendPropagatesDialError(t *testing.T) {
	boom := errors.New("535 auth failed")
	s := &EmailService{dialer: &fakeDialer{err: boom}}

	err := s.Send(context.Background(), "ana@example.com", "s", "b")
	if !errors.Is(err, boom) {
		t.Fatalf("Send() error = %v, want wrapped %v", err, boom)
	}
}

func TestSendCancelledContext(t *testing.T) {
	d := &fakeDialer{}
	s := &EmailService{dialer: d}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := s.Send(ctx, "ana@example.com", "s", "b"); !errors.Is(err, context.Canceled) {
		t.Fatalf("Send() error = %v", err)
	}
	if len(d.sent) != 0 {
		t.Fatal("message sent despite cancelled context")
	}
}

func TestBookingConfirmationTemplate(t *testing.T) {
	body, err := BookingConfirmationTemplate(BookingConfirmation{
		PatientName: "Ana <Pérez>",
		Date:        "5/3/2026",
		Time:        "14:30",
		Motivo:      "Consulta médica",
		QRCodeURL:   "https://api.qrserver.com/v1/create-qr-code/?data=abc123&size=200x200",
		CheckInCode: "abc123",
	})
	if err != nil {
		t.Fatalf("BookingConfirmationTemplate() error = %v", err)
	}

	for _, want := range []string{
		"Ana &lt;Pérez&gt;",
		"<b>Fecha:</b> 5/3/2026",
		"<b>Hora:</b> 14:30",
		"<b>Código de turno:</b> abc123",
		`src="https://api.qrserver.com/v1/create-qr-code/?data=abc123&amp;size=200x200"`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q", want)
		}
	}
}

func TestBookingConfirmationSubject(t *testing.T) {
	if got := BookingConfirmationSubject("5/3/2026", "14:30"); got != "Tu turno médico - 5/3/2026 14:30" {
		t.Errorf("subject = %q", got)
	}
}
