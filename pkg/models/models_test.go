package models

import "testing"

func TestMotivoOr(t *testing.T) {
	if got := (Appointment{}).MotivoOr(DefaultReminderMotivo); got != "Consulta" {
		t.Errorf("MotivoOr() = %q, want Consulta", got)
	}
	if got := (Appointment{Motivo: "Control"}).MotivoOr(DefaultBookingMotivo); got != "Control" {
		t.Errorf("MotivoOr() = %q, want Control", got)
	}
}

func TestFullName(t *testing.T) {
	tests := []struct {
		p    Patient
		want string
	}{
		{Patient{Nombre: "Ana", Apellido: "Pérez"}, "Ana Pérez"},
		{Patient{Nombre: "Ana"}, "Ana"},
		{Patient{Apellido: "Pérez"}, "Pérez"},
	}
	for _, tt := range tests {
		if got := tt.p.FullName(); got != tt.want {
			t.Errorf("FullName() = %q, want %q", got, tt.want)
		}
	}
}
