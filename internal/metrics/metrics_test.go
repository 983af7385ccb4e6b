package metrics

import "testing"

func TestSnapshot(t *testing.T) {
	m := New()
	m.PushSent.Add(2)
	m.RemindersSelected.Add(5)
	m.EmailErrors.Add(1)

	s := m.Snapshot()
	if s.PushSent != 2 || s.RemindersSelected != 5 || s.EmailErrors != 1 {
		t.Fatalf("snapshot = %+v", s)
	}
	if s.Uptime == "" {
		t.Error("uptime not set")
	}
}
