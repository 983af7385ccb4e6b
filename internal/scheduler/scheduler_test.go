package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestRegisterRejectsBadSpec(t *testing.T) {
	s := NewScheduler(time.UTC, time.Second, zap.NewNop())
	if err := s.Register("bad", "every now and then", func(context.Context) {}); err == nil {
		t.Fatal("expected error for invalid spec")
	}
}

func TestJobRunsWithDeadline(t *testing.T) {
	s := NewScheduler(time.UTC, 5*time.Second, zap.NewNop())

	ran := make(chan bool, 1)
	err := s.Register("deadline-check", "@every 1s", func(ctx context.Context) {
		_, ok := ctx.Deadline()
		select {
		case ran <- ok:
		default:
		}
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	s.Start()
	defer s.Stop(context.Background())

	select {
	case hasDeadline := <-ran:
		if !hasDeadline {
			t.Error("job context has no deadline")
		}
	case <-time.After(3 * time.Second):
		t.Fatal("job did not run")
	}
}

func TestPanickingJobDoesNotStopScheduler(t *testing.T) {
	s := NewScheduler(time.UTC, 0, zap.NewNop())

	var runs atomic.Int32
	s.Register("flaky", "@every 1s", func(context.Context) {
		runs.Add(1)
		panic("boom")
	})

	s.Start()
	defer s.Stop(context.Background())

	deadline := time.Now().Add(4 * time.Second)
	for runs.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
	}
	if runs.Load() < 2 {
		t.Fatalf("runs = %d, want >= 2", runs.Load())
	}
}

func TestJobRunsAgainAfterSinglePanic(t *testing.T) {
	s := NewScheduler(time.UTC, 0, zap.NewNop())

	var runs atomic.Int32
	err := s.Register("retention", "@every 1s", func(context.Context) {
		if runs.Add(1) == 1 {
			panic("first run fails")
		}
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	s.Start()
	defer s.Stop(context.Background())

	deadline := time.Now().Add(5 * time.Second)
	for runs.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
	}
	if runs.Load() < 3 {
		t.Fatalf("runs = %d after a panic on the first run, want >= 3", runs.Load())
	}
}

func TestStopCancelsRunningJob(t *testing.T) {
	s := NewScheduler(time.UTC, 0, zap.NewNop())

	started := make(chan struct{})
	cancelled := make(chan struct{})
	s.Register("long", "@every 1s", func(ctx context.Context) {
		select {
		case <-started:
			return
		default:
			close(started)
		}
		<-ctx.Done()
		close(cancelled)
	})

	s.Start()
	select {
	case <-started:
	case <-time.After(3 * time.Second):
		t.Fatal("job did not start")
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	s.Stop(stopCtx)

	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("running job was not cancelled")
	}
}
