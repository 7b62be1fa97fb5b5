package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestSchedulerAddJob(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()

	tests := []struct {
		name    string
		expr    string
		wantErr bool
	}{
		{name: "five field", expr: "* * * * *"},
		{name: "descriptor", expr: "@hourly"},
		{name: "interval", expr: Every(90 * time.Second)},
		{name: "seconds field rejected", expr: "* * * * * *", wantErr: true},
		{name: "garbage", expr: "every hour", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.AddJob(tt.expr, func() {})
			if (err != nil) != tt.wantErr {
				t.Errorf("AddJob(%q) error = %v, wantErr %v", tt.expr, err, tt.wantErr)
			}
		})
	}
	if got := s.Jobs(); got != 3 {
		t.Errorf("expected 3 scheduled jobs, got %d", got)
	}
}

func TestEvery(t *testing.T) {
	if got := Every(time.Hour); got != "@every 1h0m0s" {
		t.Errorf("Every(1h) = %q", got)
	}
}

func TestSchedulerRunsJobs(t *testing.T) {
	s := NewScheduler()
	var runs atomic.Int32
	if err := s.AddJob(Every(time.Second), func() { runs.Add(1) }); err != nil {
		t.Fatalf("AddJob: %v", err)
	}
	if err := s.AddJob(Every(time.Second), func() { panic("boom") }); err != nil {
		t.Fatalf("AddJob: %v", err)
	}

	deadline := time.After(3 * time.Second)
	for runs.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("job did not run")
		case <-time.After(50 * time.Millisecond):
		}
	}
	s.Stop()
}

func TestSchedulerRunStopsOnCancel(t *testing.T) {
	s := NewScheduler()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected nil on cancel, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}
