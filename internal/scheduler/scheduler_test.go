package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestStartWithoutSweepFunction(t *testing.T) {
	s := New(zerolog.Nop())
	if err := s.Start("@every 1s"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if s.cron != nil && len(s.cron.Entries()) > 0 {
		t.Fatalf("nothing should be scheduled without a sweep function")
	}
	s.Stop()
}

func TestStartRejectsBadSpec(t *testing.T) {
	s := New(zerolog.Nop())
	s.SetSweepFunction(func(context.Context, time.Time) int { return 0 })
	if err := s.Start("every now and then"); err == nil {
		t.Fatalf("expected invalid spec error")
	}
	if err := s.Start(""); err == nil {
		t.Fatalf("expected empty spec error")
	}
}

func TestSweepRuns(t *testing.T) {
	s := New(zerolog.Nop())
	ran := make(chan time.Time, 1)
	s.SetSweepFunction(func(ctx context.Context, now time.Time) int {
		select {
		case ran <- now:
		default:
		}
		return 1
	})
	if err := s.Start("@every 1s"); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer s.Stop()
	if len(s.cron.Entries()) != 1 {
		t.Fatalf("expected a scheduled entry")
	}

	select {
	case <-ran:
	case <-time.After(3 * time.Second):
		t.Fatalf("sweep did not run")
	}
}
