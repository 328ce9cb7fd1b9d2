package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type fakeRefresher struct {
	calls atomic.Int32
	err   error
}

func (f *fakeRefresher) SiteID() string { return "site" }

func (f *fakeRefresher) Refresh(ctx context.Context) error {
	f.calls.Add(1)
	return f.err
}

func TestNew_RaisesIntervalToMinimum(t *testing.T) {
	s := New(&fakeRefresher{}, 5*time.Second, 25*time.Second, time.Second)
	if s.Interval() != 25*time.Second {
		t.Fatalf("expected interval raised to 25s, got %s", s.Interval())
	}

	s = New(&fakeRefresher{}, time.Minute, 25*time.Second, time.Second)
	if s.Interval() != time.Minute {
		t.Fatalf("expected interval to stay 1m, got %s", s.Interval())
	}
}

func TestStart_DisabledWithoutInterval(t *testing.T) {
	r := &fakeRefresher{}
	s := New(r, 0, 25*time.Second, time.Second)
	if err := s.Start(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer s.Stop()

	time.Sleep(50 * time.Millisecond)
	if r.calls.Load() != 0 {
		t.Fatalf("expected no refresh when disabled, got %d", r.calls.Load())
	}
}

func TestRun_CallsRefresher(t *testing.T) {
	r := &fakeRefresher{err: errors.New("upstream down")}
	s := New(r, time.Minute, 25*time.Second, time.Second)

	s.run()
	s.run()

	if r.calls.Load() != 2 {
		t.Fatalf("expected 2 refreshes, got %d", r.calls.Load())
	}
}
