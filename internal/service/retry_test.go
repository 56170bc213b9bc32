package service

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetryPolicy_Backoff(t *testing.T) {
	p := RetryPolicy{Attempts: 5, Initial: 2 * time.Second, Max: 10 * time.Second}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{attempt: 0, want: 0},
		{attempt: 1, want: 2 * time.Second},
		{attempt: 2, want: 4 * time.Second},
		{attempt: 3, want: 8 * time.Second},
		{attempt: 4, want: 10 * time.Second},
		{attempt: 10, want: 10 * time.Second},
	}
	for _, tt := range tests {
		if got := p.Backoff(tt.attempt); got != tt.want {
			t.Errorf("Backoff(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

var errTransient = errors.New("transient")

func isTransient(err error) bool { return errors.Is(err, errTransient) }

func TestRetryPolicy_Do(t *testing.T) {
	tests := []struct {
		name      string
		failures  []error
		wantCalls int
		wantErr   error
	}{
		{name: "first try succeeds", failures: nil, wantCalls: 1},
		{name: "succeeds after transient", failures: []error{errTransient}, wantCalls: 2},
		{name: "exhausted", failures: []error{errTransient, errTransient, errTransient}, wantCalls: 3, wantErr: errTransient},
		{name: "permanent error not retried", failures: []error{errors.New("bad request")}, wantCalls: 1, wantErr: errors.New("bad request")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := RetryPolicy{Attempts: 3, Initial: time.Millisecond, Max: 2 * time.Millisecond}
			calls := 0
			err := p.Do(context.Background(), isTransient, func(int) error {
				calls++
				if calls <= len(tt.failures) {
					return tt.failures[calls-1]
				}
				return nil
			})

			if calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls, tt.wantCalls)
			}
			if (err == nil) != (tt.wantErr == nil) {
				t.Fatalf("Do() error = %v, want %v", err, tt.wantErr)
			}
			if err != nil && err.Error() != tt.wantErr.Error() {
				t.Errorf("Do() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRetryPolicy_Do_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := RetryPolicy{Attempts: 5, Initial: time.Hour}

	calls := 0
	start := time.Now()
	err := p.Do(ctx, isTransient, func(int) error {
		calls++
		cancel()
		return errTransient
	})

	if !errors.Is(err, errTransient) {
		t.Errorf("Do() error = %v, want last attempt error", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if time.Since(start) > time.Second {
		t.Error("Do() kept waiting after cancellation")
	}
}
