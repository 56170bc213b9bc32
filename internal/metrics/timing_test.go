package metrics

import (
	"errors"
	"testing"
	"time"
)

func TestMeasure(t *testing.T) {
	errBoom := errors.New("boom")

	tests := []struct {
		name    string
		fn      func() (string, error)
		want    string
		wantErr error
		minDur  time.Duration
	}{
		{
			name: "returns result",
			fn: func() (string, error) {
				return "ok", nil
			},
			want: "ok",
		},
		{
			name: "returns error",
			fn: func() (string, error) {
				return "", errBoom
			},
			wantErr: errBoom,
		},
		{
			name: "measures elapsed time",
			fn: func() (string, error) {
				time.Sleep(20 * time.Millisecond)
				return "slow", nil
			},
			want:   "slow",
			minDur: 20 * time.Millisecond,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, dur, err := Measure(tt.fn)

			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Measure() error = %v, want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Measure() result = %q, want %q", got, tt.want)
			}
			if dur < 0 {
				t.Errorf("Measure() duration = %v, want >= 0", dur)
			}
			if dur < tt.minDur {
				t.Errorf("Measure() duration = %v, want >= %v", dur, tt.minDur)
			}
		})
	}
}

func TestSince_FutureStartClampsToZero(t *testing.T) {
	if got := Since(time.Now().Add(time.Hour)); got != 0 {
		t.Errorf("Since() = %v, want 0", got)
	}
}
