package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name          string
		err           error
		wantTransient bool
		wantThrottled bool
	}{
		{name: "nil", err: nil},
		{name: "unavailable", err: status.Error(codes.Unavailable, "connection refused"), wantTransient: true},
		{name: "deadline", err: status.Error(codes.DeadlineExceeded, "slow"), wantTransient: true},
		{name: "resource exhausted", err: status.Error(codes.ResourceExhausted, "too many requests"), wantTransient: true, wantThrottled: true},
		{name: "wrapped unavailable", err: fmt.Errorf("failed to query points: %w", status.Error(codes.Unavailable, "down")), wantTransient: true},
		{name: "context deadline", err: fmt.Errorf("query: %w", context.DeadlineExceeded), wantTransient: true},
		{name: "invalid argument", err: status.Error(codes.InvalidArgument, "bad vector")},
		{name: "not found", err: status.Error(codes.NotFound, "no collection")},
		{name: "plain error", err: errors.New("boom")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.wantTransient {
				t.Errorf("IsTransient() = %v, want %v", got, tt.wantTransient)
			}
			if got := IsThrottled(tt.err); got != tt.wantThrottled {
				t.Errorf("IsThrottled() = %v, want %v", got, tt.wantThrottled)
			}
		})
	}
}

func TestClassify_NotFound(t *testing.T) {
	err := classify(status.Error(codes.NotFound, "collection docs not found"))
	if !errors.Is(err, ErrCollectionNotFound) {
		t.Errorf("classify() = %v, want ErrCollectionNotFound", err)
	}

	other := status.Error(codes.Internal, "boom")
	if got := classify(other); got != other {
		t.Errorf("classify() = %v, want unchanged error", got)
	}
}

func TestParseDistance(t *testing.T) {
	tests := []struct {
		in      string
		want    Distance
		wantErr bool
	}{
		{in: "", want: DistanceCosine},
		{in: "Cosine", want: DistanceCosine},
		{in: "dot", want: DistanceDot},
		{in: " euclid ", want: DistanceEuclid},
		{in: "manhattan", want: DistanceManhattan},
		{in: "hamming", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDistance(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDistance() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseDistance() = %q, want %q", got, tt.want)
			}
		})
	}
}
