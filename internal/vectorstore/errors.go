package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	// ErrCollectionNotFound is returned when a collection does not exist.
	ErrCollectionNotFound = errors.New("collection not found")
	// ErrVectorSizeMismatch is returned when an existing collection has a different vector size.
	ErrVectorSizeMismatch = errors.New("collection vector size mismatch")
	// ErrInvalidDistance is returned for an unknown distance metric.
	ErrInvalidDistance = errors.New("invalid distance metric")
)

// Distance is a vector similarity metric.
type Distance string

const (
	DistanceCosine    Distance = "cosine"
	DistanceDot       Distance = "dot"
	DistanceEuclid    Distance = "euclid"
	DistanceManhattan Distance = "manhattan"
)

// ParseDistance parses a distance name, defaulting to cosine when empty.
func ParseDistance(s string) (Distance, error) {
	switch d := Distance(strings.ToLower(strings.TrimSpace(s))); d {
	case "":
		return DistanceCosine, nil
	case DistanceCosine, DistanceDot, DistanceEuclid, DistanceManhattan:
		return d, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidDistance, s)
	}
}

// IsTransient reports whether err is worth retrying.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	switch status.Code(err) {
	case codes.Unavailable, codes.DeadlineExceeded, codes.Aborted, codes.ResourceExhausted:
		return true
	default:
		return false
	}
}

// IsThrottled reports whether the store rejected the call for load reasons.
func IsThrottled(err error) bool {
	return err != nil && status.Code(err) == codes.ResourceExhausted
}

// classify tags store errors with package sentinels where one applies.
func classify(err error) error {
	if status.Code(err) == codes.NotFound {
		return fmt.Errorf("%w: %w", ErrCollectionNotFound, err)
	}
	return err
}
