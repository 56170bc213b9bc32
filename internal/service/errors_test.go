package service

import (
	"errors"
	"testing"

	"github.com/google/uuid"

	"cat-backend/internal/rag"
)

func TestValidationError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *ValidationError
		want string
	}{
		{
			name: "field and message",
			err:  &ValidationError{Field: "query_text", Message: "cannot be empty"},
			want: "validation error on field query_text: cannot be empty",
		},
		{
			name: "empty field",
			err:  &ValidationError{Field: "", Message: "invalid"},
			want: "validation error on field : invalid",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("ValidationError.Error() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestQueryError(t *testing.T) {
	id := uuid.New()
	err := WrapError(&QueryError{QueryID: id, Err: rag.ErrGenerationTimeout}, "query failed")

	if !errors.Is(err, rag.ErrGenerationTimeout) {
		t.Error("QueryError should unwrap to its cause")
	}
	got, ok := QueryIDOf(err)
	if !ok || got != id {
		t.Errorf("QueryIDOf() = %v, %v, want %v, true", got, ok, id)
	}

	if _, ok := QueryIDOf(errors.New("plain")); ok {
		t.Error("QueryIDOf() found an id in a plain error")
	}
}

func TestWrapError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		msg     string
		wantNil bool
		wantMsg string
	}{
		{name: "nil error", err: nil, msg: "context", wantNil: true},
		{name: "wrapped error", err: errors.New("original error"), msg: "context", wantMsg: "context: original error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := WrapError(tt.err, tt.msg)
			if tt.wantNil {
				if got != nil {
					t.Errorf("WrapError() = %v, want nil", got)
				}
				return
			}
			if got == nil || got.Error() != tt.wantMsg {
				t.Fatalf("WrapError() = %v, want %v", got, tt.wantMsg)
			}
			if !errors.Is(got, tt.err) {
				t.Errorf("WrapError() should wrap original error")
			}
		})
	}
}
