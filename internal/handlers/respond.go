package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"cat-backend/internal/contextutil"
	"cat-backend/internal/rag"
	"cat-backend/internal/service"
	"cat-backend/internal/storage"
	"cat-backend/internal/vectorstore"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	QueryID string `json:"query_id,omitempty"`
	Error   string `json:"error"`
	Status  int    `json:"status"`
}

func writeJSON(ctx context.Context, w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		contextutil.LoggerFromContext(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func writeError(ctx context.Context, w http.ResponseWriter, statusCode int, message string) {
	writeJSON(ctx, w, statusCode, ErrorResponse{Error: message, Status: statusCode})
}

// writeServiceError maps err to a status code and writes it, echoing the
// query id when the error carries one.
func writeServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	statusCode := statusFor(err)
	logger := contextutil.LoggerFromContext(ctx)
	if statusCode >= http.StatusInternalServerError {
		logger.ErrorContext(ctx, "request failed", "status", statusCode, "error", err)
	} else {
		logger.WarnContext(ctx, "request rejected", "status", statusCode, "error", err)
	}

	resp := ErrorResponse{Error: err.Error(), Status: statusCode}
	if id, ok := service.QueryIDOf(err); ok {
		resp.QueryID = id.String()
	}
	writeJSON(ctx, w, statusCode, resp)
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	var (
		validationErr *service.ValidationError
		configErr     *rag.ConfigurationError
		retrievalErr  *rag.RetrievalError
	)

	switch {
	case errors.As(err, &validationErr), errors.As(err, &configErr):
		return http.StatusBadRequest
	case errors.Is(err, vectorstore.ErrInvalidDistance):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrOverloaded):
		return http.StatusTooManyRequests
	case errors.Is(err, rag.ErrGenerationTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, service.ErrNotFound),
		errors.Is(err, storage.ErrNotFound),
		errors.Is(err, vectorstore.ErrCollectionNotFound):
		return http.StatusNotFound
	case errors.Is(err, vectorstore.ErrVectorSizeMismatch):
		return http.StatusConflict
	case errors.As(err, &retrievalErr) && retrievalErr.Throttled:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
