package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"cat-backend/internal/contextutil"
	"cat-backend/internal/rag"
	"cat-backend/internal/service"
	"cat-backend/internal/storage"
)

// QueryService is the part of service.QueryService the HTTP layer needs.
type QueryService interface {
	Query(ctx context.Context, req service.QueryRequest) (*service.QueryResponse, error)
	Retrieve(ctx context.Context, req service.QueryRequest) ([]rag.Document, time.Duration, error)
	GetQuery(ctx context.Context, queryID uuid.UUID) (*service.QueryRecord, error)
}

// QueryHandler serves the front-end query endpoints.
type QueryHandler struct {
	svc QueryService
}

// NewQueryHandler creates a new QueryHandler.
func NewQueryHandler(svc QueryService) *QueryHandler {
	return &QueryHandler{svc: svc}
}

// QueryResponse is the payload of GET /front/query. Latencies are in seconds.
type QueryResponse struct {
	QueryID           string  `json:"query_id"`
	QueryText         string  `json:"query_text"`
	ResponseText      string  `json:"response_text"`
	VDBLatency        float64 `json:"vdb_latency"`
	LLMLatency        float64 `json:"llm_latency"`
	Latency           float64 `json:"latency"`
	RequestTimestamp  string  `json:"request_timestamp"`
	ResponseTimestamp string  `json:"response_timestamp"`
	Cached            bool    `json:"cached"`
	Documents         int     `json:"documents"`
}

// QueryRecordResponse is the payload of GET /front/query/{query_id}.
type QueryRecordResponse struct {
	QueryID string               `json:"query_id"`
	Status  *QueryStatusResponse `json:"status,omitempty"`
	Detail  *QueryDetailResponse `json:"detail,omitempty"`
}

// QueryStatusResponse mirrors a ledger status row.
type QueryStatusResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// QueryDetailResponse mirrors a ledger detail row. Unset fields are null.
type QueryDetailResponse struct {
	QueryText    *string        `json:"query_text"`
	Timestamp    *string        `json:"timestamp"`
	TotalLatency *float64       `json:"total_latency"`
	VDBName      *string        `json:"vdb_name"`
	VDBIndex     *string        `json:"vdb_index"`
	VDBLatency   *float64       `json:"vdb_latency"`
	LLMModel     *string        `json:"llm_model"`
	LLMLatency   *float64       `json:"llm_latency"`
	RnkModel     *string        `json:"rnk_model"`
	RnkLatency   *float64       `json:"rnk_latency"`
	Info         map[string]any `json:"info,omitempty"`
}

// Query handles GET /front/query.
func (h *QueryHandler) Query(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, err := queryRequestFromURL(r)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	resp, err := h.svc.Query(ctx, req)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	writeJSON(ctx, w, http.StatusOK, QueryResponse{
		QueryID:           resp.QueryID.String(),
		QueryText:         resp.QueryText,
		ResponseText:      resp.ResponseText,
		VDBLatency:        resp.VDBLatency.Seconds(),
		LLMLatency:        resp.LLMLatency.Seconds(),
		Latency:           resp.TotalLatency.Seconds(),
		RequestTimestamp:  resp.ReceivedAt.UTC().Format(time.RFC3339Nano),
		ResponseTimestamp: resp.RespondedAt.UTC().Format(time.RFC3339Nano),
		Cached:            resp.Cached,
		Documents:         resp.Documents,
	})
}

// GetQuery handles GET /front/query/{query_id}.
func (h *QueryHandler) GetQuery(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	id, err := uuid.Parse(chi.URLParam(r, "query_id"))
	if err != nil {
		logger.WarnContext(ctx, "invalid query id", "error", err)
		writeError(ctx, w, http.StatusBadRequest, "invalid query_id")
		return
	}

	record, err := h.svc.GetQuery(ctx, id)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	resp := QueryRecordResponse{QueryID: id.String()}
	if st := record.Status; st != nil {
		resp.Status = &QueryStatusResponse{
			Status:    string(st.Status),
			Timestamp: st.Timestamp.UTC().Format(time.RFC3339Nano),
		}
	}
	if d := record.Detail; d != nil {
		resp.Detail = detailResponse(d)
	}
	writeJSON(ctx, w, http.StatusOK, resp)
}

func detailResponse(d *storage.QueryDetail) *QueryDetailResponse {
	out := &QueryDetailResponse{
		QueryText:    d.QueryText,
		TotalLatency: secondsPtr(d.TotalLatency),
		VDBName:      d.VDBName,
		VDBIndex:     d.VDBIndex,
		VDBLatency:   secondsPtr(d.VDBLatency),
		LLMModel:     d.LLMModel,
		LLMLatency:   secondsPtr(d.LLMLatency),
		RnkModel:     d.RnkModel,
		RnkLatency:   secondsPtr(d.RnkLatency),
		Info:         d.Info,
	}
	if d.Timestamp != nil {
		ts := d.Timestamp.UTC().Format(time.RFC3339Nano)
		out.Timestamp = &ts
	}
	return out
}

func secondsPtr(d *time.Duration) *float64 {
	if d == nil {
		return nil
	}
	s := d.Seconds()
	return &s
}

// queryRequestFromURL reads query_text, collection_name and limit.
func queryRequestFromURL(r *http.Request) (service.QueryRequest, error) {
	q := r.URL.Query()
	req := service.QueryRequest{
		Text:       q.Get("query_text"),
		Collection: q.Get("collection_name"),
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			return req, &service.ValidationError{Field: "limit", Message: "must be a positive integer"}
		}
		req.Limit = limit
	}
	return req, nil
}
