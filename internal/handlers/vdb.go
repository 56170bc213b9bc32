package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"cat-backend/internal/contextutil"
	"cat-backend/internal/rag"
	"cat-backend/internal/vectorstore"
)

// VDBHandler exposes vector store administration and retrieval-only search.
type VDBHandler struct {
	store vectorstore.VectorStore
	svc   QueryService
}

// NewVDBHandler creates a new VDBHandler.
func NewVDBHandler(store vectorstore.VectorStore, svc QueryService) *VDBHandler {
	return &VDBHandler{store: store, svc: svc}
}

// CollectionsResponse lists collection names.
type CollectionsResponse struct {
	Collections []string `json:"collections"`
}

// CountResponse reports the number of points in a collection.
type CountResponse struct {
	Collection string `json:"collection_name"`
	Count      uint64 `json:"count"`
}

// EnsureCollectionResponse reports the outcome of PUT /vdb/collections/{name}.
type EnsureCollectionResponse struct {
	Collection string `json:"collection_name"`
	Created    bool   `json:"created"`
}

// DocsResponse is the payload of GET /vdb/docs. Latency is in seconds.
type DocsResponse struct {
	QueryText  string         `json:"query_text"`
	Collection string         `json:"collection_name,omitempty"`
	Latency    float64        `json:"latency"`
	Documents  []rag.Document `json:"documents"`
}

// ListCollections handles GET /vdb/collections.
func (h *VDBHandler) ListCollections(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	names, err := h.store.ListCollections(ctx)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(ctx, w, http.StatusOK, CollectionsResponse{Collections: names})
}

// GetCollection handles GET /vdb/collections/{name}.
func (h *VDBHandler) GetCollection(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	info, err := h.store.GetCollectionInfo(ctx, chi.URLParam(r, "name"))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, info)
}

// CountPoints handles GET /vdb/collections/{name}/count.
func (h *VDBHandler) CountPoints(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name := chi.URLParam(r, "name")
	count, err := h.store.CountPoints(ctx, name)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, CountResponse{Collection: name, Count: count})
}

// EnsureCollection handles PUT /vdb/collections/{name}?vector_size=&distance=.
// It answers 201 when the collection was created and 200 when it already existed.
func (h *VDBHandler) EnsureCollection(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)
	name := chi.URLParam(r, "name")

	size, err := strconv.Atoi(r.URL.Query().Get("vector_size"))
	if err != nil || size <= 0 {
		logger.WarnContext(ctx, "invalid vector size", "value", r.URL.Query().Get("vector_size"))
		writeError(ctx, w, http.StatusBadRequest, "vector_size must be a positive integer")
		return
	}
	distance, err := vectorstore.ParseDistance(r.URL.Query().Get("distance"))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	created, err := h.store.EnsureCollection(ctx, name, size, distance)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	statusCode := http.StatusOK
	if created {
		statusCode = http.StatusCreated
		logger.InfoContext(ctx, "collection created", "collection", name, "vector_size", size, "distance", distance)
	}
	writeJSON(ctx, w, statusCode, EnsureCollectionResponse{Collection: name, Created: created})
}

// DeleteCollection handles DELETE /vdb/collections/{name}.
func (h *VDBHandler) DeleteCollection(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name := chi.URLParam(r, "name")
	if err := h.store.DeleteCollection(ctx, name); err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	contextutil.LoggerFromContext(ctx).InfoContext(ctx, "collection deleted", "collection", name)
	w.WriteHeader(http.StatusNoContent)
}

// Docs handles GET /vdb/docs: retrieval without generation.
func (h *VDBHandler) Docs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, err := queryRequestFromURL(r)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	docs, latency, err := h.svc.Retrieve(ctx, req)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	if docs == nil {
		docs = []rag.Document{}
	}

	writeJSON(ctx, w, http.StatusOK, DocsResponse{
		QueryText:  req.Text,
		Collection: req.Collection,
		Latency:    latency.Seconds(),
		Documents:  docs,
	})
}
