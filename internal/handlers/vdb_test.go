package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/mock/gomock"

	"cat-backend/internal/rag"
	"cat-backend/internal/vectorstore"
	vsmocks "cat-backend/internal/vectorstore/mocks"
)

func newVDBRouter(h *VDBHandler) http.Handler {
	r := chi.NewRouter()
	r.Get("/vdb/collections", h.ListCollections)
	r.Get("/vdb/collections/{name}", h.GetCollection)
	r.Get("/vdb/collections/{name}/count", h.CountPoints)
	r.Put("/vdb/collections/{name}", h.EnsureCollection)
	r.Delete("/vdb/collections/{name}", h.DeleteCollection)
	r.Get("/vdb/docs", h.Docs)
	return r
}

func TestVDBHandler(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		url        string
		setup      func(store *vsmocks.MockVectorStore, f *queryFixture)
		wantStatus int
		wantBody   string
	}{
		{
			name:   "list collections",
			method: http.MethodGet,
			url:    "/vdb/collections",
			setup: func(store *vsmocks.MockVectorStore, _ *queryFixture) {
				store.EXPECT().ListCollections(gomock.Any()).Return([]string{"docs", "faq"}, nil)
			},
			wantStatus: http.StatusOK,
			wantBody:   `{"collections":["docs","faq"]}`,
		},
		{
			name:   "list collections empty",
			method: http.MethodGet,
			url:    "/vdb/collections",
			setup: func(store *vsmocks.MockVectorStore, _ *queryFixture) {
				store.EXPECT().ListCollections(gomock.Any()).Return(nil, nil)
			},
			wantStatus: http.StatusOK,
			wantBody:   `{"collections":[]}`,
		},
		{
			name:   "collection info",
			method: http.MethodGet,
			url:    "/vdb/collections/docs",
			setup: func(store *vsmocks.MockVectorStore, _ *queryFixture) {
				store.EXPECT().GetCollectionInfo(gomock.Any(), "docs").Return(&vectorstore.CollectionInfo{
					Name: "docs", VectorSize: 384, Distance: "cosine", PointsCount: 12, Status: "green",
				}, nil)
			},
			wantStatus: http.StatusOK,
			wantBody:   `{"name":"docs","vector_size":384,"distance":"cosine","points_count":12,"status":"green"}`,
		},
		{
			name:   "collection info missing",
			method: http.MethodGet,
			url:    "/vdb/collections/nope",
			setup: func(store *vsmocks.MockVectorStore, _ *queryFixture) {
				store.EXPECT().GetCollectionInfo(gomock.Any(), "nope").
					Return(nil, fmt.Errorf("get collection: %w", vectorstore.ErrCollectionNotFound))
			},
			wantStatus: http.StatusNotFound,
		},
		{
			name:   "count points",
			method: http.MethodGet,
			url:    "/vdb/collections/docs/count",
			setup: func(store *vsmocks.MockVectorStore, _ *queryFixture) {
				store.EXPECT().CountPoints(gomock.Any(), "docs").Return(uint64(42), nil)
			},
			wantStatus: http.StatusOK,
			wantBody:   `{"collection_name":"docs","count":42}`,
		},
		{
			name:   "create collection",
			method: http.MethodPut,
			url:    "/vdb/collections/docs?vector_size=384&distance=cosine",
			setup: func(store *vsmocks.MockVectorStore, _ *queryFixture) {
				store.EXPECT().EnsureCollection(gomock.Any(), "docs", 384, vectorstore.DistanceCosine).Return(true, nil)
			},
			wantStatus: http.StatusCreated,
			wantBody:   `{"collection_name":"docs","created":true}`,
		},
		{
			name:   "collection already exists",
			method: http.MethodPut,
			url:    "/vdb/collections/docs?vector_size=384",
			setup: func(store *vsmocks.MockVectorStore, _ *queryFixture) {
				store.EXPECT().EnsureCollection(gomock.Any(), "docs", 384, vectorstore.DistanceCosine).Return(false, nil)
			},
			wantStatus: http.StatusOK,
		},
		{
			name:   "vector size mismatch",
			method: http.MethodPut,
			url:    "/vdb/collections/docs?vector_size=768",
			setup: func(store *vsmocks.MockVectorStore, _ *queryFixture) {
				store.EXPECT().EnsureCollection(gomock.Any(), "docs", 768, vectorstore.DistanceCosine).
					Return(false, fmt.Errorf("%w: have 384", vectorstore.ErrVectorSizeMismatch))
			},
			wantStatus: http.StatusConflict,
		},
		{
			name:       "invalid vector size",
			method:     http.MethodPut,
			url:        "/vdb/collections/docs?vector_size=abc",
			setup:      func(*vsmocks.MockVectorStore, *queryFixture) {},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "invalid distance",
			method:     http.MethodPut,
			url:        "/vdb/collections/docs?vector_size=384&distance=hamming",
			setup:      func(*vsmocks.MockVectorStore, *queryFixture) {},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:   "delete collection",
			method: http.MethodDelete,
			url:    "/vdb/collections/docs",
			setup: func(store *vsmocks.MockVectorStore, _ *queryFixture) {
				store.EXPECT().DeleteCollection(gomock.Any(), "docs").Return(nil)
			},
			wantStatus: http.StatusNoContent,
		},
		{
			name:   "store unavailable",
			method: http.MethodDelete,
			url:    "/vdb/collections/docs",
			setup: func(store *vsmocks.MockVectorStore, _ *queryFixture) {
				store.EXPECT().DeleteCollection(gomock.Any(), "docs").Return(errors.New("connection refused"))
			},
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:   "retrieval only",
			method: http.MethodGet,
			url:    "/vdb/docs?query_text=rag&collection_name=faq&limit=1",
			setup: func(_ *vsmocks.MockVectorStore, f *queryFixture) {
				f.retriever.EXPECT().Retrieve(gomock.Any(), "rag", "faq", 1).
					Return([]rag.Document{{Content: "RAG", Metadata: rag.Metadata{Name: "rag.md", Distance: 0.25}}}, 5*time.Millisecond, nil)
			},
			wantStatus: http.StatusOK,
		},
		{
			name:       "retrieval only without text",
			method:     http.MethodGet,
			url:        "/vdb/docs",
			setup:      func(*vsmocks.MockVectorStore, *queryFixture) {},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			store := vsmocks.NewMockVectorStore(ctrl)
			f := newQueryFixture(t)
			tt.setup(store, f)

			router := newVDBRouter(NewVDBHandler(store, f.svc))
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(tt.method, tt.url, nil))

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d, body = %s", w.Code, tt.wantStatus, w.Body.String())
			}
			if tt.wantBody != "" {
				if got := w.Body.String(); got != tt.wantBody+"\n" {
					t.Errorf("body = %s, want %s", got, tt.wantBody)
				}
			}
		})
	}
}

func TestVDBHandler_DocsPayload(t *testing.T) {
	f := newQueryFixture(t)
	f.retriever.EXPECT().Retrieve(gomock.Any(), "rag", "docs", 5).
		Return([]rag.Document{{Content: "RAG", Metadata: rag.Metadata{SiteName: "wiki", Name: "rag.md", Distance: 0.25}}}, 5*time.Millisecond, nil)

	router := newVDBRouter(NewVDBHandler(nil, f.svc))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/vdb/docs?query_text=rag", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp DocsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Documents) != 1 || resp.Documents[0].Metadata.SiteName != "wiki" || resp.Documents[0].Metadata.Distance != 0.25 {
		t.Errorf("documents = %+v", resp.Documents)
	}
	if resp.Latency < 0 {
		t.Errorf("latency = %v", resp.Latency)
	}
}
