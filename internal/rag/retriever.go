package rag

import (
	"context"
	"strings"
	"time"

	"cat-backend/internal/contextutil"
	"cat-backend/internal/metrics"
	"cat-backend/internal/vectorstore"
)

// Retriever fetches the documents nearest to a query from the vector store.
type Retriever struct {
	store    vectorstore.VectorStore
	maxLimit int
}

// NewRetriever creates a Retriever. Limits above maxLimit are clamped.
func NewRetriever(store vectorstore.VectorStore, maxLimit int) *Retriever {
	return &Retriever{store: store, maxLimit: maxLimit}
}

// Retrieve returns at most limit documents, nearest first, and how long the
// vector store call took.
func (r *Retriever) Retrieve(ctx context.Context, queryText, collection string, limit int) ([]Document, time.Duration, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if strings.TrimSpace(queryText) == "" {
		return nil, 0, &RetrievalError{Collection: collection, Err: ErrEmptyQuery}
	}
	if limit <= 0 {
		return nil, 0, &RetrievalError{Collection: collection, Err: ErrInvalidLimit}
	}
	if r.maxLimit > 0 && limit > r.maxLimit {
		limit = r.maxLimit
	}

	results, latency, err := metrics.Measure(func() ([]vectorstore.SearchResult, error) {
		return r.store.NearText(ctx, collection, queryText, limit)
	})
	if err != nil {
		return nil, latency, &RetrievalError{
			Collection: collection,
			Transient:  vectorstore.IsTransient(err),
			Throttled:  vectorstore.IsThrottled(err),
			Err:        err,
		}
	}

	if len(results) > limit {
		results = results[:limit]
	}

	docs := make([]Document, 0, len(results))
	for _, res := range results {
		docs = append(docs, documentFromResult(res))
	}

	logger.InfoContext(ctx, "documents retrieved",
		"collection", collection,
		"limit", limit,
		"documents", len(docs),
		"latency", latency,
	)
	return docs, latency, nil
}
