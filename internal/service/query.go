package service

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_query.go -package=mocks cat-backend/internal/service Retriever,Answerer

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"cat-backend/internal/cache"
	"cat-backend/internal/contextutil"
	"cat-backend/internal/ledger"
	"cat-backend/internal/metrics"
	"cat-backend/internal/rag"
	"cat-backend/internal/storage"
)

// Retriever fetches documents for a query.
// This interface is defined from the service layer's perspective (consumer-first).
type Retriever interface {
	Retrieve(ctx context.Context, queryText, collection string, limit int) ([]rag.Document, time.Duration, error)
}

// Answerer generates an answer from a question and its documents.
type Answerer interface {
	Answer(ctx context.Context, queryText string, docs []rag.Document, settings rag.Settings) (string, time.Duration, error)
}

// SettingsProvider hands out the model and prompt template in effect.
type SettingsProvider interface {
	Snapshot() rag.Settings
}

// Recorder accepts ledger writes without blocking.
type Recorder interface {
	Register(q ledger.Query)
	UpdateDetail(patch storage.DetailPatch)
}

// QueryRequest represents a query in the domain layer.
type QueryRequest struct {
	Text       string
	Collection string
	// Limit is the number of documents to retrieve; zero means the default.
	Limit int
}

// QueryResponse is the outcome of a successful query.
type QueryResponse struct {
	QueryID      uuid.UUID
	QueryText    string
	ResponseText string
	VDBLatency   time.Duration
	LLMLatency   time.Duration
	TotalLatency time.Duration
	ReceivedAt   time.Time
	RespondedAt  time.Time
	Cached       bool
	Documents    int
}

// QueryRecord is the ledger view of a past query.
type QueryRecord struct {
	Status *storage.QueryStatus
	Detail *storage.QueryDetail
}

// QueryOptions tunes the pipeline.
type QueryOptions struct {
	DefaultCollection string
	DefaultLimit      int
	// VectorStoreName is recorded as vdb_name in the ledger.
	VectorStoreName string
	Retry           RetryPolicy
	// AttemptTimeout bounds a single retrieval attempt.
	AttemptTimeout time.Duration
	// MaxInflight bounds concurrent pipelines; zero disables the limit.
	MaxInflight int64
	// AdmissionWait is how long a query may wait for a slot.
	AdmissionWait time.Duration
}

// QueryDeps are the collaborators of a QueryService. Cache may be nil.
type QueryDeps struct {
	Retriever Retriever
	Reranker  rag.Reranker
	Answerer  Answerer
	Settings  SettingsProvider
	Ledger    Recorder
	Store     storage.QueryStore
	Cache     cache.Cache
}

// QueryService answers questions with retrieval-augmented generation.
type QueryService struct {
	deps QueryDeps
	opts QueryOptions
	sem  *semaphore.Weighted
}

// NewQueryService creates a QueryService.
func NewQueryService(deps QueryDeps, opts QueryOptions) *QueryService {
	if deps.Reranker == nil {
		deps.Reranker = rag.PassThroughReranker{}
	}
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = 5
	}
	s := &QueryService{deps: deps, opts: opts}
	if opts.MaxInflight > 0 {
		s.sem = semaphore.NewWeighted(opts.MaxInflight)
	}
	return s
}

// Query runs the full pipeline for one question. Failures after the query id
// is assigned are returned as *QueryError.
func (s *QueryService) Query(ctx context.Context, req QueryRequest) (*QueryResponse, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		contextutil.LoggerFromContext(ctx).WarnContext(ctx, "empty query text")
		return nil, &ValidationError{Field: "query_text", Message: "cannot be empty"}
	}
	collection, limit, err := s.normalize(req.Collection, req.Limit)
	if err != nil {
		return nil, err
	}

	receivedAt := time.Now()
	queryID := uuid.New()
	logger := contextutil.LoggerFromContext(ctx).With("query_id", queryID.String())
	ctx = contextutil.WithLogger(ctx, logger)

	release, err := s.admit(ctx)
	if err != nil {
		logger.WarnContext(ctx, "query rejected", "error", err)
		return nil, &QueryError{QueryID: queryID, Err: err}
	}
	defer release()

	s.deps.Ledger.Register(ledger.Query{ID: queryID, Text: text, ReceivedAt: receivedAt})

	settings := s.deps.Settings.Snapshot()
	resp := &QueryResponse{QueryID: queryID, QueryText: text, ReceivedAt: receivedAt}

	cacheKey := s.cacheKey(settings, collection, limit, text)
	if entry, ok := s.cacheGet(ctx, cacheKey); ok {
		resp.ResponseText = entry.ResponseText
		resp.Documents = entry.Documents
		resp.Cached = true
		s.finish(ctx, resp, storage.DetailPatch{LLMModel: &entry.Model})
		return resp, nil
	}

	docs, vdbLatency, err := s.retrieve(ctx, text, collection, limit)
	if err != nil {
		s.fail(ctx, queryID, "vdb", err)
		return nil, &QueryError{QueryID: queryID, Err: err}
	}
	vdbName := s.opts.VectorStoreName
	s.deps.Ledger.UpdateDetail(storage.DetailPatch{
		QueryID:    queryID,
		Status:     storage.StatusVDBDone,
		VDBName:    &vdbName,
		VDBIndex:   &collection,
		VDBLatency: &vdbLatency,
	})

	docs, rnkLatency, err := metrics.Measure(func() ([]rag.Document, error) {
		return s.deps.Reranker.Rerank(ctx, text, docs)
	})
	if err != nil {
		s.fail(ctx, queryID, "rnk", err)
		return nil, &QueryError{QueryID: queryID, Err: err}
	}

	answer, llmLatency, err := s.deps.Answerer.Answer(ctx, text, docs, settings)
	if err != nil {
		s.fail(ctx, queryID, "llm", err)
		return nil, &QueryError{QueryID: queryID, Err: err}
	}

	resp.ResponseText = answer
	resp.VDBLatency = vdbLatency
	resp.LLMLatency = llmLatency
	resp.Documents = len(docs)

	rnkModel := s.deps.Reranker.Name()
	s.finish(ctx, resp, storage.DetailPatch{
		LLMModel:   &settings.Model,
		LLMLatency: &llmLatency,
		RnkModel:   &rnkModel,
		RnkLatency: &rnkLatency,
	})

	if s.deps.Cache != nil {
		entry := cache.Entry{
			ResponseText: answer,
			Model:        settings.Model,
			Collection:   collection,
			Documents:    len(docs),
			CreatedAt:    resp.RespondedAt,
		}
		if err := s.deps.Cache.Set(ctx, cacheKey, entry); err != nil {
			logger.WarnContext(ctx, "failed to cache answer", "error", err)
		}
	}

	return resp, nil
}

// Retrieve runs only the retrieval stage, with the same defaults, retries and
// admission limit as Query. Nothing is recorded in the ledger.
func (s *QueryService) Retrieve(ctx context.Context, req QueryRequest) ([]rag.Document, time.Duration, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, 0, &ValidationError{Field: "query_text", Message: "cannot be empty"}
	}
	collection, limit, err := s.normalize(req.Collection, req.Limit)
	if err != nil {
		return nil, 0, err
	}

	release, err := s.admit(ctx)
	if err != nil {
		contextutil.LoggerFromContext(ctx).WarnContext(ctx, "retrieval rejected", "error", err)
		return nil, 0, err
	}
	defer release()

	return s.retrieve(ctx, text, collection, limit)
}

// GetQuery returns what the ledger knows about a query.
func (s *QueryService) GetQuery(ctx context.Context, queryID uuid.UUID) (*QueryRecord, error) {
	status, err := s.deps.Store.GetStatus(ctx, queryID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, WrapError(err, "failed to load query status")
	}
	detail, err := s.deps.Store.GetDetail(ctx, queryID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, WrapError(err, "failed to load query detail")
	}
	if status == nil && detail == nil {
		return nil, ErrNotFound
	}
	return &QueryRecord{Status: status, Detail: detail}, nil
}

func (s *QueryService) normalize(collection string, limit int) (string, int, error) {
	collection = strings.TrimSpace(collection)
	if collection == "" {
		collection = s.opts.DefaultCollection
	}
	if collection == "" {
		return "", 0, &ValidationError{Field: "collection_name", Message: "cannot be empty"}
	}
	if limit < 0 {
		return "", 0, &ValidationError{Field: "limit", Message: "must not be negative"}
	}
	if limit == 0 {
		limit = s.opts.DefaultLimit
	}
	return collection, limit, nil
}

func (s *QueryService) admit(ctx context.Context) (func(), error) {
	if s.sem == nil {
		return func() {}, nil
	}
	if s.opts.AdmissionWait <= 0 {
		if !s.sem.TryAcquire(1) {
			return nil, ErrOverloaded
		}
		return func() { s.sem.Release(1) }, nil
	}

	waitCtx, cancel := context.WithTimeout(ctx, s.opts.AdmissionWait)
	defer cancel()
	if err := s.sem.Acquire(waitCtx, 1); err != nil {
		return nil, ErrOverloaded
	}
	return func() { s.sem.Release(1) }, nil
}

// retrieve measures the whole stage, retries included.
func (s *QueryService) retrieve(ctx context.Context, text, collection string, limit int) ([]rag.Document, time.Duration, error) {
	logger := contextutil.LoggerFromContext(ctx)

	return metrics.Measure(func() ([]rag.Document, error) {
		var docs []rag.Document
		err := s.opts.Retry.Do(ctx, isRetryable, func(attempt int) error {
			attemptCtx := ctx
			if s.opts.AttemptTimeout > 0 {
				var cancel context.CancelFunc
				attemptCtx, cancel = context.WithTimeout(ctx, s.opts.AttemptTimeout)
				defer cancel()
			}

			var err error
			docs, _, err = s.deps.Retriever.Retrieve(attemptCtx, text, collection, limit)
			if err != nil {
				logger.WarnContext(ctx, "retrieval attempt failed",
					"attempt", attempt,
					"collection", collection,
					"retryable", isRetryable(err),
					"error", err,
				)
			}
			return err
		})
		return docs, err
	})
}

func isRetryable(err error) bool {
	var re *rag.RetrievalError
	return errors.As(err, &re) && re.Transient
}

func (s *QueryService) finish(ctx context.Context, resp *QueryResponse, patch storage.DetailPatch) {
	resp.RespondedAt = time.Now()
	resp.TotalLatency = metrics.Since(resp.ReceivedAt)

	patch.QueryID = resp.QueryID
	patch.Status = storage.StatusDone
	patch.StatusAt = resp.RespondedAt
	patch.TotalLatency = &resp.TotalLatency
	patch.Info = map[string]any{
		"response_text": resp.ResponseText,
		"documents":     resp.Documents,
		"cached":        resp.Cached,
	}
	s.deps.Ledger.UpdateDetail(patch)

	contextutil.LoggerFromContext(ctx).InfoContext(ctx, "query answered",
		"cached", resp.Cached,
		"documents", resp.Documents,
		"vdb_latency", resp.VDBLatency,
		"llm_latency", resp.LLMLatency,
		"total_latency", resp.TotalLatency,
	)
}

// fail records a status-only error so no partial stage fields are written.
func (s *QueryService) fail(ctx context.Context, queryID uuid.UUID, stage string, err error) {
	contextutil.LoggerFromContext(ctx).ErrorContext(ctx, "query failed", "stage", stage, "error", err)
	s.deps.Ledger.UpdateDetail(storage.DetailPatch{
		QueryID: queryID,
		Status:  storage.StatusError,
		Info: map[string]any{
			"error": err.Error(),
			"stage": stage,
		},
	})
}

func (s *QueryService) cacheKey(settings rag.Settings, collection string, limit int, text string) string {
	if s.deps.Cache == nil {
		return ""
	}
	template := ""
	if settings.Template != nil {
		template = settings.Template.String()
	}
	return cache.Key(
		settings.Model,
		template,
		s.deps.Reranker.Name(),
		collection,
		strconv.Itoa(limit),
		cache.NormalizeQuery(text),
	)
}

func (s *QueryService) cacheGet(ctx context.Context, key string) (cache.Entry, bool) {
	if s.deps.Cache == nil {
		return cache.Entry{}, false
	}
	entry, ok, err := s.deps.Cache.Get(ctx, key)
	if err != nil {
		contextutil.LoggerFromContext(ctx).WarnContext(ctx, "cache lookup failed", "error", err)
		return cache.Entry{}, false
	}
	return entry, ok
}
