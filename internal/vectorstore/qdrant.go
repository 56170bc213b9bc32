package vectorstore

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/qdrant/go-client/qdrant"

	"cat-backend/internal/contextutil"
)

// QdrantOptions configures a QdrantStore.
type QdrantOptions struct {
	// APIKey is sent with every request when set.
	APIKey string
	// InferenceModel is the model Qdrant uses to embed query text.
	InferenceModel string
	// VectorName selects a named vector; empty uses the default vector.
	VectorName string
}

// QdrantStore implements VectorStore using Qdrant.
type QdrantStore struct {
	client *qdrant.Client
	opts   QdrantOptions
}

// NewQdrantStore creates a new Qdrant vector store client.
// urlStr should be in the format "http://host:port" (e.g., "http://localhost:6333").
// The gRPC port (typically 6334) will be derived from the HTTP port.
func NewQdrantStore(urlStr string, opts QdrantOptions) (*QdrantStore, error) {
	host, port, useTLS, err := parseEndpoint(urlStr)
	if err != nil {
		return nil, err
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: opts.APIKey,
		UseTLS: useTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Qdrant client: %w", err)
	}

	return &QdrantStore{
		client: client,
		opts:   opts,
	}, nil
}

// parseEndpoint derives the gRPC host and port from Qdrant's HTTP URL.
func parseEndpoint(urlStr string) (string, int, bool, error) {
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return "", 0, false, fmt.Errorf("invalid Qdrant URL: %w", err)
	}

	host := parsedURL.Hostname()
	if host == "" {
		host = "localhost"
	}

	port := 6334 // Default gRPC port
	if parsedURL.Port() != "" {
		httpPort, err := strconv.Atoi(parsedURL.Port())
		if err == nil {
			// gRPC port is typically HTTP port + 1
			port = httpPort + 1
		}
	}

	return host, port, parsedURL.Scheme == "https", nil
}

// Close releases the underlying gRPC connection.
func (s *QdrantStore) Close() error {
	return s.client.Close()
}

// NearText queries with a text document that Qdrant embeds server-side.
func (s *QdrantStore) NearText(ctx context.Context, collection, text string, limit int) ([]SearchResult, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than 0")
	}

	n := uint64(limit)
	queryReq := &qdrant.QueryPoints{
		CollectionName: collection,
		Query: qdrant.NewQueryNearest(qdrant.NewVectorInputDocument(&qdrant.Document{
			Text:  text,
			Model: s.opts.InferenceModel,
		})),
		Limit:       &n,
		WithPayload: qdrant.NewWithPayload(true),
	}
	if s.opts.VectorName != "" {
		queryReq.Using = qdrant.PtrOf(s.opts.VectorName)
	}

	scoredPoints, err := s.client.Query(ctx, queryReq)
	if err != nil {
		logger.ErrorContext(ctx, "failed to query points", "collection", collection, "limit", limit, "error", err)
		return nil, fmt.Errorf("failed to query points: %w", classify(err))
	}

	results := make([]SearchResult, 0, len(scoredPoints))
	for _, result := range scoredPoints {
		meta := make(map[string]any)
		if result.Payload != nil {
			meta = convertPayloadToMap(result.Payload)
		}

		results = append(results, SearchResult{
			PointID: pointID(result.Id),
			Score:   result.Score,
			Meta:    meta,
		})
	}

	logger.DebugContext(ctx, "query completed", "collection", collection, "limit", limit, "results", len(results))
	return results, nil
}

// ListCollections returns the names of all collections.
func (s *QdrantStore) ListCollections(ctx context.Context) ([]string, error) {
	names, err := s.client.ListCollections(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}
	return names, nil
}

// CountPoints returns the exact number of points in a collection.
func (s *QdrantStore) CountPoints(ctx context.Context, collection string) (uint64, error) {
	count, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: collection,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count points: %w", classify(err))
	}
	return count, nil
}

// DeleteCollection drops a collection.
func (s *QdrantStore) DeleteCollection(ctx context.Context, collection string) error {
	logger := contextutil.LoggerFromContext(ctx)

	exists, err := s.client.CollectionExists(ctx, collection)
	if err != nil {
		return fmt.Errorf("failed to check collection existence: %w", err)
	}
	if !exists {
		return fmt.Errorf("%w: %s", ErrCollectionNotFound, collection)
	}

	if err := s.client.DeleteCollection(ctx, collection); err != nil {
		logger.ErrorContext(ctx, "failed to delete collection", "collection", collection, "error", err)
		return fmt.Errorf("failed to delete collection: %w", classify(err))
	}

	logger.InfoContext(ctx, "collection deleted", "collection", collection)
	return nil
}

// HealthCheck verifies the Qdrant server answers.
func (s *QdrantStore) HealthCheck(ctx context.Context) error {
	if _, err := s.client.HealthCheck(ctx); err != nil {
		return fmt.Errorf("qdrant health check failed: %w", err)
	}
	return nil
}

// EnsureCollection ensures a collection exists with the specified vector size.
// If the collection exists, validates that the vector size matches.
// If it doesn't exist, creates it with the specified vector size and distance.
func (s *QdrantStore) EnsureCollection(ctx context.Context, collection string, vectorSize int, distance Distance) (bool, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if vectorSize <= 0 {
		return false, fmt.Errorf("vector size must be greater than 0")
	}
	qdrantDistance, err := toQdrantDistance(distance)
	if err != nil {
		return false, err
	}

	exists, err := s.client.CollectionExists(ctx, collection)
	if err != nil {
		return false, fmt.Errorf("failed to check collection existence: %w", err)
	}

	if !exists {
		logger.InfoContext(ctx, "creating collection", "collection", collection, "vector_size", vectorSize, "distance", distance)
		params := &qdrant.VectorParams{
			Size:     uint64(vectorSize),
			Distance: qdrantDistance,
		}
		vectors := qdrant.NewVectorsConfig(params)
		if s.opts.VectorName != "" {
			vectors = qdrant.NewVectorsConfigMap(map[string]*qdrant.VectorParams{s.opts.VectorName: params})
		}
		err := s.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: collection,
			VectorsConfig:  vectors,
		})
		if err != nil {
			return false, fmt.Errorf("failed to create collection: %w", err)
		}
		logger.InfoContext(ctx, "collection created", "collection", collection, "vector_size", vectorSize)
		return true, nil
	}

	info, err := s.GetCollectionInfo(ctx, collection)
	if err != nil {
		return false, err
	}
	if info.VectorSize == 0 {
		return false, fmt.Errorf("could not determine collection vector size")
	}
	if info.VectorSize != vectorSize {
		return false, fmt.Errorf("%w: expected %d, got %d", ErrVectorSizeMismatch, vectorSize, info.VectorSize)
	}

	logger.InfoContext(ctx, "collection validated", "collection", collection, "vector_size", vectorSize)
	return false, nil
}

// GetCollectionInfo returns information about a collection including point count.
func (s *QdrantStore) GetCollectionInfo(ctx context.Context, collection string) (*CollectionInfo, error) {
	info, err := s.client.GetCollectionInfo(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("failed to get collection info: %w", classify(err))
	}

	result := &CollectionInfo{
		Name:   collection,
		Status: "unknown",
	}

	if params := s.vectorParams(info); params != nil {
		result.VectorSize = int(params.Size)
		result.Distance = fromQdrantDistance(params.Distance)
	}

	// PointsCount is a pointer to uint64
	if info.PointsCount != nil {
		result.PointsCount = int(*info.PointsCount)
	}

	// Status is an enum, not a pointer
	if info.Status != 0 {
		result.Status = info.Status.String()
	}

	return result, nil
}

// vectorParams returns the parameters of the configured vector, named or default.
func (s *QdrantStore) vectorParams(info *qdrant.CollectionInfo) *qdrant.VectorParams {
	config := info.GetConfig()
	if config == nil || config.Params == nil {
		return nil
	}
	vectorsConfig := config.Params.GetVectorsConfig()
	if vectorsConfig == nil {
		return nil
	}
	if s.opts.VectorName != "" {
		if m := vectorsConfig.GetParamsMap(); m != nil {
			return m.GetMap()[s.opts.VectorName]
		}
	}
	return vectorsConfig.GetParams()
}

func toQdrantDistance(d Distance) (qdrant.Distance, error) {
	switch d {
	case DistanceCosine, "":
		return qdrant.Distance_Cosine, nil
	case DistanceDot:
		return qdrant.Distance_Dot, nil
	case DistanceEuclid:
		return qdrant.Distance_Euclid, nil
	case DistanceManhattan:
		return qdrant.Distance_Manhattan, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidDistance, d)
	}
}

func fromQdrantDistance(d qdrant.Distance) string {
	switch d {
	case qdrant.Distance_Cosine:
		return string(DistanceCosine)
	case qdrant.Distance_Dot:
		return string(DistanceDot)
	case qdrant.Distance_Euclid:
		return string(DistanceEuclid)
	case qdrant.Distance_Manhattan:
		return string(DistanceManhattan)
	default:
		return "unknown"
	}
}

func pointID(id *qdrant.PointId) string {
	if id == nil {
		return ""
	}
	if u := id.GetUuid(); u != "" {
		return u
	}
	return strconv.FormatUint(id.GetNum(), 10)
}

// convertPayloadToMap converts Qdrant payload to map[string]any.
func convertPayloadToMap(payload map[string]*qdrant.Value) map[string]any {
	result := make(map[string]any, len(payload))
	for k, v := range payload {
		if v == nil {
			continue
		}
		result[k] = convertValue(v)
	}
	return result
}

// convertValue converts a Qdrant Value to Go any type.
func convertValue(v *qdrant.Value) any {
	switch val := v.Kind.(type) {
	case *qdrant.Value_BoolValue:
		return val.BoolValue
	case *qdrant.Value_IntegerValue:
		return val.IntegerValue
	case *qdrant.Value_DoubleValue:
		return val.DoubleValue
	case *qdrant.Value_StringValue:
		return val.StringValue
	case *qdrant.Value_ListValue:
		list := make([]any, len(val.ListValue.Values))
		for i, item := range val.ListValue.Values {
			list[i] = convertValue(item)
		}
		return list
	case *qdrant.Value_StructValue:
		return convertPayloadToMap(val.StructValue.Fields)
	default:
		return nil
	}
}
