package vectorstore

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_vector_store.go -package=mocks cat-backend/internal/vectorstore VectorStore

import "context"

// SearchResult represents a search result from vector search.
type SearchResult struct {
	PointID string
	Score   float32
	Meta    map[string]any
}

// CollectionInfo contains information about a collection.
type CollectionInfo struct {
	Name        string `json:"name"`
	VectorSize  int    `json:"vector_size"`
	Distance    string `json:"distance"`
	PointsCount int    `json:"points_count"`
	Status      string `json:"status"`
}

// VectorStore defines the interface for vector storage operations.
type VectorStore interface {
	// NearText returns the points nearest to text, embedded by the store itself.
	NearText(ctx context.Context, collection, text string, limit int) ([]SearchResult, error)

	// ListCollections returns the names of all collections.
	ListCollections(ctx context.Context) ([]string, error)

	// GetCollectionInfo describes a collection.
	GetCollectionInfo(ctx context.Context, collection string) (*CollectionInfo, error)

	// CountPoints returns the exact number of points in a collection.
	CountPoints(ctx context.Context, collection string) (uint64, error)

	// EnsureCollection creates the collection if missing and reports whether it did.
	EnsureCollection(ctx context.Context, collection string, vectorSize int, distance Distance) (bool, error)

	// DeleteCollection drops a collection.
	DeleteCollection(ctx context.Context, collection string) error

	// HealthCheck verifies the store is reachable.
	HealthCheck(ctx context.Context) error
}
