package vectorstore

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_vector_store.go -package=mocks pmcbot/internal/vectorstore VectorStore

import "context"

// Point is one indexed record: its embedding and the filtered record metadata.
type Point struct {
	ID   string
	Vec  []float32
	Meta map[string]any
}

// SearchResult is one similarity hit. Meta is the payload stored with the point.
type SearchResult struct {
	PointID string
	Score   float32
	Meta    map[string]any
}

// VectorStore indexes record embeddings. QdrantStore serves production and
// ChromemStore runs in process.
type VectorStore interface {
	// EnsureCollection creates the collection if missing and checks its vector size.
	EnsureCollection(ctx context.Context, collection string, vectorSize int) error
	// CollectionExists reports whether the collection is reachable and present.
	CollectionExists(ctx context.Context, collection string) (bool, error)

	// Upsert replaces points with the same ID.
	Upsert(ctx context.Context, collection string, points []Point) error
	// Delete removes points by ID. Unknown IDs are ignored.
	Delete(ctx context.Context, collection string, ids []string) error

	// Search returns up to k points, most similar first. filters are exact
	// matches on payload fields and may be nil.
	Search(ctx context.Context, collection string, query []float32, k int, filters map[string]any) ([]SearchResult, error)
}
