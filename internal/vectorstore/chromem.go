package vectorstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"sync"

	"github.com/philippgille/chromem-go"

	"pmcbot/internal/contextutil"
)

// ChromemStore implements VectorStore with an embedded chromem-go database,
// in memory or persisted to a directory. Vectors are always supplied by the
// caller; the collection's own embedding function is never used.
type ChromemStore struct {
	db *chromem.DB

	mu    sync.Mutex
	sizes map[string]int
}

var _ VectorStore = (*ChromemStore)(nil)

// NewChromemStore opens a store. An empty path keeps everything in memory.
func NewChromemStore(path string, compress bool) (*ChromemStore, error) {
	var db *chromem.DB
	if path == "" {
		db = chromem.NewDB()
	} else {
		var err error
		db, err = chromem.NewPersistentDB(path, compress)
		if err != nil {
			return nil, fmt.Errorf("failed to open chromem database: %w", err)
		}
	}
	return &ChromemStore{db: db, sizes: make(map[string]int)}, nil
}

// noEmbedding guards against chromem embedding text on its own.
func noEmbedding(context.Context, string) ([]float32, error) {
	return nil, errors.New("chromem store requires precomputed embeddings")
}

func (s *ChromemStore) collection(name string) (*chromem.Collection, error) {
	c, err := s.db.GetOrCreateCollection(name, nil, noEmbedding)
	if err != nil {
		return nil, fmt.Errorf("failed to open collection %s: %w", name, err)
	}
	return c, nil
}

func (s *ChromemStore) checkSize(collection string, vec []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if want, ok := s.sizes[collection]; ok && want != len(vec) {
		return fmt.Errorf("vector size mismatch: expected %d, got %d", want, len(vec))
	}
	return nil
}

// EnsureCollection creates the collection and pins its vector size.
func (s *ChromemStore) EnsureCollection(ctx context.Context, collection string, vectorSize int) error {
	if vectorSize <= 0 {
		return fmt.Errorf("vector size must be greater than 0")
	}
	if _, err := s.collection(collection); err != nil {
		return err
	}
	s.mu.Lock()
	s.sizes[collection] = vectorSize
	s.mu.Unlock()
	contextutil.LoggerFromContext(ctx).InfoContext(ctx, "collection validated", "collection", collection, "vector_size", vectorSize)
	return nil
}

// Upsert implements VectorStore. The full payload is kept as JSON document
// content; scalar fields are also stored as chromem metadata for filtering.
func (s *ChromemStore) Upsert(ctx context.Context, collection string, points []Point) error {
	logger := contextutil.LoggerFromContext(ctx)

	if len(points) == 0 {
		return nil
	}

	c, err := s.collection(collection)
	if err != nil {
		return err
	}

	docs := make([]chromem.Document, 0, len(points))
	ids := make([]string, 0, len(points))
	for _, p := range points {
		if err := s.checkSize(collection, p.Vec); err != nil {
			return fmt.Errorf("point %s: %w", p.ID, err)
		}
		content, err := json.Marshal(p.Meta)
		if err != nil {
			return fmt.Errorf("failed to encode payload for point %s: %w", p.ID, err)
		}
		docs = append(docs, chromem.Document{
			ID:        p.ID,
			Metadata:  scalarMetadata(p.Meta),
			Embedding: p.Vec,
			Content:   string(content),
		})
		ids = append(ids, p.ID)
	}

	// drop stale documents first so persisted files are rewritten
	if err := c.Delete(ctx, nil, nil, ids...); err != nil {
		return fmt.Errorf("failed to replace points: %w", err)
	}
	if err := c.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		logger.ErrorContext(ctx, "failed to upsert points", "collection", collection, "count", len(points), "error", err)
		return fmt.Errorf("failed to upsert points: %w", err)
	}

	logger.InfoContext(ctx, "upserted points", "collection", collection, "count", len(points))
	return nil
}

// Search implements VectorStore.
func (s *ChromemStore) Search(ctx context.Context, collection string, query []float32, k int, filters map[string]any) ([]SearchResult, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be greater than 0")
	}
	if err := s.checkSize(collection, query); err != nil {
		return nil, err
	}

	c, err := s.collection(collection)
	if err != nil {
		return nil, err
	}

	where, err := chromemWhere(filters)
	if err != nil {
		return nil, err
	}

	// chromem rejects n larger than the collection
	n := k
	if count := c.Count(); count == 0 {
		return []SearchResult{}, nil
	} else if n > count {
		n = count
	}

	hits, err := c.QueryEmbedding(ctx, query, n, where, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to search points: %w", err)
	}

	results := make([]SearchResult, 0, len(hits))
	for _, h := range hits {
		meta := make(map[string]any)
		if err := json.Unmarshal([]byte(h.Content), &meta); err != nil {
			return nil, fmt.Errorf("failed to decode payload for point %s: %w", h.ID, err)
		}
		results = append(results, SearchResult{
			PointID: h.ID,
			Score:   h.Similarity,
			Meta:    meta,
		})
	}

	contextutil.LoggerFromContext(ctx).DebugContext(ctx, "search completed", "collection", collection, "k", k, "results", len(results))
	return results, nil
}

// Delete implements VectorStore.
func (s *ChromemStore) Delete(ctx context.Context, collection string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	c, err := s.collection(collection)
	if err != nil {
		return err
	}
	if err := c.Delete(ctx, nil, nil, ids...); err != nil {
		return fmt.Errorf("failed to delete points: %w", err)
	}
	contextutil.LoggerFromContext(ctx).InfoContext(ctx, "deleted points", "collection", collection, "count", len(ids))
	return nil
}

// CollectionExists reports whether the collection has been created.
func (s *ChromemStore) CollectionExists(_ context.Context, collection string) (bool, error) {
	return s.db.GetCollection(collection, noEmbedding) != nil, nil
}

// Count returns the number of points in a collection.
func (s *ChromemStore) Count(collection string) int {
	c := s.db.GetCollection(collection, noEmbedding)
	if c == nil {
		return 0
	}
	return c.Count()
}

func scalarMetadata(meta map[string]any) map[string]string {
	out := make(map[string]string, len(meta))
	for k, v := range meta {
		switch val := v.(type) {
		case string:
			out[k] = val
		case bool:
			out[k] = strconv.FormatBool(val)
		case int:
			out[k] = strconv.Itoa(val)
		case int64:
			out[k] = strconv.FormatInt(val, 10)
		case float64:
			out[k] = strconv.FormatFloat(val, 'f', -1, 64)
		}
	}
	return out
}

func chromemWhere(filters map[string]any) (map[string]string, error) {
	if len(filters) == 0 {
		return nil, nil
	}
	where := make(map[string]string, len(filters))
	for k, v := range filters {
		switch val := v.(type) {
		case string:
			where[k] = val
		case bool:
			where[k] = strconv.FormatBool(val)
		case int:
			where[k] = strconv.Itoa(val)
		case int64:
			where[k] = strconv.FormatInt(val, 10)
		default:
			return nil, fmt.Errorf("unsupported filter type for key %s: %T", k, v)
		}
	}
	return where, nil
}
