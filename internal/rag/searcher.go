package rag

import (
	"context"
	"fmt"

	"pmcbot/internal/records"
	"pmcbot/internal/vectorstore"
)

// StoreSearcher adapts a vector store collection to Searcher.
type StoreSearcher struct {
	store      vectorstore.VectorStore
	collection string
	filters    map[string]any
}

// NewStoreSearcher creates a searcher over collection. filters are passed to
// every search and may be nil.
func NewStoreSearcher(store vectorstore.VectorStore, collection string, filters map[string]any) *StoreSearcher {
	return &StoreSearcher{store: store, collection: collection, filters: filters}
}

// Search implements Searcher. Candidate ids come from the "id" payload field
// when present, since point ids are derived from it.
func (s *StoreSearcher) Search(ctx context.Context, vector []float32, topK int) ([]records.Candidate, error) {
	results, err := s.store.Search(ctx, s.collection, vector, topK, s.filters)
	if err != nil {
		return nil, fmt.Errorf("failed to search %s: %w", s.collection, err)
	}

	candidates := make([]records.Candidate, 0, len(results))
	for i, r := range results {
		id := r.PointID
		if recordID, ok := r.Meta["id"].(string); ok && recordID != "" {
			id = recordID
		}
		candidates = append(candidates, records.Candidate{
			ID:       id,
			Score:    r.Score,
			Rank:     i,
			Metadata: r.Meta,
		})
	}
	return candidates, nil
}
