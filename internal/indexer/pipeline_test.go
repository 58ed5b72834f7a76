package indexer

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"go.uber.org/mock/gomock"

	"pmcbot/internal/indexer/mocks"
	"pmcbot/internal/storage"
	"pmcbot/internal/vectorstore"
	vectorstore_mocks "pmcbot/internal/vectorstore/mocks"
)

type countingEmbedder struct {
	mu      sync.Mutex
	calls   int
	batches []int
}

func (e *countingEmbedder) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	e.batches = append(e.batches, len(texts))
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = []float32{float32(len(text)%7) + 1, 1, float32(i + 1), 0.5}
	}
	return out, nil
}

func jsonl(lines ...string) string {
	return strings.Join(lines, "\n") + "\n"
}

func sampleRecords(n int) []string {
	lines := make([]string, n)
	for i := range lines {
		lines[i] = fmt.Sprintf(`{"id":"rec-%d","title":"Circular %d on water supply","description":"Schedule for ward %d","record_type":"circular","lang":"en","raw_html":"<p>x</p>"}`, i, i, i)
	}
	return lines
}

func TestPipeline_Ingest(t *testing.T) {
	ctx := context.Background()

	store, err := vectorstore.NewChromemStore("", false)
	if err != nil {
		t.Fatalf("NewChromemStore() error = %v", err)
	}
	db, err := storage.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("storage.New() error = %v", err)
	}
	defer func() {
		_ = db.Close()
	}()
	if err := storage.Migrate(db); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	ingestRepo := storage.NewIngestRepo(db)

	embedder := &countingEmbedder{}
	pipeline := NewPipeline(embedder, store, ingestRepo, "pmc", 4, "test-model")

	lines := append(sampleRecords(12),
		`{not json`,
		`{"title":"record without id"}`,
		`{"id":"tiny","title":"x"}`,
		``,
		`{"id":"mr-1","title":"बंड गार्डन","description":"पुण्यातील उद्यान","record_type":"garden","lang":"mr"}`,
	)

	stats, err := pipeline.Ingest(ctx, strings.NewReader(jsonl(lines...)))
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}

	if stats.RecordsRead != 16 {
		t.Errorf("RecordsRead = %d, want 16", stats.RecordsRead)
	}
	if stats.RecordsEmbedded != 13 {
		t.Errorf("RecordsEmbedded = %d, want 13", stats.RecordsEmbedded)
	}
	if stats.RecordsFailed != 2 {
		t.Errorf("RecordsFailed = %d, want 2", stats.RecordsFailed)
	}
	if stats.RecordsEmpty != 1 {
		t.Errorf("RecordsEmpty = %d, want 1", stats.RecordsEmpty)
	}
	if stats.ByType["circular"] != 12 || stats.ByLang["mr"] != 1 {
		t.Errorf("breakdown = %v / %v", stats.ByType, stats.ByLang)
	}
	if stats.ChunkTokenStats.Max == 0 || stats.IndexVersion == "" {
		t.Errorf("token stats not computed: %+v", stats)
	}
	if len(embedder.batches) != 2 || embedder.batches[0] != 10 || embedder.batches[1] != 3 {
		t.Errorf("embedding batches = %v, want [10 3]", embedder.batches)
	}
	if got := store.Count("pmc"); got != 13 {
		t.Errorf("store Count() = %d, want 13", got)
	}

	results, err := store.Search(ctx, "pmc", []float32{1, 1, 1, 0.5}, 1, map[string]any{"id": "mr-1"})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 1 || results[0].PointID != PointID("mr-1") {
		t.Fatalf("Search() = %+v", results)
	}
	if _, ok := results[0].Meta["raw_html"]; ok {
		t.Error("non-essential fields should not be stored")
	}
	if results[0].Meta["embedding_model"] != "test-model" {
		t.Errorf("payload = %v", results[0].Meta)
	}

	// second run: nothing changed
	again, err := pipeline.Ingest(ctx, strings.NewReader(jsonl(lines...)))
	if err != nil {
		t.Fatalf("second Ingest() error = %v", err)
	}
	if again.RecordsUnchanged != 13 || again.RecordsEmbedded != 0 {
		t.Errorf("second run = %+v, want all unchanged", again)
	}
	if embedder.calls != 2 {
		t.Errorf("embedder called %d times, want no new calls", embedder.calls)
	}

	// a changed record is re-embedded under the same point id
	changed := strings.Replace(lines[0], "water supply", "property tax", 1)
	third, err := pipeline.Ingest(ctx, strings.NewReader(jsonl(changed)))
	if err != nil {
		t.Fatalf("third Ingest() error = %v", err)
	}
	if third.RecordsEmbedded != 1 {
		t.Errorf("changed record not re-embedded: %+v", third)
	}
	if got := store.Count("pmc"); got != 13 {
		t.Errorf("store Count() after update = %d, want 13", got)
	}
}

func TestPipeline_EmbedFailureCountsBatch(t *testing.T) {
	ctrl := gomock.NewController(t)
	embedder := mocks.NewMockEmbedder(ctrl)
	store := vectorstore_mocks.NewMockVectorStore(ctrl)

	store.EXPECT().EnsureCollection(gomock.Any(), "pmc", 4).Return(nil)
	embedder.EXPECT().EmbedTexts(gomock.Any(), gomock.Len(3)).Return(nil, errors.New("rate limited"))

	pipeline := NewPipeline(embedder, store, nil, "pmc", 4, "test-model")
	stats, err := pipeline.Ingest(context.Background(), strings.NewReader(jsonl(sampleRecords(3)...)))
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if stats.RecordsFailed != 3 || stats.RecordsEmbedded != 0 {
		t.Errorf("stats = %+v, want 3 failed", stats)
	}
}

func TestPipeline_UpsertFailureCountsBatch(t *testing.T) {
	ctrl := gomock.NewController(t)
	embedder := mocks.NewMockEmbedder(ctrl)
	store := vectorstore_mocks.NewMockVectorStore(ctrl)

	store.EXPECT().EnsureCollection(gomock.Any(), "pmc", 2).Return(nil)
	embedder.EXPECT().EmbedTexts(gomock.Any(), gomock.Any()).Return([][]float32{{1, 0}, {0, 1}}, nil)
	store.EXPECT().Upsert(gomock.Any(), "pmc", gomock.Len(2)).Return(errors.New("qdrant unavailable"))

	pipeline := NewPipeline(embedder, store, nil, "pmc", 2, "test-model")
	stats, err := pipeline.Ingest(context.Background(), strings.NewReader(jsonl(sampleRecords(2)...)))
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if stats.RecordsFailed != 2 {
		t.Errorf("RecordsFailed = %d, want 2", stats.RecordsFailed)
	}
}

func TestPipeline_EnsureCollectionError(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := vectorstore_mocks.NewMockVectorStore(ctrl)
	store.EXPECT().EnsureCollection(gomock.Any(), "pmc", 4).Return(errors.New("size mismatch"))

	pipeline := NewPipeline(mocks.NewMockEmbedder(ctrl), store, nil, "pmc", 4, "test-model")
	if _, err := pipeline.Ingest(context.Background(), strings.NewReader("")); err == nil {
		t.Error("Ingest() should fail when the collection cannot be ensured")
	}
}

func TestPipeline_IngestFileMissing(t *testing.T) {
	pipeline := NewPipeline(&countingEmbedder{}, nil, nil, "pmc", 4, "test-model")
	if _, err := pipeline.IngestFile(context.Background(), filepath.Join(t.TempDir(), "missing.jsonl")); err == nil {
		t.Error("IngestFile() should fail for a missing file")
	}
}

func TestPointID_Stable(t *testing.T) {
	a := PointID("rec-1")
	if a != PointID("rec-1") {
		t.Error("PointID() should be deterministic")
	}
	if a == PointID("rec-1_chunk1") {
		t.Error("chunk ids should map to distinct points")
	}
	if len(a) != 36 {
		t.Errorf("PointID() = %q, want a UUID", a)
	}
}
