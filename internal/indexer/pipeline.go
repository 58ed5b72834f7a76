package indexer

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_embedder.go -package=mocks pmcbot/internal/indexer Embedder

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"

	"pmcbot/internal/contextutil"
	"pmcbot/internal/storage"
	"pmcbot/internal/vectorstore"
)

const (
	defaultBatchSize = 10
	minEmbedRunes    = 10
	maxLineBytes     = 8 << 20
)

// pointNamespace derives stable point ids from record ids.
var pointNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("pmcbot/records"))

// Embedder embeds a batch of texts, one vector per text in input order.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Pipeline ingests normalized JSONL records into the vector store.
type Pipeline struct {
	embedder       Embedder
	vectorStore    vectorstore.VectorStore
	ingestRepo     storage.IngestStore
	collection     string
	vectorSize     int
	embeddingModel string
	batchSize      int
	splitter       *TextSplitter
}

// NewPipeline creates a new ingest pipeline. ingestRepo may be nil, in which
// case every record is re-embedded on each run.
func NewPipeline(
	embedder Embedder,
	vectorStore vectorstore.VectorStore,
	ingestRepo storage.IngestStore,
	collection string,
	vectorSize int,
	embeddingModel string,
) *Pipeline {
	return &Pipeline{
		embedder:       embedder,
		vectorStore:    vectorStore,
		ingestRepo:     ingestRepo,
		collection:     collection,
		vectorSize:     vectorSize,
		embeddingModel: embeddingModel,
		batchSize:      defaultBatchSize,
		splitter:       NewTextSplitter(),
	}
}

// pending is a record prepared for embedding.
type pending struct {
	record Record
	id     string
	hash   string
	chunks []Chunk
	meta   []map[string]any
}

// IngestFile ingests every record in a JSONL file.
func (p *Pipeline) IngestFile(ctx context.Context, path string) (*IngestStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() {
		_ = f.Close()
	}()

	return p.Ingest(ctx, f)
}

// Ingest reads JSONL records from r. Failures of individual records are
// logged and counted; only read errors, cancellation and collection setup
// abort the run.
func (p *Pipeline) Ingest(ctx context.Context, r io.Reader) (*IngestStats, error) {
	logger := contextutil.LoggerFromContext(ctx)
	stats := newIngestStats(p.embeddingModel)

	if err := p.vectorStore.EnsureCollection(ctx, p.collection, p.vectorSize); err != nil {
		return nil, fmt.Errorf("failed to ensure collection: %w", err)
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var batch []*pending
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		default:
		}

		stats.RecordsRead++
		item, err := p.prepare(ctx, line)
		if err != nil {
			stats.RecordsFailed++
			logger.WarnContext(ctx, "skipping record", "line", lineNo, "error", err)
			continue
		}
		switch {
		case item == nil:
			stats.RecordsEmpty++
			continue
		case item.chunks == nil:
			stats.RecordsUnchanged++
			logger.DebugContext(ctx, "skipping unchanged record", "id", item.id)
			continue
		}

		batch = append(batch, item)
		if len(batch) >= p.batchSize {
			p.flush(ctx, batch, stats)
			batch = batch[:0]
		}
	}
	if err := scanner.Err(); err != nil {
		return stats, fmt.Errorf("failed to read records: %w", err)
	}
	if len(batch) > 0 {
		p.flush(ctx, batch, stats)
	}

	stats.finish()
	logger.InfoContext(ctx, "ingest completed",
		"collection", p.collection,
		"read", stats.RecordsRead,
		"embedded", stats.RecordsEmbedded,
		"unchanged", stats.RecordsUnchanged,
		"empty", stats.RecordsEmpty,
		"failed", stats.RecordsFailed,
		"chunks", stats.ChunksEmbedded,
	)
	return stats, nil
}

// prepare parses a line and builds its chunks. It returns nil for records
// without meaningful text and a pending with nil chunks for unchanged records.
func (p *Pipeline) prepare(ctx context.Context, line string) (*pending, error) {
	var rec Record
	if err := json.Unmarshal([]byte(line), &rec); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	id := rec.ID()
	if id == "" {
		return nil, errors.New("record has no id")
	}

	text := EmbedText(rec)
	if len([]rune(strings.TrimSpace(text))) < minEmbedRunes {
		return nil, nil
	}

	hash := contentHash(text, rec)
	item := &pending{record: rec, id: id, hash: hash}

	if p.ingestRepo != nil {
		prev, err := p.ingestRepo.Get(ctx, id)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("failed to check ingest record: %w", err)
		}
		if prev != nil && prev.ContentHash == hash && prev.Collection == p.collection {
			return item, nil
		}
	}

	pieces := p.splitter.Split(text)
	item.chunks = make([]Chunk, len(pieces))
	item.meta = make([]map[string]any, len(pieces))
	for i, piece := range pieces {
		chunkID := id
		if len(pieces) > 1 {
			chunkID = fmt.Sprintf("%s_chunk%d", id, i+1)
		}
		item.chunks[i] = Chunk{Index: i + 1, PointID: PointID(chunkID), Text: piece}

		meta := make(map[string]any, len(rec)+3)
		for k, v := range rec {
			meta[k] = v
		}
		meta["id"] = id
		meta["chunk_id"] = i + 1
		meta["total_chunks"] = len(pieces)
		meta["embedding_model"] = p.embeddingModel
		item.meta[i] = FilterMetadata(meta)
	}
	return item, nil
}

// flush embeds and stores a batch. A failed embedding or upsert fails every
// record in the batch.
func (p *Pipeline) flush(ctx context.Context, batch []*pending, stats *IngestStats) {
	logger := contextutil.LoggerFromContext(ctx)

	var texts []string
	for _, item := range batch {
		for _, c := range item.chunks {
			texts = append(texts, c.Text)
		}
	}

	vectors, err := p.embedder.EmbedTexts(ctx, texts)
	if err == nil && len(vectors) != len(texts) {
		err = fmt.Errorf("embedding count mismatch: expected %d, got %d", len(texts), len(vectors))
	}
	if err != nil {
		stats.RecordsFailed += len(batch)
		logger.ErrorContext(ctx, "failed to embed batch", "records", len(batch), "error", err)
		return
	}

	points := make([]vectorstore.Point, 0, len(texts))
	v := 0
	for _, item := range batch {
		for i, c := range item.chunks {
			points = append(points, vectorstore.Point{ID: c.PointID, Vec: vectors[v], Meta: item.meta[i]})
			v++
		}
	}

	if err := p.vectorStore.Upsert(ctx, p.collection, points); err != nil {
		stats.RecordsFailed += len(batch)
		logger.ErrorContext(ctx, "failed to upsert batch", "records", len(batch), "error", err)
		return
	}

	for _, item := range batch {
		stats.addEmbedded(item.record, item.chunks)
		if p.ingestRepo == nil {
			continue
		}
		err := p.ingestRepo.Upsert(ctx, &storage.IngestRecord{
			RecordID:    item.id,
			Collection:  p.collection,
			PointID:     item.chunks[0].PointID,
			ContentHash: item.hash,
		})
		if err != nil {
			logger.WarnContext(ctx, "failed to record ingest", "id", item.id, "error", err)
		}
	}
	logger.InfoContext(ctx, "batch stored", "records", len(batch), "points", len(points))
}

// PointID returns the stable vector store id for a record or chunk id.
func PointID(chunkID string) string {
	return uuid.NewSHA1(pointNamespace, []byte(chunkID)).String()
}

// contentHash covers everything that ends up in the index for a record.
func contentHash(text string, rec Record) string {
	h := sha256.New()
	h.Write([]byte(text))
	h.Write([]byte{0})
	payload, _ := json.Marshal(FilterMetadata(rec))
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}
