package indexer

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"sort"
	"unicode/utf8"
)

// TokensPerRune is an approximation for token counting (4 chars per token).
const TokensPerRune = 4.0

// IngestStats summarizes one ingest run.
type IngestStats struct {
	// RecordsRead is the number of non-blank lines read.
	RecordsRead int `json:"records_read"`
	// RecordsEmbedded is the number of records embedded and stored.
	RecordsEmbedded int `json:"records_embedded"`
	// RecordsUnchanged is the number of records skipped because their content hash matched.
	RecordsUnchanged int `json:"records_unchanged"`
	// RecordsEmpty is the number of records skipped for having no meaningful text.
	RecordsEmpty int `json:"records_empty"`
	// RecordsFailed is the number of records that could not be parsed, embedded or stored.
	RecordsFailed int `json:"records_failed"`
	// ChunksEmbedded is the number of points written.
	ChunksEmbedded int `json:"chunks_embedded"`
	// ByType and ByLang break embedded records down by record_type and lang.
	ByType map[string]int `json:"by_type"`
	ByLang map[string]int `json:"by_lang"`
	// ChunkTokenStats contains statistics about estimated token counts per chunk.
	ChunkTokenStats ChunkTokenStats `json:"chunk_token_stats"`
	// ChunkerVersion is the version of the splitter used.
	ChunkerVersion string `json:"chunker_version"`
	// IndexVersion is a hash identifying the index build (splitter + embedding model + params).
	IndexVersion string `json:"index_version"`

	tokenCounts []int
}

// ChunkTokenStats contains statistics about token counts in chunks.
type ChunkTokenStats struct {
	// Min is the minimum token count across all chunks.
	Min int `json:"min"`
	// Max is the maximum token count across all chunks.
	Max int `json:"max"`
	// Mean is the mean token count across all chunks.
	Mean float64 `json:"mean"`
	// P95 is the 95th percentile token count.
	P95 int `json:"p95"`
}

func newIngestStats(embeddingModel string) *IngestStats {
	return &IngestStats{
		ByType:         make(map[string]int),
		ByLang:         make(map[string]int),
		ChunkerVersion: ChunkerVersion,
		IndexVersion:   indexVersion(embeddingModel),
	}
}

func (s *IngestStats) addEmbedded(rec Record, chunks []Chunk) {
	s.RecordsEmbedded++
	s.ChunksEmbedded += len(chunks)
	s.ByType[rec.Type()]++
	s.ByLang[rec.Lang()]++
	for _, c := range chunks {
		s.tokenCounts = append(s.tokenCounts, estimateTokens(c.Text))
	}
}

func (s *IngestStats) finish() {
	s.ChunkTokenStats = computeTokenStats(s.tokenCounts)
}

// estimateTokens estimates tokens from rune count (approximation: ~4 chars per token).
func estimateTokens(text string) int {
	n := int(math.Round(float64(utf8.RuneCountInString(text)) / TokensPerRune))
	if n < 1 {
		n = 1
	}
	return n
}

// indexVersion hashes the splitter version, embedding model and split parameters.
func indexVersion(embeddingModel string) string {
	input := fmt.Sprintf("%s|%s|maxEmbedRunes=%d|chunkSize=%d|chunkOverlap=%d",
		ChunkerVersion, embeddingModel, maxEmbedRunes, chunkSize, chunkOverlap)
	hash := sha256.Sum256([]byte(input))
	return hex.EncodeToString(hash[:])[:16] // 16 hex chars = 64 bits
}

// computeTokenStats computes min, max, mean, and p95 from token counts.
func computeTokenStats(tokenCounts []int) ChunkTokenStats {
	if len(tokenCounts) == 0 {
		return ChunkTokenStats{}
	}

	sorted := make([]int, len(tokenCounts))
	copy(sorted, tokenCounts)
	sort.Ints(sorted)

	sum := 0
	for _, count := range tokenCounts {
		sum += count
	}
	mean := float64(sum) / float64(len(tokenCounts))

	p95Index := int(math.Ceil(float64(len(sorted)) * 0.95))
	if p95Index >= len(sorted) {
		p95Index = len(sorted) - 1
	}

	return ChunkTokenStats{
		Min:  sorted[0],
		Max:  sorted[len(sorted)-1],
		Mean: math.Round(mean*100) / 100, // Round to 2 decimal places
		P95:  sorted[p95Index],
	}
}
