package indexer

import (
	"strings"
	"unicode/utf8"
)

const (
	// ChunkerVersion identifies the splitting logic. Update this when it changes.
	ChunkerVersion = "v2.0"

	// maxEmbedRunes is the longest embed text sent as a single chunk.
	maxEmbedRunes = 30000
	chunkSize     = 2000
	chunkOverlap  = 200
)

// splitSeparators are tried in order: paragraph, line, sentence, word.
var splitSeparators = []string{"\n\n", "\n", ". ", "! ", "? ", " "}

// TextSplitter cuts long embed texts into overlapping pieces, preferring
// paragraph boundaries, then lines, then sentences, then words. Sizes are
// measured in runes.
type TextSplitter struct {
	MaxRunes int // texts up to this length stay whole
	Size     int
	Overlap  int
}

// NewTextSplitter returns the splitter used for record ingestion.
func NewTextSplitter() *TextSplitter {
	return &TextSplitter{MaxRunes: maxEmbedRunes, Size: chunkSize, Overlap: chunkOverlap}
}

// Split returns text unchanged when it fits, otherwise the pieces in order.
func (s *TextSplitter) Split(text string) []string {
	if utf8.RuneCountInString(text) <= s.MaxRunes {
		return []string{text}
	}

	runes := []rune(text)
	var pieces []string
	start := 0
	for start < len(runes) {
		end := start + s.Size
		if end >= len(runes) {
			pieces = append(pieces, strings.TrimSpace(string(runes[start:])))
			break
		}

		cut := end
		window := string(runes[start:end])
		for _, sep := range splitSeparators {
			if idx := strings.LastIndex(window, sep); idx > len(window)/2 {
				// convert the byte offset back to runes
				cut = start + utf8.RuneCountInString(window[:idx]) + utf8.RuneCountInString(sep)
				break
			}
		}

		pieces = append(pieces, strings.TrimSpace(string(runes[start:cut])))

		next := cut - s.Overlap
		if next <= start {
			next = cut
		}
		start = next
	}

	out := pieces[:0]
	for _, p := range pieces {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
