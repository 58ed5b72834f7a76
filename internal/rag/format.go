package rag

import (
	"fmt"
	"strings"

	"pmcbot/internal/records"
)

const (
	// NoContextSentinel replaces the grounding block when nothing was retrieved.
	NoContextSentinel = "No relevant information found."
	recordSeparator   = "\n---\n"
)

// FormatGrounding renders each record as a labeled block for the generator.
// Empty fields are omitted; the link is the first valid of pdf, external
// link and page url.
func FormatGrounding(recs []records.Candidate) string {
	if len(recs) == 0 {
		return NoContextSentinel
	}

	blocks := make([]string, 0, len(recs))
	for i, c := range recs {
		var b strings.Builder
		fmt.Fprintf(&b, "Record %d:", i+1)
		writeField(&b, "Title", c.Title())
		writeField(&b, "Description", c.Description())
		if raw := c.Date(); raw != "" {
			date, _ := NormalizeDate(raw)
			writeField(&b, "Date", date)
		}
		writeField(&b, "Department", c.Department())
		writeField(&b, "Ward", c.Ward())
		if t := c.Type(); t != records.TypeOther {
			writeField(&b, "Type", string(t))
		}
		writeField(&b, "Link", c.BestLink())
		blocks = append(blocks, b.String())
	}
	return strings.Join(blocks, recordSeparator)
}

func writeField(b *strings.Builder, label, value string) {
	if value == "" {
		return
	}
	b.WriteString("\n")
	b.WriteString(label)
	b.WriteString(": ")
	b.WriteString(value)
}
