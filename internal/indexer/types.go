package indexer

import (
	"strings"

	"pmcbot/internal/records"
)

// Record is one normalized source record as read from a JSONL line.
type Record map[string]any

// ID returns the record's id field as a string.
func (r Record) ID() string {
	return records.Candidate{Metadata: r}.Field("id")
}

// Type returns the raw record_type, or "unknown".
func (r Record) Type() string {
	if t := records.Candidate{Metadata: r}.Field("record_type"); t != "" {
		return t
	}
	return "unknown"
}

// Lang returns the lang field, or "unknown".
func (r Record) Lang() string {
	if l := records.Candidate{Metadata: r}.Lang(); l != "" {
		return l
	}
	return "unknown"
}

// Chunk is one embeddable piece of a record.
type Chunk struct {
	Index   int    // 1-based, matches the chunk_id payload field
	PointID string // vector store point id
	Text    string
}

// EmbedText builds the text embedded for a record. A prepared full_content
// field wins over the individual fields; department, ward, type and contact
// are appended in either case.
func EmbedText(r Record) string {
	c := records.Candidate{Metadata: r}
	var parts []string

	if full := c.Field("full_content"); full != "" {
		parts = append(parts, full)
	} else {
		if v := c.Field("title"); v != "" {
			parts = append(parts, "Title: "+v)
		}
		if v := c.Field("description"); v != "" {
			parts = append(parts, "Description: "+v)
		}
		if v := c.Field("long_description"); v != "" {
			parts = append(parts, "Details: "+v)
		}
		switch summary := r["summary"].(type) {
		case []any:
			for _, item := range summary {
				if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
					parts = append(parts, "Summary: "+s)
				}
			}
		default:
			if v := c.Field("summary"); v != "" {
				parts = append(parts, "Summary: "+v)
			}
		}
	}

	if v := c.Field("department"); v != "" {
		parts = append(parts, "Department: "+v)
	}
	if v := c.Field("ward_name"); v != "" {
		parts = append(parts, "Ward: "+v)
	}
	if v := c.Field("record_type"); v != "" && v != string(records.TypeOther) {
		parts = append(parts, "Type: "+v)
	}
	if v := c.Field("contact"); v != "" {
		parts = append(parts, "Contact: "+v)
	}

	return strings.Join(parts, "\n")
}

// essentialFields are the payload fields kept in the vector store.
var essentialFields = map[string]struct{}{
	"id": {}, "title": {}, "description": {}, "date": {}, "display_date": {},
	"department": {}, "ward_name": {}, "record_type": {}, "lang": {},
	"pdf_url": {}, "external_link": {}, "url": {}, "chunk_id": {}, "total_chunks": {},
	"embedding_model": {},
	// template fields
	"address": {}, "timings": {}, "key_attractions": {}, "entry_fee": {},
	"operator_name": {}, "operator_contact": {}, "crematorium_type": {},
	"contact": {}, "phone": {}, "email": {},
}

const (
	maxPayloadString = 1000
	maxPayloadItem   = 500
	maxPayloadItems  = 5
)

// FilterMetadata keeps only essential fields with scalar or string-list
// values, truncating long strings.
func FilterMetadata(meta map[string]any) map[string]any {
	out := make(map[string]any, len(meta))
	for k, v := range meta {
		if _, ok := essentialFields[k]; !ok {
			continue
		}
		switch val := v.(type) {
		case string:
			out[k] = truncate(val, maxPayloadString)
		case float64, int, int64, bool:
			out[k] = val
		case []any:
			items := make([]any, 0, maxPayloadItems)
			for _, item := range val {
				s, ok := item.(string)
				if !ok {
					items = nil
					break
				}
				if len(items) < maxPayloadItems {
					items = append(items, truncate(s, maxPayloadItem))
				}
			}
			if items != nil {
				out[k] = items
			}
		}
	}
	return out
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
