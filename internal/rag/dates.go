package rag

import (
	"strings"
	"time"
)

// dateLayouts are tried in order; day-first numeric forms come before
// month-first because municipal records use Indian date order.
var dateLayouts = []string{
	"2 January 2006",
	"2 Jan 2006",
	"2006-01-02",
	"2/1/2006",
	"1/2/2006",
	"2-1-2006",
	"2006/1/2",
	"January 2, 2006",
	"Jan 2, 2006",
	time.RFC3339,
	"2006-01-02 15:04:05",
}

// NormalizeDate converts a record date to YYYY-MM-DD. ok is false when no
// layout matches; callers fall back to the trimmed raw string.
func NormalizeDate(raw string) (normalized string, ok bool) {
	s := strings.Join(strings.Fields(raw), " ")
	if s == "" {
		return "", false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02"), true
		}
	}
	return s, false
}
