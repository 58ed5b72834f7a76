package rag

import (
	"sort"

	"pmcbot/internal/records"
)

const (
	defaultRecencyWindow  = 10
	defaultContextResults = 8
)

// RecencyFallback decides what happens when topic narrowing leaves no recent record.
type RecencyFallback string

const (
	// FallbackRefuse reports that no matching recent record exists.
	FallbackRefuse RecencyFallback = "refuse"
	// FallbackBroaden answers from the date-sorted list without the topic filter.
	FallbackBroaden RecencyFallback = "broaden"
)

// RerankOptions controls Rerank.
type RerankOptions struct {
	// Recent enables date ordering of the first Window candidates.
	Recent bool
	// Window is the number of top candidates re-sorted by date.
	Window int
	// Limit is the number of records passed downstream.
	Limit int
	// Topic phrases narrow recent results; empty disables narrowing.
	Topic []string
	// Fallback applies when narrowing removes every record.
	Fallback RecencyFallback
}

// RerankResult is the context slice handed to the formatters.
type RerankResult struct {
	Records []records.Candidate
	// Narrowed is set when the topic filter was applied and kept at least one record.
	Narrowed bool
	// NoRecentMatch is set when the topic filter removed every record.
	NoRecentMatch bool
}

// Rerank applies recency ordering and topic narrowing on top of similarity
// order. Without recency intent the order is untouched. With it, the first
// Window candidates are stably sorted newest first: parseable dates, then
// unparseable raw strings, then records without a date. Candidates past the
// window keep their similarity order after it.
func Rerank(candidates []records.Candidate, opts RerankOptions) RerankResult {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultContextResults
	}

	if !opts.Recent {
		return RerankResult{Records: head(candidates, limit)}
	}

	window := opts.Window
	if window <= 0 {
		window = defaultRecencyWindow
	}
	if window > len(candidates) {
		window = len(candidates)
	}

	ordered := make([]records.Candidate, len(candidates))
	copy(ordered, candidates)
	sortByDate(ordered[:window])

	if len(opts.Topic) == 0 {
		return RerankResult{Records: head(ordered, limit)}
	}

	// Only the most specific matches survive, still newest first.
	terms := topicTerms(opts.Topic)
	matches := make([]topicMatch, len(ordered))
	var best topicMatch
	for i, c := range ordered {
		matches[i] = matchTopic(c, terms)
		if best.less(matches[i]) {
			best = matches[i]
		}
	}
	var filtered []records.Candidate
	if best.longest > 0 {
		for i, c := range ordered {
			if matches[i] == best {
				filtered = append(filtered, c)
			}
		}
	}
	if len(filtered) > 0 {
		return RerankResult{Records: head(filtered, limit), Narrowed: true}
	}

	if opts.Fallback == FallbackBroaden {
		return RerankResult{Records: head(ordered, limit), NoRecentMatch: true}
	}
	return RerankResult{NoRecentMatch: true}
}

type dateKey struct {
	group int // 0 parsed, 1 unparseable, 2 missing
	value string
}

func recordDateKey(c records.Candidate) dateKey {
	raw := c.Date()
	if raw == "" {
		return dateKey{group: 2}
	}
	normalized, ok := NormalizeDate(raw)
	if !ok {
		return dateKey{group: 1, value: normalized}
	}
	return dateKey{group: 0, value: normalized}
}

func sortByDate(list []records.Candidate) {
	type keyed struct {
		c   records.Candidate
		key dateKey
	}
	items := make([]keyed, len(list))
	for i, c := range list {
		items[i] = keyed{c: c, key: recordDateKey(c)}
	}
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i].key, items[j].key
		if a.group != b.group {
			return a.group < b.group
		}
		return a.value > b.value
	})
	for i := range items {
		list[i] = items[i].c
	}
}

// PreferLanguage keeps only records tagged with lang when at least one exists.
func PreferLanguage(candidates []records.Candidate, lang string) []records.Candidate {
	preferred := make([]records.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Lang() == lang {
			preferred = append(preferred, c)
		}
	}
	if len(preferred) == 0 {
		return candidates
	}
	return preferred
}

func head(list []records.Candidate, n int) []records.Candidate {
	if len(list) > n {
		list = list[:n]
	}
	out := make([]records.Candidate, len(list))
	copy(out, list)
	return out
}
