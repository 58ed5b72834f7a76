package rag

import (
	"fmt"
	"reflect"
	"testing"

	"pmcbot/internal/heuristics"
	"pmcbot/internal/records"
)

func candidate(id string, score float32, meta map[string]any) records.Candidate {
	if meta == nil {
		meta = map[string]any{}
	}
	meta["id"] = id
	return records.Candidate{ID: id, Score: score, Metadata: meta}
}

func ids(list []records.Candidate) []string {
	out := make([]string, 0, len(list))
	for _, c := range list {
		out = append(out, c.ID)
	}
	return out
}

func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		raw    string
		want   string
		wantOK bool
	}{
		{"15 June 2024", "2024-06-15", true},
		{"15 Jun 2024", "2024-06-15", true},
		{"2024-06-15", "2024-06-15", true},
		{"15/06/2024", "2024-06-15", true},
		{"06/15/2024", "2024-06-15", true},
		{"15-06-2024", "2024-06-15", true},
		{"2024/06/15", "2024-06-15", true},
		{"June 15, 2024", "2024-06-15", true},
		{"Jun 15, 2024", "2024-06-15", true},
		{"2024-06-15T10:30:00Z", "2024-06-15", true},
		{"2024-06-15 10:30:00", "2024-06-15", true},
		{"  15   June 2024 ", "2024-06-15", true},
		{"sometime in 2024", "sometime in 2024", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got, ok := NormalizeDate(tt.raw)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("NormalizeDate(%q) = (%q, %v), want (%q, %v)", tt.raw, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestRerank_IdentityWithoutRecency(t *testing.T) {
	var list []records.Candidate
	for i := 0; i < 12; i++ {
		list = append(list, candidate(fmt.Sprintf("r%d", i), float32(12-i), map[string]any{
			"date": fmt.Sprintf("2024-01-%02d", i+1),
		}))
	}

	got := Rerank(list, RerankOptions{Recent: false, Limit: 20})
	if !reflect.DeepEqual(ids(got.Records), ids(list)) {
		t.Errorf("order changed without recency intent: %v", ids(got.Records))
	}

	got = Rerank(list, RerankOptions{Recent: false, Limit: 8})
	if !reflect.DeepEqual(ids(got.Records), ids(list[:8])) {
		t.Errorf("expected first 8 in similarity order, got %v", ids(got.Records))
	}
}

func TestRerank_RecencyOrdering(t *testing.T) {
	list := []records.Candidate{
		candidate("missing", 0.9, nil),
		candidate("old", 0.85, map[string]any{"date": "01/01/2023"}),
		candidate("raw", 0.8, map[string]any{"date": "Monsoon 2024"}),
		candidate("new", 0.75, map[string]any{"display_date": "15 June 2024"}),
		candidate("mid", 0.7, map[string]any{"date": "2024-06-01"}),
		candidate("tie", 0.65, map[string]any{"date": "1 June 2024"}),
	}

	got := Rerank(list, RerankOptions{Recent: true, Window: 10, Limit: 10})
	want := []string{"new", "mid", "tie", "old", "raw", "missing"}
	if !reflect.DeepEqual(ids(got.Records), want) {
		t.Errorf("Rerank() = %v, want %v", ids(got.Records), want)
	}
	if got.NoRecentMatch || got.Narrowed {
		t.Errorf("unexpected flags: %+v", got)
	}
}

func TestRerank_WindowLeavesTailInSimilarityOrder(t *testing.T) {
	list := []records.Candidate{
		candidate("a", 0.9, map[string]any{"date": "2023-01-01"}),
		candidate("b", 0.8, map[string]any{"date": "2024-01-01"}),
		candidate("c", 0.7, map[string]any{"date": "2025-01-01"}),
		candidate("d", 0.6, map[string]any{"date": "2022-01-01"}),
	}

	got := Rerank(list, RerankOptions{Recent: true, Window: 2, Limit: 4})
	want := []string{"b", "a", "c", "d"}
	if !reflect.DeepEqual(ids(got.Records), want) {
		t.Errorf("Rerank() = %v, want %v", ids(got.Records), want)
	}
}

func TestRerank_DoesNotMutateInput(t *testing.T) {
	list := []records.Candidate{
		candidate("a", 0.9, map[string]any{"date": "2023-01-01"}),
		candidate("b", 0.8, map[string]any{"date": "2024-01-01"}),
	}
	Rerank(list, RerankOptions{Recent: true})
	if list[0].ID != "a" {
		t.Error("Rerank() reordered the caller's slice")
	}
}

func TestRerank_TopicNarrowing(t *testing.T) {
	list := []records.Candidate{
		candidate("c2023", 0.9, map[string]any{"title": "Circular on road repairs", "date": "2023-01-01"}),
		candidate("c20240601", 0.8, map[string]any{"title": "Circular 12", "description": "Changes to the Water Supply schedule", "date": "2024-06-01"}),
		candidate("c20240615", 0.7, map[string]any{"title": "Circular on property tax", "date": "2024-06-15"}),
	}

	got := Rerank(list, RerankOptions{Recent: true, Topic: []string{"water supply"}})
	if !reflect.DeepEqual(ids(got.Records), []string{"c20240601"}) {
		t.Errorf("Rerank() = %v, want [c20240601]", ids(got.Records))
	}
	if !got.Narrowed {
		t.Error("expected Narrowed")
	}
}

func TestRerank_NoRecentMatchPolicies(t *testing.T) {
	list := []records.Candidate{
		candidate("a", 0.9, map[string]any{"title": "Road repairs", "date": "2023-01-01"}),
		candidate("b", 0.8, map[string]any{"title": "Property tax", "date": "2024-01-01"}),
	}
	opts := RerankOptions{Recent: true, Topic: []string{"water supply"}}

	opts.Fallback = FallbackRefuse
	got := Rerank(list, opts)
	if !got.NoRecentMatch || len(got.Records) != 0 {
		t.Errorf("refuse: got %+v, want no records and NoRecentMatch", got)
	}

	opts.Fallback = FallbackBroaden
	got = Rerank(list, opts)
	if !got.NoRecentMatch {
		t.Error("broaden: expected NoRecentMatch flag")
	}
	if !reflect.DeepEqual(ids(got.Records), []string{"b", "a"}) {
		t.Errorf("broaden: got %v, want [b a]", ids(got.Records))
	}
}

func TestRerank_Empty(t *testing.T) {
	got := Rerank(nil, RerankOptions{Recent: true, Topic: []string{"x"}})
	if len(got.Records) != 0 || !got.NoRecentMatch {
		t.Errorf("got %+v", got)
	}
	got = Rerank(nil, RerankOptions{})
	if len(got.Records) != 0 || got.NoRecentMatch {
		t.Errorf("got %+v", got)
	}
}

func TestTopicPhrases(t *testing.T) {
	rules := heuristics.Default().Recency

	tests := []struct {
		clause string
		want   []string
	}{
		{"circular about water supply?", []string{"water supply"}},
		{"notices regarding property tax and garbage collection", []string{"property tax", "garbage collection"}},
		{"one? (context: show water supply circulars)", []string{"water supply"}},
		{"circulars", nil},
		{"", nil},
		{"पाणीपुरवठा परिपत्रक", []string{"पाणीपुरवठा"}},
		{"Kothrud water supply circular", []string{"kothrud water supply"}},
	}

	for _, tt := range tests {
		got := TopicPhrases(tt.clause, rules)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("TopicPhrases(%q) = %v, want %v", tt.clause, got, tt.want)
		}
	}
}

func TestTopicTerms(t *testing.T) {
	tests := []struct {
		phrases []string
		want    []string
	}{
		{[]string{"kothrud water supply"}, []string{"kothrud water supply", "kothrud water", "water supply", "kothrud", "water", "supply"}},
		{[]string{"property tax", "garbage collection"}, []string{"property tax", "garbage collection", "property", "garbage", "collection"}},
		{[]string{"tax"}, []string{"tax"}},
		{[]string{"water supply", "water"}, []string{"water supply", "water", "supply"}},
		{nil, []string{}},
	}

	for _, tt := range tests {
		if got := topicTerms(tt.phrases); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("topicTerms(%q) = %q, want %q", tt.phrases, got, tt.want)
		}
	}
}

func TestRerank_TopicReorderedAndPartial(t *testing.T) {
	tests := []struct {
		name  string
		topic []string
		list  []records.Candidate
		want  []string
	}{
		{
			name:  "words in another order",
			topic: []string{"kothrud water supply"},
			list: []records.Candidate{
				candidate("garden", 0.9, map[string]any{"title": "Kothrud garden closed for repairs", "date": "2024-06-20"}),
				candidate("water", 0.8, map[string]any{"title": "Circular 2024/17", "description": "Revised water supply schedule for Kothrud.", "date": "2024-06-01"}),
			},
			want: []string{"water"},
		},
		{
			name:  "partial phrase",
			topic: []string{"municipal commissioner"},
			list: []records.Candidate{
				candidate("budget", 0.9, map[string]any{"title": "Municipal budget 2024-25", "date": "2024-03-01"}),
				candidate("commissioner", 0.8, map[string]any{"title": "Commissioner, Pune Municipal Corporation", "description": "Shri R. Kumar took charge.", "date": "2024-02-01"}),
			},
			want: []string{"commissioner"},
		},
		{
			name:  "equally specific matches stay newest first",
			topic: []string{"water supply"},
			list: []records.Candidate{
				candidate("old", 0.9, map[string]any{"title": "Water supply cut in Aundh", "date": "2024-01-01"}),
				candidate("new", 0.8, map[string]any{"title": "Water supplying hours for Baner", "date": "2024-05-01"}),
			},
			want: []string{"new", "old"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Rerank(tt.list, RerankOptions{Recent: true, Topic: tt.topic})
			if !reflect.DeepEqual(ids(got.Records), tt.want) {
				t.Errorf("Rerank() = %v, want %v", ids(got.Records), tt.want)
			}
			if !got.Narrowed {
				t.Error("expected Narrowed")
			}
		})
	}
}

func TestPreferLanguage(t *testing.T) {
	list := []records.Candidate{
		candidate("en1", 0.9, map[string]any{"lang": "en"}),
		candidate("mr1", 0.8, map[string]any{"lang": "mr"}),
		candidate("none", 0.7, nil),
	}

	if got := ids(PreferLanguage(list, "mr")); !reflect.DeepEqual(got, []string{"mr1"}) {
		t.Errorf("PreferLanguage(mr) = %v", got)
	}
	onlyEnglish := list[:1]
	if got := ids(PreferLanguage(onlyEnglish, "mr")); !reflect.DeepEqual(got, []string{"en1"}) {
		t.Errorf("PreferLanguage without matches = %v, want unchanged", got)
	}
}
