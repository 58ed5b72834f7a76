package records

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Candidate is one hit returned by the vector index.
type Candidate struct {
	// ID is the record identifier (payload "id" when present, otherwise the point id).
	ID string
	// Score is the similarity score assigned by the index.
	Score float32
	// Rank is the 0-based position in the index's own ordering.
	Rank int
	// Metadata is the sparse field bag attached to the record.
	Metadata map[string]any
}

// Field returns the first non-empty value among keys, rendered as a string.
// Missing fields are common and yield "".
func (c Candidate) Field(keys ...string) string {
	for _, key := range keys {
		if v, ok := c.Metadata[key]; ok {
			if s := stringify(v); s != "" {
				return s
			}
		}
	}
	return ""
}

func (c Candidate) Title() string       { return c.Field("title", "name", "subject") }
func (c Candidate) Description() string { return c.Field("description", "short_description", "desc") }
func (c Candidate) Date() string        { return c.Field("date", "display_date") }
func (c Candidate) Department() string  { return c.Field("department") }
func (c Candidate) Ward() string        { return c.Field("ward_name", "ward") }
func (c Candidate) Lang() string        { return strings.ToLower(c.Field("lang")) }

// Type returns the parsed record type.
func (c Candidate) Type() RecordType {
	return ParseRecordType(c.Field("record_type", "type"))
}

// BestLink returns the first valid link in priority order pdf, external, plain url.
func (c Candidate) BestLink() string {
	for _, key := range []string{"pdf_url", "external_link", "url", "link"} {
		if link := ValidateURL(c.Field(key)); link != "" {
			return link
		}
	}
	return ""
}

// Text concatenates the free-text fields used for topic matching.
func (c Candidate) Text() string {
	parts := make([]string, 0, 6)
	for _, key := range []string{"title", "description", "long_description", "summary", "text", "raw", "other_details"} {
		if s := c.Field(key); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n")
}

// blockedHosts are internal addresses that leak into crawled data and are not reachable by citizens.
var blockedHosts = map[string]struct{}{
	"115.124.97.169": {},
}

// ValidateURL returns a citizen-usable absolute URL or "" when the link should be dropped.
// Relative links and internal hosts are dropped; links without a scheme get https.
func ValidateURL(raw string) string {
	link := strings.TrimSpace(raw)
	if link == "" || strings.HasPrefix(link, "/") || strings.HasPrefix(link, "#") {
		return ""
	}
	if !strings.HasPrefix(link, "http://") && !strings.HasPrefix(link, "https://") {
		link = "https://" + link
	}
	parsed, err := url.Parse(link)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return ""
	}
	if _, blocked := blockedHosts[parsed.Hostname()]; blocked {
		return ""
	}
	return link
}

func stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case int64:
		return strconv.FormatInt(val, 10)
	case int:
		return strconv.Itoa(val)
	case bool:
		return strconv.FormatBool(val)
	case []any:
		items := make([]string, 0, len(val))
		for _, item := range val {
			if s := stringify(item); s != "" {
				items = append(items, s)
			}
		}
		return strings.Join(items, ", ")
	case []string:
		items := make([]string, 0, len(val))
		for _, item := range val {
			if s := strings.TrimSpace(item); s != "" {
				items = append(items, s)
			}
		}
		return strings.Join(items, ", ")
	case map[string]any:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(val))
	}
}
