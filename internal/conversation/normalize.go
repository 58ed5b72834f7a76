package conversation

import (
	"fmt"
	"strings"
)

// NormalizeHistory converts caller-supplied history items into turns.
// Typed turns and key/value pairs ({"user": ..., "bot": ...}) are treated
// identically; nil items are skipped.
func NormalizeHistory(items []any) ([]Turn, error) {
	turns := make([]Turn, 0, len(items))
	for i, item := range items {
		switch v := item.(type) {
		case nil:
			continue
		case Turn:
			turns = append(turns, clean(v))
		case *Turn:
			if v != nil {
				turns = append(turns, clean(*v))
			}
		case map[string]string:
			turns = append(turns, clean(Turn{User: v["user"], Bot: v["bot"], Subject: v["subject"]}))
		case map[string]any:
			t, err := turnFromMap(v)
			if err != nil {
				return nil, fmt.Errorf("history[%d]: %w", i, err)
			}
			turns = append(turns, t)
		default:
			return nil, fmt.Errorf("history[%d]: unsupported turn type %T", i, item)
		}
	}
	return turns, nil
}

func turnFromMap(m map[string]any) (Turn, error) {
	var t Turn
	for key, dst := range map[string]*string{"user": &t.User, "bot": &t.Bot, "subject": &t.Subject} {
		raw, ok := m[key]
		if !ok || raw == nil {
			continue
		}
		s, ok := raw.(string)
		if !ok {
			return Turn{}, fmt.Errorf("field %q must be a string, got %T", key, raw)
		}
		*dst = s
	}
	return clean(t), nil
}

func clean(t Turn) Turn {
	t.User = strings.TrimSpace(t.User)
	t.Bot = strings.TrimSpace(t.Bot)
	t.Subject = strings.TrimSpace(t.Subject)
	return t
}
