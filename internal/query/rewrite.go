package query

import (
	"fmt"
	"strings"
)

// Rewrite returns the text sent to the embedding service. Follow-ups carry
// the previous user query, plus the subject of the previous answer when the
// query does not already name it:
//
//	<utterance> (context: <previous>[; <subject>])
//
// Anything else passes through unchanged.
func Rewrite(utterance, previous, subject string, followup bool) string {
	previous = strings.TrimSpace(previous)
	if !followup || previous == "" {
		return utterance
	}

	context := previous
	subject = strings.TrimSpace(subject)
	if subject != "" && !strings.Contains(strings.ToLower(previous), strings.ToLower(subject)) {
		context = previous + "; " + subject
	}
	return fmt.Sprintf("%s (context: %s)", utterance, context)
}
