package rag

import (
	"strings"

	"pmcbot/internal/conversation"
	"pmcbot/internal/query"
)

// PromptInput is everything the composer needs for one generation call.
type PromptInput struct {
	// Query is the user's original utterance, not the rewritten search text.
	Query string
	// Context is the grounding renderer output; empty means nothing was retrieved.
	Context  string
	Language query.Language
	History  []conversation.Turn
}

const promptPreamble = "You are the Pune Municipal Corporation (PMC) assistant. " +
	"Answer citizens' questions using the PMC records provided below."

var behaviourRules = []string{
	"Read all of the records before answering.",
	"Start with the most relevant record and mention other relevant ones after it.",
	"If any record matches the question even partially, answer from it. Do not say the information was not found.",
	"Only say you could not find the information when the records section says no relevant information was found.",
	"Include links naturally in your sentences, for example: You can read the circular [here](https://example.gov.in/doc.pdf).",
	"Mention each link at most once.",
	"Do not invent dates, phone numbers, addresses or links that are not in the records.",
}

const historyRule = "If the question follows up on details already given in the previous conversation, " +
	"answer from the conversation first and use the records only to fill gaps."

// ComposePrompt builds the generator input. The result is never modified after construction.
func ComposePrompt(in PromptInput) string {
	var b strings.Builder

	b.WriteString(promptPreamble)
	b.WriteString("\n\n")

	if len(in.History) > 0 {
		b.WriteString("Previous conversation:\n")
		for _, t := range in.History {
			b.WriteString("User: ")
			b.WriteString(t.User)
			b.WriteString("\nAssistant: ")
			b.WriteString(t.Bot)
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(historyRule)
		b.WriteString("\n\n")
	}

	b.WriteString("Records:\n")
	if strings.TrimSpace(in.Context) == "" {
		b.WriteString(NoContextSentinel)
	} else {
		b.WriteString(in.Context)
	}
	b.WriteString("\n\n")

	b.WriteString("Instructions:\n")
	for _, rule := range behaviourRules {
		b.WriteString("- ")
		b.WriteString(rule)
		b.WriteString("\n")
	}
	b.WriteString("- ")
	b.WriteString(languageDirective(in.Language))
	b.WriteString("\n\n")

	b.WriteString("Question: ")
	b.WriteString(in.Query)
	b.WriteString("\nAnswer:")
	return b.String()
}

func languageDirective(lang query.Language) string {
	if lang == query.Marathi {
		return "The user wrote in Marathi. Respond in Marathi (मराठी) using Devanagari script."
	}
	return "The user wrote in English. Respond in English."
}
