package rag

import (
	"fmt"

	"pmcbot/internal/query"
)

// Fixed user-facing answers for recovered failures.
const (
	EmbedFailedAnswer    = "I apologize, but I'm having trouble processing your query right now. Please try again."
	GenerateFailedAnswer = "I apologize, but I'm having trouble generating a response right now. Please try again."

	embedFailedAnswerMr    = "क्षमस्व, सध्या तुमची विनंती प्रक्रिया करताना अडचण येत आहे. कृपया पुन्हा प्रयत्न करा."
	generateFailedAnswerMr = "क्षमस्व, सध्या उत्तर तयार करताना अडचण येत आहे. कृपया पुन्हा प्रयत्न करा."
)

func failureMessage(outcome Outcome, lang query.Language) string {
	marathi := lang == query.Marathi
	switch outcome {
	case OutcomeGenerateFailed:
		if marathi {
			return generateFailedAnswerMr
		}
		return GenerateFailedAnswer
	default:
		if marathi {
			return embedFailedAnswerMr
		}
		return EmbedFailedAnswer
	}
}

func noRecentMatchMessage(lang query.Language, topic string) string {
	if lang == query.Marathi {
		if topic == "" {
			return "या विषयावरील अलीकडील कोणतीही नोंद सापडली नाही. कृपया प्रश्न वेगळ्या शब्दांत विचारा."
		}
		return fmt.Sprintf("\"%s\" संदर्भातील अलीकडील कोणतीही नोंद सापडली नाही. कृपया प्रश्न वेगळ्या शब्दांत विचारा.", topic)
	}
	if topic == "" {
		return "I couldn't find a recent record on that topic. Please try rephrasing your question."
	}
	return fmt.Sprintf("I couldn't find a recent record about \"%s\". Please try rephrasing your question or ask about a different topic.", topic)
}

func noResultsMessage(lang query.Language) string {
	if lang == query.Marathi {
		return "तुमच्या प्रश्नाशी संबंधित माहिती सापडली नाही. कृपया प्रश्न वेगळ्या शब्दांत विचारा."
	}
	return "I couldn't find any relevant information for your question. Please try rephrasing it."
}
