package llm

// ChatParams holds the generation settings applied to every request.
type ChatParams struct {
	// Model is the chat model name passed to the provider.
	Model string

	// MaxTokens caps the generated answer. If 0, the provider default applies.
	MaxTokens int

	// Temperature controls the randomness of the output.
	Temperature float64

	// SystemPrompt is sent as the first message when non-empty.
	SystemPrompt string
}

// DefaultSystemPrompt frames every generation request.
const DefaultSystemPrompt = "You are a helpful assistant for the Pune Municipal Corporation. " +
	"Answer only from the records you are given and keep answers concise."
