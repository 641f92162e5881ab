package interfaces

import "context"

// Summarizer turns a structured context into a conversational answer
type Summarizer interface {
	Summarize(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}
