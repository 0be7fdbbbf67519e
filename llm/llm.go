package llm

import "context"

// Client abstracts a vision-capable LLM provider used by the analyzer.
// Implementations must be concurrency-safe if used across goroutines.
type Client interface {
	// AnalyzeImage takes raw image bytes plus a composed instruction prompt,
	// and returns the provider's raw text output (expected to contain JSON).
	AnalyzeImage(ctx context.Context, imageData []byte, prompt string) (string, error)
	// GenerateText runs a text-only prompt, used for numeric estimates that
	// need no image input.
	GenerateText(ctx context.Context, prompt string) (string, error)
	// SourceName returns a short provider label to persist alongside results
	// (e.g., "Gemini", "Stub").
	SourceName() string
}
