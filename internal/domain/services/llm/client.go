package llm

import "context"

// InvokeRequest carries one model call. SystemPrompt and UserPrompt are
// sent as separate roles; Persona and Round only identify the call for
// caching and logging.
type InvokeRequest struct {
	Model        string
	SystemPrompt string
	UserPrompt   string
	MaxTokens    int
	Persona      string
	Round        int
}

// ChunkHandler receives incremental content during a streaming call.
// Handlers must be fast; they run on the stream-reading goroutine.
type ChunkHandler func(chunk string)

// ModelClient is the single abstraction the discussion engine uses to
// talk to a language model. Implementations map onto concrete provider
// APIs (Anthropic, OpenAI-compatible endpoints).
type ModelClient interface {
	// Invoke performs a blocking call and returns the full response text.
	Invoke(ctx context.Context, req *InvokeRequest) (string, error)

	// InvokeStreaming performs a streaming call, delivering chunks to
	// onChunk as they arrive, and returns the accumulated text.
	InvokeStreaming(ctx context.Context, req *InvokeRequest, onChunk ChunkHandler) (string, error)

	// Name returns the provider name (e.g. "anthropic", "openai").
	Name() string

	// SupportsModel returns true if the provider handles the given model.
	SupportsModel(model string) bool
}
