package lorem

import (
	"context"
	"strings"
	"time"

	loremgen "github.com/bozaro/golorem"

	domainllm "github.com/ct-jyjntc/ai-discussion/internal/domain/services/llm"
)

// Provider is a mock model client that generates lorem ipsum text.
// Used for testing and development without requiring real API keys.
type Provider struct {
	generator *loremgen.Lorem
}

// NewProvider creates a new lorem ipsum provider.
func NewProvider() *Provider {
	return &Provider{
		generator: loremgen.New(),
	}
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "lorem"
}

// SupportsModel returns true if the model name starts with "lorem-".
// Example models: "lorem-fast", "lorem-slow", "lorem-test"
func (p *Provider) SupportsModel(model string) bool {
	return strings.HasPrefix(model, "lorem-")
}

// Invoke returns a block of lorem ipsum after a short simulated delay.
func (p *Provider) Invoke(ctx context.Context, req *domainllm.InvokeRequest) (string, error) {
	select {
	case <-time.After(getStreamDelay(req.Model) * 10):
	case <-ctx.Done():
		return "", ctx.Err()
	}
	return p.generateTextWords(targetWords(req)), nil
}

// InvokeStreaming streams lorem ipsum word by word. Speed varies based
// on model name (lorem-slow, lorem-fast, lorem-medium).
func (p *Provider) InvokeStreaming(ctx context.Context, req *domainllm.InvokeRequest, onChunk domainllm.ChunkHandler) (string, error) {
	text := p.generateTextWords(targetWords(req))
	words := strings.Fields(text)
	delay := getStreamDelay(req.Model)

	var sb strings.Builder
	for _, word := range words {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(delay):
		}

		chunk := word + " "
		sb.WriteString(chunk)
		if onChunk != nil {
			onChunk(chunk)
		}
	}
	return strings.TrimSpace(sb.String()), nil
}

func targetWords(req *domainllm.InvokeRequest) int {
	// Roughly one word per token, capped to keep dev output readable.
	words := req.MaxTokens
	if words <= 0 || words > 200 {
		words = 200
	}
	return words
}

// getStreamDelay returns the delay between words based on the model name.
// - lorem-slow: 2 words/second
// - lorem-fast: 30 words/second
// - default: 10 words/second
func getStreamDelay(model string) time.Duration {
	if strings.Contains(model, "slow") {
		return 500 * time.Millisecond
	}
	if strings.Contains(model, "fast") {
		return 33 * time.Millisecond
	}
	return 100 * time.Millisecond
}

// generateTextWords generates lorem ipsum text with approximately targetWords words.
func (p *Provider) generateTextWords(targetWords int) string {
	var sb strings.Builder
	wordCount := 0

	for wordCount < targetWords {
		sentence := p.generator.Sentence(5, 15)
		sb.WriteString(sentence)
		sb.WriteString(" ")

		wordCount += len(strings.Fields(sentence))

		// Paragraph break every ~50 words
		if wordCount%50 == 0 {
			sb.WriteString("\n\n")
		}
	}

	return strings.TrimSpace(sb.String())
}
