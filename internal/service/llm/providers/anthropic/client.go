package anthropic

import (
	"context"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/ct-jyjntc/ai-discussion/internal/domain"
	domainllm "github.com/ct-jyjntc/ai-discussion/internal/domain/services/llm"
)

// Provider implements the ModelClient interface for Anthropic (Claude) models.
type Provider struct {
	client *anthropic.Client
}

// NewProvider creates a new Anthropic provider with the given API key.
func NewProvider(apiKey string) (*Provider, error) {
	if apiKey == "" {
		return nil, &domain.ValidationError{Message: "anthropic API key is required"}
	}

	client := anthropic.NewClient(option.WithAPIKey(apiKey))

	return &Provider{
		client: &client,
	}, nil
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "anthropic"
}

// SupportsModel returns true if this provider supports the given model.
// Anthropic models start with "claude-"
func (p *Provider) SupportsModel(model string) bool {
	return strings.HasPrefix(model, "claude-")
}

// Invoke performs a blocking message call and returns the joined text blocks.
func (p *Provider) Invoke(ctx context.Context, req *domainllm.InvokeRequest) (string, error) {
	message, err := p.client.Messages.New(ctx, p.buildParams(req))
	if err != nil {
		return "", classify(err)
	}

	var sb strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", &domain.ModelError{
			Provider: p.Name(),
			Message:  "empty response from model",
		}
	}
	return sb.String(), nil
}

// InvokeStreaming streams the response, forwarding text deltas to onChunk.
func (p *Provider) InvokeStreaming(ctx context.Context, req *domainllm.InvokeRequest, onChunk domainllm.ChunkHandler) (string, error) {
	stream := p.client.Messages.NewStreaming(ctx, p.buildParams(req))

	var sb strings.Builder
	for stream.Next() {
		event := stream.Current()
		switch eventVariant := event.AsAny().(type) {
		case anthropic.ContentBlockDeltaEvent:
			if delta, ok := eventVariant.Delta.AsAny().(anthropic.TextDelta); ok && delta.Text != "" {
				sb.WriteString(delta.Text)
				if onChunk != nil {
					onChunk(delta.Text)
				}
			}
		}
	}
	if err := stream.Err(); err != nil {
		return "", classify(err)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func (p *Provider) buildParams(req *domainllm.InvokeRequest) anthropic.MessageNewParams {
	maxTokens := int64(req.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 2048
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		MaxTokens: maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.UserPrompt)),
		},
	}
	if req.SystemPrompt != "" {
		params.System = []anthropic.TextBlockParam{
			{
				Type: "text",
				Text: req.SystemPrompt,
			},
		}
	}
	return params
}

// classify maps SDK errors onto the domain taxonomy so the retry
// executor can distinguish transient failures.
func classify(err error) error {
	if err == nil {
		return nil
	}
	// Cancellation is not a provider failure; let it propagate as-is.
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if apiErr, ok := err.(*anthropic.Error); ok {
		return &domain.ModelError{
			Provider:   "anthropic",
			StatusCode: apiErr.StatusCode,
			Message:    "api call failed",
			Transient:  apiErr.StatusCode == 429 || apiErr.StatusCode >= 500,
			Err:        err,
		}
	}
	// Network-level failures are worth retrying.
	return &domain.ModelError{
		Provider:  "anthropic",
		Message:   "request failed",
		Transient: true,
		Err:       err,
	}
}
