// Package openaicompat talks to any OpenAI-compatible chat completions
// endpoint. Response parsing is deliberately tolerant: gateways and
// proxies wrap content in several shapes, so extraction tries each
// known location before giving up.
package openaicompat

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/ct-jyjntc/ai-discussion/internal/domain"
	domainllm "github.com/ct-jyjntc/ai-discussion/internal/domain/services/llm"
)

// Provider implements the ModelClient interface over an
// OpenAI-compatible HTTP API (chat completions).
type Provider struct {
	baseURL    string
	apiKey     string
	models     map[string]struct{} // non-nil limits the provider to these models
	httpClient *http.Client
}

func NewProvider(baseURL, apiKey string) (*Provider, error) {
	if baseURL == "" {
		return nil, &domain.ValidationError{Message: "openai base URL is required"}
	}
	return &Provider{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}, nil
}

// NewScopedProvider creates a provider that claims only the listed
// models. Used for personas bound to their own endpoint or credentials;
// register scoped providers before the catch-all one.
func NewScopedProvider(baseURL, apiKey string, models ...string) (*Provider, error) {
	p, err := NewProvider(baseURL, apiKey)
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, &domain.ValidationError{Message: "scoped provider needs at least one model"}
	}
	p.models = make(map[string]struct{}, len(models))
	for _, m := range models {
		p.models[m] = struct{}{}
	}
	return p, nil
}

func (p *Provider) Name() string {
	return "openai"
}

// SupportsModel accepts anything not claimed by a prefixed provider,
// unless the provider is scoped to an explicit model list.
func (p *Provider) SupportsModel(model string) bool {
	if p.models != nil {
		_, ok := p.models[model]
		return ok
	}
	return !strings.HasPrefix(model, "claude-") && !strings.HasPrefix(model, "lorem-")
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Stream      bool          `json:"stream,omitempty"`
}

// Invoke performs a blocking chat completion call.
func (p *Provider) Invoke(ctx context.Context, req *domainllm.InvokeRequest) (string, error) {
	resp, err := p.send(ctx, req, false)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", p.transportError(err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", p.statusError(resp.StatusCode, body)
	}

	content := extractContent(body)
	if content == "" {
		return "", &domain.ModelError{
			Provider: p.Name(),
			Message:  "no content in response",
		}
	}
	return content, nil
}

// InvokeStreaming performs a streaming chat completion call, parsing
// SSE frames and forwarding delta content to onChunk.
func (p *Provider) InvokeStreaming(ctx context.Context, req *domainllm.InvokeRequest, onChunk domainllm.ChunkHandler) (string, error) {
	resp, err := p.send(ctx, req, true)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", p.statusError(resp.StatusCode, body)
	}

	var sb strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "" || payload == "[DONE]" {
			continue
		}

		chunk := extractStreamDelta([]byte(payload))
		if chunk != "" {
			sb.WriteString(chunk)
			if onChunk != nil {
				onChunk(chunk)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", err
		}
		return "", p.transportError(err)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func (p *Provider) send(ctx context.Context, req *domainllm.InvokeRequest, stream bool) (*http.Response, error) {
	payload := chatRequest{
		Model: req.Model,
		Messages: []chatMessage{
			{Role: "system", Content: req.SystemPrompt},
			{Role: "user", Content: req.UserPrompt},
		},
		Temperature: 0.7,
		MaxTokens:   req.MaxTokens,
		Stream:      stream,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if p.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, p.transportError(err)
	}
	return resp, nil
}

// extractContent pulls assistant text out of a completion body, trying
// each response shape gateways are known to produce.
func extractContent(body []byte) string {
	if !gjson.ValidBytes(body) {
		return strings.TrimSpace(string(body))
	}

	paths := []string{
		"choices.0.message.content",
		"choices.0.text",
		"response",
		"content",
		"text",
	}
	for _, path := range paths {
		if result := gjson.GetBytes(body, path); result.Exists() && result.String() != "" {
			return result.String()
		}
	}
	return ""
}

// extractStreamDelta pulls incremental content out of one SSE frame.
func extractStreamDelta(payload []byte) string {
	if !gjson.ValidBytes(payload) {
		return ""
	}
	if delta := gjson.GetBytes(payload, "choices.0.delta.content"); delta.Exists() {
		return delta.String()
	}
	if text := gjson.GetBytes(payload, "choices.0.text"); text.Exists() {
		return text.String()
	}
	return ""
}

func (p *Provider) statusError(status int, body []byte) error {
	msg := fmt.Sprintf("unexpected status %d", status)
	if detail := gjson.GetBytes(body, "error.message"); detail.Exists() {
		msg = fmt.Sprintf("%s: %s", msg, detail.String())
	}
	return &domain.ModelError{
		Provider:   p.Name(),
		StatusCode: status,
		Message:    msg,
		Transient:  status == http.StatusTooManyRequests || status >= 500,
	}
}

func (p *Provider) transportError(err error) error {
	return &domain.ModelError{
		Provider:  p.Name(),
		Message:   "request failed",
		Transient: true,
		Err:       err,
	}
}
