package llm

import (
	"context"
	"strings"
	"testing"

	domainllm "github.com/ct-jyjntc/ai-discussion/internal/domain/services/llm"
)

type prefixClient struct {
	name   string
	prefix string
}

func (c *prefixClient) Invoke(context.Context, *domainllm.InvokeRequest) (string, error) {
	return "", nil
}

func (c *prefixClient) InvokeStreaming(context.Context, *domainllm.InvokeRequest, domainllm.ChunkHandler) (string, error) {
	return "", nil
}

func (c *prefixClient) Name() string { return c.name }
func (c *prefixClient) SupportsModel(model string) bool {
	return strings.HasPrefix(model, c.prefix)
}

func TestRegistryRoutesByModel(t *testing.T) {
	claude := &prefixClient{name: "anthropic", prefix: "claude-"}
	catchAll := &prefixClient{name: "openai", prefix: ""}
	registry := NewRegistry(claude, catchAll)

	got, err := registry.ClientFor("claude-sonnet-4-20250514")
	if err != nil {
		t.Fatalf("ClientFor: %v", err)
	}
	if got.Name() != "anthropic" {
		t.Errorf("claude model routed to %q, want anthropic", got.Name())
	}

	got, err = registry.ClientFor("gpt-4o-mini")
	if err != nil {
		t.Fatalf("ClientFor: %v", err)
	}
	if got.Name() != "openai" {
		t.Errorf("gpt model routed to %q, want openai", got.Name())
	}
}

func TestRegistryRejectsUnknownModel(t *testing.T) {
	registry := NewRegistry(&prefixClient{name: "anthropic", prefix: "claude-"})

	if _, err := registry.ClientFor("mistral-large"); err == nil {
		t.Error("expected error for unsupported model")
	}
	if _, err := registry.ClientFor(""); err == nil {
		t.Error("expected error for empty model")
	}
}

func TestRegistryValidate(t *testing.T) {
	if err := NewRegistry().Validate(); err == nil {
		t.Error("empty registry should fail validation")
	}
	if err := NewRegistry(&prefixClient{name: "x"}).Validate(); err != nil {
		t.Errorf("configured registry failed validation: %v", err)
	}
}
