package llm

import (
	"testing"

	"github.com/ct-jyjntc/ai-discussion/internal/config"
)

func TestScopedProvidersPerPersonaEndpoints(t *testing.T) {
	cfg := &config.Config{
		OpenAIBaseURL: "https://api.openai.com/v1",
		PersonaA:      config.PersonaConfig{Model: "local-llama", BaseURL: "http://localhost:8080/v1"},
		PersonaB:      config.PersonaConfig{Model: "gpt-4o-mini", BaseURL: "https://api.openai.com/v1"},
		Judge:         config.PersonaConfig{Model: "claude-sonnet-4-20250514", BaseURL: "http://localhost:8080/v1"},
		Synthesis:     config.PersonaConfig{Model: "local-llama", BaseURL: "http://localhost:8080/v1"},
	}

	scoped, err := scopedProviders(cfg)
	if err != nil {
		t.Fatalf("scopedProviders: %v", err)
	}

	// Persona A gets a scoped provider; B shares the global endpoint,
	// the judge's claude model belongs to the anthropic provider, and
	// the synthesizer's model is already covered by A's provider.
	if len(scoped) != 1 {
		t.Fatalf("got %d scoped providers, want 1", len(scoped))
	}
	if !scoped[0].SupportsModel("local-llama") {
		t.Error("scoped provider should claim local-llama")
	}
	if scoped[0].SupportsModel("gpt-4o-mini") {
		t.Error("scoped provider should not claim models outside its allowlist")
	}
}

func TestScopedProvidersNoneWhenSharedEndpoint(t *testing.T) {
	cfg := &config.Config{
		OpenAIBaseURL: "https://api.openai.com/v1",
		PersonaA:      config.PersonaConfig{Model: "gpt-4o", BaseURL: "https://api.openai.com/v1"},
		PersonaB:      config.PersonaConfig{Model: "gpt-4o-mini", BaseURL: "https://api.openai.com/v1"},
		Judge:         config.PersonaConfig{Model: "gpt-4o", BaseURL: "https://api.openai.com/v1"},
		Synthesis:     config.PersonaConfig{Model: "gpt-4o", BaseURL: "https://api.openai.com/v1"},
	}

	scoped, err := scopedProviders(cfg)
	if err != nil {
		t.Fatalf("scopedProviders: %v", err)
	}
	if len(scoped) != 0 {
		t.Fatalf("got %d scoped providers, want 0", len(scoped))
	}
}

func TestScopedProvidersPersonaKeyOnly(t *testing.T) {
	// A persona with its own key but the shared endpoint still gets a
	// scoped provider so the key is actually used.
	cfg := &config.Config{
		OpenAIBaseURL: "https://api.openai.com/v1",
		OpenAIAPIKey:  "shared-key",
		PersonaA:      config.PersonaConfig{Model: "gpt-4o", BaseURL: "https://api.openai.com/v1", APIKey: "persona-key"},
		PersonaB:      config.PersonaConfig{Model: "gpt-4o-mini", BaseURL: "https://api.openai.com/v1"},
		Judge:         config.PersonaConfig{Model: "gpt-4o", BaseURL: "https://api.openai.com/v1"},
		Synthesis:     config.PersonaConfig{Model: "gpt-4o", BaseURL: "https://api.openai.com/v1"},
	}

	scoped, err := scopedProviders(cfg)
	if err != nil {
		t.Fatalf("scopedProviders: %v", err)
	}
	if len(scoped) != 1 {
		t.Fatalf("got %d scoped providers, want 1", len(scoped))
	}
	if !scoped[0].SupportsModel("gpt-4o") {
		t.Error("scoped provider should claim gpt-4o")
	}
}
