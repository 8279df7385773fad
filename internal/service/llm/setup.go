package llm

import (
	"log/slog"
	"strings"

	"github.com/ct-jyjntc/ai-discussion/internal/config"
	domainllm "github.com/ct-jyjntc/ai-discussion/internal/domain/services/llm"
	"github.com/ct-jyjntc/ai-discussion/internal/service/llm/providers/anthropic"
	"github.com/ct-jyjntc/ai-discussion/internal/service/llm/providers/lorem"
	"github.com/ct-jyjntc/ai-discussion/internal/service/llm/providers/openaicompat"
)

// SetupProviders builds the provider registry from configuration:
// the Anthropic provider when a key is present, the lorem mock
// provider, scoped OpenAI-compatible providers for personas bound to
// their own endpoint or key, and the catch-all OpenAI-compatible
// provider last. Every provider is wrapped with the retry policy.
func SetupProviders(cfg *config.Config, logger *slog.Logger) (*Registry, error) {
	var providers []domainllm.ModelClient

	if cfg.AnthropicAPIKey != "" {
		anthropicProvider, err := anthropic.NewProvider(cfg.AnthropicAPIKey)
		if err != nil {
			return nil, err
		}
		providers = append(providers, anthropicProvider)
	}

	providers = append(providers, lorem.NewProvider())

	scoped, err := scopedProviders(cfg)
	if err != nil {
		return nil, err
	}
	providers = append(providers, scoped...)

	catchAll, err := openaicompat.NewProvider(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey)
	if err != nil {
		return nil, err
	}
	providers = append(providers, catchAll)

	policy := DefaultRetryPolicy()
	policy.MaxRetries = cfg.MaxRetries
	policy.BaseDelay = cfg.RetryBaseDelay

	retrying := make([]domainllm.ModelClient, len(providers))
	for i, p := range providers {
		retrying[i] = NewRetryingClient(p, policy, logger)
	}

	registry := NewRegistry(retrying...)
	if err := registry.Validate(); err != nil {
		return nil, err
	}
	logger.Info("model providers initialized", "count", len(retrying))
	return registry, nil
}

// scopedProviders creates per-persona OpenAI-compatible providers for
// personas whose endpoint or key differs from the shared one. Models
// claimed by the prefixed providers are left alone.
func scopedProviders(cfg *config.Config) ([]domainllm.ModelClient, error) {
	var out []domainllm.ModelClient
	seen := make(map[string]bool)

	for _, pc := range []config.PersonaConfig{cfg.PersonaA, cfg.PersonaB, cfg.Judge, cfg.Synthesis} {
		if strings.HasPrefix(pc.Model, "claude-") || strings.HasPrefix(pc.Model, "lorem-") {
			continue
		}
		if pc.BaseURL == cfg.OpenAIBaseURL && pc.APIKey == "" {
			continue
		}
		if seen[pc.Model] {
			continue
		}
		seen[pc.Model] = true

		key := pc.APIKey
		if key == "" {
			key = cfg.OpenAIAPIKey
		}
		p, err := openaicompat.NewScopedProvider(pc.BaseURL, key, pc.Model)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}
