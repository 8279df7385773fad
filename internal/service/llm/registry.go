package llm

import (
	"sync"

	"github.com/ct-jyjntc/ai-discussion/internal/domain"
	domainllm "github.com/ct-jyjntc/ai-discussion/internal/domain/services/llm"
)

// Registry routes model identifiers to the provider that claims them.
// Providers are registered once at startup; resolution results are
// cached per model string.
type Registry struct {
	providers []domainllm.ModelClient

	mu    sync.RWMutex
	cache map[string]domainllm.ModelClient
}

func NewRegistry(providers ...domainllm.ModelClient) *Registry {
	return &Registry{
		providers: providers,
		cache:     make(map[string]domainllm.ModelClient),
	}
}

// ClientFor returns the first registered provider that supports model.
func (r *Registry) ClientFor(model string) (domainllm.ModelClient, error) {
	if model == "" {
		return nil, &domain.ValidationError{Message: "model cannot be empty"}
	}

	// Fast path: check cache with read lock
	r.mu.RLock()
	if cached, exists := r.cache[model]; exists {
		r.mu.RUnlock()
		return cached, nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	// Double-check after acquiring write lock
	if cached, exists := r.cache[model]; exists {
		return cached, nil
	}

	for _, p := range r.providers {
		if p.SupportsModel(model) {
			r.cache[model] = p
			return p, nil
		}
	}
	return nil, &domain.ValidationError{Message: "no provider supports model " + model}
}

// Validate checks the registry is usable. Called at startup to fail
// fast if no providers were configured.
func (r *Registry) Validate() error {
	if len(r.providers) == 0 {
		return &domain.ValidationError{Message: "no model providers configured"}
	}
	return nil
}
