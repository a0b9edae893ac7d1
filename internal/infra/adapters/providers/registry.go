// File: internal/infra/adapters/providers/registry.go
package providers

import (
	"fmt"

	"ai-generation-gateway/internal/domain"
	"ai-generation-gateway/internal/domain/model"
	"ai-generation-gateway/internal/domain/ports/adapter"
)

// Registry dispatches on the provider enum. Call sites never branch on
// provider identity beyond this lookup.
type Registry struct {
	byProvider map[model.Provider]adapter.ProviderAdapter
}

func NewRegistry(adapters ...adapter.ProviderAdapter) *Registry {
	m := make(map[model.Provider]adapter.ProviderAdapter, len(adapters))
	for _, a := range adapters {
		m[a.Name()] = a
	}
	return &Registry{byProvider: m}
}

func (r *Registry) Get(p model.Provider) (adapter.ProviderAdapter, error) {
	if a := r.byProvider[p]; a != nil {
		return a, nil
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrUnknownProvider, p)
}

// Providers lists the registered provider identifiers.
func (r *Registry) Providers() []model.Provider {
	out := make([]model.Provider, 0, len(r.byProvider))
	for p := range r.byProvider {
		out = append(out, p)
	}
	return out
}
