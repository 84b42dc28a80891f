package provider

import (
	"sort"
	"strings"

	"github.com/steamtrust/backend/types"
)

// Registry maps provider tags to their adapters
type Registry struct {
	adapters map[types.PaymentProvider]types.ProviderAdapter
}

// NewRegistry registers every adapter under its own name
func NewRegistry(adapters ...types.ProviderAdapter) *Registry {
	r := &Registry{adapters: make(map[types.PaymentProvider]types.ProviderAdapter, len(adapters))}
	for _, adapter := range adapters {
		r.adapters[adapter.Name()] = adapter
	}
	return r
}

// Get returns the adapter for provider or ErrProviderUnsupported
func (r *Registry) Get(provider string) (types.ProviderAdapter, error) {
	adapter, ok := r.adapters[types.PaymentProvider(strings.ToLower(strings.TrimSpace(provider)))]
	if !ok {
		return nil, types.ErrProviderUnsupported(provider)
	}
	return adapter, nil
}

// Providers lists the registered provider tags
func (r *Registry) Providers() []types.PaymentProvider {
	providers := make([]types.PaymentProvider, 0, len(r.adapters))
	for name := range r.adapters {
		providers = append(providers, name)
	}
	sort.Slice(providers, func(i, j int) bool { return providers[i] < providers[j] })
	return providers
}
