// internal/providers/multiplex/provider.go
// Package multiplex routes provider calls based on host type.
package multiplex

import (
	"context"
	"fmt"
	"strings"

	"github.com/jerilkuriakose/gemma3-tool-calling-openai/internal/providers"
)

// Provider delegates calls to an underlying provider based on host type.
type Provider struct {
	providers map[string]providers.ChatProvider
}

// New constructs a Provider from a map of host type to provider implementation.
func New(providerMap map[string]providers.ChatProvider) *Provider {
	normalized := make(map[string]providers.ChatProvider, len(providerMap))
	for key, provider := range providerMap {
		normalized[NormalizeType(key)] = provider
	}
	return &Provider{providers: normalized}
}

// Stream forwards the request to the provider registered for req.Host.Type.
func (p *Provider) Stream(ctx context.Context, req providers.StreamRequest, callbacks providers.StreamCallbacks) error {
	hostType := NormalizeType(req.Host.Type)
	provider, ok := p.providers[hostType]
	if !ok {
		return fmt.Errorf("no provider registered for host type %q", req.Host.Type)
	}
	return provider.Stream(ctx, req, callbacks)
}

// Close cleans up any resources used by the provider.
func (p *Provider) Close() error {
	var firstErr error
	seen := map[providers.ChatProvider]struct{}{}
	for _, provider := range p.providers {
		if _, ok := seen[provider]; ok {
			continue
		}
		seen[provider] = struct{}{}
		if err := provider.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// NormalizeType maps host type spellings to a canonical name. An empty type
// means an OpenAI-compatible llama.cpp server.
func NormalizeType(hostType string) string {
	normalized := strings.ToLower(strings.TrimSpace(hostType))
	switch normalized {
	case "", "llama.cpp", "llamacpp", "openai":
		return "llama.cpp"
	default:
		return normalized
	}
}
