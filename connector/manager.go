package connector

import (
	"context"
	"fmt"
	"sync"
)

var globalManager = &manager{
	providers: make(map[string]Provider),
}

type manager struct {
	providers map[string]Provider
	mu        sync.RWMutex
}

// Register makes a provider available under the given name.
func Register(name string, provider Provider) {
	globalManager.mu.Lock()
	defer globalManager.mu.Unlock()
	globalManager.providers[name] = provider
}

// Connect opens a connection through the named provider, honoring the
// configured retry policy.
func Connect(ctx context.Context, name string, config Config) (Connection, error) {
	globalManager.mu.RLock()
	provider, ok := globalManager.providers[name]
	globalManager.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("provider %s not registered", name)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if config.Retry != nil {
		return retryConnect(ctx, *config.Retry, func(ctx context.Context) (Connection, error) {
			return provider.Connect(ctx, config)
		})
	}
	return provider.Connect(ctx, config)
}
