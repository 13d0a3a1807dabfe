// Package upstream resolves provider endpoints and credentials for relay
// commands.
package upstream

import (
	"errors"
	"fmt"

	"github.com/papercomputeco/relay/pkg/config"
	"github.com/papercomputeco/relay/pkg/credentials"
	"github.com/papercomputeco/relay/pkg/llm/provider"
)

// Resolve returns the upstream of the named provider: its configured base URL
// and the resolved API key.
func Resolve(cfg *config.Config, creds *credentials.Manager, name string) (provider.Upstream, error) {
	baseURL, err := cfg.UpstreamURL(name)
	if err != nil {
		return provider.Upstream{}, err
	}
	if baseURL == "" {
		return provider.Upstream{}, fmt.Errorf("no base URL configured for %s", name)
	}

	key, err := creds.Resolve(name)
	if err != nil {
		return provider.Upstream{}, err
	}

	return provider.Upstream{BaseURL: baseURL, APIKey: key}, nil
}

// ResolveAll resolves every supported provider that has a credential.
// Providers without a key are skipped; it fails only when none resolve.
func ResolveAll(cfg *config.Config, creds *credentials.Manager) (map[string]provider.Upstream, error) {
	upstreams := make(map[string]provider.Upstream)
	for _, name := range provider.SupportedProviders() {
		up, err := Resolve(cfg, creds, name)
		if errors.Is(err, credentials.ErrNoKey) {
			continue
		}
		if err != nil {
			return nil, err
		}
		upstreams[name] = up
	}

	if len(upstreams) == 0 {
		return nil, fmt.Errorf("%w for any provider: set ANTHROPIC_API_KEY or OPENAI_API_KEY, or run 'relay auth <provider>'",
			credentials.ErrNoKey)
	}

	return upstreams, nil
}
