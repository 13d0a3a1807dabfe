package provider

import (
	"fmt"
	"slices"

	"github.com/papercomputeco/relay/pkg/llm/provider/anthropic"
	"github.com/papercomputeco/relay/pkg/llm/provider/openai"
)

// Provider names accepted by New.
const (
	Anthropic = "anthropic"
	OpenAI    = "openai"
)

var constructors = map[string]func() Provider{
	Anthropic: func() Provider { return anthropic.New() },
	OpenAI:    func() Provider { return openai.New() },
}

// SupportedProviders returns the names New accepts, sorted.
func SupportedProviders() []string {
	names := make([]string, 0, len(constructors))
	for name := range constructors {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// IsSupported reports whether New accepts name.
func IsSupported(name string) bool {
	_, ok := constructors[name]
	return ok
}

// New returns the Provider registered under name, or ErrUnknownProvider.
func New(name string) (Provider, error) {
	ctor, ok := constructors[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (supported: %v)", ErrUnknownProvider, name, SupportedProviders())
	}
	return ctor(), nil
}
