package ai

import (
	"database/sql"
	"fmt"
	"sort"
)

// RuntimeFactory builds a Runtime from a RuntimeConfig.
type RuntimeFactory func(RuntimeConfig) (Runtime, error)

// RuntimeConfig is the union of what the providers need. Each factory reads
// only its own fields.
type RuntimeConfig struct {
	HTTP HTTPOptions
	// APIKey is the OpenRouter or Gemini key.
	APIKey string
	// Host is the Ollama base URL.
	Host string
	// DB is the warehouse connection Cortex runs on.
	DB *sql.DB
}

var registry = map[string]RuntimeFactory{}

// RegisterRuntime binds a provider name to its factory.
func RegisterRuntime(name string, f RuntimeFactory) { registry[name] = f }

// GetRuntime creates the Runtime for provider name.
func GetRuntime(name string, cfg RuntimeConfig) (Runtime, error) {
	f, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown ai provider %q (known: %v)", name, Providers())
	}
	return f(cfg)
}

// Providers lists the registered provider names in order.
func Providers() []string {
	out := make([]string, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func init() {
	RegisterRuntime(ProviderOpenRouter, func(c RuntimeConfig) (Runtime, error) {
		return NewOpenRouterClient(c.APIKey, c.HTTP), nil
	})
	RegisterRuntime(ProviderOllama, func(c RuntimeConfig) (Runtime, error) {
		return NewOllamaClient(c.Host, c.HTTP), nil
	})
	RegisterRuntime(ProviderGemini, func(c RuntimeConfig) (Runtime, error) {
		return NewGeminiClient(c.APIKey, GeminiOptions{})
	})
	RegisterRuntime(ProviderCortex, func(c RuntimeConfig) (Runtime, error) {
		if c.DB == nil {
			return nil, fmt.Errorf("cortex needs an open warehouse connection")
		}
		return NewCortexClient(c.DB), nil
	})
}
