package ai

import "sort"

// ModelInfo describes a model well enough to budget prompts and warn about
// cost.
type ModelInfo struct {
	Name          string
	Provider      string
	ContextTokens int     // approximate context window
	InputPerK     float64 // USD per 1K input tokens
	OutputPerK    float64 // USD per 1K output tokens
}

// Prices are illustrative. Cortex bills in warehouse credits and is listed
// without a price.
var models = map[string]ModelInfo{
	"mistral-large":  {Name: "mistral-large", Provider: ProviderCortex, ContextTokens: 32000},
	"mistral-large2": {Name: "mistral-large2", Provider: ProviderCortex, ContextTokens: 128000},
	"llama3.1-70b":   {Name: "llama3.1-70b", Provider: ProviderCortex, ContextTokens: 128000},
	"snowflake-arctic": {
		Name: "snowflake-arctic", Provider: ProviderCortex, ContextTokens: 4096,
	},
	"openai/gpt-4o-mini": {
		Name: "openai/gpt-4o-mini", Provider: ProviderOpenRouter, ContextTokens: 128000,
		InputPerK: 0.0006, OutputPerK: 0.0024,
	},
	"anthropic/claude-3.5-sonnet": {
		Name: "anthropic/claude-3.5-sonnet", Provider: ProviderOpenRouter, ContextTokens: 200000,
		InputPerK: 0.003, OutputPerK: 0.015,
	},
	"deepseek/deepseek-r1:free": {
		Name: "deepseek/deepseek-r1:free", Provider: ProviderOpenRouter, ContextTokens: 128000,
	},
	"gemini-2.0-flash": {
		Name: "gemini-2.0-flash", Provider: ProviderGemini, ContextTokens: 1000000,
		InputPerK: 0.0001, OutputPerK: 0.0004,
	},
	"gemini-1.5-pro": {
		Name: "gemini-1.5-pro", Provider: ProviderGemini, ContextTokens: 1000000,
		InputPerK: 0.00125, OutputPerK: 0.005,
	},
	"llama3.1:8b": {Name: "llama3.1:8b", Provider: ProviderOllama, ContextTokens: 8192},
	"mistral-nemo:latest": {
		Name: "mistral-nemo:latest", Provider: ProviderOllama, ContextTokens: 8192,
	},
}

var defaultModels = map[string]string{
	ProviderCortex:     "mistral-large",
	ProviderOpenRouter: "openai/gpt-4o-mini",
	ProviderGemini:     "gemini-2.0-flash",
	ProviderOllama:     "llama3.1:8b",
}

// DefaultModel returns the model used for provider when none is configured.
func DefaultModel(provider string) string { return defaultModels[provider] }

// LookupModel returns ModelInfo and ok flag.
func LookupModel(name string) (ModelInfo, bool) {
	mi, ok := models[name]
	return mi, ok
}

// ModelsFor lists the known models of provider, or all when it is empty,
// sorted by name.
func ModelsFor(provider string) []ModelInfo {
	var out []ModelInfo
	for _, m := range models {
		if provider == "" || m.Provider == provider {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// EstimateCostUSD estimates total cost in USD for given tokens using model pricing.
// If the model is unknown, returns 0 and ok=false.
func EstimateCostUSD(model string, promptTokens, completionTokens int) (float64, bool) {
	mi, ok := LookupModel(model)
	if !ok {
		return 0, false
	}
	inCost := (float64(promptTokens) / 1000.0) * mi.InputPerK
	outCost := (float64(completionTokens) / 1000.0) * mi.OutputPerK
	return inCost + outCost, true
}

// PromptBudget caps the configured prompt token limit so prompt plus answer
// fit the model's context window. Unknown models keep the configured limit.
func PromptBudget(model string, limit, maxTokens int) int {
	mi, ok := LookupModel(model)
	if !ok || mi.ContextTokens <= 0 {
		return limit
	}
	room := mi.ContextTokens - maxTokens
	if room <= 0 {
		return limit
	}
	if limit <= 0 || limit > room {
		return room
	}
	return limit
}
