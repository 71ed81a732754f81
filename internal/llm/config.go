// Package llm provides the model-tier configuration and client
// abstraction the pipeline stages generate content through.
package llm

// ModelTier selects model capability. Stages pick a tier rather than a
// concrete model name so deployments can swap models without code changes.
type ModelTier string

const (
	// TierLite handles cheap classification and short summaries.
	TierLite ModelTier = "lite"
	// TierStandard handles moderate reasoning such as fact summarization.
	TierStandard ModelTier = "standard"
	// TierAdvanced handles topic extraction, brief synthesis and drafting.
	TierAdvanced ModelTier = "advanced"
)

// Provider names a model backend.
type Provider string

// ProviderGemini is the only backend currently wired up.
const ProviderGemini Provider = "gemini"

// Config maps tiers to concrete model names for one provider.
type Config struct {
	Provider Provider
	Models   map[ModelTier]string
}

// DefaultConfig returns the Gemini defaults.
func DefaultConfig() *Config {
	return DefaultGeminiConfig()
}

// DefaultGeminiConfig maps the tiers onto the Gemini 2.5 family.
func DefaultGeminiConfig() *Config {
	return &Config{
		Provider: ProviderGemini,
		Models: map[ModelTier]string{
			TierLite:     "gemini-2.5-flash-lite",
			TierStandard: "gemini-2.5-flash",
			TierAdvanced: "gemini-2.5-pro",
		},
	}
}

// GetModel resolves a tier to a model name, falling back to standard and
// then lite when the tier has no mapping.
func (c *Config) GetModel(tier ModelTier) string {
	if model, ok := c.Models[tier]; ok {
		return model
	}
	for _, fallback := range []ModelTier{TierStandard, TierLite} {
		if model, ok := c.Models[fallback]; ok {
			return model
		}
	}
	return ""
}

// WithModel returns a copy of the config with one tier overridden.
func (c *Config) WithModel(tier ModelTier, model string) *Config {
	models := make(map[ModelTier]string, len(c.Models)+1)
	for k, v := range c.Models {
		models[k] = v
	}
	models[tier] = model
	return &Config{Provider: c.Provider, Models: models}
}
