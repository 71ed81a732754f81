package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, ProviderGemini, cfg.Provider)
	assert.Equal(t, "gemini-2.5-flash-lite", cfg.GetModel(TierLite))
	assert.Equal(t, "gemini-2.5-flash", cfg.GetModel(TierStandard))
	assert.Equal(t, "gemini-2.5-pro", cfg.GetModel(TierAdvanced))
}

func TestGetModel_FallbackChain(t *testing.T) {
	tests := []struct {
		name   string
		models map[ModelTier]string
		tier   ModelTier
		want   string
	}{
		{
			name:   "unmapped tier falls back to standard",
			models: map[ModelTier]string{TierStandard: "std", TierLite: "lite"},
			tier:   TierAdvanced,
			want:   "std",
		},
		{
			name:   "then to lite",
			models: map[ModelTier]string{TierLite: "lite"},
			tier:   TierAdvanced,
			want:   "lite",
		},
		{
			name:   "empty config yields empty name",
			models: map[ModelTier]string{},
			tier:   TierAdvanced,
			want:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Provider: ProviderGemini, Models: tt.models}
			assert.Equal(t, tt.want, cfg.GetModel(tt.tier))
		})
	}
}

func TestWithModel_CopiesConfig(t *testing.T) {
	base := DefaultConfig()
	custom := base.WithModel(TierAdvanced, "custom-model")

	assert.Equal(t, "custom-model", custom.GetModel(TierAdvanced))
	assert.Equal(t, base.GetModel(TierLite), custom.GetModel(TierLite))
	assert.Equal(t, "gemini-2.5-pro", base.GetModel(TierAdvanced), "base config must not change")
}
