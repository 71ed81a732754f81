package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJWTConfig(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret-key-for-jwt-signing-minimum-32-bytes")
	t.Setenv("JWT_EXPIRATION_HOURS", "12")

	cfg, err := NewJWTConfig()
	require.NoError(t, err)
	assert.Equal(t, "test-secret-key-for-jwt-signing-minimum-32-bytes", cfg.Secret)
	assert.Equal(t, 12, cfg.ExpirationHours)
}

func TestNewJWTConfig_DefaultExpiration(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret-key-for-jwt-signing-minimum-32-bytes")
	t.Setenv("JWT_EXPIRATION_HOURS", "")
	os.Unsetenv("JWT_EXPIRATION_HOURS")

	cfg, err := NewJWTConfig()
	require.NoError(t, err)
	assert.Equal(t, 24, cfg.ExpirationHours)
}

func TestNewJWTConfig_MissingSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	os.Unsetenv("JWT_SECRET")

	cfg, err := NewJWTConfig()
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestNewJWTConfig_BadExpiration(t *testing.T) {
	tests := []struct {
		name  string
		hours string
	}{
		{"not a number", "abc"},
		{"zero", "0"},
		{"negative", "-5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("JWT_SECRET", "test-secret-key-for-jwt-signing-minimum-32-bytes")
			t.Setenv("JWT_EXPIRATION_HOURS", tt.hours)

			cfg, err := NewJWTConfig()
			assert.Error(t, err)
			assert.Nil(t, cfg)
		})
	}
}
