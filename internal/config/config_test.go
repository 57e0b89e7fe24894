package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parcelscope/internal/config"
)

func TestParserConfig_PrimaryConfig_LegacyFallback(t *testing.T) {
	cfg := config.ParserConfig{
		Provider:     "openai",
		APIKey:       "sk-legacy",
		DefaultModel: "gpt-4o",
		MaxRetries:   3,
		TimeoutSecs:  30,
		Temperature:  0.1,
		MaxTokens:    4000,
	}

	primary := cfg.PrimaryConfig()

	assert.Equal(t, "openai", primary.Provider)
	assert.Equal(t, "sk-legacy", primary.APIKey)
	assert.Equal(t, "gpt-4o", primary.DefaultModel)
	assert.Equal(t, 3, primary.MaxRetries)
	assert.Equal(t, 30, primary.TimeoutSecs)
	assert.InDelta(t, 0.1, primary.Temperature, 1e-6)
	assert.Equal(t, 4000, primary.MaxTokens)
}

func TestParserConfig_PrimaryConfig_ExplicitPrimary(t *testing.T) {
	cfg := config.ParserConfig{
		Provider:    "legacy-should-be-ignored",
		Temperature: 0.2,
		MaxTokens:   2048,
		Primary: config.ParserProviderConfig{
			Provider:     "claude",
			APIKey:       "sk-primary",
			DefaultModel: "claude-sonnet-4-20250514",
		},
	}

	primary := cfg.PrimaryConfig()

	assert.Equal(t, "claude", primary.Provider)
	assert.Equal(t, "sk-primary", primary.APIKey)
	assert.Equal(t, "claude-sonnet-4-20250514", primary.DefaultModel)
	assert.InDelta(t, 0.2, primary.Temperature, 1e-6, "sampling params inherited from flat section")
	assert.Equal(t, 2048, primary.MaxTokens)
}

func TestParserConfig_SecondaryConfig_NotConfigured(t *testing.T) {
	cfg := config.ParserConfig{
		Provider: "openai",
		APIKey:   "sk-test",
	}

	assert.Nil(t, cfg.SecondaryConfig())
	assert.Nil(t, cfg.TertiaryConfig())
}

func TestParserConfig_SecondaryAndTertiaryConfigured(t *testing.T) {
	cfg := config.ParserConfig{
		Primary: config.ParserProviderConfig{
			Provider: "openai",
			APIKey:   "sk-primary",
		},
		Secondary: config.ParserProviderConfig{
			Provider:     "gemini",
			APIKey:       "gk-secondary",
			DefaultModel: "gemini-2.0-flash",
		},
		Tertiary: config.ParserProviderConfig{
			Provider:     "claude",
			APIKey:       "sk-tertiary",
			DefaultModel: "claude-sonnet-4-20250514",
		},
	}

	secondary := cfg.SecondaryConfig()
	require.NotNil(t, secondary)
	assert.Equal(t, "gemini", secondary.Provider)
	assert.Equal(t, "gk-secondary", secondary.APIKey)
	assert.Equal(t, "gemini-2.0-flash", secondary.DefaultModel)

	tertiary := cfg.TertiaryConfig()
	require.NotNil(t, tertiary)
	assert.Equal(t, "claude", tertiary.Provider)
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("OPENAI_API_KEY", "")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Port)
	assert.Equal(t, int64(16), cfg.Upload.MaxFileSizeMB)
	assert.Equal(t, int64(16*1024*1024), cfg.Upload.MaxFileSizeBytes())
	assert.Equal(t, time.Hour, cfg.Upload.RetentionTTL)
	assert.Equal(t, int64(100_000_000), cfg.Upload.MaxImagePixels)
	assert.Equal(t, "local", cfg.Storage.Backend)
	assert.Equal(t, 3, cfg.Parser.MaxRetries)
	assert.Equal(t, 60, cfg.Parser.TimeoutSecs)
	assert.InDelta(t, 1.0, cfg.Geometry.MaxSpanDegrees, 1e-9)
	assert.NotEmpty(t, cfg.CORS.AllowedOrigins)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PARCELSCOPE_UPLOAD_MAX_FILE_SIZE_MB", "8")
	t.Setenv("PARCELSCOPE_STORAGE_BACKEND", "MINIO")
	t.Setenv("PARCELSCOPE_PARSER_SECONDARY_PROVIDER", "gemini")
	t.Setenv("PARCELSCOPE_CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example ,")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, int64(8), cfg.Upload.MaxFileSizeMB)
	assert.Equal(t, "minio", cfg.Storage.Backend)
	assert.Equal(t, "gemini", cfg.Parser.Secondary.Provider)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
}

func TestLoad_PortOverride(t *testing.T) {
	t.Setenv("PARCELSCOPE_SERVER_PORT", "")
	t.Setenv("PORT", "9090")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Port)
}

func TestLoad_OpenAIKeyFallback(t *testing.T) {
	t.Setenv("PARCELSCOPE_PARSER_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "sk-from-openai-env")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "sk-from-openai-env", cfg.Parser.APIKey)
}
