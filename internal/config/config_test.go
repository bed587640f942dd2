package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearLLMEnv blanks the key variables so the host environment cannot leak in.
func clearLLMEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"CITYSNAP_LLM_OPENAI_API_KEY", "OPEN_API_KEY", "OPENAI_API_KEY",
		"CITYSNAP_LLM_ANTHROPIC_API_KEY", "ANTHROPIC_API_KEY",
		"CITYSNAP_LLM_GEMINI_API_KEY", "GEMINI_API_KEY",
	} {
		t.Setenv(name, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearLLMEnv(t)
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8081", cfg.Server.Address())
	assert.Equal(t, "filesystem", cfg.Storage.Backend)
	assert.Equal(t, "uploads", cfg.Storage.UploadDir)
	assert.Equal(t, "https://nominatim.openstreetmap.org/search", cfg.Geocoding.BaseURL)
	assert.Equal(t, "https://nominatim.openstreetmap.org/reverse", cfg.Geocoding.ReverseURL)
	assert.Equal(t, 1, cfg.Geocoding.Limit)
	assert.Equal(t, 18, cfg.Geocoding.ReverseZoom)
	assert.Equal(t, 10*time.Second, cfg.Geocoding.Timeout)
	assert.Equal(t, "https://www.openstreetmap.org/api/0.6", cfg.BuildingData.BaseURL)
	assert.Equal(t, []string{"openai", "anthropic", "gemini"}, cfg.LLM.ProviderOrder)
	assert.Empty(t, cfg.LLM.OpenAI.APIKey)
	assert.Equal(t, 120*time.Second, cfg.LLM.Timeout)
	assert.Zero(t, cfg.LLM.RatePerMinute)
	assert.Empty(t, cfg.Auth.APIKeys)
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearLLMEnv(t)
	t.Chdir(t.TempDir())
	t.Setenv("CITYSNAP_SERVER_PORT", "9090")
	t.Setenv("CITYSNAP_GEOCODING_TIMEOUT", "3s")
	t.Setenv("CITYSNAP_UPLOAD_DIR", "/tmp/citysnap-photos")
	t.Setenv("CITYSNAP_LLM_DEFAULT_PROVIDER", "anthropic")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 3*time.Second, cfg.Geocoding.Timeout)
	assert.Equal(t, "/tmp/citysnap-photos", cfg.Storage.UploadDir)
	assert.Equal(t, "anthropic", cfg.LLM.DefaultProvider)
}

func TestLoad_APIKeyAliases(t *testing.T) {
	clearLLMEnv(t)
	t.Chdir(t.TempDir())
	t.Setenv("OPEN_API_KEY", "  sk-legacy \n")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "sk-legacy", cfg.LLM.OpenAI.APIKey)
	assert.Equal(t, "sk-ant", cfg.LLM.Anthropic.APIKey)
	assert.Empty(t, cfg.LLM.Gemini.APIKey)
}

func TestLoad_ConfigFile(t *testing.T) {
	clearLLMEnv(t)
	t.Chdir(t.TempDir())

	path := filepath.Join(t.TempDir(), "citysnap.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
storage:
  backend: s3
  s3:
    endpoint: localhost:9000
    bucket: photos
auth:
  api_keys: [client-a, client-b]
llm:
  provider_order: [gemini]
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "s3", cfg.Storage.Backend)
	assert.Equal(t, "localhost:9000", cfg.Storage.S3.Endpoint)
	assert.Equal(t, "photos", cfg.Storage.S3.Bucket)
	assert.True(t, cfg.Storage.S3.UseSSL)
	assert.Equal(t, []string{"client-a", "client-b"}, cfg.Auth.APIKeys)
	assert.Equal(t, []string{"gemini"}, cfg.LLM.ProviderOrder)
}

func TestLoad_Invalid(t *testing.T) {
	clearLLMEnv(t)
	t.Chdir(t.TempDir())

	t.Run("missing explicit file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.ErrorContains(t, err, "reading config file")
	})

	t.Run("malformed default file", func(t *testing.T) {
		dir := t.TempDir()
		t.Chdir(dir)
		if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("server: [port: 1\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		_, err := Load("")
		if err == nil {
			t.Fatal("expected an error for a malformed config.yaml")
		}
		assert.ErrorContains(t, err, "reading config file")
	})

	t.Run("unknown backend", func(t *testing.T) {
		t.Setenv("CITYSNAP_STORAGE_BACKEND", "ftp")
		_, err := Load("")
		assert.ErrorContains(t, err, `unknown storage backend "ftp"`)
	})

	t.Run("zero geocoding limit", func(t *testing.T) {
		t.Setenv("CITYSNAP_GEOCODING_LIMIT", "0")
		_, err := Load("")
		assert.ErrorContains(t, err, "geocoding.limit")
	})
}
