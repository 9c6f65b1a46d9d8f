package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv(configPathEnv, "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ModeLocal, cfg.Mode)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, ProviderMock, cfg.LLM.Provider)
	assert.Equal(t, 0.7, cfg.LLM.Temperature)
	assert.Equal(t, 2048, cfg.LLM.MaxTokens)
	assert.Equal(t, StorageMemory, cfg.Storage.Backend)
	assert.Equal(t, 3, cfg.Diary.ContextLimit)
	assert.Equal(t, "default", cfg.Diary.DefaultUsername)
	assert.Equal(t, 100, cfg.Diary.PreviewLength)
}

func TestLoad_FileThenEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chronicle.yaml")
	yml := `
port: "9000"
llm:
  provider: anthropic
  anthropicApiKey: from-file
  temperature: 0.5
diary:
  contextLimit: 5
client:
  requestTimeout: 30s
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o600))

	t.Setenv(configPathEnv, path)
	t.Setenv("CHRONICLE_CONTEXT_LIMIT", "7")
	t.Setenv("ANTHROPIC_API_KEY", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, ProviderAnthropic, cfg.LLM.Provider)
	assert.Equal(t, "from-file", cfg.LLM.AnthropicAPIKey)
	assert.Equal(t, 0.5, cfg.LLM.Temperature)
	assert.Equal(t, 7, cfg.Diary.ContextLimit)
	assert.Equal(t, 30*time.Second, cfg.Client.RequestTimeout)
	// keys absent from the file keep their defaults
	assert.Equal(t, 2048, cfg.LLM.MaxTokens)
}

func TestLoad_MissingFile(t *testing.T) {
	t.Setenv(configPathEnv, filepath.Join(t.TempDir(), "nope.yaml"))

	_, err := Load()
	require.Error(t, err)
}

func TestLoad_UseMockOverridesProvider(t *testing.T) {
	t.Setenv(configPathEnv, "")
	t.Setenv("CHRONICLE_LLM_PROVIDER", ProviderVertex)
	t.Setenv("CHRONICLE_USE_MOCK_LLM", "1")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ProviderMock, cfg.LLM.Provider)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"vertex without project", func(c *Config) { c.LLM.Provider = ProviderVertex }, true},
		{"vertex with project", func(c *Config) {
			c.LLM.Provider = ProviderVertex
			c.LLM.GCPProjectID = "p"
		}, false},
		{"anthropic without key", func(c *Config) { c.LLM.Provider = ProviderAnthropic }, true},
		{"unknown provider", func(c *Config) { c.LLM.Provider = "gpt" }, true},
		{"postgres without dsn", func(c *Config) { c.Storage.Backend = StoragePostgres }, true},
		{"firestore without project", func(c *Config) { c.Storage.Backend = StorageFirestore }, true},
		{"unknown backend", func(c *Config) { c.Storage.Backend = "sqlite" }, true},
		{"gcp mode without project", func(c *Config) { c.Mode = ModeGCP }, true},
		{"zero list limit", func(c *Config) { c.Diary.ListLimit = 0 }, true},
		{"negative rate", func(c *Config) { c.LLM.RatePerMinute = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Defaults()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadFrom_ExplicitPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cli.yaml")
	require.NoError(t, os.WriteFile(path, []byte("client:\n  serverUrl: http://diary.local:9000\n"), 0o600))
	t.Setenv("CHRONICLE_SERVER_URL", "")

	cfg, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, "http://diary.local:9000", cfg.Client.ServerURL)
}
