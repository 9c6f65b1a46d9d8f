package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Mode string

const (
	ModeLocal Mode = "local"
	ModeGCP   Mode = "gcp"
)

const (
	ProviderMock      = "mock"
	ProviderVertex    = "vertex"
	ProviderAnthropic = "anthropic"

	StorageMemory    = "memory"
	StoragePostgres  = "postgres"
	StorageFirestore = "firestore"
)

const configPathEnv = "CHRONICLE_CONFIG"

type Config struct {
	Mode Mode `yaml:"mode"`

	Port      string `yaml:"port"`
	LogLevel  string `yaml:"logLevel"`
	LogFormat string `yaml:"logFormat"`

	LLM     LLMConfig     `yaml:"llm"`
	Storage StorageConfig `yaml:"storage"`
	Diary   DiaryConfig   `yaml:"diary"`
	Client  ClientConfig  `yaml:"client"`
}

// LLMConfig selects and tunes the text-generation provider.
type LLMConfig struct {
	Provider    string  `yaml:"provider"` // "mock", "vertex" or "anthropic"
	ModelName   string  `yaml:"model"`    // empty picks the provider default
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"maxTokens"`

	GCPProjectID    string `yaml:"gcpProject"`
	GCPLocation     string `yaml:"gcpLocation"`
	AnthropicAPIKey string `yaml:"anthropicApiKey"`

	// RatePerMinute limits provider calls; 0 disables limiting.
	RatePerMinute float64 `yaml:"ratePerMinute"`
	Burst         int     `yaml:"burst"`
}

type StorageConfig struct {
	Backend     string `yaml:"backend"` // "memory", "postgres" or "firestore"
	PostgresDSN string `yaml:"postgresDsn"`
}

// DiaryConfig holds entry generation and presentation defaults.
type DiaryConfig struct {
	ContextLimit    int    `yaml:"contextLimit"`
	DefaultUsername string `yaml:"defaultUsername"`
	ListLimit       int    `yaml:"listLimit"`
	PreviewLength   int    `yaml:"previewLength"`
}

// ClientConfig is used by the CLI when talking to a remote API.
type ClientConfig struct {
	ServerURL      string        `yaml:"serverUrl"`
	RequestTimeout time.Duration `yaml:"requestTimeout"`
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getBoolEnv(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if v == "1" || v == "true" || v == "TRUE" {
		return true
	}
	return false
}

func getIntEnv(key string, def int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return def
}

func getFloatEnv(key string, def float64) float64 {
	if f, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return f
	}
	return def
}

func getDurationEnv(key string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return d
	}
	return def
}

// Defaults returns the configuration used when nothing is set.
func Defaults() *Config {
	return &Config{
		Mode:      ModeLocal,
		Port:      "8080",
		LogLevel:  "info",
		LogFormat: "json",
		LLM: LLMConfig{
			Provider:    ProviderMock,
			Temperature: 0.7,
			MaxTokens:   2048,
			GCPLocation: "us-central1",
			Burst:       1,
		},
		Storage: StorageConfig{
			Backend: StorageMemory,
		},
		Diary: DiaryConfig{
			ContextLimit:    3,
			DefaultUsername: "default",
			ListLimit:       10,
			PreviewLength:   100,
		},
		Client: ClientConfig{
			ServerURL:      "http://localhost:8080",
			RequestTimeout: 2 * time.Minute,
		},
	}
}

// Load reads .env, an optional YAML file named by CHRONICLE_CONFIG and the
// CHRONICLE_* environment variables, in increasing order of precedence.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return LoadFrom(os.Getenv(configPathEnv))
}

// LoadFrom is Load with an explicit YAML path; an empty path skips the file.
func LoadFrom(path string) (*Config, error) {
	// godotenv never overrides variables that are already set.
	_ = godotenv.Load()

	cfg := Defaults()

	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: reading %s: %w", path, err)
	}
	// Decoding over the defaults keeps every key the file leaves out.
	if err := yaml.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	switch getEnv("CHRONICLE_MODE", string(c.Mode)) {
	case "gcp":
		c.Mode = ModeGCP
	default:
		c.Mode = ModeLocal
	}

	c.Port = getEnv("CHRONICLE_PORT", getEnv("PORT", c.Port))
	c.LogLevel = getEnv("CHRONICLE_LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv("CHRONICLE_LOG_FORMAT", c.LogFormat)

	c.LLM.Provider = getEnv("CHRONICLE_LLM_PROVIDER", c.LLM.Provider)
	if getBoolEnv("CHRONICLE_USE_MOCK_LLM", false) {
		c.LLM.Provider = ProviderMock
	}
	c.LLM.ModelName = getEnv("CHRONICLE_MODEL_NAME", c.LLM.ModelName)
	c.LLM.Temperature = getFloatEnv("CHRONICLE_TEMPERATURE", c.LLM.Temperature)
	c.LLM.MaxTokens = getIntEnv("CHRONICLE_MAX_TOKENS", c.LLM.MaxTokens)
	c.LLM.GCPProjectID = getEnv("CHRONICLE_GCP_PROJECT", c.LLM.GCPProjectID)
	c.LLM.GCPLocation = getEnv("CHRONICLE_GCP_LOCATION", c.LLM.GCPLocation)
	c.LLM.AnthropicAPIKey = getEnv("CHRONICLE_ANTHROPIC_API_KEY", getEnv("ANTHROPIC_API_KEY", c.LLM.AnthropicAPIKey))
	c.LLM.RatePerMinute = getFloatEnv("CHRONICLE_LLM_RATE_PER_MINUTE", c.LLM.RatePerMinute)
	c.LLM.Burst = getIntEnv("CHRONICLE_LLM_BURST", c.LLM.Burst)

	c.Storage.Backend = getEnv("CHRONICLE_STORAGE_BACKEND", c.Storage.Backend)
	c.Storage.PostgresDSN = getEnv("CHRONICLE_POSTGRES_DSN", getEnv("DATABASE_URL", c.Storage.PostgresDSN))

	c.Diary.ContextLimit = getIntEnv("CHRONICLE_CONTEXT_LIMIT", c.Diary.ContextLimit)
	c.Diary.DefaultUsername = getEnv("CHRONICLE_USERNAME", c.Diary.DefaultUsername)
	c.Diary.ListLimit = getIntEnv("CHRONICLE_LIST_LIMIT", c.Diary.ListLimit)
	c.Diary.PreviewLength = getIntEnv("CHRONICLE_PREVIEW_LENGTH", c.Diary.PreviewLength)

	c.Client.ServerURL = getEnv("CHRONICLE_SERVER_URL", c.Client.ServerURL)
	c.Client.RequestTimeout = getDurationEnv("CHRONICLE_REQUEST_TIMEOUT", c.Client.RequestTimeout)
}

// Validate checks that the selected provider and storage backend have what they need.
func (c *Config) Validate() error {
	var errs []error

	switch c.LLM.Provider {
	case ProviderMock:
	case ProviderVertex:
		if c.LLM.GCPProjectID == "" || c.LLM.GCPLocation == "" {
			errs = append(errs, errors.New("CHRONICLE_GCP_PROJECT and CHRONICLE_GCP_LOCATION must be set for the vertex provider"))
		}
	case ProviderAnthropic:
		if c.LLM.AnthropicAPIKey == "" {
			errs = append(errs, errors.New("ANTHROPIC_API_KEY must be set for the anthropic provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown llm provider %q", c.LLM.Provider))
	}

	switch c.Storage.Backend {
	case StorageMemory:
	case StoragePostgres:
		if c.Storage.PostgresDSN == "" {
			errs = append(errs, errors.New("CHRONICLE_POSTGRES_DSN must be set for the postgres backend"))
		}
	case StorageFirestore:
		if c.LLM.GCPProjectID == "" {
			errs = append(errs, errors.New("CHRONICLE_GCP_PROJECT must be set for the firestore backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage backend %q", c.Storage.Backend))
	}

	if c.Mode == ModeGCP && c.LLM.GCPProjectID == "" {
		errs = append(errs, errors.New("CHRONICLE_GCP_PROJECT must be set in gcp mode"))
	}
	if c.Diary.ListLimit <= 0 {
		errs = append(errs, errors.New("list limit must be positive"))
	}
	if c.LLM.RatePerMinute < 0 {
		errs = append(errs, errors.New("llm rate must not be negative"))
	}

	return errors.Join(errs...)
}

// Addr is the listen address derived from Port.
func (c *Config) Addr() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return ":" + c.Port
}
