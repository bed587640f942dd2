// Package config handles application configuration using Viper.
// Sources are merged in priority order: defaults, optional YAML file, .env file
// and CITYSNAP_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the root configuration struct.
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Storage      StorageConfig      `mapstructure:"storage"`
	Geocoding    GeocodingConfig    `mapstructure:"geocoding"`
	BuildingData BuildingDataConfig `mapstructure:"building_data"`
	LLM          LLMConfig          `mapstructure:"llm"`
	Auth         AuthConfig         `mapstructure:"auth"`
	CORS         CORSConfig         `mapstructure:"cors"`
	RateLimit    RateLimitConfig    `mapstructure:"rate_limit"`
	Log          LogConfig          `mapstructure:"log"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type StorageConfig struct {
	// Backend selects the image store: "filesystem" or "s3".
	Backend      string   `mapstructure:"backend"`
	UploadDir    string   `mapstructure:"upload_dir"`
	DatabasePath string   `mapstructure:"database_path"`
	S3           S3Config `mapstructure:"s3"`
}

type S3Config struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

type GeocodingConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	ReverseURL        string        `mapstructure:"reverse_url"`
	UserAgent         string        `mapstructure:"user_agent"`
	Limit             int           `mapstructure:"limit"`
	Timeout           time.Duration `mapstructure:"timeout"`
	ReverseZoom       int           `mapstructure:"reverse_zoom"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
}

type BuildingDataConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	UserAgent string        `mapstructure:"user_agent"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

type LLMConfig struct {
	// ProviderOrder controls which providers are built and the fallback order.
	ProviderOrder []string `mapstructure:"provider_order"`
	// DefaultProvider is queried first; empty means the first configured one.
	DefaultProvider string          `mapstructure:"default_provider"`
	OpenAI          OpenAIConfig    `mapstructure:"openai"`
	Anthropic       AnthropicConfig `mapstructure:"anthropic"`
	Gemini          GeminiConfig    `mapstructure:"gemini"`
	Timeout         time.Duration   `mapstructure:"timeout"`
	RatePerMinute   int             `mapstructure:"rate_per_minute"`
	WebSearch       bool            `mapstructure:"web_search"`
}

type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
}

type AnthropicConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

type GeminiConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

type AuthConfig struct {
	APIKeys   []string `mapstructure:"api_keys"`
	AdminKeys []string `mapstructure:"admin_keys"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

const defaultUserAgent = "CitySnapGateway/0.1 (+https://github.com/fesswood)"

// Load reads configuration from a YAML file, a .env file and the environment.
func Load(configPath string) (*Config, error) {
	// A missing .env is the normal case outside local development.
	_ = godotenv.Load()

	v := viper.New()

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8081)
	v.SetDefault("storage.backend", "filesystem")
	v.SetDefault("storage.upload_dir", "uploads")
	v.SetDefault("storage.database_path", "./storage/citysnap.db")
	v.SetDefault("storage.s3.endpoint", "")
	v.SetDefault("storage.s3.access_key", "")
	v.SetDefault("storage.s3.secret_key", "")
	v.SetDefault("storage.s3.bucket", "citysnap-uploads")
	v.SetDefault("storage.s3.region", "us-east-1")
	v.SetDefault("storage.s3.use_ssl", true)
	v.SetDefault("geocoding.base_url", "https://nominatim.openstreetmap.org/search")
	v.SetDefault("geocoding.reverse_url", "https://nominatim.openstreetmap.org/reverse")
	v.SetDefault("geocoding.user_agent", defaultUserAgent)
	v.SetDefault("geocoding.limit", 1)
	v.SetDefault("geocoding.timeout", 10*time.Second)
	v.SetDefault("geocoding.reverse_zoom", 18)
	v.SetDefault("geocoding.requests_per_second", 1)
	v.SetDefault("building_data.base_url", "https://www.openstreetmap.org/api/0.6")
	v.SetDefault("building_data.user_agent", defaultUserAgent)
	v.SetDefault("building_data.timeout", 10*time.Second)
	v.SetDefault("llm.provider_order", []string{"openai", "anthropic", "gemini"})
	v.SetDefault("llm.default_provider", "")
	v.SetDefault("llm.openai.api_key", "")
	v.SetDefault("llm.openai.model", "gpt-4o-mini")
	v.SetDefault("llm.openai.base_url", "")
	v.SetDefault("llm.anthropic.api_key", "")
	v.SetDefault("llm.anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("llm.gemini.api_key", "")
	v.SetDefault("llm.gemini.model", "gemini-2.0-flash")
	v.SetDefault("llm.timeout", 120*time.Second)
	v.SetDefault("llm.rate_per_minute", 0)
	v.SetDefault("llm.web_search", false)
	v.SetDefault("auth.api_keys", []string{})
	v.SetDefault("auth.admin_keys", []string{})
	v.SetDefault("cors.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("rate_limit.requests_per_second", 5)
	v.SetDefault("rate_limit.burst", 10)
	v.SetDefault("log.level", "info")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	if err := v.ReadInConfig(); err != nil {
		// Only a missing default config file is fine; an explicit path must exist.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	// CITYSNAP_ prefix + nested keys: CITYSNAP_GEOCODING_TIMEOUT=5s -> geocoding.timeout
	v.SetEnvPrefix("CITYSNAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Unprefixed names the deployment already uses.
	aliases := map[string][]string{
		"storage.upload_dir":    {"CITYSNAP_UPLOAD_DIR"},
		"llm.openai.api_key":    {"CITYSNAP_LLM_OPENAI_API_KEY", "OPEN_API_KEY", "OPENAI_API_KEY"},
		"llm.anthropic.api_key": {"CITYSNAP_LLM_ANTHROPIC_API_KEY", "ANTHROPIC_API_KEY"},
		"llm.gemini.api_key":    {"CITYSNAP_LLM_GEMINI_API_KEY", "GEMINI_API_KEY"},
	}
	for key, envs := range aliases {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, fmt.Errorf("binding env for %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.LLM.OpenAI.APIKey = strings.TrimSpace(cfg.LLM.OpenAI.APIKey)
	cfg.LLM.Anthropic.APIKey = strings.TrimSpace(cfg.LLM.Anthropic.APIKey)
	cfg.LLM.Gemini.APIKey = strings.TrimSpace(cfg.LLM.Gemini.APIKey)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Storage.Backend {
	case "filesystem", "s3":
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	if c.Geocoding.Limit < 1 {
		return fmt.Errorf("geocoding.limit must be at least 1")
	}
	return nil
}

// Address returns the listen address string like "0.0.0.0:8081".
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
