package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config holds credentials, output and refinement settings.
type Config struct {
	GitHubToken string    `yaml:"github_token,omitempty" mapstructure:"github_token"`
	OutputDir   string    `yaml:"output_dir"             mapstructure:"output_dir"`
	Model       string    `yaml:"model"                  mapstructure:"model"`
	LogLevel    string    `yaml:"log_level"              mapstructure:"log_level"`
	LogFormat   string    `yaml:"log_format"             mapstructure:"log_format"`
	Providers   Providers `yaml:"providers"              mapstructure:"providers"`
	Refine      Refine    `yaml:"refine"                 mapstructure:"refine"`
	Filter      Filter    `yaml:"filter"                 mapstructure:"filter"`
}

// Providers holds per-provider credentials.
type Providers struct {
	OpenAI     Provider `yaml:"openai"     mapstructure:"openai"`
	Anthropic  Provider `yaml:"anthropic"  mapstructure:"anthropic"`
	Volcengine Provider `yaml:"volcengine" mapstructure:"volcengine"`
	Ollama     Provider `yaml:"ollama"     mapstructure:"ollama"`
}

// Provider is one model provider's key and endpoint.
type Provider struct {
	APIKey  string `yaml:"api_key,omitempty"  mapstructure:"api_key"`
	BaseURL string `yaml:"base_url,omitempty" mapstructure:"base_url"`
}

// Refine holds batching and completion settings.
type Refine struct {
	BatchSize         int           `yaml:"batch_size"          mapstructure:"batch_size"`
	MaxWorkers        int           `yaml:"max_workers"         mapstructure:"max_workers"`
	BatchPause        time.Duration `yaml:"batch_pause"         mapstructure:"batch_pause"`
	Temperature       float64       `yaml:"temperature"         mapstructure:"temperature"`
	MaxTokens         int           `yaml:"max_tokens"          mapstructure:"max_tokens"`
	RequestsPerMinute float64       `yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
	Timeout           time.Duration `yaml:"timeout"             mapstructure:"timeout"`
}

// Filter holds the quality filter thresholds.
type Filter struct {
	MinConfidence        float64 `yaml:"min_confidence"          mapstructure:"min_confidence"`
	ExcludeNeedsMoreInfo bool    `yaml:"exclude_needs_more_info" mapstructure:"exclude_needs_more_info"`
}

var defaults = map[string]any{
	"output_dir":                     "output",
	"model":                          "gpt-3.5-turbo",
	"log_level":                      "info",
	"log_format":                     "console",
	"refine.batch_size":              10,
	"refine.max_workers":             5,
	"refine.batch_pause":             "1s",
	"refine.temperature":             0.1,
	"refine.max_tokens":              1500,
	"refine.requests_per_minute":     0,
	"refine.timeout":                 "120s",
	"filter.min_confidence":          0.7,
	"filter.exclude_needs_more_info": true,
}

var envBindings = map[string]string{
	"github_token":                 "GITHUB_TOKEN",
	"output_dir":                   "ISSUEKB_OUTPUT_DIR",
	"model":                        "ISSUEKB_MODEL",
	"log_level":                    "ISSUEKB_LOG_LEVEL",
	"log_format":                   "ISSUEKB_LOG_FORMAT",
	"providers.openai.api_key":     "OPENAI_API_KEY",
	"providers.openai.base_url":    "OPENAI_BASE_URL",
	"providers.anthropic.api_key":  "ANTHROPIC_API_KEY",
	"providers.volcengine.api_key": "VOLCENGINE_API_KEY",
	"providers.ollama.base_url":    "OLLAMA_HOST",
}

// DefaultPath returns the default config file path (~/.issue-kb.yaml).
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".issue-kb.yaml"
	}
	return filepath.Join(home, ".issue-kb.yaml")
}

// LoadDotEnv loads KEY=value pairs from path into the environment. Variables
// already set win. A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// Load reads config from the YAML file and applies env var overrides.
// configPath may be empty to use the default path.
func Load(configPath string) (Config, error) {
	return load(configPath, true)
}

// LoadFile reads config from the YAML file and defaults only. Values that
// come from the environment are not applied, so saving the result never
// copies env-only secrets into the file.
func LoadFile(configPath string) (Config, error) {
	return load(configPath, false)
}

func load(configPath string, withEnv bool) (Config, error) {
	v := viper.New()

	if configPath == "" {
		configPath = DefaultPath()
	}

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	if withEnv {
		for key, env := range envBindings {
			if err := v.BindEnv(key, env); err != nil {
				return Config{}, fmt.Errorf("binding %s: %w", env, err)
			}
		}
	}

	// A missing file is fine: defaults and env vars still apply.
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}

	return cfg, nil
}

// Validate checks the refinement and filter settings.
func (c Config) Validate() error {
	if c.Refine.BatchSize <= 0 {
		return fmt.Errorf("refine.batch_size must be positive, got %d", c.Refine.BatchSize)
	}
	if c.Refine.MaxWorkers <= 0 {
		return fmt.Errorf("refine.max_workers must be positive, got %d", c.Refine.MaxWorkers)
	}
	if c.Refine.BatchPause < 0 {
		return fmt.Errorf("refine.batch_pause must not be negative, got %s", c.Refine.BatchPause)
	}
	if c.Refine.MaxTokens < 0 {
		return fmt.Errorf("refine.max_tokens must not be negative, got %d", c.Refine.MaxTokens)
	}
	if c.Refine.RequestsPerMinute < 0 {
		return fmt.Errorf("refine.requests_per_minute must not be negative, got %g", c.Refine.RequestsPerMinute)
	}
	if c.Filter.MinConfidence < 0 || c.Filter.MinConfidence > 1 {
		return fmt.Errorf("filter.min_confidence must be within [0, 1], got %g", c.Filter.MinConfidence)
	}
	return nil
}

// Save writes the config to the given path (or default path if empty).
func Save(cfg Config, configPath string) error {
	if configPath == "" {
		configPath = DefaultPath()
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}
